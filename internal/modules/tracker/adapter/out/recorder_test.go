package out_test

import (
	"context"
	"errors"
	"testing"
	"time"

	runlogdto "nightwatch/internal/modules/runlog/dto"
	trackerout "nightwatch/internal/modules/tracker/adapter/out"
	"nightwatch/internal/modules/tracker/domain"
	visiondto "nightwatch/internal/modules/vision/dto"
)

type fakeRunlog struct {
	got runlogdto.RecordInput
	err error
}

func (f *fakeRunlog) Record(_ context.Context, input runlogdto.RecordInput) (runlogdto.RunOutput, error) {
	f.got = input
	return runlogdto.RunOutput{ID: "run-1"}, f.err
}

func (f *fakeRunlog) List(context.Context, runlogdto.ListInput) ([]runlogdto.RunOutput, error) {
	return nil, nil
}

func (f *fakeRunlog) Get(context.Context, string) (runlogdto.RunOutput, error) {
	return runlogdto.RunOutput{}, nil
}

func (f *fakeRunlog) Export(context.Context, string) (runlogdto.ExportOutput, error) {
	return runlogdto.ExportOutput{}, nil
}

func (f *fakeRunlog) Stats(context.Context) (runlogdto.StatsOutput, error) {
	return runlogdto.StatsOutput{}, nil
}

func TestRunlogRecorderKeepsRecordedSlotsOnly(t *testing.T) {
	t.Parallel()
	history := domain.NewHistory()
	history[0].Elapsed, history[0].Recorded = 100*time.Second, true
	history[1].Elapsed, history[1].Recorded = 250*time.Second, true

	start := time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)
	runs := &fakeRunlog{}
	err := trackerout.NewRunlogRecorder(runs).Record(context.Background(), domain.RunSummary{
		StartedAt:    start,
		EndedAt:      start.Add(300 * time.Second),
		Outcome:      domain.OutcomeDefeat,
		TotalElapsed: 300 * time.Second,
		History:      history,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if runs.got.Outcome != "defeat" || runs.got.TotalElapsed != 300*time.Second {
		t.Fatalf("unexpected input: %+v", runs.got)
	}
	if len(runs.got.Marks) != 2 || runs.got.Marks[1].Label != "DAY II" || runs.got.Marks[1].Elapsed != 250*time.Second {
		t.Fatalf("unexpected marks: %+v", runs.got.Marks)
	}
}

func TestRunlogRecorderWrapsErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("disk full")
	err := trackerout.NewRunlogRecorder(&fakeRunlog{err: boom}).Record(context.Background(), domain.RunSummary{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

type fakeVision struct {
	got visiondto.ClassifyInput
}

func (f *fakeVision) List(context.Context) ([]visiondto.PluginInfo, error) { return nil, nil }

func (f *fakeVision) Doctor(context.Context) ([]visiondto.DoctorResult, error) { return nil, nil }

func (f *fakeVision) Classify(_ context.Context, input visiondto.ClassifyInput) (visiondto.ClassifyOutput, error) {
	f.got = input
	return visiondto.ClassifyOutput{PluginName: input.PluginName, Label: "VICTORY", Confidence: 0.9}, nil
}

func TestPluginClassifierForwardsDataURI(t *testing.T) {
	t.Parallel()
	vision := &fakeVision{}
	label, err := trackerout.NewPluginClassifier(vision, "replay").
		Classify(context.Background(), domain.Screenshot{Data: []byte{1, 2, 3}, MIME: "image/jpeg"})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if label != "VICTORY" || vision.got.PluginName != "replay" {
		t.Fatalf("unexpected result %q / %+v", label, vision.got)
	}
	if vision.got.ImageDataURI != "data:image/jpeg;base64,AQID" {
		t.Fatalf("unexpected data uri %q", vision.got.ImageDataURI)
	}
}
