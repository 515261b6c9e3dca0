package out

import (
	"context"
	"fmt"

	runlogdto "nightwatch/internal/modules/runlog/dto"
	runlogin "nightwatch/internal/modules/runlog/port/in"
	"nightwatch/internal/modules/tracker/domain"
	trackerout "nightwatch/internal/modules/tracker/port/out"
)

// RunlogRecorder archives ended sessions in the run log.
type RunlogRecorder struct {
	runs runlogin.Usecase
}

func NewRunlogRecorder(runs runlogin.Usecase) trackerout.RunRecorder {
	return &RunlogRecorder{runs: runs}
}

func (r *RunlogRecorder) Record(ctx context.Context, run domain.RunSummary) error {
	input := runlogdto.RecordInput{
		StartedAt:    run.StartedAt,
		EndedAt:      run.EndedAt,
		Outcome:      string(run.Outcome),
		TotalElapsed: run.TotalElapsed,
	}
	for _, m := range run.History.Recorded() {
		input.Marks = append(input.Marks, runlogdto.MarkInput{Label: m.Label, Elapsed: m.Elapsed})
	}
	if _, err := r.runs.Record(ctx, input); err != nil {
		return fmt.Errorf("archive run: %w", err)
	}
	return nil
}
