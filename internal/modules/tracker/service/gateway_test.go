package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nightwatch/internal/modules/tracker/domain"
	"nightwatch/internal/modules/tracker/service"
	apperrors "nightwatch/internal/platform/errors"
)

type fakeCapturer struct {
	shot domain.Screenshot
	err  error
}

func (f fakeCapturer) Capture(context.Context) (domain.Screenshot, error) {
	return f.shot, f.err
}

type fakeClassifier struct {
	raw   string
	err   error
	block chan struct{}
	got   domain.Screenshot
}

func (f *fakeClassifier) Classify(_ context.Context, shot domain.Screenshot) (string, error) {
	f.got = shot
	if f.block != nil {
		<-f.block
	}
	return f.raw, f.err
}

var png = domain.Screenshot{Data: []byte{0x89, 'P', 'N', 'G'}, MIME: "image/png"}

func TestGatewayParsesLabel(t *testing.T) {
	t.Parallel()
	classifier := &fakeClassifier{raw: "day_ii"}
	gw := service.NewGateway(fakeCapturer{shot: png}, classifier, time.Second, nil)
	label, err := gw.Classify(context.Background())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if label != domain.LabelDay2 {
		t.Fatalf("expected DAY_II, got %s", label)
	}
	if !strings.HasPrefix(classifier.got.DataURI(), "data:image/png;base64,") {
		t.Fatalf("unexpected data uri %q", classifier.got.DataURI())
	}
}

func TestGatewayInvalidLabelIsNotAnError(t *testing.T) {
	t.Parallel()
	gw := service.NewGateway(fakeCapturer{shot: png}, &fakeClassifier{raw: "WAITING"}, time.Second, nil)
	label, err := gw.Classify(context.Background())
	if err != nil || label != domain.LabelUnclassified {
		t.Fatalf("expected unclassified without error, got %s %v", label, err)
	}
}

func TestGatewayFailureTaxonomy(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		capturer   fakeCapturer
		classifier *fakeClassifier
		permission bool
	}{
		{"permission", fakeCapturer{err: apperrors.ErrPermissionDenied}, &fakeClassifier{raw: "DAY_I"}, true},
		{"capture", fakeCapturer{err: errors.New("no display")}, &fakeClassifier{raw: "DAY_I"}, false},
		{"empty", fakeCapturer{}, &fakeClassifier{raw: "DAY_I"}, false},
		{"classifier", fakeCapturer{shot: png}, &fakeClassifier{err: errors.New("503")}, false},
	}
	for _, tc := range cases {
		gw := service.NewGateway(tc.capturer, tc.classifier, time.Second, nil)
		_, err := gw.Classify(context.Background())
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if tc.permission != errors.Is(err, apperrors.ErrPermissionDenied) {
			t.Fatalf("%s: permission mismatch: %v", tc.name, err)
		}
		if !tc.permission && !errors.Is(err, apperrors.ErrClassificationFailed) {
			t.Fatalf("%s: expected classification failure, got %v", tc.name, err)
		}
	}
}

func TestGatewayTimeoutHoldsWhenAdapterIgnoresContext(t *testing.T) {
	t.Parallel()
	classifier := &fakeClassifier{raw: "DAY_I", block: make(chan struct{})}
	defer close(classifier.block)
	gw := service.NewGateway(fakeCapturer{shot: png}, classifier, 20*time.Millisecond, nil)

	start := time.Now()
	_, err := gw.Classify(context.Background())
	if !errors.Is(err, apperrors.ErrClassificationTimeout) || !errors.Is(err, apperrors.ErrClassificationFailed) {
		t.Fatalf("expected timeout failure, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("gateway waited too long")
	}
}

func TestGatewayWithoutAdaptersIsNotConfigured(t *testing.T) {
	t.Parallel()
	gw := service.NewGateway(nil, nil, time.Second, nil)
	if _, err := gw.Classify(context.Background()); !errors.Is(err, apperrors.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
