package out

import (
	"context"

	"nightwatch/internal/modules/tracker/domain"
)

type ScreenCapturer interface {
	Capture(ctx context.Context) (domain.Screenshot, error)
}

// PhaseClassifier returns the raw label string; parsing happens in the gateway.
type PhaseClassifier interface {
	Classify(ctx context.Context, shot domain.Screenshot) (string, error)
}

type RunRecorder interface {
	Record(ctx context.Context, run domain.RunSummary) error
}
