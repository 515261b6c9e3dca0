package out

import (
	"context"

	"nightwatch/internal/modules/runlog/domain"
)

type RunStore interface {
	Save(ctx context.Context, run domain.Run) error
	List(ctx context.Context, limit int, outcome domain.Outcome) ([]domain.Run, error)
	Get(ctx context.Context, runID string) (domain.Run, error)
}

type NoteWriter interface {
	Write(ctx context.Context, run domain.Run) (string, error)
}
