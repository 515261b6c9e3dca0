package in

import (
	"context"

	"nightwatch/internal/modules/tracker/dto"
)

// Usecase is the session controller surface shared by the terminal overlay,
// the HTTP overlay and the CLI.
type Usecase interface {
	Run(ctx context.Context) error
	Snapshot() dto.Snapshot
	Subscribe(ctx context.Context) <-chan dto.Update

	StartManually(ctx context.Context) (dto.Snapshot, error)
	StopAutoDetection(ctx context.Context) (dto.Snapshot, error)
	TogglePause(ctx context.Context) (dto.Snapshot, error)
	ResetSession(ctx context.Context) (dto.Snapshot, error)
	ToggleLock(ctx context.Context) (dto.Snapshot, error)
	// MarkPhase applies a phase label by hand, e.g. DAY_II or DEFEAT.
	MarkPhase(ctx context.Context, label string) (dto.Snapshot, error)

	// ClassifyOnce runs a single capture and classification outside the
	// scheduler without touching session state.
	ClassifyOnce(ctx context.Context) (dto.ClassifyOutput, error)
}
