package in

import (
	"context"

	"nightwatch/internal/modules/runlog/dto"
)

type Usecase interface {
	Record(ctx context.Context, input dto.RecordInput) (dto.RunOutput, error)
	List(ctx context.Context, input dto.ListInput) ([]dto.RunOutput, error)
	Get(ctx context.Context, runID string) (dto.RunOutput, error)
	Export(ctx context.Context, runID string) (dto.ExportOutput, error)
	Stats(ctx context.Context) (dto.StatsOutput, error)
}
