package in

import (
	"context"

	"nightwatch/internal/modules/vision/dto"
)

type Usecase interface {
	List(ctx context.Context) ([]dto.PluginInfo, error)
	Doctor(ctx context.Context) ([]dto.DoctorResult, error)
	Classify(ctx context.Context, input dto.ClassifyInput) (dto.ClassifyOutput, error)
}
