package usecase

import (
	"context"
	"fmt"
	"strings"

	"nightwatch/internal/modules/runlog/dto"
	runlogin "nightwatch/internal/modules/runlog/port/in"
	"nightwatch/internal/modules/runlog/service"
	apperrors "nightwatch/internal/platform/errors"
)

type Interactor struct {
	svc *service.RunService
}

func NewInteractor(svc *service.RunService) runlogin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Record(ctx context.Context, input dto.RecordInput) (dto.RunOutput, error) {
	return i.svc.Record(ctx, input)
}

func (i *Interactor) List(ctx context.Context, input dto.ListInput) ([]dto.RunOutput, error) {
	return i.svc.List(ctx, input)
}

func (i *Interactor) Get(ctx context.Context, runID string) (dto.RunOutput, error) {
	if strings.TrimSpace(runID) == "" {
		return dto.RunOutput{}, fmt.Errorf("%w: run id is required", apperrors.ErrInvalidInput)
	}
	return i.svc.Get(ctx, runID)
}

func (i *Interactor) Export(ctx context.Context, runID string) (dto.ExportOutput, error) {
	if strings.TrimSpace(runID) == "" {
		return dto.ExportOutput{}, fmt.Errorf("%w: run id is required", apperrors.ErrInvalidInput)
	}
	return i.svc.Export(ctx, runID)
}

func (i *Interactor) Stats(ctx context.Context) (dto.StatsOutput, error) {
	return i.svc.Stats(ctx)
}
