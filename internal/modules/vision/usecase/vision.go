package usecase

import (
	"context"

	"nightwatch/internal/modules/vision/dto"
	visionin "nightwatch/internal/modules/vision/port/in"
	"nightwatch/internal/modules/vision/service"
)

type Interactor struct {
	svc *service.VisionService
}

func NewInteractor(svc *service.VisionService) visionin.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return i.svc.List(ctx)
}

func (i *Interactor) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return i.svc.Doctor(ctx)
}

func (i *Interactor) Classify(ctx context.Context, input dto.ClassifyInput) (dto.ClassifyOutput, error) {
	return i.svc.Classify(ctx, input)
}
