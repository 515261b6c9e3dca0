package in

import (
	"context"

	"nightwatch/internal/modules/vision/dto"
	visionin "nightwatch/internal/modules/vision/port/in"
)

type CLIHandler struct {
	usecase visionin.Usecase
}

func NewCLIHandler(usecase visionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}
