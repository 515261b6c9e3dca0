package in

import (
	"context"

	runlogdto "nightwatch/internal/modules/runlog/dto"
	runlogin "nightwatch/internal/modules/runlog/port/in"
)

type CLIHandler struct {
	usecase runlogin.Usecase
}

func NewCLIHandler(usecase runlogin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context, limit int, outcome string) ([]runlogdto.RunOutput, error) {
	return h.usecase.List(ctx, runlogdto.ListInput{Limit: limit, Outcome: outcome})
}

func (h CLIHandler) Show(ctx context.Context, runID string) (runlogdto.RunOutput, error) {
	return h.usecase.Get(ctx, runID)
}

func (h CLIHandler) Export(ctx context.Context, runID string) (runlogdto.ExportOutput, error) {
	return h.usecase.Export(ctx, runID)
}

func (h CLIHandler) Stats(ctx context.Context) (runlogdto.StatsOutput, error) {
	return h.usecase.Stats(ctx)
}
