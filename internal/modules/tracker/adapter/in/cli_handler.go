package in

import (
	"context"

	trackerdto "nightwatch/internal/modules/tracker/dto"
	trackerin "nightwatch/internal/modules/tracker/port/in"
)

type CLIHandler struct {
	usecase trackerin.Usecase
}

func NewCLIHandler(usecase trackerin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) ClassifyOnce(ctx context.Context) (trackerdto.ClassifyOutput, error) {
	return h.usecase.ClassifyOnce(ctx)
}
