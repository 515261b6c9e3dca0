package service

import (
	"context"
	"fmt"
	"strings"

	"nightwatch/internal/modules/runlog/domain"
	"nightwatch/internal/modules/runlog/dto"
	runlogout "nightwatch/internal/modules/runlog/port/out"
	"nightwatch/internal/platform/clock"
	apperrors "nightwatch/internal/platform/errors"
	"nightwatch/internal/platform/id"
)

const defaultListLimit = 20

type RunService struct {
	idGen id.Generator
	store runlogout.RunStore
	notes runlogout.NoteWriter
}

func NewRunService(idGen id.Generator, store runlogout.RunStore, notes runlogout.NoteWriter) *RunService {
	return &RunService{idGen: idGen, store: store, notes: notes}
}

func (s *RunService) Record(ctx context.Context, input dto.RecordInput) (dto.RunOutput, error) {
	run := domain.Run{
		ID:        s.idGen.New(),
		StartedAt: input.StartedAt,
		EndedAt:   input.EndedAt,
		Outcome:   domain.Outcome(strings.ToLower(input.Outcome)),
		Total:     input.TotalElapsed,
	}
	for i, m := range input.Marks {
		run.Marks = append(run.Marks, domain.Mark{Slot: i, Label: m.Label, Elapsed: m.Elapsed})
	}
	if err := run.Validate(); err != nil {
		return dto.RunOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if err := s.store.Save(ctx, run); err != nil {
		return dto.RunOutput{}, err
	}
	return toOutput(run), nil
}

func (s *RunService) List(ctx context.Context, input dto.ListInput) ([]dto.RunOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	outcome := domain.Outcome(strings.ToLower(input.Outcome))
	if outcome != "" {
		if err := outcome.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
	}
	runs, err := s.store.List(ctx, limit, outcome)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RunOutput, 0, len(runs))
	for _, run := range runs {
		out = append(out, toOutput(run))
	}
	return out, nil
}

func (s *RunService) Get(ctx context.Context, runID string) (dto.RunOutput, error) {
	run, err := s.store.Get(ctx, runID)
	if err != nil {
		return dto.RunOutput{}, err
	}
	return toOutput(run), nil
}

func (s *RunService) Export(ctx context.Context, runID string) (dto.ExportOutput, error) {
	if s.notes == nil {
		return dto.ExportOutput{}, fmt.Errorf("note export: %w", apperrors.ErrNotConfigured)
	}
	run, err := s.store.Get(ctx, runID)
	if err != nil {
		return dto.ExportOutput{}, err
	}
	path, err := s.notes.Write(ctx, run)
	if err != nil {
		return dto.ExportOutput{}, err
	}
	return dto.ExportOutput{RunID: run.ID, Path: path}, nil
}

func (s *RunService) Stats(ctx context.Context) (dto.StatsOutput, error) {
	runs, err := s.store.List(ctx, 0, "")
	if err != nil {
		return dto.StatsOutput{}, err
	}
	if len(runs) == 0 {
		return dto.StatsOutput{}, apperrors.ErrNoRuns
	}
	stats := domain.Summarize(runs)
	out := dto.StatsOutput{Runs: stats.Runs, Victories: stats.Victories, Defeats: stats.Defeats, Expired: stats.Expired, BestVictory: "-"}
	if stats.Victories > 0 {
		out.BestVictory = clock.Format(stats.BestVictory)
	}
	return out, nil
}

func toOutput(run domain.Run) dto.RunOutput {
	marks := make([]dto.MarkOutput, 0, len(run.Marks))
	for _, m := range run.Marks {
		marks = append(marks, dto.MarkOutput{Slot: m.Slot, Label: m.Label, Display: clock.Format(m.Elapsed)})
	}
	return dto.RunOutput{
		ID:        run.ID,
		StartedAt: run.StartedAt,
		EndedAt:   run.EndedAt,
		Outcome:   string(run.Outcome),
		Total:     clock.Format(run.Total),
		Marks:     marks,
	}
}
