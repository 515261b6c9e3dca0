package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nightwatch/internal/modules/runlog/domain"
	runlogout "nightwatch/internal/modules/runlog/port/out"
	"nightwatch/internal/platform/clock"
	"nightwatch/internal/platform/markdown"
	"nightwatch/internal/platform/slug"
)

type noteMeta struct {
	SchemaVersion int       `yaml:"schema_version"`
	ID            string    `yaml:"id"`
	StartedAt     string    `yaml:"started_at"`
	EndedAt       string    `yaml:"ended_at"`
	Outcome       string    `yaml:"outcome"`
	Total         string    `yaml:"total"`
	Marks         []noteRow `yaml:"marks,omitempty"`
}

type noteRow struct {
	Label   string `yaml:"label"`
	Elapsed string `yaml:"elapsed"`
}

// NoteExporter writes archived runs as markdown notes under the data dir.
type NoteExporter struct {
	dataDir string
}

func NewNoteExporter(dataDir string) runlogout.NoteWriter {
	return &NoteExporter{dataDir: dataDir}
}

func (e *NoteExporter) Write(_ context.Context, run domain.Run) (string, error) {
	date := run.StartedAt
	dir := filepath.Join(e.dataDir, "runs", date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	path := filepath.Join(dir, slug.Make(date.Format("150405"), string(run.Outcome))+".md")

	meta := noteMeta{
		SchemaVersion: domain.SchemaVersion,
		ID:            run.ID,
		StartedAt:     run.StartedAt.Format(time.RFC3339),
		EndedAt:       run.EndedAt.Format(time.RFC3339),
		Outcome:       string(run.Outcome),
		Total:         clock.Format(run.Total),
	}
	var body strings.Builder
	fmt.Fprintf(&body, "# Run %s\n\n- Outcome: %s\n- Total: %s\n", run.ID, run.Outcome, clock.Format(run.Total))
	if len(run.Marks) > 0 {
		body.WriteString("\n## Days\n\n")
	}
	for _, m := range run.Marks {
		meta.Marks = append(meta.Marks, noteRow{Label: m.Label, Elapsed: clock.Format(m.Elapsed)})
		fmt.Fprintf(&body, "- %s: %s\n", m.Label, clock.Format(m.Elapsed))
	}

	rendered, err := markdown.Render(meta, body.String())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write run note: %w", err)
	}
	return path, nil
}
