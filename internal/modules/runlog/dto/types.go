package dto

import "time"

type MarkInput struct {
	Label   string
	Elapsed time.Duration
}

type RecordInput struct {
	StartedAt    time.Time
	EndedAt      time.Time
	Outcome      string
	TotalElapsed time.Duration
	Marks        []MarkInput
}

type MarkOutput struct {
	Slot    int
	Label   string
	Display string
}

type RunOutput struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   string
	Total     string
	Marks     []MarkOutput
}

type ListInput struct {
	Limit   int
	Outcome string
}

type ExportOutput struct {
	RunID string
	Path  string
}

type StatsOutput struct {
	Runs        int
	Victories   int
	Defeats     int
	Expired     int
	BestVictory string
}
