package domain

import (
	"fmt"
	"time"
)

const SchemaVersion = 1

type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeExpired Outcome = "expired"
)

func (o Outcome) Validate() error {
	switch o {
	case OutcomeVictory, OutcomeDefeat, OutcomeExpired:
		return nil
	default:
		return fmt.Errorf("unknown outcome: %q", o)
	}
}

// Mark is the session time at which one day phase ended.
type Mark struct {
	Slot    int
	Label   string
	Elapsed time.Duration
}

// Run is one archived session that ended on its own.
type Run struct {
	ID        string
	StartedAt time.Time
	EndedAt   time.Time
	Outcome   Outcome
	Total     time.Duration
	Marks     []Mark
}

func (r Run) Validate() error {
	if err := r.Outcome.Validate(); err != nil {
		return err
	}
	if r.StartedAt.IsZero() || r.EndedAt.Before(r.StartedAt) {
		return fmt.Errorf("run must end after it starts")
	}
	if r.Total < 0 {
		return fmt.Errorf("total must be non-negative")
	}
	var prev time.Duration
	for i, m := range r.Marks {
		if m.Elapsed < prev || m.Elapsed > r.Total {
			return fmt.Errorf("mark %d out of order", i)
		}
		prev = m.Elapsed
	}
	return nil
}

// Stats aggregates archived runs.
type Stats struct {
	Runs        int
	Victories   int
	Defeats     int
	Expired     int
	BestVictory time.Duration
}

func Summarize(runs []Run) Stats {
	var s Stats
	for _, r := range runs {
		s.Runs++
		switch r.Outcome {
		case OutcomeVictory:
			s.Victories++
			if s.BestVictory == 0 || r.Total < s.BestVictory {
				s.BestVictory = r.Total
			}
		case OutcomeDefeat:
			s.Defeats++
		case OutcomeExpired:
			s.Expired++
		}
	}
	return s
}
