package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"nightwatch/internal/modules/tracker/domain"
	apperrors "nightwatch/internal/platform/errors"
	"nightwatch/internal/platform/logging"
)

const PollInterval = 5 * time.Second

// LabelSource is what the scheduler polls. Gateway is the production one.
type LabelSource interface {
	Classify(ctx context.Context) (domain.Label, error)
}

// PollHandler receives poll outcomes tagged with the generation that issued
// them. Handlers must check the generation with IsCurrent before acting.
type PollHandler interface {
	HandleLabel(gen uint64, label domain.Label)
	HandleFailure(gen uint64, err error)
}

// Scheduler polls a LabelSource on a fixed cadence while started. Polls never
// overlap: a tick that finds a poll in flight is skipped. Stop does not cancel
// an in-flight poll; its result is reported with a generation that is no
// longer current.
type Scheduler struct {
	source   LabelSource
	interval time.Duration
	log      *logrus.Entry

	mu      sync.Mutex
	polling bool
	gen     uint64
	stop    chan struct{}

	busy     atomic.Bool
	inflight sync.WaitGroup
}

func NewScheduler(source LabelSource, interval time.Duration, log *logrus.Entry) *Scheduler {
	if interval <= 0 {
		interval = PollInterval
	}
	if log == nil {
		log = logrus.NewEntry(logging.Discard())
	}
	return &Scheduler{source: source, interval: interval, log: log}
}

// Start moves Idle to Polling and issues the first poll immediately. It
// returns the new generation, or false when already polling.
func (s *Scheduler) Start(ctx context.Context, h PollHandler) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polling {
		return 0, false
	}
	s.gen++
	s.polling = true
	s.stop = make(chan struct{})

	s.inflight.Add(1)
	go s.loop(ctx, s.gen, s.stop, h)
	s.log.WithField("generation", s.gen).Debug("polling started")
	return s.gen, true
}

// Stop moves Polling to Idle. It reports whether polling was active.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.polling {
		return false
	}
	s.polling = false
	close(s.stop)
	s.log.WithField("generation", s.gen).Debug("polling stopped")
	return true
}

// Wait blocks until the poll loop and any in-flight poll have returned.
func (s *Scheduler) Wait() { s.inflight.Wait() }

func (s *Scheduler) Polling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polling
}

func (s *Scheduler) Busy() bool { return s.busy.Load() }

// IsCurrent reports whether gen belongs to the active polling run.
func (s *Scheduler) IsCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polling && s.gen == gen
}

func (s *Scheduler) loop(ctx context.Context, gen uint64, stop <-chan struct{}, h PollHandler) {
	defer s.inflight.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll(ctx, gen, h)
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.mu.Lock()
			if s.polling && s.gen == gen {
				s.polling = false
				close(s.stop)
			}
			s.mu.Unlock()
			return
		case <-ticker.C:
			s.poll(ctx, gen, h)
		}
	}
}

// poll runs the source call on its own goroutine so the loop keeps draining
// ticks; ticks that land while busy are dropped. Busy covers the handler call
// too, so a failure handler can stop polling before the next tick fires.
func (s *Scheduler) poll(ctx context.Context, gen uint64, h PollHandler) {
	if !s.busy.CompareAndSwap(false, true) {
		s.log.WithField("generation", gen).Debug("poll skipped, previous poll in flight")
		return
	}
	if !s.IsCurrent(gen) {
		s.busy.Store(false)
		return
	}
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.busy.Store(false)
		label, err := s.classify(ctx)
		if !s.IsCurrent(gen) {
			s.log.WithField("generation", gen).Debug("discarding stale poll result")
			return
		}
		if err != nil {
			h.HandleFailure(gen, err)
			return
		}
		h.HandleLabel(gen, label)
	}()
}

// ClassifyOnce runs one source call outside the polling cadence. It shares
// the busy guard with polls and fails with ErrDetectionBusy while any
// classification is in flight.
func (s *Scheduler) ClassifyOnce(ctx context.Context) (domain.Label, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return domain.LabelUnclassified, apperrors.ErrDetectionBusy
	}
	defer s.busy.Store(false)
	return s.source.Classify(ctx)
}

func (s *Scheduler) classify(ctx context.Context) (domain.Label, error) {
	return s.source.Classify(context.WithoutCancel(ctx))
}
