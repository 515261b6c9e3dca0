package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"nightwatch/internal/modules/tracker/domain"
	"nightwatch/internal/modules/tracker/dto"
	trackerin "nightwatch/internal/modules/tracker/port/in"
	trackerout "nightwatch/internal/modules/tracker/port/out"
	"nightwatch/internal/modules/tracker/service"
	"nightwatch/internal/platform/clock"
	apperrors "nightwatch/internal/platform/errors"
	"nightwatch/internal/platform/logging"
)

const (
	TickInterval     = time.Second
	subscriberBuffer = 16
)

// Controller is the only mutation surface of a tracked session. One mutex
// serialises the tick loop, poll results and user operations. Lock order is
// controller then scheduler.
type Controller struct {
	clock     clock.Clock
	scheduler *service.Scheduler
	recorder  trackerout.RunRecorder
	log       *logrus.Entry
	tick      time.Duration

	mu              sync.Mutex
	machine         *domain.Machine
	locked          bool
	manuallyStarted bool
	lastLabel       domain.Label
	lastFailure     *dto.Failure
	runCtx          context.Context
	subs            map[int]chan dto.Update
	nextSub         int
}

func NewController(clk clock.Clock, durations domain.PhaseDurations, scheduler *service.Scheduler, recorder trackerout.RunRecorder, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logging.Discard())
	}
	return &Controller{
		clock:     clk,
		scheduler: scheduler,
		recorder:  recorder,
		log:       log,
		tick:      TickInterval,
		machine:   domain.NewMachine(durations),
		runCtx:    context.Background(),
		subs:      map[int]chan dto.Update{},
	}
}

var _ trackerin.Usecase = (*Controller)(nil)

// Run starts auto-detection and drives the clock until ctx ends. On exit the
// scheduler is stopped and in-flight polls are awaited.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	events := c.startDetection(nil)
	c.publish(c.clock.Now(), events)
	c.mu.Unlock()

	ticker := time.NewTicker(c.tick)
	defer func() {
		ticker.Stop()
		c.scheduler.Stop()
		c.scheduler.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Tick checks the countdown and publishes a fresh snapshot.
func (c *Controller) Tick() {
	c.mu.Lock()
	now := c.clock.Now()
	events := c.handle(c.machine.Tick(now), nil)
	summary, ended := c.endedRun(events)
	c.publish(now, events)
	c.mu.Unlock()
	if ended {
		c.record(summary)
	}
}

func (c *Controller) HandleLabel(gen uint64, label domain.Label) {
	c.mu.Lock()
	if !c.scheduler.IsCurrent(gen) {
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{"generation": gen, "label": label}).Debug("ignoring stale label")
		return
	}
	now := c.clock.Now()
	c.lastLabel = label
	effects := c.machine.Apply(label, now)
	events := c.handle(effects, []dto.Event{dto.EventClassified})
	summary, ended := c.endedRun(events)
	c.publish(now, events)
	phase := c.machine.Phase()
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"label": label, "phase": phase}).Debug("label applied")
	if ended {
		c.record(summary)
	}
}

// HandleFailure stops polling and surfaces the failure. There is no retry.
func (c *Controller) HandleFailure(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.scheduler.IsCurrent(gen) {
		return
	}
	kind := dto.EventClassificationFailed
	if errors.Is(err, apperrors.ErrPermissionDenied) {
		kind = dto.EventPermissionDenied
	}
	now := c.clock.Now()
	c.lastFailure = &dto.Failure{Kind: kind, Message: err.Error(), At: now}
	events := []dto.Event{kind}
	if c.scheduler.Stop() {
		events = append(events, dto.EventPollingStopped)
	}
	c.log.WithError(err).WithField("kind", kind).Warn("auto-detection stopped")
	c.publish(now, events)
}

func (c *Controller) StartManually(_ context.Context) (dto.Snapshot, error) {
	return c.mutate(func(now time.Time) ([]dto.Event, error) {
		effects := c.machine.ManualStart(now)
		if effects.Has(domain.EffectSessionStarted) {
			c.manuallyStarted = true
		}
		return c.handle(effects, nil), nil
	})
}

// MarkPhase feeds a label by hand through the same transition table the
// classifier uses.
func (c *Controller) MarkPhase(_ context.Context, raw string) (dto.Snapshot, error) {
	label := domain.ParseLabel(raw)
	if label == domain.LabelUnclassified {
		return c.Snapshot(), fmt.Errorf("%w: unknown phase label %q", apperrors.ErrInvalidInput, raw)
	}
	return c.mutate(func(now time.Time) ([]dto.Event, error) {
		c.lastLabel = label
		return c.handle(c.machine.Apply(label, now), nil), nil
	})
}

func (c *Controller) StopAutoDetection(_ context.Context) (dto.Snapshot, error) {
	return c.mutate(func(now time.Time) ([]dto.Event, error) {
		events := c.handle(c.machine.Tick(now), nil)
		if c.scheduler.Stop() {
			events = append(events, dto.EventPollingStopped)
		}
		return events, nil
	})
}

func (c *Controller) TogglePause(_ context.Context) (dto.Snapshot, error) {
	return c.mutate(func(now time.Time) ([]dto.Event, error) {
		effects, err := c.machine.TogglePause(now)
		return c.handle(effects, nil), err
	})
}

func (c *Controller) ResetSession(_ context.Context) (dto.Snapshot, error) {
	return c.mutate(func(now time.Time) ([]dto.Event, error) {
		return c.handle(c.machine.Reset(now), nil), nil
	})
}

// ToggleLock is the one operation allowed while locked.
func (c *Controller) ToggleLock(_ context.Context) (dto.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locked = !c.locked
	event := dto.EventUnlocked
	if c.locked {
		event = dto.EventLocked
	}
	now := c.clock.Now()
	c.publish(now, []dto.Event{event})
	return c.snapshot(now), nil
}

func (c *Controller) Snapshot() dto.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(c.clock.Now())
}

// Subscribe streams an Update after every mutation until ctx ends. A slow
// subscriber loses its oldest pending updates, never the newest.
func (c *Controller) Subscribe(ctx context.Context) <-chan dto.Update {
	ch := make(chan dto.Update, subscriberBuffer)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- dto.Update{Snapshot: c.snapshot(c.clock.Now())}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.subs, id)
		close(ch)
		c.mu.Unlock()
	}()
	return ch
}

// ClassifyOnce runs a diagnostic classification without touching session
// state. It is refused while a poll is in flight.
func (c *Controller) ClassifyOnce(ctx context.Context) (dto.ClassifyOutput, error) {
	if c.scheduler == nil {
		return dto.ClassifyOutput{}, apperrors.ErrNotConfigured
	}
	start := c.clock.Now()
	label, err := c.scheduler.ClassifyOnce(ctx)
	if err != nil {
		return dto.ClassifyOutput{}, err
	}
	return dto.ClassifyOutput{Label: string(label), Duration: c.clock.Now().Sub(start)}, nil
}

// mutate runs one locked user operation: rejected while locked, otherwise
// applied, published and answered with the resulting snapshot.
func (c *Controller) mutate(op func(now time.Time) ([]dto.Event, error)) (dto.Snapshot, error) {
	c.mu.Lock()
	now := c.clock.Now()
	if c.locked {
		snap := c.snapshot(now)
		c.mu.Unlock()
		return snap, apperrors.ErrControlsLocked
	}
	events, err := op(now)
	summary, ended := c.endedRun(events)
	if len(events) > 0 || err == nil {
		c.publish(now, events)
	}
	snap := c.snapshot(now)
	c.mu.Unlock()

	if ended {
		c.record(summary)
	}
	return snap, err
}

// handle turns machine effects into scheduler actions and events. Starting a
// session stops polling; finishing, expiring or resetting one resumes it.
func (c *Controller) handle(effects domain.Effects, events []dto.Event) []dto.Event {
	if effects.Has(domain.EffectSessionStarted) {
		c.lastFailure = nil
		events = append(events, dto.EventSessionStarted)
		if c.scheduler.Stop() {
			events = append(events, dto.EventPollingStopped)
		}
	}
	if effects.Has(domain.EffectPhaseAdvanced) {
		events = append(events, dto.EventPhaseAdvanced)
	}
	if effects.Has(domain.EffectPhaseExpired) {
		events = append(events, dto.EventPhaseExpired)
	}
	if effects.Has(domain.EffectPaused) {
		events = append(events, dto.EventPaused)
	}
	if effects.Has(domain.EffectResumed) {
		events = append(events, dto.EventResumed)
	}
	if effects.Has(domain.EffectSessionFinished) {
		events = append(events, dto.EventSessionFinished)
	}
	if effects.Has(domain.EffectClearSelection) {
		events = append(events, dto.EventClearSelection)
	}
	if effects.Has(domain.EffectSessionExpired) {
		events = append(events, dto.EventSessionExpired)
	}
	if effects.Ended() {
		c.manuallyStarted = false
		events = c.startDetection(events)
	}
	if effects.Has(domain.EffectSessionReset) {
		c.manuallyStarted = false
		c.lastFailure = nil
		c.lastLabel = ""
		events = append(events, dto.EventSessionReset)
		c.scheduler.Stop()
		events = c.startDetection(events)
	}
	return events
}

func (c *Controller) startDetection(events []dto.Event) []dto.Event {
	if c.machine.Running() {
		return events
	}
	if _, ok := c.scheduler.Start(c.runCtx, c); ok {
		events = append(events, dto.EventPollingStarted)
	}
	return events
}

func (c *Controller) endedRun(events []dto.Event) (domain.RunSummary, bool) {
	for _, e := range events {
		if e == dto.EventSessionFinished || e == dto.EventSessionExpired {
			return c.machine.Summary(), true
		}
	}
	return domain.RunSummary{}, false
}

// record archives a finished run. It runs outside the controller lock.
func (c *Controller) record(summary domain.RunSummary) {
	entry := c.log.WithFields(logrus.Fields{
		"outcome": summary.Outcome,
		"total":   domain.FormatClock(summary.TotalElapsed),
	})
	entry.Info("session ended")
	if c.recorder == nil {
		return
	}
	c.mu.Lock()
	ctx := c.runCtx
	c.mu.Unlock()
	if err := c.recorder.Record(context.WithoutCancel(ctx), summary); err != nil {
		entry.WithError(err).Error("archive run")
	}
}

func (c *Controller) publish(now time.Time, events []dto.Event) {
	if len(c.subs) == 0 {
		return
	}
	update := dto.Update{Snapshot: c.snapshot(now), Events: events}
	for _, ch := range c.subs {
		select {
		case ch <- update:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- update:
		default:
		}
	}
}

func (c *Controller) snapshot(now time.Time) dto.Snapshot {
	st := c.machine.State(now)
	durations := c.machine.Durations()

	history := make([]dto.HistoryEntry, 0, len(st.History))
	for _, mark := range st.History {
		history = append(history, dto.HistoryEntry{
			Label:    mark.Label,
			Elapsed:  mark.Elapsed,
			Display:  mark.Display(),
			Recorded: mark.Recorded,
		})
	}
	var failure *dto.Failure
	if c.lastFailure != nil {
		f := *c.lastFailure
		failure = &f
	}
	return dto.Snapshot{
		Phase:               st.Phase.String(),
		PhaseIndex:          st.PhaseIndex,
		DayLabel:            domain.DayLabels[st.PhaseIndex],
		Remaining:           st.Remaining,
		RemainingText:       domain.FormatClock(st.Remaining),
		TotalElapsed:        st.TotalElapsed,
		TotalElapsedText:    domain.FormatClock(st.TotalElapsed),
		PhaseTimerRunning:   st.PhaseTimerRunning,
		SessionTimerRunning: st.SessionTimerRunning,
		Paused:              st.Paused,
		History:             history,
		Polling:             c.scheduler.Polling(),
		Busy:                c.scheduler.Busy(),
		Locked:              c.locked,
		ManuallyStarted:     c.manuallyStarted,
		LastLabel:           string(c.lastLabel),
		LastFailure:         failure,
		Durations:           durations[:],
		TakenAt:             now,
	}
}
