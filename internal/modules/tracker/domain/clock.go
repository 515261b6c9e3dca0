package domain

import "time"

// Counter is a wall-clock driven count-up timer. Elapsed time is derived
// from timestamps rather than counted ticks, so a late tick never loses time.
type Counter struct {
	accumulated time.Duration
	since       time.Time
	running     bool
	frozen      bool
}

func (c *Counter) Running() bool { return c.running }

// Start resumes counting at now. Starting a running counter is a no-op.
func (c *Counter) Start(now time.Time) {
	if c.running {
		return
	}
	c.running = true
	c.since = now
}

// Stop folds the running span into the accumulated total.
func (c *Counter) Stop(now time.Time) {
	if !c.running {
		return
	}
	c.fold(now)
	c.running = false
}

// Reset stops the counter and zeroes it.
func (c *Counter) Reset() {
	*c = Counter{}
}

func (c *Counter) freeze(now time.Time) {
	if c.frozen {
		return
	}
	if c.running {
		c.fold(now)
	}
	c.frozen = true
}

func (c *Counter) thaw(now time.Time) {
	if !c.frozen {
		return
	}
	c.frozen = false
	c.since = now
}

func (c *Counter) Elapsed(now time.Time) time.Duration {
	if !c.running || c.frozen {
		return c.accumulated
	}
	return c.accumulated + span(c.since, now)
}

func (c *Counter) fold(now time.Time) {
	if !c.frozen {
		c.accumulated += span(c.since, now)
	}
	c.since = now
}

// span clamps backwards clock steps to zero.
func span(from, to time.Time) time.Duration {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return d
}

// Countdown counts a budget down to zero and stays there.
type Countdown struct {
	budget  time.Duration
	counter Counter
}

func (c *Countdown) Running() bool { return c.counter.Running() }

// Restart loads a fresh budget and starts counting down at now.
func (c *Countdown) Restart(now time.Time, budget time.Duration, frozen bool) {
	c.budget = budget
	c.counter.Reset()
	c.counter.frozen = frozen
	c.counter.Start(now)
}

func (c *Countdown) Stop(now time.Time) { c.counter.Stop(now) }

// Load sets the budget without starting the countdown.
func (c *Countdown) Load(budget time.Duration) {
	c.budget = budget
	c.counter.Reset()
}

func (c *Countdown) Remaining(now time.Time) time.Duration {
	left := c.budget - c.counter.Elapsed(now)
	if left < 0 {
		return 0
	}
	return left
}

// overrun is how far past zero the countdown has run.
func (c *Countdown) overrun(now time.Time) time.Duration {
	over := c.counter.Elapsed(now) - c.budget
	if over < 0 {
		return 0
	}
	return over
}

// Expired reports a running countdown that has reached zero.
func (c *Countdown) Expired(now time.Time) bool {
	return c.counter.Running() && c.Remaining(now) == 0
}

// Timers is the pair of counters a session runs on: the session-wide elapsed
// counter and the per-phase countdown. One pause flag governs both.
type Timers struct {
	Session Counter
	Phase   Countdown
	paused  bool
}

func (t *Timers) Paused() bool { return t.paused }

func (t *Timers) Pause(now time.Time) {
	if t.paused {
		return
	}
	t.paused = true
	t.Session.freeze(now)
	t.Phase.counter.freeze(now)
}

func (t *Timers) Resume(now time.Time) {
	if !t.paused {
		return
	}
	t.paused = false
	t.Session.thaw(now)
	t.Phase.counter.thaw(now)
}

// StartPhase restarts the countdown with budget, honouring the pause flag.
func (t *Timers) StartPhase(now time.Time, budget time.Duration) {
	t.Phase.Restart(now, budget, t.paused)
}

// StopAll stops both counters and clears the pause flag.
func (t *Timers) StopAll(now time.Time) {
	t.Resume(now)
	t.Session.Stop(now)
	t.Phase.Stop(now)
}
