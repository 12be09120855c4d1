package app

import (
	"context"
	"sync"
	"time"

	"flashcard-challenge-service/internal/domain"
)

// TimerState is the state of an attempt's wall-clock budget.
type TimerState string

const (
	TimerIdle    TimerState = "idle"
	TimerRunning TimerState = "running"
	TimerStopped TimerState = "stopped"
	TimerExpired TimerState = "expired"
)

// TimerEvent types pushed to attempt subscribers.
const (
	EventSnapshot  = "snapshot"
	EventTick      = "tick"
	EventExpired   = "expired"
	EventFinalized = "finalized"
)

// TimerEvent is a countdown or lifecycle notification for one attempt.
type TimerEvent struct {
	Type        string                   `json:"type"`
	ChallengeID string                   `json:"challenge_id"`
	Mode        domain.Mode              `json:"mode"`
	State       TimerState               `json:"state"`
	Remaining   int                      `json:"remaining"`
	History     *domain.ChallengeHistory `json:"history,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// AttemptInfo describes an attempt that may be running in another process.
type AttemptInfo struct {
	Mode      domain.Mode
	StartedAt time.Time
}

type finalizeFunc func(ctx context.Context, elapsedSeconds int) (domain.ChallengeHistory, error)

// AttemptConfig describes a single attempt run.
type AttemptConfig struct {
	ChallengeID   string
	Mode          domain.Mode
	AttemptNumber int
	// BudgetSeconds is the number of ticks a timed attempt may run.
	BudgetSeconds int
	// Tick is the interval between countdown steps; one second outside tests.
	Tick time.Duration
	// FinalizeTimeout bounds the finalization triggered by expiry.
	FinalizeTimeout time.Duration
	Now             func() time.Time
}

// Attempt is the in-process state of one challenge attempt. It owns the
// countdown for timed mode and guarantees finalization runs at most once,
// whichever of the last answer or the expiry gets there first.
type Attempt struct {
	cfg       AttemptConfig
	finalize  finalizeFunc
	startedAt time.Time

	mu          sync.Mutex
	state       TimerState
	remaining   int
	stop        chan struct{}
	subscribers map[chan TimerEvent]struct{}
	finished    bool

	once    sync.Once
	done    chan struct{}
	history domain.ChallengeHistory
	err     error
}

// NewAttempt builds an attempt; the countdown only begins on Start.
func NewAttempt(cfg AttemptConfig, finalize finalizeFunc) *Attempt {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	if cfg.AttemptNumber <= 0 {
		cfg.AttemptNumber = 1
	}
	if cfg.FinalizeTimeout <= 0 {
		cfg.FinalizeTimeout = 30 * time.Second
	}
	return &Attempt{
		cfg:         cfg,
		finalize:    finalize,
		state:       TimerIdle,
		stop:        make(chan struct{}),
		subscribers: make(map[chan TimerEvent]struct{}),
		done:        make(chan struct{}),
	}
}

// ChallengeID returns the challenge this attempt belongs to.
func (a *Attempt) ChallengeID() string { return a.cfg.ChallengeID }

// Mode returns the attempt mode.
func (a *Attempt) Mode() domain.Mode { return a.cfg.Mode }

// AttemptNumber returns the attempt number the history row is written under.
func (a *Attempt) AttemptNumber() int { return a.cfg.AttemptNumber }

// Info describes the attempt for lookups across processes.
func (a *Attempt) Info() AttemptInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AttemptInfo{Mode: a.cfg.Mode, StartedAt: a.startedAt}
}

// Done is closed once the attempt has been finalized.
func (a *Attempt) Done() <-chan struct{} { return a.done }

// Start records the start time and, in timed mode, starts the countdown.
// Standard attempts stay idle and finish only through Finish.
func (a *Attempt) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != TimerIdle || a.finished || !a.startedAt.IsZero() {
		return
	}
	a.startedAt = a.cfg.Now()
	if a.cfg.Mode != domain.ModeTimed {
		return
	}
	a.state = TimerRunning
	a.remaining = a.cfg.BudgetSeconds
	go a.run()
}

// State returns the timer state and the remaining budget.
func (a *Attempt) State() (TimerState, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.remaining
}

// Finish stops the countdown and finalizes with the elapsed wall-clock time.
// Calls after the first one return the first result.
func (a *Attempt) Finish(ctx context.Context) (domain.ChallengeHistory, error) {
	history, _, err := a.finish(ctx)
	return history, err
}

// finish is Finish that also reports whether this call ran the finalization.
func (a *Attempt) finish(ctx context.Context) (domain.ChallengeHistory, bool, error) {
	a.mu.Lock()
	if a.state == TimerRunning {
		a.state = TimerStopped
		close(a.stop)
	}
	elapsed := a.elapsedLocked()
	a.mu.Unlock()

	return a.finalizeOnce(ctx, elapsed)
}

// Result blocks until the attempt is finalized or ctx ends.
func (a *Attempt) Result(ctx context.Context) (domain.ChallengeHistory, error) {
	select {
	case <-a.done:
		return a.history, a.err
	case <-ctx.Done():
		return domain.ChallengeHistory{}, ctx.Err()
	}
}

func (a *Attempt) run() {
	ticker := time.NewTicker(a.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
		}

		a.mu.Lock()
		if a.state != TimerRunning {
			a.mu.Unlock()
			return
		}
		a.remaining--
		if a.remaining > 0 {
			a.broadcastLocked(a.eventLocked(EventTick))
			a.mu.Unlock()
			continue
		}
		a.state = TimerExpired
		a.broadcastLocked(a.eventLocked(EventExpired))
		a.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.FinalizeTimeout)
		_, _, _ = a.finalizeOnce(ctx, a.cfg.BudgetSeconds)
		cancel()
		return
	}
}

func (a *Attempt) finalizeOnce(ctx context.Context, elapsed int) (domain.ChallengeHistory, bool, error) {
	ran := false
	a.once.Do(func() {
		ran = true
		a.history, a.err = a.finalize(ctx, elapsed)

		a.mu.Lock()
		a.finished = true
		event := a.eventLocked(EventFinalized)
		if a.err != nil {
			event.Error = a.err.Error()
		} else {
			h := a.history
			event.History = &h
		}
		a.broadcastLocked(event)
		for ch := range a.subscribers {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
		close(a.done)
	})
	<-a.done
	return a.history, ran, a.err
}

// elapsedLocked is whole seconds since Start, capped at the timed budget.
func (a *Attempt) elapsedLocked() int {
	if a.startedAt.IsZero() {
		return 0
	}
	elapsed := int(a.cfg.Now().Sub(a.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	if a.cfg.Mode == domain.ModeTimed && elapsed > a.cfg.BudgetSeconds {
		elapsed = a.cfg.BudgetSeconds
	}
	return elapsed
}

// Subscribe returns a channel of timer events, primed with a snapshot.
// The channel is closed after the finalized event. The caller must invoke
// the returned cancel function to avoid leaks.
func (a *Attempt) Subscribe() (<-chan TimerEvent, func()) {
	ch := make(chan TimerEvent, 8)

	a.mu.Lock()
	ch <- a.eventLocked(EventSnapshot)
	if a.finished {
		close(ch)
		a.mu.Unlock()
		return ch, func() {}
	}
	a.subscribers[ch] = struct{}{}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Attempt) eventLocked(typ string) TimerEvent {
	return TimerEvent{
		Type:        typ,
		ChallengeID: a.cfg.ChallengeID,
		Mode:        a.cfg.Mode,
		State:       a.state,
		Remaining:   a.remaining,
	}
}

func (a *Attempt) broadcastLocked(event TimerEvent) {
	for ch := range a.subscribers {
		select {
		case ch <- event:
		default:
			// slow reader: drop the oldest pending event so the newest one lands
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
