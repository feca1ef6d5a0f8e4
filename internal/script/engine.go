package script

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
)

// State is a run's position in the state machine of spec.md §4.5:
// Idle -> Loaded -> Running -> (Completed | Stopped | Errored) -> Idle.
type State int

const (
	StateIdle State = iota
	StateLoaded
	StateRunning
	StateCompleted
	StateStopped
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoaded:
		return "Loaded"
	case StateRunning:
		return "Running"
	case StateCompleted:
		return "Completed"
	case StateStopped:
		return "Stopped"
	case StateErrored:
		return "Errored"
	default:
		return "Unknown"
	}
}

const pollSlice = 50 * time.Millisecond

// Engine parses and runs scripts on its own goroutine against an attached
// Store, supporting cooperative cancellation (spec.md §4.5).
type Engine struct {
	mu          sync.Mutex
	state       State
	lastOutcome State
	lastErr     error
	prog        program
	iterLog     []string

	store    Store
	resolver Resolver
	log      zerolog.Logger

	cancel atomic.Bool
}

// New constructs an Engine with no script loaded and no Store attached.
// Attach must be called before Start will succeed.
func New(log zerolog.Logger) *Engine {
	return &Engine{log: log, state: StateIdle, lastOutcome: StateIdle}
}

// Attach wires the store and field resolver a run executes against,
// mirroring spec.md §4.5's "no simulator attached" rejection condition.
func (e *Engine) Attach(store Store, resolver Resolver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
	e.resolver = resolver
}

// Load parses src and, on success, makes the engine ready to Start. Load
// is rejected while a run is in progress.
func (e *Engine) Load(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		return errors.New("cannot load: engine is running")
	}
	prog, err := parse(src)
	if err != nil {
		return err
	}
	e.prog = prog
	e.state = StateLoaded
	return nil
}

// Start launches execution on a background goroutine and returns
// immediately. It is rejected when already Running, when no script is
// loaded, or when no store is attached (spec.md §4.5).
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return errors.New("cannot start: engine is already running")
	}
	if len(e.prog) == 0 {
		e.mu.Unlock()
		return errors.New("cannot start: no commands loaded")
	}
	if e.store == nil || e.resolver == nil {
		e.mu.Unlock()
		return errors.New("cannot start: no simulator attached")
	}
	e.state = StateRunning
	e.iterLog = nil
	e.cancel.Store(false)
	prog := e.prog
	store := e.store
	resolver := e.resolver
	e.mu.Unlock()

	go e.run(ctx, prog, store, resolver)
	return nil
}

// Stop requests cancellation and returns immediately without waiting for
// the run to observe it (spec.md §5's "best-effort, no join").
func (e *Engine) Stop() {
	e.cancel.Store(true)
}

// State returns the engine's current position in the state machine.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastOutcome returns the terminal state of the most recently finished
// run (Completed/Stopped/Errored), even after the engine has returned to
// Idle and become ready to load another script.
func (e *Engine) LastOutcome() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastOutcome
}

// LastError returns the error from the most recent Errored run, if any.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// IterationLog returns the "Iteration i/n" entries recorded by the most
// recent run (spec.md §8 scenario 6).
func (e *Engine) IterationLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.iterLog))
	copy(out, e.iterLog)
	return out
}

func (e *Engine) run(ctx context.Context, prog program, store Store, resolver Resolver) {
	interp := &interpreter{engine: e, ctx: ctx, prog: prog, store: store, resolver: resolver}
	err := interp.execute()

	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.cancel.Load():
		e.lastOutcome = StateStopped
		e.lastErr = nil
		e.log.Info().Msg("script run stopped")
	case err != nil:
		e.lastOutcome = StateErrored
		e.lastErr = err
		e.log.Error().Err(err).Msg("script run ended in error")
	default:
		e.lastOutcome = StateCompleted
		e.lastErr = nil
		e.log.Info().Msg("script run completed")
	}
	// Spec.md §4.5: terminal state transitions back to Idle, leaving the
	// engine ready to load another script.
	e.state = StateIdle
}

func (e *Engine) logIteration(s string) {
	e.mu.Lock()
	e.iterLog = append(e.iterLog, s)
	e.mu.Unlock()
}
