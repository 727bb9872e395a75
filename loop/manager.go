package loop

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/pthm-cable/swarm/session"
	"github.com/pthm-cable/swarm/state"
	"github.com/pthm-cable/swarm/telemetry"
)

// ErrSessionActive is returned by StartSession while a round is running.
var ErrSessionActive = errors.New("loop: a session is already active")

// BotFactory builds a fresh bot instance for each round.
type BotFactory func() Bot

// Manager owns the simulation goroutine. It runs one GameLoop per round:
// between rounds the goroutine parks on the started signal, and the platform
// wakes it with StartSession, stops the current round with FinishSession and
// tears everything down with Quit.
type Manager struct {
	newBot BotFactory
	args   Args
	params Params

	mu      sync.Mutex
	current *GameLoop
	st      *state.State
	bot     Bot
	perf    *telemetry.LoopPerf
	active  bool
	err     error

	telemetryOut *telemetry.Output

	started  chan struct{}
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}

	errHandler func()
}

// NewManager builds a manager that instantiates bots with newBot, passes
// args to their Setup hook and tunes each round's loop with params.
func NewManager(newBot BotFactory, args Args, params Params) *Manager {
	return &Manager{
		newBot:  newBot,
		args:    args,
		params:  params,
		started: make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// SetErrHandler registers the callback invoked when a round dies with an
// error, typically to disconnect from the bus. It must be set before Start.
func (m *Manager) SetErrHandler(handler func()) { m.errHandler = handler }

// SetTelemetry enables per-round loop timing output. A nil output leaves
// telemetry disabled.
func (m *Manager) SetTelemetry(out *telemetry.Output) { m.telemetryOut = out }

// Start launches the simulation goroutine.
func (m *Manager) Start() {
	go m.run()
}

func (m *Manager) run() {
	defer close(m.done)

	for {
		select {
		case <-m.quit:
			return
		case <-m.started:
		}
		select {
		case <-m.quit:
			return
		default:
		}

		gl := m.currentLoop()
		if gl == nil {
			continue
		}

		err := gl.Run(m.args)

		m.mu.Lock()
		// FinishSession may already have detached this loop and armed the
		// next round; only clear the flag if this loop is still current.
		if m.current == gl {
			m.active = false
		}
		perf := m.perf
		m.mu.Unlock()

		if perf != nil {
			stats := perf.Stats()
			slog.Info("round finished", "loop", stats)
			if werr := m.telemetryOut.WriteRound(stats); werr != nil {
				slog.Warn("writing round telemetry failed", "err", werr)
			}
		}

		if err != nil && !errors.Is(err, ErrLoopFinished) {
			m.fail(err)
			return
		}
	}
}

// StartSession wires up a new round: shared state over the round's
// participants, a fresh scheduler and bot, and a GameLoop the simulation
// goroutine picks up. It must not be called while a session is active.
func (m *Manager) StartSession(round *session.Round, client Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return ErrSessionActive
	}

	st := state.New(client.Codec(), round.ParticipantIDs(), client.ID())
	sched := NewScheduler()

	bot := m.newBot()
	if binder, ok := bot.(baseBinder); ok {
		binder.bind(round, client, sched)
	}

	params := m.params
	if m.telemetryOut != nil {
		m.perf = telemetry.NewLoopPerf()
		params.Perf = m.perf
	}

	m.st = st
	m.bot = bot
	m.current = NewGameLoop(wrapBot(bot, st), sched, params)
	m.active = true

	select {
	case m.started <- struct{}{}:
	default:
	}
	return nil
}

// FinishSession stops the current round. The simulation goroutine returns to
// waiting for the next one. Calling it with no active round is a no-op.
func (m *Manager) FinishSession() {
	m.mu.Lock()
	gl := m.current
	m.mu.Unlock()

	// Drain a pending start that the goroutine has not picked up yet.
	select {
	case <-m.started:
	default:
	}

	if gl != nil {
		gl.Quit(0)
	}

	m.mu.Lock()
	if m.current == gl {
		m.active = false
		m.current = nil
	}
	m.mu.Unlock()
}

// Quit tears the manager down: the current loop is quit and the goroutine
// released from its wait. Idempotent.
func (m *Manager) Quit() {
	m.quitOnce.Do(func() { close(m.quit) })

	m.mu.Lock()
	gl := m.current
	m.mu.Unlock()
	if gl != nil {
		gl.Quit(0)
	}
}

// Wait blocks until the simulation goroutine has exited or the timeout
// elapsed. A timeout of zero or less waits indefinitely.
func (m *Manager) Wait(timeout time.Duration) bool {
	if timeout <= 0 {
		<-m.done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-m.done:
		return true
	case <-timer.C:
		return false
	}
}

// Err returns the error that ended the simulation goroutine, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// UpdatePosition forwards an encoded position update into the current
// round's shared state, which decodes it. Updates arriving between rounds
// are dropped.
func (m *Manager) UpdatePosition(participantID int, encoded []float64) {
	if participantID == session.ServerParticipantID {
		return
	}

	m.mu.Lock()
	st := m.st
	active := m.active
	m.mu.Unlock()

	if !active || st == nil {
		return
	}
	st.Update(participantID, encoded)
}

// Deliver hands a raw inter-bot message to the current bot if it implements
// MessageReceiver. Part of the leader/follower extension surface.
func (m *Manager) Deliver(data []byte) {
	m.mu.Lock()
	bot := m.bot
	active := m.active
	m.mu.Unlock()

	if !active || bot == nil {
		return
	}
	if recv, ok := bot.(MessageReceiver); ok {
		recv.OnMessage(data)
	}
}

// Fail injects a fatal error from outside the simulation goroutine, firing
// the registered handler. The platform routes control-path failures (for
// example a start before any setup) through here so they abort the session
// the same way a hook error would.
func (m *Manager) Fail(err error) { m.fail(err) }

// fail records the first fatal error and fires the registered handler.
func (m *Manager) fail(err error) {
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	handler := m.errHandler
	m.mu.Unlock()

	slog.Error("round ended with error", "err", err)
	if handler != nil {
		handler()
	}
}

func (m *Manager) currentLoop() *GameLoop {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
