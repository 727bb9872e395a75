package loop

import (
	"github.com/pthm-cable/swarm/hex"
	"github.com/pthm-cable/swarm/session"
	"github.com/pthm-cable/swarm/state"
)

// Args carries the keyword-style setup arguments handed to Bot.Setup.
type Args map[string]any

// Client is the per-round handle a bot publishes through. The concrete
// implementation lives in the client package.
type Client interface {
	// ID is the participant id assigned to this client when it joined.
	ID() int

	// Codec converts between arena coordinates and the wire encoding.
	Codec() *hex.Codec

	// SendPosition encodes and publishes the client's position. A position
	// that cannot be encoded is logged and dropped.
	SendPosition(p hex.Vec)
}

// Bot is the set of hooks the game loop drives each tick. Embed BaseBot to
// get no-op defaults plus access to the round, the client handle and the
// latest state snapshot.
type Bot interface {
	// Setup runs once before the first tick.
	Setup(args Args) error

	// Update runs at most fps times per second with a bounded variable
	// delta. This is the recommended place to send the bot's position.
	Update(delta float64) error

	// FixedUpdate runs at a constant tps rate. syncRatio is the accumulator
	// divided by the fixed delta at call time, before this step is taken
	// off, so it is at least 1; its fractional part is the leftover
	// fraction, for interpolation consumers.
	FixedUpdate(delta, syncRatio float64) error

	// Close runs exactly once after the last tick.
	Close() error
}

// MessageReceiver is implemented by bots that take part in the
// leader/follower extension and want raw inter-bot messages.
type MessageReceiver interface {
	OnMessage(data []byte)
}

// BaseBot provides no-op hook defaults and the per-round context. User bots
// embed it and override the hooks they need.
type BaseBot struct {
	Round  *session.Round
	Client Client

	// Snapshot is refreshed immediately before every Update and
	// FixedUpdate call. It is only valid inside those hooks.
	Snapshot *state.Snapshot

	sched *Scheduler
}

func (b *BaseBot) bind(r *session.Round, c Client, s *Scheduler) {
	b.Round = r
	b.Client = c
	b.sched = s
}

func (b *BaseBot) setSnapshot(sn *state.Snapshot) { b.Snapshot = sn }

// StartCoroutine schedules a cooperative coroutine after the given number of
// seconds. Coroutines run interleaved with the bot hooks on the simulation
// goroutine, never concurrently with them.
func (b *BaseBot) StartCoroutine(body Coroutine, after float64) {
	b.sched.Add(body, after)
}

func (b *BaseBot) Setup(Args) error { return nil }

func (b *BaseBot) Update(float64) error { return nil }

func (b *BaseBot) FixedUpdate(float64, float64) error { return nil }

func (b *BaseBot) Close() error { return nil }

// baseBinder is satisfied by bots embedding BaseBot; the manager uses it to
// wire the round context and refresh snapshots.
type baseBinder interface {
	bind(r *session.Round, c Client, s *Scheduler)
	setSnapshot(sn *state.Snapshot)
}

// botWrapper refreshes the bot's snapshot right before each hook so that
// every tick observes a single atomic read of the shared state.
type botWrapper struct {
	bot    Bot
	binder baseBinder
	st     *state.State
}

func wrapBot(bot Bot, st *state.State) *botWrapper {
	w := &botWrapper{bot: bot, st: st}
	if binder, ok := bot.(baseBinder); ok {
		w.binder = binder
	}
	return w
}

func (w *botWrapper) refresh() {
	if w.binder != nil {
		w.binder.setSnapshot(w.st.Snapshot())
	}
}

func (w *botWrapper) Setup(args Args) error { return w.bot.Setup(args) }

func (w *botWrapper) Update(delta float64) error {
	w.refresh()
	return w.bot.Update(delta)
}

func (w *botWrapper) FixedUpdate(delta, syncRatio float64) error {
	w.refresh()
	return w.bot.FixedUpdate(delta, syncRatio)
}

func (w *botWrapper) Close() error { return w.bot.Close() }
