package loop

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pthm-cable/swarm/telemetry"
)

// GameLoop run states.
const (
	loopIdle int32 = iota
	loopRunning
	loopAbandoned
)

// Defaults for the semi-fixed timestep. See
// https://gafferongames.com/post/fix_your_timestep/ and
// https://gameprogrammingpatterns.com/game-loop.html
const (
	DefaultFPS          = 20.0
	DefaultTPS          = 20.0
	DefaultMaxDeltaTime = 0.33333
)

// ErrLoopFinished is returned by Run on a loop that has already been quit.
var ErrLoopFinished = errors.New("loop: game loop has already finished and cannot be started again")

// Params tunes a GameLoop. Zero values fall back to the defaults.
type Params struct {
	// FPS is the target variable-update rate.
	FPS float64

	// TPS is the fixed-update rate.
	TPS float64

	// MaxDeltaTime bounds the frame time fed into the accumulator. It is
	// raised to at least 1/TPS so the number of fixed updates per
	// iteration stays bounded and a long hitch cannot spiral.
	MaxDeltaTime float64

	// Perf, when non-nil, collects per-tick timing for this round.
	Perf *telemetry.LoopPerf
}

func (p Params) withDefaults() Params {
	if p.FPS <= 0 {
		p.FPS = DefaultFPS
	}
	if p.TPS <= 0 {
		p.TPS = DefaultTPS
	}
	if p.MaxDeltaTime <= 0 {
		p.MaxDeltaTime = DefaultMaxDeltaTime
	}
	if p.MaxDeltaTime < 1/p.TPS {
		p.MaxDeltaTime = 1 / p.TPS
	}
	return p
}

// GameLoop drives one bot through a round with a semi-fixed timestep: zero
// or more fixed updates drained from an accumulator, one variable update,
// one scheduler step, then an interruptible sleep for the frame remainder.
type GameLoop struct {
	bot   Bot
	sched *Scheduler
	perf  *telemetry.LoopPerf

	frameTime    float64
	fixedDelta   float64
	maxDeltaTime float64

	accumulator float64
	now         func() float64

	runState   atomic.Int32
	quit       chan struct{}
	quitOnce   sync.Once
	finished   chan struct{}
	finishOnce sync.Once
}

// NewGameLoop builds a loop around a bot (usually the snapshot-refreshing
// wrapper) and the scheduler its coroutines live on.
func NewGameLoop(bot Bot, sched *Scheduler, params Params) *GameLoop {
	params = params.withDefaults()
	return &GameLoop{
		bot:          bot,
		sched:        sched,
		perf:         params.Perf,
		frameTime:    1 / params.FPS,
		fixedDelta:   1 / params.TPS,
		maxDeltaTime: params.MaxDeltaTime,
		now:          monotonic,
		quit:         make(chan struct{}),
		finished:     make(chan struct{}),
	}
}

// Run blocks until the loop is quit or a hook fails. Setup runs once before
// the first iteration; Close runs exactly once on the way out, provided
// Setup succeeded.
func (gl *GameLoop) Run(args Args) (err error) {
	if !gl.runState.CompareAndSwap(loopIdle, loopRunning) {
		return ErrLoopFinished
	}
	defer gl.finishOnce.Do(func() { close(gl.finished) })

	select {
	case <-gl.quit:
		return ErrLoopFinished
	default:
	}

	if err := safeHook("setup", func() error { return gl.bot.Setup(args) }); err != nil {
		return err
	}

	defer func() {
		closeErr := safeHook("close", gl.bot.Close)
		gl.sched.Shutdown()
		if err == nil {
			err = closeErr
		}
	}()

	return gl.iterate()
}

func (gl *GameLoop) iterate() error {
	current := gl.now()

	for {
		select {
		case <-gl.quit:
			return nil
		default:
		}

		newTime := gl.now()
		frame := newTime - current
		current = newTime

		if err := gl.tick(frame); err != nil {
			return err
		}

		remaining := time.Duration((gl.frameTime - (gl.now() - current)) * float64(time.Second))
		if remaining > 0 {
			// An Event-style wait rather than a blind sleep: quitting
			// releases the frame immediately.
			timer := time.NewTimer(remaining)
			select {
			case <-gl.quit:
				timer.Stop()
			case <-timer.C:
			}
		}
	}
}

// tick runs one iteration body over a measured frame time: drain fixed
// updates, one variable update, one scheduler step.
func (gl *GameLoop) tick(frame float64) error {
	if frame > gl.maxDeltaTime {
		frame = gl.maxDeltaTime
	}
	gl.accumulator += frame

	fixedStart := gl.now()
	fixedCount := 0
	for gl.accumulator >= gl.fixedDelta {
		syncRatio := gl.accumulator / gl.fixedDelta
		if err := safeHook("fixed_update", func() error {
			return gl.bot.FixedUpdate(gl.fixedDelta, syncRatio)
		}); err != nil {
			return err
		}
		gl.accumulator -= gl.fixedDelta
		fixedCount++
	}

	// The variable delta covers the measured frame plus the time the fixed
	// updates just took, bounded once more.
	delta := frame + (gl.now() - fixedStart)
	if delta > gl.maxDeltaTime {
		delta = gl.maxDeltaTime
	}
	if err := safeHook("update", func() error { return gl.bot.Update(delta) }); err != nil {
		return err
	}

	if err := gl.sched.Step(); err != nil {
		return err
	}

	gl.perf.RecordTick(frame, fixedCount)
	return nil
}

// Quit signals the loop to stop and waits until it has completely finished.
// A timeout of zero or less waits indefinitely. Quit is idempotent; it
// reports whether the loop finished within the timeout.
func (gl *GameLoop) Quit(timeout time.Duration) bool {
	gl.SignalQuit()

	// A loop that never began cannot finish on its own: once quit is set,
	// Run refuses to start. Release waiters instead of hanging them.
	if gl.runState.CompareAndSwap(loopIdle, loopAbandoned) {
		gl.finishOnce.Do(func() { close(gl.finished) })
	}

	if timeout <= 0 {
		<-gl.finished
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-gl.finished:
		return true
	case <-timer.C:
		return false
	}
}

// SignalQuit only sets the quit signal without waiting. It is the safe form
// to call from the loop's own goroutine, where Quit would self-deadlock.
func (gl *GameLoop) SignalQuit() {
	gl.quitOnce.Do(func() { close(gl.quit) })
}

// HasFinished reports whether Run has returned.
func (gl *GameLoop) HasFinished() bool {
	select {
	case <-gl.finished:
		return true
	default:
		return false
	}
}

// safeHook converts a panic in user code into an error so it travels the
// same propagation path as a returned error.
func safeHook(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loop: %s panicked: %v", name, r)
		}
	}()
	return fn()
}
