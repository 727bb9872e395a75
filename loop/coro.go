package loop

import (
	"fmt"
	"runtime"
)

// Coroutine is the body of a cooperative task. It runs on its own goroutine
// but only between two scheduler resumes: calling y.Sleep parks it until the
// scheduler wakes it again, so bodies never run concurrently with the bot
// hooks or with each other.
type Coroutine func(y *Yielder)

// Yielder is the handle a coroutine body uses to give control back to the
// scheduler.
type Yielder struct {
	resume chan struct{}
	yield  chan yieldMsg
}

type yieldMsg struct {
	sleep    float64
	done     bool
	panicked bool
	panicVal any
}

// Sleep parks the coroutine for at least the given number of seconds.
// Negative values are treated as zero.
func (y *Yielder) Sleep(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	y.yield <- yieldMsg{sleep: seconds}
	if _, ok := <-y.resume; !ok {
		// The scheduler shut down while we were parked. Unwind the body
		// without ever returning into user code.
		runtime.Goexit()
	}
}

// NextUpdate parks the coroutine until the next scheduler step.
func (y *Yielder) NextUpdate() { y.Sleep(0) }

// task drives one coroutine body goroutine.
type task struct {
	y *Yielder
}

func newTask(body Coroutine) *task {
	t := &task{y: &Yielder{
		resume: make(chan struct{}),
		// Buffered so the final message never blocks the body goroutine,
		// even when the scheduler has already shut down.
		yield: make(chan yieldMsg, 1),
	}}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.y.yield <- yieldMsg{done: true, panicked: true, panicVal: r}
				return
			}
			t.y.yield <- yieldMsg{done: true}
		}()

		if _, ok := <-t.y.resume; !ok {
			runtime.Goexit()
		}
		body(t.y)
	}()

	return t
}

// step resumes the body until its next yield. It reports how long the body
// wants to sleep, whether it finished, and any panic it raised.
func (t *task) step() (sleep float64, done bool, err error) {
	t.y.resume <- struct{}{}
	msg := <-t.y.yield
	if msg.panicked {
		return 0, true, fmt.Errorf("coroutine panicked: %v", msg.panicVal)
	}
	return msg.sleep, msg.done, nil
}

// stop releases a parked body goroutine without resuming user code.
func (t *task) stop() { close(t.y.resume) }
