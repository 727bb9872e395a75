package loop

import (
	"log/slog"
	"time"
)

var monotonicEpoch = time.Now()

// monotonic returns seconds elapsed on the process monotonic clock.
func monotonic() float64 {
	return time.Since(monotonicEpoch).Seconds()
}

// Scheduler runs cooperative coroutines from the simulation goroutine. It is
// single-threaded: Step is called once per variable-update tick, after the
// bot's Update hook, and resumes every task whose wake time has passed.
type Scheduler struct {
	now   func() float64
	tasks taskQueue
}

// NewScheduler returns a scheduler on the process monotonic clock.
func NewScheduler() *Scheduler {
	return &Scheduler{now: monotonic}
}

// Add schedules a coroutine to start after the given number of seconds.
func (s *Scheduler) Add(body Coroutine, after float64) {
	if after < 0 {
		after = 0
	}
	slog.Debug("coroutine scheduled", "after", after)
	s.tasks.push(newTask(body), s.now()+after)
}

// Step resumes every due task once. A task that sleeps again is rescheduled
// relative to now; a task that returns is discarded. The error of a
// panicking body is returned and ends the round.
func (s *Scheduler) Step() error {
	if s.tasks.len() == 0 {
		return nil
	}

	// Gather first so that a task which sleeps zero is not resumed twice
	// within the same step.
	now := s.now()
	var due []*task
	for s.tasks.len() > 0 && s.tasks.peek().wakeAt <= now {
		due = append(due, s.tasks.pop().task)
	}

	for i, t := range due {
		sleep, done, err := t.step()
		if err != nil {
			// The round is over; release the tasks we popped but never
			// got to resume.
			for _, rest := range due[i+1:] {
				rest.stop()
			}
			return err
		}
		if done {
			slog.Debug("coroutine finished")
			continue
		}
		s.tasks.push(t, s.now()+sleep)
	}
	return nil
}

// Shutdown releases every parked coroutine without running more user code.
// The scheduler must not be used afterwards.
func (s *Scheduler) Shutdown() {
	for s.tasks.len() > 0 {
		s.tasks.pop().task.stop()
	}
}
