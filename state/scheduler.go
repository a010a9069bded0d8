package state

import (
	"fmt"
	"time"
)

// runTask runs fun once, converting a panic into an error so that a single bad tick never kills the task.
func (s *State) runTask(name string, fun func(*State) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", name, r)
		}
	}()
	return fun(s)
}

func (s *State) repeatedTask(name string, fun func(*State) error, delay time.Duration, immediate bool) {
	ticker := s.Clock.Ticker(delay)
	defer ticker.Stop()
	if immediate {
		if err := s.runTask(name, fun); err != nil {
			s.Event(EventError, "task failed", "task", name, "error", err)
		}
	}
	for {
		select {
		case <-s.Context.Done():
			return
		case <-ticker.C:
		}
		if s.Context.Err() != nil {
			return
		}
		if err := s.runTask(name, fun); err != nil {
			s.Event(EventError, "task failed", "task", name, "error", err)
		}
	}
}

// RepeatTask runs fun now and then every delay until the context is cancelled. It blocks.
// Errors and panics are logged, the next tick runs regardless.
func (s *State) RepeatTask(name string, fun func(*State) error, delay time.Duration) {
	s.repeatedTask(name, fun, delay, true)
}

// RepeatTaskAfter is RepeatTask without the initial run.
func (s *State) RepeatTaskAfter(name string, fun func(*State) error, delay time.Duration) {
	s.repeatedTask(name, fun, delay, false)
}
