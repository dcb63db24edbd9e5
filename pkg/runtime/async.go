// Package runtime implements the interpreter's single outstanding
// suspension point. Unlike a
// full event-loop runtime with a microtask queue, an ES5 sandbox has
// no Promise or setTimeout of its own: the only way the evaluator ever
// suspends is a call into an async native function, and at most one
// such call can be outstanding at a time because the evaluator is not
// reentrant.
package runtime

import "sync"

// Suspension tracks whether the evaluator is currently paused waiting
// on an async native function's resume callback, and the value or
// thrown completion that callback deposits. It is owned by one
// Interpreter and is not meant to be shared.
type Suspension struct {
	mu        sync.Mutex
	paused    bool
	hasResult bool
	result    interface{} // value.Value, kept as interface{} to avoid an import cycle with pkg/value
	thrown    interface{} // *value.Throw, nil if the call resumed normally
}

// NewSuspension creates an idle (not paused) suspension tracker.
func NewSuspension() *Suspension {
	return &Suspension{}
}

// Begin marks the evaluator as paused on an async call. It is called
// by the evaluator's callAsync immediately before invoking an
// AsyncFunc (section 4.C).
func (s *Suspension) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
	s.hasResult = false
	s.result = nil
	s.thrown = nil
}

// Deposit is the resume callback handed to the async native function.
// It may be called from any goroutine (e.g. after a host I/O callback
// fires on a separate thread); the evaluator observes the deposit the
// next time it calls TakeIfReady from its own single-threaded step loop.
func (s *Suspension) Deposit(result interface{}, thrown interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasResult = true
	s.result = result
	s.thrown = thrown
}

// IsPaused reports whether an async call is still outstanding.
func (s *Suspension) IsPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// TakeIfReady clears the paused state and returns the deposited result
// if Deposit has been called since Begin; ok is false if the resume
// callback hasn't fired yet, in which case the evaluator must stop
// stepping and return control to the host.
func (s *Suspension) TakeIfReady() (result interface{}, thrown interface{}, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasResult {
		return nil, nil, false
	}
	s.paused = false
	s.hasResult = false
	return s.result, s.thrown, true
}
