package client

import (
	"sync"
	"time"
)

// TypingQuietPeriod is the pause after the last keystroke that ends typing.
const TypingQuietPeriod = 2 * time.Second

type TypingState int

const (
	TypingIdle TypingState = iota
	TypingActive
)

func (s TypingState) String() string {
	if s == TypingActive {
		return "typing"
	}
	return "idle"
}

// TypingSignal delivers a typing transition for recipientID.
type TypingSignal func(recipientID string, isTyping bool)

// TypingEmitter turns keystrokes into edge-triggered typing signals. The
// start signal is sent on the first keystroke only; every keystroke re-arms a
// single quiet timer whose expiry sends the stop signal.
type TypingEmitter struct {
	mu        sync.Mutex
	clock     Clock
	signal    TypingSignal
	state     TypingState
	recipient string
	timer     Timer
	gen       uint64
}

func NewTypingEmitter(clock Clock, signal TypingSignal) *TypingEmitter {
	return &TypingEmitter{clock: clock, signal: signal}
}

// Keystroke records local input in the conversation with recipientID.
func (e *TypingEmitter) Keystroke(recipientID string) {
	var emits []func()

	e.mu.Lock()
	if e.state == TypingActive && e.recipient != recipientID {
		emits = append(emits, e.emit(e.recipient, false))
		e.state = TypingIdle
	}
	if e.state == TypingIdle {
		e.state = TypingActive
		e.recipient = recipientID
		emits = append(emits, e.emit(recipientID, true))
	}
	e.rearm()
	e.mu.Unlock()

	for _, fn := range emits {
		fn()
	}
}

// Stop ends typing immediately, for example when a message is sent or the
// conversation is closed.
func (e *TypingEmitter) Stop() {
	e.mu.Lock()
	fn := e.stopLocked()
	e.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (e *TypingEmitter) State() TypingState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *TypingEmitter) rearm() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = e.clock.AfterFunc(TypingQuietPeriod, func() {
		e.mu.Lock()
		if gen != e.gen {
			e.mu.Unlock()
			return
		}
		fn := e.stopLocked()
		e.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (e *TypingEmitter) stopLocked() func() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	if e.state != TypingActive {
		return nil
	}
	e.state = TypingIdle
	return e.emit(e.recipient, false)
}

func (e *TypingEmitter) emit(recipientID string, isTyping bool) func() {
	return func() { e.signal(recipientID, isTyping) }
}
