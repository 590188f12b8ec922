package client

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type signal struct {
	recipient string
	typing    bool
}

type signalRecorder struct {
	mu      sync.Mutex
	signals []signal
}

func (r *signalRecorder) record(recipientID string, isTyping bool) {
	r.mu.Lock()
	r.signals = append(r.signals, signal{recipientID, isTyping})
	r.mu.Unlock()
}

func (r *signalRecorder) all() []signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]signal(nil), r.signals...)
}

func TestTypingEmitter_EdgeTriggeredStart(t *testing.T) {
	clock := newFakeClock()
	rec := &signalRecorder{}
	e := NewTypingEmitter(clock, rec.record)

	for i := 0; i < 5; i++ {
		e.Keystroke("bob")
		clock.Advance(500 * time.Millisecond)
	}

	assert.Equal(t, []signal{{"bob", true}}, rec.all())
	assert.Equal(t, TypingActive, e.State())
	assert.Equal(t, 1, clock.pending())
}

func TestTypingEmitter_QuietPeriodStops(t *testing.T) {
	clock := newFakeClock()
	rec := &signalRecorder{}
	e := NewTypingEmitter(clock, rec.record)

	e.Keystroke("bob")
	clock.Advance(1999 * time.Millisecond)
	assert.Equal(t, TypingActive, e.State())

	clock.Advance(time.Millisecond)
	assert.Equal(t, TypingIdle, e.State())
	assert.Equal(t, []signal{{"bob", true}, {"bob", false}}, rec.all())

	e.Keystroke("bob")
	assert.Equal(t, []signal{{"bob", true}, {"bob", false}, {"bob", true}}, rec.all())
}

func TestTypingEmitter_KeystrokeResetsTimer(t *testing.T) {
	clock := newFakeClock()
	rec := &signalRecorder{}
	e := NewTypingEmitter(clock, rec.record)

	e.Keystroke("bob")
	clock.Advance(1500 * time.Millisecond)
	e.Keystroke("bob")
	clock.Advance(1500 * time.Millisecond)

	assert.Equal(t, TypingActive, e.State())
	assert.Len(t, rec.all(), 1)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, TypingIdle, e.State())
	assert.Len(t, rec.all(), 2)
}

func TestTypingEmitter_StopAndSwitch(t *testing.T) {
	clock := newFakeClock()
	rec := &signalRecorder{}
	e := NewTypingEmitter(clock, rec.record)

	e.Stop()
	assert.Empty(t, rec.all())

	e.Keystroke("bob")
	e.Keystroke("carol")
	e.Stop()
	clock.Advance(5 * time.Second)

	assert.Equal(t, []signal{
		{"bob", true},
		{"bob", false},
		{"carol", true},
		{"carol", false},
	}, rec.all())
	assert.Equal(t, TypingIdle, e.State())
	assert.Equal(t, "idle", e.State().String())
}
