package service

import (
	"time"

	"github.com/benbjohnson/clock"
)

// pendingTimeout is the single no-answer timer of a call. Every start bumps
// a sequence number, so a fire from an older or canceled timer can be told
// apart from the live one.
type pendingTimeout struct {
	seq   uint64
	timer *clock.Timer
}

func (t *pendingTimeout) start(c clock.Clock, d time.Duration, fire func(seq uint64)) {
	t.cancel()
	t.seq++
	seq := t.seq
	t.timer = c.AfterFunc(d, func() { fire(seq) })
}

// cancel is safe to call any number of times.
func (t *pendingTimeout) cancel() {
	if t.timer == nil {
		return
	}
	t.timer.Stop()
	t.timer = nil
}

// claim reports whether seq belongs to the armed timer and disarms it.
func (t *pendingTimeout) claim(seq uint64) bool {
	if t.timer == nil || seq != t.seq {
		return false
	}
	t.timer = nil
	return true
}

func (t *pendingTimeout) armed() bool {
	return t.timer != nil
}
