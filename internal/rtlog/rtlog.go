// Package rtlog is the one logger allowed to be touched from inside
// render(): a trimmed, allocation-free-on-the-hot-path adaptation of the
// teacher's pkg/framework/debug.Logger. The full logger formats strings,
// takes a mutex, and walks runtime.Caller on every call — all fine for
// graph-build or engine-startup logging, all forbidden on the audio
// thread. Here the hot path only ever increments an atomic counter or
// makes a non-blocking channel send; an off-thread Drain call turns those
// into real logrus output at whatever cadence the host chooses.
package rtlog

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Logger accumulates real-time-safe counters and a bounded backlog of
// anomaly messages. Every method callable from the audio thread is
// lock-free and never allocates more than the (rare) anomaly message
// itself.
type Logger struct {
	dropped   atomic.Uint64
	anomalies chan string
	overflow  atomic.Uint64
}

// New creates a Logger whose anomaly backlog holds at most backlog pending
// messages before NoteAnomaly starts counting overflow instead of blocking.
func New(backlog int) *Logger {
	if backlog <= 0 {
		backlog = 16
	}
	return &Logger{anomalies: make(chan string, backlog)}
}

// NoteDropped records a MIDI event dropped because the ingress queue was
// full. Lock-free, no allocation.
func (l *Logger) NoteDropped() {
	l.dropped.Add(1)
}

// NoteAnomaly records a runtime anomaly (e.g. a graph that failed to
// produce an output buffer this block). The send is non-blocking: if the
// backlog is full the message is dropped and counted, never stalling the
// caller.
func (l *Logger) NoteAnomaly(reason string) {
	select {
	case l.anomalies <- reason:
	default:
		l.overflow.Add(1)
	}
}

// Drain flushes accumulated counters and backlog messages to dst, meant to
// be called periodically from a non-audio-thread goroutine (the engine's
// housekeeping loop, or a test).
func (l *Logger) Drain(dst *logrus.Logger) {
	if dropped := l.dropped.Swap(0); dropped > 0 {
		dst.WithField("count", dropped).Warn("dropped MIDI events: ingress queue was full")
	}
	if overflow := l.overflow.Swap(0); overflow > 0 {
		dst.WithField("count", overflow).Warn("runtime anomalies exceeded the log backlog and were dropped")
	}
	for {
		select {
		case msg := <-l.anomalies:
			dst.WithField("source", "render").Error(msg)
		default:
			return
		}
	}
}

// DroppedCount reports the current dropped-event counter without resetting
// it, for tests and lightweight health checks.
func (l *Logger) DroppedCount() uint64 {
	return l.dropped.Load()
}
