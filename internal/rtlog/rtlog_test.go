package rtlog

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNoteDroppedIncrementsCounter(t *testing.T) {
	l := New(4)
	l.NoteDropped()
	l.NoteDropped()
	if got := l.DroppedCount(); got != 2 {
		t.Fatalf("expected 2 dropped events, got %d", got)
	}
}

func TestDrainResetsCounters(t *testing.T) {
	l := New(4)
	l.NoteDropped()
	dst := logrus.New()
	l.Drain(dst)
	if got := l.DroppedCount(); got != 0 {
		t.Fatalf("expected Drain to reset the counter, got %d", got)
	}
}

func TestNoteAnomalyOverflowsWithoutBlocking(t *testing.T) {
	l := New(1)
	l.NoteAnomaly("first")
	l.NoteAnomaly("second") // backlog full, must not block
	l.NoteAnomaly("third")
	dst := logrus.New()
	l.Drain(dst) // must return promptly even with overflow pending
}
