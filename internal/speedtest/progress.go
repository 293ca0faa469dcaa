package speedtest

import (
	"sync"
	"time"
)

// Phase is the engine's current high-level activity.
type Phase string

const (
	PhaseFetching  Phase = "fetching"
	PhaseJumping   Phase = "jumping"
	PhaseRetesting Phase = "retesting"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
)

// Snapshot is an immutable copy of the tracker's state, safe to hand to a
// caller without holding any lock.
type Snapshot struct {
	Phase          Phase
	Jumps          int
	VisitedCount   int
	ExploredCount  int
	ResultCount    int
	Message        string
	StartTime      time.Time
	Elapsed        time.Duration
}

// Tracker accumulates the engine's jump-by-jump state for callers that want
// a live status line instead of (or alongside) the raw progress-line
// stream. It uses the same close-and-replace notify pattern as a one-shot
// download tracker would: any update closes the current channel and hands
// out a new one, so Wait() callers always block on the latest generation.
type Tracker struct {
	mu sync.Mutex

	phase         Phase
	jumps         int
	visitedCount  int
	exploredCount int
	resultCount   int
	message       string
	startTime     time.Time

	notify chan struct{}
}

// NewTracker creates a tracker in PhaseFetching.
func NewTracker() *Tracker {
	return &Tracker{
		phase:     PhaseFetching,
		startTime: time.Now(),
		notify:    make(chan struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Phase:         t.phase,
		Jumps:         t.jumps,
		VisitedCount:  t.visitedCount,
		ExploredCount: t.exploredCount,
		ResultCount:   t.resultCount,
		Message:       t.message,
		StartTime:     t.startTime,
		Elapsed:       time.Since(t.startTime),
	}
}

// Wait returns a channel that closes the next time the tracker updates.
func (t *Tracker) Wait() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.notify
}

func (t *Tracker) signal() {
	close(t.notify)
	t.notify = make(chan struct{})
}

// SetPhase updates the current phase.
func (t *Tracker) SetPhase(p Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = p
	t.signal()
}

// SetMessage sets a human-readable status message.
func (t *Tracker) SetMessage(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.message = msg
	t.signal()
}

// RecordJump bumps the jump counter and the visited/explored set sizes.
func (t *Tracker) RecordJump(jumps, visited, explored int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jumps = jumps
	t.visitedCount = visited
	t.exploredCount = explored
	t.signal()
}

// SetResultCount records how many results the engine currently holds.
func (t *Tracker) SetResultCount(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resultCount = n
	t.signal()
}

// newProgressChannel returns a buffered string channel sized per the
// design note's "modest buffer (~1024)" guidance — generous enough that a
// slow consumer doesn't stall the engine under normal operation.
func newProgressChannel() chan string {
	return make(chan string, 1024)
}
