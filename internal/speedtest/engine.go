package speedtest

import (
	"context"
	"sort"

	"github.com/mirrorjump/mirrorjump/internal/country"
)

// Result is the final ranked output of one engine run.
type Result struct {
	Mirrors []SpeedTestResult
}

// Engine drives one full country-jump run: the jump loop (§4.D), the
// unlabeled fallback probe and the top-mirror re-test (§4.E). It owns a
// progress line sink and a Tracker; both are created once per Engine and
// closed/settled when Run returns.
type Engine struct {
	cfg   Config
	graph *country.Graph

	tracker  *Tracker
	progress chan string
}

// NewEngine builds an Engine against the given country graph. cfg is
// copied by value, so later mutation of the caller's Config has no effect.
func NewEngine(cfg Config, graph *country.Graph) *Engine {
	return &Engine{
		cfg:      cfg,
		graph:    graph,
		tracker:  NewTracker(),
		progress: newProgressChannel(),
	}
}

// Tracker returns the engine's live status tracker. Safe to poll from a
// separate goroutine while Run is in flight.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// Progress returns the engine's progress line stream. Callers that want
// it must start draining before calling Run, since the channel is
// bounded and Run does not block forever on a full buffer — it drops
// lines instead (see emit).
func (e *Engine) Progress() <-chan string {
	return e.progress
}

// Run executes one full speed-test pass over mirrors and returns the
// final ranked result set. mirrors is expected to already be filtered to
// the requested protocol(s); an empty slice is a caller error, not a
// runtime condition the engine can recover from.
func (e *Engine) Run(ctx context.Context, mirrors []Mirror) (*Result, error) {
	defer close(e.progress)

	if len(mirrors) == 0 {
		e.tracker.SetPhase(PhaseFailed)
		return nil, ErrNoMirrorsAfterFiltering
	}

	e.tracker.SetPhase(PhaseJumping)
	st := runJumpLoop(ctx, e.graph, mirrors, e.cfg, e.progress, e.tracker)

	if err := ctx.Err(); err != nil {
		e.tracker.SetPhase(PhaseFailed)
		return nil, err
	}

	e.tracker.SetPhase(PhaseRetesting)
	unlabeledResults := runUnlabeledProbe(ctx, st.unlabeled, st.testedURLs, e.cfg, e.progress)

	combined := make([]SpeedTestResult, 0, len(st.results)+len(unlabeledResults))
	combined = append(combined, st.results...)
	combined = append(combined, unlabeledResults...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].Speed() > combined[j].Speed()
	})

	final, err := runFinalRetest(ctx, combined, e.cfg, e.progress)
	if err != nil {
		e.tracker.SetPhase(PhaseFailed)
		return nil, err
	}

	e.tracker.SetPhase(PhaseComplete)
	e.tracker.SetResultCount(len(final))
	return &Result{Mirrors: final}, nil
}
