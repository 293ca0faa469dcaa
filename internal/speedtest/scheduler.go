package speedtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mirrorjump/mirrorjump/internal/country"
)

// jumpState is the engine's working state for one run, scoped to the
// lifetime of runJumpLoop. Only the engine goroutine touches it; probe
// subtasks only ever see the Mirror they were handed and the progress sink.
type jumpState struct {
	graph *country.Graph
	cfg   Config

	byCountry map[string][]Mirror
	unlabeled []Mirror

	visited    map[string]bool
	explored   map[string]bool
	testedURLs map[string]bool

	results []SpeedTestResult

	latestTopSpeeds          []float64
	latestTopConnectionTimes []time.Duration
}

// partitionMirrors splits mirrors into by-country buckets and an
// unlabeled bucket, per the engine-state definition in §3.
func partitionMirrors(mirrors []Mirror) (map[string][]Mirror, []Mirror) {
	byCountry := make(map[string][]Mirror)
	var unlabeled []Mirror
	for _, m := range mirrors {
		if m.Country == "" {
			unlabeled = append(unlabeled, m)
			continue
		}
		byCountry[m.Country] = append(byCountry[m.Country], m)
	}
	return byCountry, unlabeled
}

// runJumpLoop implements §4.D, the country-frontier jump loop. It returns
// the accumulated jumped results (sorted by speed descending), the
// combined unlabeled pool (mirrors without a country plus, if the jumped
// set came out too sparse, every mirror left untested), and the set of
// url_to_test values already probed so the re-test stage never repeats one.
func runJumpLoop(ctx context.Context, graph *country.Graph, mirrors []Mirror, cfg Config, progress chan<- string, tracker *Tracker) *jumpState {
	byCountry, unlabeled := partitionMirrors(mirrors)

	entry := cfg.EntryCountry
	if _, ok := graph.Lookup(entry); !ok {
		emit(progress, fmt.Sprintf("UNKNOWN ENTRY COUNTRY %q, FALLING BACK TO US", entry))
		entry = "US"
	}

	st := &jumpState{
		graph:      graph,
		cfg:        cfg,
		byCountry:  byCountry,
		unlabeled:  unlabeled,
		visited:    make(map[string]bool),
		explored:   make(map[string]bool),
		testedURLs: make(map[string]bool),
	}

	frontier := []string{entry}
	jumps := 0

	for len(frontier) > 0 && jumps < cfg.MaxJumps {
		emit(progress, fmt.Sprintf("==== JUMP %d ====", jumps+1))

		batch := st.buildBatch(frontier, jumps, progress)
		for _, m := range batch {
			st.testedURLs[m.URLToTest] = true
		}

		batchResults := runBatch(ctx, batch, cfg, cfg.Concurrency, progress)
		jumps++
		if tracker != nil {
			tracker.RecordJump(jumps, len(st.visited), len(st.explored))
		}

		if len(batchResults) == 0 {
			emit(progress, "BLANK ITERATION")
			break
		}

		frontier = st.selectNextFrontier(batchResults, progress)
		st.mergeResults(batchResults)
		if tracker != nil {
			tracker.SetResultCount(len(st.results))
		}

		if jumps >= 2 && st.shouldStopEarly(progress) {
			break
		}
	}

	threshold := 0.7 * float64(cfg.MaxJumps) * float64(cfg.CountryTestMirrorsPerCountry) * float64(cfg.CountryNeighborsPerCountry)
	if float64(len(st.results)) < threshold {
		emit(progress, "JUMPED SET TOO SPARSE, FALLING BACK UNTESTED MIRRORS TO UNLABELED POOL")
		for _, ms := range st.byCountry {
			for _, m := range ms {
				if !st.testedURLs[m.URLToTest] {
					st.unlabeled = append(st.unlabeled, m)
				}
			}
		}
	}

	return st
}

// buildBatch implements step 1 of §4.D: explore/visit the current
// frontier's countries and walk their scored neighbor links. jumps is the
// loop's jump counter at the start of this frontier-processing step, so
// every country in frontier is scored against the same strategy set
// regardless of how many new countries buildBatch itself explores along
// the way.
func (st *jumpState) buildBatch(frontier []string, jumps int, progress chan<- string) []Mirror {
	var batch []Mirror

	for _, code := range frontier {
		c, ok := st.graph.Lookup(code)
		if !ok {
			continue
		}

		if !st.explored[code] {
			st.explored[code] = true
			emit(progress, "EXPLORING "+code)
		}
		if !st.visited[code] {
			st.visited[code] = true
			emit(progress, "VISITED "+code)
			batch = append(batch, firstN(st.byCountry[code], st.cfg.CountryTestMirrorsPerCountry)...)
		}

		for _, strategy := range strategiesForJump(jumps) {
			added := 0
			links := append([]country.Link(nil), st.graph.Neighbors(c)...)
			sort.SliceStable(links, func(i, j int) bool {
				return st.rateLink(links[i], strategy) > st.rateLink(links[j], strategy)
			})
			for _, link := range links {
				if added >= st.cfg.CountryNeighborsPerCountry {
					break
				}
				if st.visited[link.Code] {
					continue
				}
				if len(st.byCountry[link.Code]) == 0 {
					continue
				}
				st.visited[link.Code] = true
				emit(progress, fmt.Sprintf("+ NEIGHBOR %s (by %s)", link.Code, strategyName(strategy)))
				batch = append(batch, firstN(st.byCountry[link.Code], st.cfg.CountryTestMirrorsPerCountry)...)
				added++
			}
		}
	}

	return batch
}

func (st *jumpState) rateLink(link country.Link, strategy Strategy) float64 {
	dest, _ := st.graph.Lookup(link.Code)
	mirrorCount := len(st.byCountry[link.Code])
	return rate(link, dest, mirrorCount, strategy)
}

// strategiesForJump mirrors the original engine's take-then-reverse
// selection: strategies are defined as [DistanceFirst, HubsFirst]; the
// first max(1, 3-jumps) of them (clamped to 2) are kept, then iterated in
// reverse, so a single remaining strategy is always DistanceFirst.
func strategiesForJump(jumps int) []Strategy {
	all := []Strategy{DistanceFirst, HubsFirst}
	n := 3 - jumps
	if n < 1 {
		n = 1
	}
	if n > len(all) {
		n = len(all)
	}
	kept := all[:n]
	reversed := make([]Strategy, len(kept))
	for i, s := range kept {
		reversed[len(kept)-1-i] = s
	}
	return reversed
}

func strategyName(s Strategy) string {
	if s == HubsFirst {
		return "HubsFirst"
	}
	return "DistanceFirst"
}

// selectNextFrontier implements step 5 of §4.D: two passes over the
// batch's results choose at most one unexplored-country candidate each.
func (st *jumpState) selectNextFrontier(batchResults []SpeedTestResult, progress chan<- string) []string {
	var next []string

	byConn := append([]SpeedTestResult(nil), batchResults...)
	sort.SliceStable(byConn, func(i, j int) bool {
		return byConn[i].ConnectionTime < byConn[j].ConnectionTime
	})
	st.latestTopConnectionTimes = append(st.latestTopConnectionTimes, byConn[0].ConnectionTime)
	for _, r := range byConn {
		if r.Mirror.Country != "" && !st.explored[r.Mirror.Country] {
			next = append(next, r.Mirror.Country)
			emit(progress, fmt.Sprintf("NEXT FRONTIER (by connection time): %s", r.Mirror.Country))
			break
		}
	}

	bySpeed := append([]SpeedTestResult(nil), batchResults...)
	sort.SliceStable(bySpeed, func(i, j int) bool {
		return bySpeed[i].Speed() > bySpeed[j].Speed()
	})
	st.latestTopSpeeds = append(st.latestTopSpeeds, bySpeed[0].Speed())
	for _, r := range bySpeed {
		if r.Mirror.Country != "" && !st.explored[r.Mirror.Country] {
			next = append(next, r.Mirror.Country)
			emit(progress, fmt.Sprintf("NEXT FRONTIER (by speed): %s", r.Mirror.Country))
			break
		}
	}

	return next
}

// mergeResults stably merges newResults into st.results, keeping the
// accumulated list sorted by speed descending (§3 invariant 3).
func (st *jumpState) mergeResults(newResults []SpeedTestResult) {
	merged := make([]SpeedTestResult, 0, len(st.results)+len(newResults))
	i, j := 0, 0
	for i < len(st.results) && j < len(newResults) {
		if st.results[i].Speed() >= newResults[j].Speed() {
			merged = append(merged, st.results[i])
			i++
		} else {
			merged = append(merged, newResults[j])
			j++
		}
	}
	merged = append(merged, st.results[i:]...)
	merged = append(merged, newResults[j:]...)
	st.results = merged
}

// shouldStopEarly implements step 7 of §4.D: connection-time and speed
// degradation heuristics evaluated over the last few jump outcomes.
func (st *jumpState) shouldStopEarly(progress chan<- string) bool {
	ct := st.latestTopConnectionTimes
	if len(ct) >= 3 {
		n := len(ct)
		pair1 := float64(ct[n-1]) > float64(ct[n-2])*1.5
		pair2 := float64(ct[n-2]) > float64(ct[n-3])*1.5
		if pair1 && pair2 {
			emit(progress, "CONNECTION TIMES ARE GETTING WORSE, STOPPING")
			return true
		}
	}

	sp := st.latestTopSpeeds
	if len(sp) >= 4 {
		n := len(sp)
		pair1 := sp[n-1]*1.2 < sp[n-2]
		pair2 := sp[n-2]*1.2 < sp[n-3]
		pair3 := sp[n-3]*1.2 < sp[n-4]
		if pair1 && pair2 && pair3 {
			emit(progress, "SPEEDS ARE GETTING WORSE, STOPPING")
			return true
		}
	}

	return false
}

// firstN returns up to n leading elements of mirrors.
func firstN(mirrors []Mirror, n int) []Mirror {
	if len(mirrors) <= n {
		return mirrors
	}
	return mirrors[:n]
}
