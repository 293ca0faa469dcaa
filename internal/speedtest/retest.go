package speedtest

import (
	"context"
	"sort"
)

// runUnlabeledProbe implements the unlabeled fallback of §4.E: every
// mirror that carries no country (or that the jump loop never got around
// to testing) is probed at a higher concurrency, since there is no
// frontier discipline left to respect.
func runUnlabeledProbe(ctx context.Context, unlabeled []Mirror, tested map[string]bool, cfg Config, progress chan<- string) []SpeedTestResult {
	var pending []Mirror
	seen := make(map[string]bool)
	for _, m := range unlabeled {
		if tested[m.URLToTest] || seen[m.URLToTest] {
			continue
		}
		seen[m.URLToTest] = true
		pending = append(pending, m)
	}
	if len(pending) == 0 {
		return nil
	}
	emit(progress, "TESTING UNLABELED MIRRORS")
	return runBatch(ctx, pending, cfg, cfg.ConcurrencyForUnlabeled, progress)
}

// runFinalRetest implements the closing step of §4.E: the top
// top_mirrors_number_to_retest results, by speed, are re-measured one at a
// time (concurrency 1) for a more trustworthy final ranking, and the
// fresh measurements replace the originals wherever the re-test succeeded.
func runFinalRetest(ctx context.Context, results []SpeedTestResult, cfg Config, progress chan<- string) ([]SpeedTestResult, error) {
	if len(results) == 0 {
		emit(progress, "NO RESULTS TO RE-TEST")
		return nil, ErrSpeedTestsFailed
	}

	ranked := append([]SpeedTestResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Speed() > ranked[j].Speed()
	})

	k := cfg.TopMirrorsNumberToRetest
	if k > len(ranked) {
		k = len(ranked)
	}
	top := ranked[:k]
	rest := ranked[k:]

	emit(progress, "RE-TESTING TOP MIRRORS")
	retested := runBatch(ctx, toMirrors(top), cfg, 1, progress)

	byURL := make(map[string]SpeedTestResult, len(retested))
	for _, r := range retested {
		byURL[r.Mirror.URLToTest] = r
	}

	final := make([]SpeedTestResult, 0, len(ranked))
	for _, r := range top {
		if fresh, ok := byURL[r.Mirror.URLToTest]; ok {
			final = append(final, fresh)
			continue
		}
		// The mirror failed its re-test; keep the original measurement
		// rather than dropping a mirror that passed once already.
		final = append(final, r)
	}
	final = append(final, rest...)

	sort.SliceStable(final, func(i, j int) bool {
		return final[i].Speed() > final[j].Speed()
	})

	return final, nil
}

func toMirrors(results []SpeedTestResult) []Mirror {
	out := make([]Mirror, len(results))
	for i, r := range results {
		out[i] = r.Mirror
	}
	return out
}
