package speedtest

import (
	"context"
	"sync"
)

// runBatch launches one probe goroutine per mirror under a permit pool of
// the given size, awaits all of them, and returns only the successful
// results — per §4.C, failures are silently dropped here; the progress
// sink is authoritative for diagnostics. A canceled ctx stops in-flight
// probes at their next suspension point; partial results are still
// returned.
func runBatch(ctx context.Context, mirrors []Mirror, cfg Config, permitSize int, progress chan<- string) []SpeedTestResult {
	if len(mirrors) == 0 {
		return nil
	}

	permit := make(chan struct{}, permitSize)
	results := make([]SpeedTestResult, len(mirrors))
	ok := make([]bool, len(mirrors))

	var wg sync.WaitGroup
	for i, m := range mirrors {
		wg.Add(1)
		go func(idx int, mirror Mirror) {
			defer wg.Done()
			r, err := probe(ctx, mirror, cfg, permit, progress)
			if err != nil {
				return
			}
			results[idx] = r
			ok[idx] = true
		}(i, m)
	}
	wg.Wait()

	out := make([]SpeedTestResult, 0, len(mirrors))
	for i, r := range results {
		if ok[i] {
			out = append(out, r)
		}
	}
	return out
}
