package speedtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func retestConfig() Config {
	cfg := DefaultConfig()
	cfg.MinBytesPerMirror = 1000
	cfg.MinPerMirror = 0
	cfg.MaxPerMirror = 200 * time.Millisecond
	cfg.PerMirrorTimeout = 300 * time.Millisecond
	cfg.TopMirrorsNumberToRetest = 1
	return cfg
}

// TestRunFinalRetestFallsBackOnFailure covers spec §4.E's re-test fallback:
// a mirror that measured well during the jump loop but fails its serial
// re-test (here, its server has since gone away) keeps its original
// measurement rather than being dropped from the final ranking.
func TestRunFinalRetestFallsBackOnFailure(t *testing.T) {
	goneServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	goneURL := goneServer.URL
	goneServer.Close() // now unreachable

	stable := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("z", 200000)))
	}))
	defer stable.Close()

	fastOriginal := SpeedTestResult{
		Mirror:          Mirror{URL: goneURL, URLToTest: goneURL, Country: "US"},
		BytesDownloaded: 500000,
		Elapsed:         time.Second,
	}
	slowOriginal := SpeedTestResult{
		Mirror:          Mirror{URL: stable.URL, URLToTest: stable.URL, Country: "US"},
		BytesDownloaded: 1000,
		Elapsed:         time.Second,
	}

	final, err := runFinalRetest(context.Background(), []SpeedTestResult{fastOriginal, slowOriginal}, retestConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(final) != 2 {
		t.Fatalf("expected 2 results, got %d", len(final))
	}

	var kept *SpeedTestResult
	for i := range final {
		if final[i].Mirror.URL == goneURL {
			kept = &final[i]
		}
	}
	if kept == nil {
		t.Fatal("expected the top mirror to survive re-test failure via fallback")
	}
	if kept.BytesDownloaded != fastOriginal.BytesDownloaded || kept.Elapsed != fastOriginal.Elapsed {
		t.Errorf("expected the original measurement to be kept on re-test failure, got %+v", kept)
	}
}

// TestRunFinalRetestReplacesWithFreshMeasurement covers the reordering
// half of spec §4.E: when the re-test succeeds with a different speed than
// the original jump-loop measurement, the fresh measurement replaces it
// and the final list is re-sorted accordingly.
func TestRunFinalRetestReplacesWithFreshMeasurement(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("z", 1200)))
	}))
	defer slow.Close()

	// Original jump-loop measurement claims a very high speed; the re-test
	// will measure the server's true (much lower) throughput.
	inflated := SpeedTestResult{
		Mirror:          Mirror{URL: slow.URL, URLToTest: slow.URL, Country: "US"},
		BytesDownloaded: 9000000,
		Elapsed:         time.Millisecond,
	}

	cfg := retestConfig()
	cfg.MinBytesPerMirror = 1000

	final, err := runFinalRetest(context.Background(), []SpeedTestResult{inflated}, cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(final) != 1 {
		t.Fatalf("expected 1 result, got %d", len(final))
	}
	if final[0].BytesDownloaded != 1200 {
		t.Errorf("expected the re-test's fresh measurement (1200 bytes) to replace the original, got %d", final[0].BytesDownloaded)
	}
}

func TestRunFinalRetestEmptyResults(t *testing.T) {
	_, err := runFinalRetest(context.Background(), nil, retestConfig(), nil)
	if err != ErrSpeedTestsFailed {
		t.Fatalf("expected ErrSpeedTestsFailed, got %v", err)
	}
}

func TestRunFinalRetestLeavesNonTopResultsUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("z", 200000)))
	}))
	defer srv.Close()

	top := SpeedTestResult{
		Mirror:          Mirror{URL: srv.URL, URLToTest: srv.URL, Country: "US"},
		BytesDownloaded: 500000,
		Elapsed:         time.Second,
	}
	untouched := SpeedTestResult{
		Mirror:          Mirror{URL: "http://never-retested.example", URLToTest: "http://never-retested.example", Country: "US"},
		BytesDownloaded: 42,
		Elapsed:         time.Second,
	}

	final, err := runFinalRetest(context.Background(), []SpeedTestResult{top, untouched}, retestConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got *SpeedTestResult
	for i := range final {
		if final[i].Mirror.URL == untouched.Mirror.URL {
			got = &final[i]
		}
	}
	if got == nil {
		t.Fatal("expected the non-top result to still be present")
	}
	if got.BytesDownloaded != untouched.BytesDownloaded {
		t.Errorf("expected the non-top result to be untouched, got %+v", got)
	}
}
