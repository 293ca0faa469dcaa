// Package speedtest implements the country-jumping mirror speed-test
// engine: it samples a handful of mirrors per visited country, scores
// neighboring countries by distance and infrastructure hub weight, and
// re-tests the strongest candidates serially to remove contention noise.
package speedtest

import (
	"errors"
	"time"
)

// Mirror is one candidate server. URL is the base URL emitted in the
// final ranked output; URLToTest is a URL known to serve a payload large
// enough to measure throughput (usually a package-index file on the same
// host). Country is empty for mirrors the fetcher could not place on the
// country graph. BasePath is only set when a freshness comparator applies.
type Mirror struct {
	URL       string
	URLToTest string
	Country   string
	BasePath  string
}

// SpeedTestResult is the outcome of one successful probe.
type SpeedTestResult struct {
	Mirror         Mirror
	BytesDownloaded int64
	Elapsed        time.Duration
	ConnectionTime time.Duration
}

// Speed returns bytes downloaded per second of elapsed wall-clock time.
func (r SpeedTestResult) Speed() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.BytesDownloaded) / r.Elapsed.Seconds()
}

// Error taxonomy — see the per-probe and terminal errors below.
var (
	// ErrConnect indicates a DNS/TCP/TLS failure or connect timeout.
	ErrConnect = errors.New("speedtest: connect error")
	// ErrTooFewBytes indicates the probe never reached min_bytes_per_mirror
	// before max_per_mirror expired.
	ErrTooFewBytes = errors.New("speedtest: too few bytes downloaded")
	// ErrNoMirrorsAfterFiltering indicates the fetcher returned no mirrors
	// after protocol filtering. Terminal.
	ErrNoMirrorsAfterFiltering = errors.New("speedtest: no mirrors after filtering")
	// ErrSpeedTestsFailed indicates the engine produced zero results.
	// Recoverable by the outer orchestration unless disable-untested-fallback
	// is set.
	ErrSpeedTestsFailed = errors.New("speedtest: all speed tests failed")
	// ErrFetch indicates the fetcher adapter failed to retrieve its mirror
	// list. Terminal.
	ErrFetch = errors.New("speedtest: fetch error")
	// ErrRootRefused indicates the process is running as root without the
	// allow-root override. Terminal, pre-engine.
	ErrRootRefused = errors.New("speedtest: refusing to run as root")
)

// ProbeError wraps one of the per-mirror sentinel errors above with the
// mirror it failed against, for progress-line reporting.
type ProbeError struct {
	Mirror Mirror
	Err    error
}

func (e *ProbeError) Error() string {
	return e.Mirror.URLToTest + ": " + e.Err.Error()
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
