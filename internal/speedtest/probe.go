package speedtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/mirrorjump/mirrorjump/internal/safety"
)

const probeReadChunkSize = 32 * 1024

// probeHTTPClient is shared across probes within one process; it carries no
// per-request state and is safe for concurrent use. It has no overall
// Client.Timeout because the connect and read deadlines below are already
// enforced per-request via context; only the dial/TLS/idle-conn hardening
// is reused from package safety.
var probeHTTPClient = &http.Client{Transport: safety.NewHardenedTransport()}

// probe runs one bounded, cancelable measurement of a single mirror. It
// acquires permit before doing any network I/O and releases it before
// returning, so callers size permit to the desired fan-out.
//
// It implements §4.B: connect under per_mirror_timeout, then read the body
// chunk by chunk under a rolling max_per_mirror deadline measured from the
// first byte, tracking a ring buffer of chunk speeds to detect convergence
// once min_bytes_per_mirror and min_per_mirror are both satisfied.
func probe(ctx context.Context, m Mirror, cfg Config, permit chan struct{}, progress chan<- string) (SpeedTestResult, error) {
	select {
	case permit <- struct{}{}:
	case <-ctx.Done():
		return SpeedTestResult{}, ctx.Err()
	}
	defer func() { <-permit }()

	connectCtx, cancelConnect := context.WithTimeout(ctx, cfg.PerMirrorTimeout)
	defer cancelConnect()

	req, err := http.NewRequestWithContext(connectCtx, http.MethodGet, m.URLToTest, nil)
	if err != nil {
		emit(progress, fmt.Sprintf("FAILED TO CONNECT: %s (%v)", m.URLToTest, err))
		return SpeedTestResult{}, &ProbeError{Mirror: m, Err: ErrConnect}
	}

	startedConnecting := time.Now()
	resp, err := probeHTTPClient.Do(req)
	if err != nil {
		emit(progress, fmt.Sprintf("FAILED TO CONNECT: %s (%v)", m.URLToTest, err))
		return SpeedTestResult{}, &ProbeError{Mirror: m, Err: ErrConnect}
	}
	defer resp.Body.Close()
	connectionTime := time.Since(startedConnecting)

	// The read phase gets its own deadline from the moment headers arrive,
	// usually shorter than the connect timeout above; that timeout is on the
	// same context, so it still bounds the read phase as well.
	// http.Response.Body has no per-call deadline, so re-arm the same
	// request context's cancel func on a timer once headers land; the
	// Transport aborts the in-flight Read as soon as that context is done.
	readCtx := connectCtx
	body := resp.Body

	startedTs := time.Now()
	prevTs := startedTs
	var bytesDownloaded int64

	speeds := make([]float64, cfg.EpsChecks)
	idx := 0
	filling := true

	deadline := time.AfterFunc(cfg.MaxPerMirror, cancelConnect)
	defer deadline.Stop()

	buf := make([]byte, probeReadChunkSize)
readLoop:
	for {
		select {
		case <-readCtx.Done():
			break readLoop
		default:
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			now := time.Now()
			dt := now.Sub(prevTs)
			if dt <= 0 {
				dt = time.Nanosecond
			}
			chunkSpeed := float64(n) / dt.Seconds()
			prevTs = now
			bytesDownloaded += int64(n)

			if filling {
				speeds[idx] = chunkSpeed
				idx = (idx + 1) % cfg.EpsChecks
				if idx == 0 {
					filling = false
				}
			} else {
				speeds[idx] = chunkSpeed
				idx = (idx + 1) % cfg.EpsChecks
			}

			if !filling &&
				bytesDownloaded >= cfg.MinBytesPerMirror &&
				now.Sub(startedTs) > cfg.MinPerMirror {
				mean, stddev := ringStats(speeds)
				if mean > 0 && stddev/mean <= cfg.Eps {
					break readLoop
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break readLoop
			}
			if readCtx.Err() != nil {
				// max_per_mirror reached: stop reading, not an error.
				break readLoop
			}
			// Any other mid-stream error is treated the same as hitting the
			// deadline: we fall through to the min-bytes check below.
			break readLoop
		}
	}

	if bytesDownloaded < cfg.MinBytesPerMirror {
		emit(progress, fmt.Sprintf("TOO FEW BYTES: %s (%d bytes)", m.URLToTest, bytesDownloaded))
		return SpeedTestResult{}, &ProbeError{Mirror: m, Err: ErrTooFewBytes}
	}

	elapsed := prevTs.Sub(startedTs)
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}

	result := SpeedTestResult{
		Mirror:          m,
		BytesDownloaded: bytesDownloaded,
		Elapsed:         elapsed,
		ConnectionTime:  connectionTime,
	}
	emit(progress, fmt.Sprintf("[%s] %.0f KB/s -> %s", m.Country, result.Speed()/1024, m.URLToTest))
	return result, nil
}

// ringStats computes the mean and standard deviation of a full ring buffer.
func ringStats(speeds []float64) (mean, stddev float64) {
	n := float64(len(speeds))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range speeds {
		sum += s
	}
	mean = sum / n

	var variance float64
	for _, s := range speeds {
		d := mean - s
		variance += d * d
	}
	variance /= n
	return mean, math.Sqrt(variance)
}

// emit sends a progress line without blocking forever if nobody is
// listening; a nil channel or a full channel simply drops the message.
func emit(progress chan<- string, msg string) {
	if progress == nil {
		return
	}
	select {
	case progress <- msg:
	default:
	}
}
