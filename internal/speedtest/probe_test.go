package speedtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func fastMirror(url string) Mirror {
	return Mirror{URL: url, URLToTest: url, Country: "US"}
}

func TestProbeSuccess(t *testing.T) {
	body := strings.Repeat("x", 200000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.MinBytesPerMirror = 1000
	cfg.MinPerMirror = 0
	cfg.EpsChecks = 2

	permit := make(chan struct{}, 1)
	result, err := probe(context.Background(), fastMirror(srv.URL), cfg, permit, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.BytesDownloaded < cfg.MinBytesPerMirror {
		t.Fatalf("expected at least %d bytes, got %d", cfg.MinBytesPerMirror, result.BytesDownloaded)
	}
	if result.Speed() <= 0 {
		t.Fatalf("expected positive speed, got %f", result.Speed())
	}
}

func TestProbeTooFewBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("short"))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.MinBytesPerMirror = 1 << 20
	cfg.MaxPerMirror = 100 * time.Millisecond

	permit := make(chan struct{}, 1)
	_, err := probe(context.Background(), fastMirror(srv.URL), cfg, permit, nil)
	if err == nil {
		t.Fatal("expected an error for an undersized body")
	}
	var probeErr *ProbeError
	if !asProbeError(err, &probeErr) {
		t.Fatalf("expected *ProbeError, got %T: %v", err, err)
	}
	if probeErr.Err != ErrTooFewBytes {
		t.Fatalf("expected ErrTooFewBytes, got %v", probeErr.Err)
	}
}

func TestProbeConnectError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerMirrorTimeout = 200 * time.Millisecond

	// RFC 5737 TEST-NET-1: guaranteed unreachable.
	m := fastMirror("http://192.0.2.1:1/payload")

	permit := make(chan struct{}, 1)
	_, err := probe(context.Background(), m, cfg, permit, nil)
	if err == nil {
		t.Fatal("expected a connect error")
	}
	var probeErr *ProbeError
	if !asProbeError(err, &probeErr) {
		t.Fatalf("expected *ProbeError, got %T: %v", err, err)
	}
	if probeErr.Err != ErrConnect {
		t.Fatalf("expected ErrConnect, got %v", probeErr.Err)
	}
}

func asProbeError(err error, target **ProbeError) bool {
	pe, ok := err.(*ProbeError)
	if !ok {
		return false
	}
	*target = pe
	return true
}
