package speedtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mirrorjump/mirrorjump/internal/country"
)

// singleCountryGraph is a graph with one isolated entry country and no
// neighbors, so a run over it exercises exactly one jump before the
// frontier runs dry.
func singleCountryGraph() *country.Graph {
	return country.NewGraph([]country.Country{
		{Code: "Q1", CableConnectionsNumber: 1, InternetExchangesNumber: 1},
	})
}

func drainEngineProgress(e *Engine) {
	go func() {
		for range e.Progress() {
		}
	}()
}

func TestEngineRunSingleCountryNoNeighbors(t *testing.T) {
	srv1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 200000)))
	}))
	defer srv1.Close()
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("b", 200000)))
	}))
	defer srv2.Close()

	cfg := DefaultConfig()
	cfg.EntryCountry = "Q1"
	cfg.MinBytesPerMirror = 1000
	cfg.MinPerMirror = 0
	cfg.MaxPerMirror = 300 * time.Millisecond
	cfg.PerMirrorTimeout = 2 * time.Second
	cfg.TopMirrorsNumberToRetest = 2
	cfg.MaxJumps = 3

	mirrors := []Mirror{
		{URL: srv1.URL, URLToTest: srv1.URL, Country: "Q1"},
		{URL: srv2.URL, URLToTest: srv2.URL, Country: "Q1"},
	}

	engine := NewEngine(cfg, singleCountryGraph())
	drainEngineProgress(engine)

	result, err := engine.Run(context.Background(), mirrors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Mirrors) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Mirrors))
	}
	if result.Mirrors[0].Speed() < result.Mirrors[1].Speed() {
		t.Error("expected results sorted by speed descending")
	}
	if got := engine.Tracker().Snapshot().Phase; got != PhaseComplete {
		t.Errorf("expected PhaseComplete, got %s", got)
	}
	if got := engine.Tracker().Snapshot().ResultCount; got != 2 {
		t.Errorf("expected tracker ResultCount 2, got %d", got)
	}
}

func TestEngineRunUnknownEntryCountryFallsBackToUS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 200000)))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.EntryCountry = "ZZ-NOT-A-COUNTRY"
	cfg.MinBytesPerMirror = 1000
	cfg.MinPerMirror = 0
	cfg.MaxPerMirror = 300 * time.Millisecond
	cfg.PerMirrorTimeout = 2 * time.Second
	cfg.TopMirrorsNumberToRetest = 1
	cfg.MaxJumps = 1

	mirrors := []Mirror{{URL: srv.URL, URLToTest: srv.URL, Country: "US"}}

	graph := country.DefaultGraph()
	engine := NewEngine(cfg, graph)
	drainEngineProgress(engine)

	result, err := engine.Run(context.Background(), mirrors)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Mirrors) != 1 {
		t.Fatalf("expected 1 result from the US fallback entry country, got %d", len(result.Mirrors))
	}
}

func TestEngineRunNoMirrors(t *testing.T) {
	engine := NewEngine(DefaultConfig(), singleCountryGraph())
	drainEngineProgress(engine)

	_, err := engine.Run(context.Background(), nil)
	if err != ErrNoMirrorsAfterFiltering {
		t.Fatalf("expected ErrNoMirrorsAfterFiltering, got %v", err)
	}
	if got := engine.Tracker().Snapshot().Phase; got != PhaseFailed {
		t.Errorf("expected PhaseFailed, got %s", got)
	}
}

func TestEngineRunAllProbesFail(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EntryCountry = "Q1"
	cfg.PerMirrorTimeout = 200 * time.Millisecond
	cfg.MaxJumps = 1
	cfg.TopMirrorsNumberToRetest = 1

	mirrors := []Mirror{{URL: "http://192.0.2.1:1/unreachable", URLToTest: "http://192.0.2.1:1/unreachable", Country: "Q1"}}

	engine := NewEngine(cfg, singleCountryGraph())
	drainEngineProgress(engine)

	_, err := engine.Run(context.Background(), mirrors)
	if err != ErrSpeedTestsFailed {
		t.Fatalf("expected ErrSpeedTestsFailed, got %v", err)
	}
	if got := engine.Tracker().Snapshot().Phase; got != PhaseFailed {
		t.Errorf("expected PhaseFailed, got %s", got)
	}
}
