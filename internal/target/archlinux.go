package target

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mirrorjump/mirrorjump/internal/safety"
	"github.com/mirrorjump/mirrorjump/internal/speedtest"
)

// archMirrorsURL is the Arch Linux mirror-status JSON API, the same
// endpoint original_source/src/mirrors.rs's fetch_mirrors hits.
const archMirrorsURL = "https://www.archlinux.org/mirrors/status/json/"

// archTestPath is appended to every surviving mirror's URL to build
// URLToTest: the core repository database, a file every Arch mirror
// serves and whose size comfortably clears min_bytes_per_mirror.
const archTestPath = "core/os/x86_64/core.db"

// archMirrorsResponse models the subset of the mirror-status JSON payload
// this fetcher needs; the upstream document carries more fields (ipv4,
// ipv6, duration_avg, ...) that no SPEC_FULL component consumes.
type archMirrorsResponse struct {
	URLs []archMirrorEntry `json:"urls"`
}

type archMirrorEntry struct {
	URL            string   `json:"url"`
	Protocol       string   `json:"protocol"`
	CountryCode    string   `json:"country_code"`
	Active         bool     `json:"active"`
	Delay          *int     `json:"delay"`
	CompletionPct  *float64 `json:"completion_pct"`
}

// ArchLinuxFetcher implements Fetcher against the Arch Linux mirror
// status JSON API. MinCompletion and MaxDelaySeconds mirror the upstream
// CLI's --completion and --max-delay filters.
type ArchLinuxFetcher struct {
	client          *http.Client
	url             string
	MinCompletion   float64
	MaxDelaySeconds int
}

// NewArchLinuxFetcher returns an ArchLinuxFetcher with the upstream tool's
// defaults: mirrors must report 100% sync completion and a delay under one
// day.
func NewArchLinuxFetcher() *ArchLinuxFetcher {
	return &ArchLinuxFetcher{
		client:          safety.NewHTTPClient(0),
		url:             archMirrorsURL,
		MinCompletion:   1.0,
		MaxDelaySeconds: 86400,
	}
}

// FetchMirrors implements Fetcher.
func (f *ArchLinuxFetcher) FetchMirrors(ctx context.Context, progress chan<- string) ([]speedtest.Mirror, error) {
	emitTarget(progress, "archlinux: fetching mirror status JSON")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("target: archlinux: building request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("target: archlinux: %w", speedtest.ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("target: archlinux: unexpected status %d: %w", resp.StatusCode, speedtest.ErrFetch)
	}

	body, err := safety.ReadAllWithLimit(resp.Body, 16<<20)
	if err != nil {
		return nil, fmt.Errorf("target: archlinux: reading response: %w", err)
	}

	mirrors, err := parseArchResponse(body, f.MinCompletion, f.MaxDelaySeconds)
	if err != nil {
		return nil, fmt.Errorf("target: archlinux: %w", err)
	}
	if len(mirrors) == 0 {
		return nil, speedtest.ErrNoMirrorsAfterFiltering
	}
	return mirrors, nil
}

// parseArchResponse decodes the mirror-status JSON body and applies the
// same completion/delay/protocol/country filters original_source's
// fetch_mirrors applies before grouping mirrors by country.
func parseArchResponse(body []byte, minCompletion float64, maxDelaySeconds int) ([]speedtest.Mirror, error) {
	var payload archMirrorsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	var mirrors []speedtest.Mirror
	for _, m := range payload.URLs {
		if !m.Active {
			continue
		}
		if m.Protocol != "http" && m.Protocol != "https" {
			continue
		}
		if m.CountryCode == "" {
			continue
		}
		if m.CompletionPct == nil || *m.CompletionPct < minCompletion {
			continue
		}
		if m.Delay == nil || *m.Delay > maxDelaySeconds {
			continue
		}
		mirrors = append(mirrors, speedtest.Mirror{
			URL:       m.URL,
			URLToTest: m.URL + archTestPath,
			Country:   m.CountryCode,
		})
	}
	return mirrors, nil
}

// emitTarget sends a progress line without blocking if nobody is
// listening, matching package speedtest's emit helper.
func emitTarget(progress chan<- string, msg string) {
	if progress == nil {
		return
	}
	select {
	case progress <- msg:
	default:
	}
}
