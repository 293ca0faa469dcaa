package target

import "testing"

const sampleArchJSON = `{
  "urls": [
    {"url": "https://mirror.example.de/archlinux/", "protocol": "https", "country_code": "DE", "active": true, "delay": 600, "completion_pct": 1.0},
    {"url": "http://stale.example.us/archlinux/", "protocol": "http", "country_code": "US", "active": true, "delay": 999999, "completion_pct": 1.0},
    {"url": "https://partial.example.jp/archlinux/", "protocol": "https", "country_code": "JP", "active": true, "delay": 60, "completion_pct": 0.5},
    {"url": "https://inactive.example.fr/archlinux/", "protocol": "https", "country_code": "FR", "active": false, "delay": 60, "completion_pct": 1.0},
    {"url": "rsync://rsync.example.nl/archlinux/", "protocol": "rsync", "country_code": "NL", "active": true, "delay": 60, "completion_pct": 1.0}
  ]
}`

func TestParseArchResponseFiltersAndMaps(t *testing.T) {
	mirrors, err := parseArchResponse([]byte(sampleArchJSON), 1.0, 86400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mirrors) != 1 {
		t.Fatalf("expected 1 surviving mirror, got %d: %+v", len(mirrors), mirrors)
	}
	if mirrors[0].Country != "DE" {
		t.Errorf("expected DE to survive filtering, got %s", mirrors[0].Country)
	}
	if mirrors[0].URLToTest != mirrors[0].URL+archTestPath {
		t.Errorf("unexpected URLToTest: %s", mirrors[0].URLToTest)
	}
}

func TestParseArchResponseEmptyIsNotAnError(t *testing.T) {
	mirrors, err := parseArchResponse([]byte(`{"urls": []}`), 1.0, 86400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mirrors) != 0 {
		t.Errorf("expected 0 mirrors, got %d", len(mirrors))
	}
}

func TestParseArchResponseInvalidJSON(t *testing.T) {
	_, err := parseArchResponse([]byte("not json"), 1.0, 86400)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseArchResponseCompletionThreshold(t *testing.T) {
	mirrors, err := parseArchResponse([]byte(sampleArchJSON), 0.5, 86400)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// DE (1.0) and JP (0.5) both clear a lowered 0.5 threshold; US is
	// still excluded by its delay, FR by being inactive, NL by protocol.
	if len(mirrors) != 2 {
		t.Fatalf("expected 2 mirrors at 0.5 threshold, got %d: %+v", len(mirrors), mirrors)
	}
}
