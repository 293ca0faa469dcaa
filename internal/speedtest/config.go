package speedtest

import "time"

// Config holds every tunable named in the engine's flag table. Values are
// pre-converted to time.Duration/plain counts so the engine never has to
// reason about units.
type Config struct {
	// Protocols restricts which Mirror.URL schemes are considered. Empty
	// means both http and https are allowed.
	Protocols []string

	PerMirrorTimeout  time.Duration
	MinPerMirror      time.Duration
	MaxPerMirror      time.Duration
	MinBytesPerMirror int64
	Eps               float64
	EpsChecks         int

	Concurrency             int
	ConcurrencyForUnlabeled int

	MaxJumps                    int
	EntryCountry                string
	CountryNeighborsPerCountry  int
	CountryTestMirrorsPerCountry int
	TopMirrorsNumberToRetest    int
}

// DefaultConfig returns the engine defaults from the CLI flag table.
func DefaultConfig() Config {
	return Config{
		PerMirrorTimeout:             8000 * time.Millisecond,
		MinPerMirror:                 300 * time.Millisecond,
		MaxPerMirror:                 1000 * time.Millisecond,
		MinBytesPerMirror:            70000,
		Eps:                          0.0625,
		EpsChecks:                    40,
		Concurrency:                  16,
		ConcurrencyForUnlabeled:      40,
		MaxJumps:                     7,
		EntryCountry:                 "US",
		CountryNeighborsPerCountry:   3,
		CountryTestMirrorsPerCountry: 2,
		TopMirrorsNumberToRetest:     5,
	}
}
