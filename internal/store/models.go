package store

import "time"

// Run records one completed mirrorjump rank invocation, adapted from the
// teacher's SyncRun: the fields this engine actually produces (target,
// entry country, jump count, the winning mirror) in place of the sync
// scheduler's byte/file counters.
type Run struct {
	ID            int64
	StartedAt     time.Time
	Target        string
	EntryCountry  string
	Jumps         int
	ResultCount   int
	TopMirrorURL  string
	TopSpeedBps   float64
}
