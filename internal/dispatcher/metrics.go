package dispatcher

import "sync/atomic"

// Metrics counts dispatcher outcomes. All counters are monotonic for the
// process lifetime and safe for concurrent use.
type Metrics struct {
	Received         atomic.Int64
	ParseFailures    atomic.Int64
	CacheHits        atomic.Int64
	InProgressSkips  atomic.Int64
	HandlerSuccesses atomic.Int64
	HandlerFailures  atomic.Int64
	Published        atomic.Int64
}

// NewMetrics returns zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Snapshot renders the counters for the status endpoint.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"received":          m.Received.Load(),
		"parse_failures":    m.ParseFailures.Load(),
		"cache_hits":        m.CacheHits.Load(),
		"in_progress_skips": m.InProgressSkips.Load(),
		"handler_successes": m.HandlerSuccesses.Load(),
		"handler_failures":  m.HandlerFailures.Load(),
		"published":         m.Published.Load(),
	}
}
