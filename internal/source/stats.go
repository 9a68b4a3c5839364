package source

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// fetchSample is one completed fetch. Status is 0 for a success and the
// retrieval status for a failure.
type fetchSample struct {
	path    string
	at      time.Time
	latency time.Duration
	status  int
	failed  bool
}

// FetchSummary aggregates the fetches of one path, or of all paths, inside
// the stats window.
type FetchSummary struct {
	Fetches   int         `json:"fetches"`
	Failures  int         `json:"failures"`
	Statuses  map[int]int `json:"failure_statuses,omitempty"`
	MedianMs  float64     `json:"median_ms"`
	P95Ms     float64     `json:"p95_ms"`
	SlowestMs float64     `json:"slowest_ms"`
	LastFetch time.Time   `json:"last_fetch"`
}

// StatsReport is a point-in-time view of recent fetches.
type StatsReport struct {
	Total FetchSummary            `json:"total"`
	Paths map[string]FetchSummary `json:"paths"`
}

// Stats keeps the fetches of the last window, oldest first.
type Stats struct {
	mu      sync.Mutex
	window  time.Duration
	samples []fetchSample
}

func NewStats(window time.Duration) *Stats {
	if window <= 0 {
		window = time.Hour
	}
	return &Stats{window: window}
}

// Record adds one fetch of path. A non-nil err counts as a failure under
// its retrieval status.
func (s *Stats) Record(path string, latency time.Duration, err error) {
	sm := fetchSample{path: path, at: time.Now(), latency: max(latency, 0)}
	if err != nil {
		sm.failed = true
		var rerr *RetrievalError
		if errors.As(err, &rerr) {
			sm.status = rerr.Status
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expire(sm.at)
	s.samples = append(s.samples, sm)
}

func (s *Stats) Snapshot() StatsReport {
	s.mu.Lock()
	s.expire(time.Now())
	byPath := make(map[string][]fetchSample)
	for _, sm := range s.samples {
		byPath[sm.path] = append(byPath[sm.path], sm)
	}
	total := summarize(s.samples)
	s.mu.Unlock()

	report := StatsReport{Total: total, Paths: make(map[string]FetchSummary, len(byPath))}
	for path, samples := range byPath {
		report.Paths[path] = summarize(samples)
	}
	return report
}

// expire drops samples older than the window. Callers must hold s.mu.
func (s *Stats) expire(now time.Time) {
	cutoff := now.Add(-s.window)
	keep := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].at.Before(cutoff)
	})
	if keep > 0 {
		s.samples = append(s.samples[:0], s.samples[keep:]...)
	}
}

func summarize(samples []fetchSample) FetchSummary {
	sum := FetchSummary{Fetches: len(samples)}
	if len(samples) == 0 {
		return sum
	}
	latencies := make([]time.Duration, len(samples))
	for i, sm := range samples {
		latencies[i] = sm.latency
		if sm.at.After(sum.LastFetch) {
			sum.LastFetch = sm.at
		}
		if !sm.failed {
			continue
		}
		sum.Failures++
		if sum.Statuses == nil {
			sum.Statuses = make(map[int]int)
		}
		sum.Statuses[sm.status]++
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	sum.MedianMs = millis(nearestRank(latencies, 50))
	sum.P95Ms = millis(nearestRank(latencies, 95))
	sum.SlowestMs = millis(latencies[len(latencies)-1])
	return sum
}

// nearestRank returns the smallest value with at least pct percent of the
// sorted values at or below it.
func nearestRank(sorted []time.Duration, pct int) time.Duration {
	rank := (pct*len(sorted) + 99) / 100
	return sorted[min(max(rank, 1), len(sorted))-1]
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Timed records every fetch made through next.
func Timed(next Retriever, stats *Stats) Retriever {
	return RetrieverFunc(func(ctx context.Context, name string) ([]byte, error) {
		start := time.Now()
		data, err := next.Fetch(ctx, name)
		stats.Record(name, time.Since(start), err)
		return data, err
	})
}
