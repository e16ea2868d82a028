package statistics

import (
	"sort"

	"github.com/perf-diff/pkg/model"
	"github.com/perf-diff/pkg/profiling"
)

// ThreadStatsCalculator merges the per-thread summaries of parse results.
type ThreadStatsCalculator struct {
	maxThreads     int
	includeSwapper bool
}

// ThreadStatsOption configures the ThreadStatsCalculator.
type ThreadStatsOption func(*ThreadStatsCalculator)

// WithMaxThreads sets the maximum number of threads to return.
func WithMaxThreads(n int) ThreadStatsOption {
	return func(c *ThreadStatsCalculator) {
		c.maxThreads = n
	}
}

// WithSwapper keeps idle (swapper) threads in the summary.
func WithSwapper(include bool) ThreadStatsOption {
	return func(c *ThreadStatsCalculator) {
		c.includeSwapper = include
	}
}

// NewThreadStatsCalculator creates a new ThreadStatsCalculator.
func NewThreadStatsCalculator(opts ...ThreadStatsOption) *ThreadStatsCalculator {
	c := &ThreadStatsCalculator{
		maxThreads: 0, // 0 means no limit
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ThreadStatsResult holds the calculation result.
type ThreadStatsResult struct {
	Threads      []*model.ThreadInfo
	TotalSamples int64
}

type threadKey struct {
	pid int
	tid int
	// name separates threads without a TID.
	name string
}

// Calculate merges the thread summaries of results. Threads are matched
// on PID and TID; the first name seen wins. Percentages are recomputed
// against the merged total.
func (c *ThreadStatsCalculator) Calculate(results ...*model.ParseResult) *ThreadStatsResult {
	result := &ThreadStatsResult{Threads: make([]*model.ThreadInfo, 0)}

	merged := make(map[threadKey]*model.ThreadInfo)
	var order []threadKey
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, info := range r.ThreadStats {
			if !c.includeSwapper && profiling.IsSwapperThread(info.ThreadName) {
				continue
			}
			key := threadKey{pid: info.PID, tid: info.TID}
			if info.TID <= 0 {
				key.name = info.ThreadName
			}
			entry, ok := merged[key]
			if !ok {
				entry = &model.ThreadInfo{PID: info.PID, TID: info.TID, ThreadName: info.ThreadName}
				merged[key] = entry
				order = append(order, key)
			}
			entry.Samples += info.Samples
			result.TotalSamples += info.Samples
		}
	}

	for _, key := range order {
		entry := merged[key]
		if result.TotalSamples > 0 {
			entry.Percentage = float64(entry.Samples) / float64(result.TotalSamples) * 100
		}
		result.Threads = append(result.Threads, entry)
	}

	sort.SliceStable(result.Threads, func(i, j int) bool {
		a, b := result.Threads[i], result.Threads[j]
		if a.Samples != b.Samples {
			return a.Samples > b.Samples
		}
		if a.PID != b.PID {
			return a.PID < b.PID
		}
		if a.TID != b.TID {
			return a.TID < b.TID
		}
		return a.ThreadName < b.ThreadName
	})

	if c.maxThreads > 0 && len(result.Threads) > c.maxThreads {
		result.Threads = result.Threads[:c.maxThreads]
	}
	return result
}

// GetThreadByTID returns thread info by TID.
func (r *ThreadStatsResult) GetThreadByTID(tid int) *model.ThreadInfo {
	for _, t := range r.Threads {
		if t.TID == tid {
			return t
		}
	}
	return nil
}

// GetThreadByName returns thread info by name.
func (r *ThreadStatsResult) GetThreadByName(name string) *model.ThreadInfo {
	for _, t := range r.Threads {
		if t.ThreadName == name {
			return t
		}
	}
	return nil
}
