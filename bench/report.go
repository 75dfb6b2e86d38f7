package main

import (
	"fmt"
	"io"
	"slices"
	"sort"

	mi "github.com/yinan-symphony/symphony-wdk/internal/metrics"
)

// printMetrics writes every counter and the percentiles of every timing, in milliseconds.
func printMetrics(w io.Writer, r *mi.Recorder) {
	counters, samples := r.Snapshot()

	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "%s: %v\n", name, counters[name])
	}

	names = names[:0]
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		s := samples[name]
		if len(s) == 0 {
			continue
		}

		slices.Sort(s)
		fmt.Fprintf(w, "%s: n=%d p50=%vms p99=%vms max=%vms\n", name, len(s), s[len(s)/2], s[len(s)*99/100], s[len(s)-1])
	}
}
