package metrics

import (
	"sync"
	"time"

	m "github.com/yinan-symphony/symphony-wdk/metrics"
)

type noopClient struct{}

// NewNoopMetricsClient returns a client discarding every metric.
func NewNoopMetricsClient() m.Client {
	return noopClient{}
}

func (noopClient) Counter(string, m.Tags, float64) {}

func (noopClient) Distribution(string, m.Tags, float64) {}

func (noopClient) Timing(string, m.Tags, time.Duration) {}

func (c noopClient) WithTags(m.Tags) m.Client {
	return c
}

// Recorder keeps counters in memory. Tags are merged with the tags bound via WithTags.
type Recorder struct {
	mu       *sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
	tags     m.Tags
}

var _ m.Client = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{
		mu:       &sync.Mutex{},
		counters: make(map[string]float64),
		samples:  make(map[string][]float64),
	}
}

func (r *Recorder) Counter(name string, tags m.Tags, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[name] += value
}

func (r *Recorder) Distribution(name string, tags m.Tags, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples[name] = append(r.samples[name], value)
}

func (r *Recorder) Timing(name string, tags m.Tags, duration time.Duration) {
	r.Distribution(name, tags, float64(duration/time.Millisecond))
}

func (r *Recorder) WithTags(tags m.Tags) m.Client {
	merged := make(m.Tags, len(r.tags)+len(tags))
	for k, v := range r.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}

	return &Recorder{
		mu:       r.mu,
		counters: r.counters,
		samples:  r.samples,
		tags:     merged,
	}
}

// Count returns the accumulated value of the given counter.
func (r *Recorder) Count(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.counters[name]
}

// Samples returns the number of distribution samples recorded for name.
func (r *Recorder) Samples(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.samples[name])
}

// Snapshot returns copies of all counters and samples.
func (r *Recorder) Snapshot() (counters map[string]float64, samples map[string][]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	counters = make(map[string]float64, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}

	samples = make(map[string][]float64, len(r.samples))
	for k, v := range r.samples {
		samples[k] = append([]float64(nil), v...)
	}

	return counters, samples
}
