// Package metrics keeps in-process counters, gauges and histograms and
// serves them in the Prometheus text format. Series are grouped into
// families by base name, so `foo{op="a"}` and `foo{op="b"}` share one
// HELP/TYPE header.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultBuckets are latency buckets in seconds, sized for remote API calls.
var DefaultBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30}

type kind string

const (
	kindCounter   kind = "counter"
	kindGauge     kind = "gauge"
	kindHistogram kind = "histogram"
)

// Counter only goes up.
type Counter struct{ n atomic.Int64 }

func (c *Counter) Inc()         { c.n.Add(1) }
func (c *Counter) Add(d int64)  { c.n.Add(d) }
func (c *Counter) Value() int64 { return c.n.Load() }

// Gauge holds a value that may move either way.
type Gauge struct{ n atomic.Int64 }

func (g *Gauge) Set(v int64)  { g.n.Store(v) }
func (g *Gauge) Inc()         { g.n.Add(1) }
func (g *Gauge) Dec()         { g.n.Add(-1) }
func (g *Gauge) Value() int64 { return g.n.Load() }

// Histogram counts observations into cumulative upper bounds.
type Histogram struct {
	mu     sync.Mutex
	bounds []float64
	hits   []uint64 // hits[i] counts values <= bounds[i] and > bounds[i-1]
	total  uint64
	sum    float64
}

// Observe records v.
func (h *Histogram) Observe(v float64) {
	i, _ := slices.BinarySearch(h.bounds, v)
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < len(h.hits) {
		h.hits[i]++
	}
	h.total++
	h.sum += v
}

// Since observes the seconds elapsed since start.
func (h *Histogram) Since(start time.Time) { h.Observe(time.Since(start).Seconds()) }

// Count returns how many values were observed.
func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

func (h *Histogram) writeTo(w io.Writer, base, labels string) {
	h.mu.Lock()
	hits := slices.Clone(h.hits)
	total, sum := h.total, h.sum
	h.mu.Unlock()

	suffix := ""
	if labels != "" {
		suffix = "{" + labels + "}"
		labels = "," + labels
	}
	var running uint64
	for i, le := range h.bounds {
		running += hits[i]
		fmt.Fprintf(w, "%s_bucket{le=\"%g\"%s} %d\n", base, le, labels, running)
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"%s} %d\n", base, labels, total)
	fmt.Fprintf(w, "%s_sum%s %g\n", base, suffix, sum)
	fmt.Fprintf(w, "%s_count%s %d\n", base, suffix, total)
}

// family is every series sharing a base name.
type family struct {
	kind   kind
	help   string
	series map[string]any // label set -> *Counter, *Gauge or *Histogram
}

// Registry is safe for concurrent use. The zero value is not usable; call
// New.
type Registry struct {
	mu       sync.Mutex
	families map[string]*family
	order    []string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// series returns the metric stored under name, creating it with mk when
// absent. Reusing a base name with a different kind panics.
func (r *Registry) series(name, help string, k kind, mk func() any) any {
	base, labels := split(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.families[base]
	if !ok {
		f = &family{kind: k, series: make(map[string]any)}
		r.families[base] = f
		r.order = append(r.order, base)
	}
	if f.kind != k {
		panic(fmt.Sprintf("metrics: %s registered as %s, requested as %s", base, f.kind, k))
	}
	if f.help == "" {
		f.help = help
	}
	m, ok := f.series[labels]
	if !ok {
		m = mk()
		f.series[labels] = m
	}
	return m
}

// Counter returns the counter called name, creating it on first use.
func (r *Registry) Counter(name, help string) *Counter {
	return r.series(name, help, kindCounter, func() any { return new(Counter) }).(*Counter)
}

// Gauge returns the gauge called name, creating it on first use.
func (r *Registry) Gauge(name, help string) *Gauge {
	return r.series(name, help, kindGauge, func() any { return new(Gauge) }).(*Gauge)
}

// Histogram returns the histogram called name, creating it on first use with
// the given bounds (DefaultBuckets when nil). Bounds of an existing histogram
// are not changed.
func (r *Registry) Histogram(name, help string, bounds []float64) *Histogram {
	if bounds == nil {
		bounds = DefaultBuckets
	}
	return r.series(name, help, kindHistogram, func() any {
		b := slices.Clone(bounds)
		slices.Sort(b)
		return &Histogram{bounds: b, hits: make([]uint64, len(b))}
	}).(*Histogram)
}

// WithLabels appends label pairs to name: WithLabels("x", "op", "list")
// gives `x{op="list"}`. An odd number of kvs leaves name unchanged.
func WithLabels(name string, kvs ...string) string {
	if len(kvs) == 0 || len(kvs)%2 == 1 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i := 0; i < len(kvs); i += 2 {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", kvs[i], kvs[i+1])
	}
	b.WriteByte('}')
	return b.String()
}

// split separates `base{labels}` into its parts.
func split(name string) (base, labels string) {
	base, rest, ok := strings.Cut(name, "{")
	if !ok {
		return name, ""
	}
	return base, strings.TrimSuffix(rest, "}")
}

// Expose writes every family in registration order, series sorted by label
// set.
func (r *Registry) Expose(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, base := range r.order {
		f := r.families[base]
		if f.help != "" {
			fmt.Fprintf(w, "# HELP %s %s\n", base, f.help)
		}
		fmt.Fprintf(w, "# TYPE %s %s\n", base, f.kind)
		for _, labels := range sortedKeys(f.series) {
			name := base
			if labels != "" {
				name += "{" + labels + "}"
			}
			switch m := f.series[labels].(type) {
			case *Counter:
				fmt.Fprintf(w, "%s %d\n", name, m.Value())
			case *Gauge:
				fmt.Fprintf(w, "%s %d\n", name, m.Value())
			case *Histogram:
				m.writeTo(w, base, labels)
			}
		}
	}
}

// Render returns what Expose would write.
func (r *Registry) Render() string {
	var b strings.Builder
	r.Expose(&b)
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Handler serves the registry for scraping.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.Expose(w)
	})
}
