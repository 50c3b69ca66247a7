package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter(t *testing.T) {
	r := New()
	c := r.Counter("test_total", "A test counter")
	c.Inc()
	c.Add(5)
	if c.Value() != 6 {
		t.Fatalf("expected 6, got %d", c.Value())
	}
	if r.Counter("test_total", "") != c {
		t.Fatal("expected same counter instance")
	}
}

func TestGauge(t *testing.T) {
	r := New()
	g := r.Gauge("test_gauge", "A test gauge")
	g.Set(10)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 9 {
		t.Fatalf("expected 9, got %d", g.Value())
	}
}

func TestHistogramRender(t *testing.T) {
	r := New()
	h := r.Histogram(WithLabels("op_seconds", "op", "list"), "Op latency", []float64{0.1, 1})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)
	h.Since(time.Now())
	if h.Count() != 4 {
		t.Fatalf("expected 4 observations, got %d", h.Count())
	}

	out := r.Render()
	for _, want := range []string{
		"# TYPE op_seconds histogram",
		`op_seconds_bucket{le="0.1",op="list"} 2`,
		`op_seconds_bucket{le="1",op="list"} 3`,
		`op_seconds_bucket{le="+Inf",op="list"} 4`,
		`op_seconds_count{op="list"} 4`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestWithLabels(t *testing.T) {
	if got := WithLabels("m", "a", "1", "b", "2"); got != `m{a="1",b="2"}` {
		t.Fatalf("unexpected: %s", got)
	}
	if got := WithLabels("m", "odd"); got != "m" {
		t.Fatalf("odd pairs should be ignored, got %s", got)
	}
}

func TestRenderGroupsLabelledCounters(t *testing.T) {
	r := New()
	r.Counter(WithLabels("req_total", "outcome", "ok"), "Requests").Add(3)
	r.Counter(WithLabels("req_total", "outcome", "error"), "Requests").Inc()
	out := r.Render()
	if strings.Count(out, "# TYPE req_total counter") != 1 {
		t.Fatalf("expected a single TYPE line:\n%s", out)
	}
	if !strings.Contains(out, `req_total{outcome="ok"} 3`) || !strings.Contains(out, `req_total{outcome="error"} 1`) {
		t.Fatalf("missing series:\n%s", out)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Gauge("catalog_products_loaded", "Products").Set(42)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "catalog_products_loaded 42") {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}

func TestKindMismatchPanics(t *testing.T) {
	r := New()
	r.Counter(WithLabels("dup", "a", "1"), "")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for gauge reusing a counter name")
		}
	}()
	r.Gauge(WithLabels("dup", "a", "2"), "")
}

func TestHistogramBoundaryValue(t *testing.T) {
	r := New()
	h := r.Histogram("edge_seconds", "", []float64{1, 0.5})
	h.Observe(0.5)
	h.Observe(1)
	out := r.Render()
	if !strings.Contains(out, `edge_seconds_bucket{le="0.5"} 1`) || !strings.Contains(out, `edge_seconds_bucket{le="1"} 2`) {
		t.Fatalf("bounds should be inclusive and sorted:\n%s", out)
	}
}
