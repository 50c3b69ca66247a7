// Package store is the HTTP client for the remote product API. Every call
// goes through a token-bucket rate limiter and a circuit breaker, is traced
// with OpenTelemetry and is counted in the metrics registry. Nothing is
// retried.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/pkg/fn"
	"github.com/storefront/catalog/pkg/metrics"
	"github.com/storefront/catalog/pkg/resilience"
)

// DefaultBaseURL is the public API the catalog was built against.
const DefaultBaseURL = "https://api.escuelajs.co/api/v1"

const maxBody = 16 << 20

// Options tunes a Client. Zero values fall back to defaults.
type Options struct {
	Timeout    time.Duration // per request, default 15s
	RateLimit  float64       // requests per second, default 5
	Burst      int           // default 5
	Breaker    resilience.BreakerOpts
	Metrics    *metrics.Registry
	Logger     *slog.Logger
	HTTPClient *http.Client // overrides Timeout when set
}

// Client talks to the remote product store.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	log     *slog.Logger

	requests *metrics.Registry
}

// New creates a Client for baseURL, e.g. "https://api.escuelajs.co/api/v1".
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("store: invalid base url %q", baseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	log := opts.Logger.With("component", "store")
	userHook := opts.Breaker.OnStateChange
	opts.Breaker.OnStateChange = func(from, to resilience.State) {
		log.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
		if userHook != nil {
			userHook(from, to)
		}
	}

	return &Client{
		base:     strings.TrimRight(u.String(), "/"),
		http:     hc,
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		breaker:  resilience.NewBreaker(opts.Breaker),
		log:      log,
		requests: opts.Metrics,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.base }

// List fetches every product.
func (c *Client) List(ctx context.Context) ([]domain.Product, error) {
	body, err := c.do(ctx, "list", http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}
	var products []domain.Product
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, &domain.ParseError{Op: "list", Err: err}
	}
	if products == nil {
		return nil, &domain.ParseError{Op: "list", Err: errors.New("expected an array, got null")}
	}
	for i, p := range products {
		if p.ID == 0 {
			return nil, &domain.ParseError{Op: "list", Err: fmt.Errorf("product at index %d has no id", i)}
		}
	}
	return products, nil
}

// Get fetches one product.
func (c *Client) Get(ctx context.Context, id int) (domain.Product, error) {
	body, err := c.do(ctx, "get", http.MethodGet, "/products/"+strconv.Itoa(id), nil)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct("get", body)
}

// Create posts a new product and returns it as stored by the server.
func (c *Client) Create(ctx context.Context, d domain.Draft) (domain.Product, error) {
	if d.Images == nil {
		d.Images = []string{}
	}
	body, err := c.do(ctx, "create", http.MethodPost, "/products", d)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct("create", body)
}

// Update sends the fields set in p and returns the product as stored.
func (c *Client) Update(ctx context.Context, id int, p domain.Patch) (domain.Product, error) {
	body, err := c.do(ctx, "update", http.MethodPut, "/products/"+strconv.Itoa(id), p)
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct("update", body)
}

func decodeProduct(op string, body []byte) (domain.Product, error) {
	var p domain.Product
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Product{}, &domain.ParseError{Op: op, Err: err}
	}
	if p.ID == 0 {
		return domain.Product{}, &domain.ParseError{Op: op, Err: errors.New("product has no id")}
	}
	return p, nil
}

// response is what crosses the breaker. Statuses below 500 are not failures
// of the remote service and do not count against it.
type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) (body []byte, err error) {
	target := c.base + path
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		c.requests.Counter(metrics.WithLabels("catalog_store_requests_total", "op", op, "outcome", outcome),
			"Remote store requests by operation and outcome.").Inc()
		c.requests.Histogram(metrics.WithLabels("catalog_store_request_duration_seconds", "op", op),
			"Remote store request latency.", nil).Since(start)
	}()

	fetchErr := func(status int, cause error) error {
		return &domain.FetchError{Op: op, Method: method, URL: target, StatusCode: status, Err: cause}
	}

	var reqBody []byte
	if payload != nil {
		if reqBody, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("store: encode %s body: %w", op, err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fetchErr(0, err)
	}

	result := resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[response] {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(reqBody))
		if err != nil {
			return fn.Err[response](err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fn.Err[response](err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return fn.Err[response](err)
		}
		r := response{status: resp.StatusCode, body: data}
		if r.status >= 500 {
			return fn.Err[response](&statusError{r})
		}
		return fn.Ok(r)
	})

	r, err := result.Unwrap()
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			c.log.Warn("remote store error", "op", op, "status", se.status)
			return nil, fetchErr(se.status, err)
		}
		c.log.Warn("remote store unreachable", "op", op, "err", err)
		return nil, fetchErr(0, err)
	}
	if r.status < 200 || r.status > 299 {
		c.log.Debug("remote store rejected request", "op", op, "status", r.status)
		return nil, fetchErr(r.status, fmt.Errorf("unexpected status %d: %s", r.status, snippet(r.body)))
	}
	return r.body, nil
}

type statusError struct{ response }

func (e *statusError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.status, snippet(e.body))
}

func snippet(b []byte) string {
	const n = 200
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
