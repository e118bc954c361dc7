package owm

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultMinInterval is the smallest gap between two requests of one Poller.
	DefaultMinInterval = 10 * time.Second

	// DefaultBuffer is the number of unread updates kept before new ones are dropped.
	DefaultBuffer = 16
)

// Response is the raw outcome of one poll cycle: a response body or an error.
type Response struct {
	Body string
	Err  error
}

type options struct {
	baseURL     string
	client      *http.Client
	endpoint    Endpoint
	days        int
	buffer      int
	minInterval time.Duration
	breaker     *gobreaker.Settings
	metrics     *Metrics
	logger      *log.Logger
}

// Option configures a Poller.
type Option func(*options)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

// WithEndpoint selects the current weather or daily forecast resource.
func WithEndpoint(ep Endpoint) Option {
	return func(o *options) { o.endpoint = ep }
}

// WithForecastDays limits the number of forecast days requested.
func WithForecastDays(n int) Option {
	return func(o *options) { o.days = n }
}

// WithBuffer sets how many unread updates are kept. Values below 1 are raised to 1.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.buffer = n
	}
}

// WithMinInterval sets the floor for the poll interval and for the gap between
// consecutive attempts. Non-positive values are ignored.
func WithMinInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.minInterval = d
		}
	}
}

// WithCircuitBreaker puts requests behind a gobreaker circuit breaker.
func WithCircuitBreaker(s gobreaker.Settings) Option {
	return func(o *options) { o.breaker = &s }
}

// WithMetrics records request outcomes and dropped updates in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger replaces log.Default. A nil logger is ignored.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Poller fetches one endpoint repeatedly in a background goroutine and publishes
// each outcome to its Updates channel.
type Poller struct {
	id       string
	url      string
	endpoint Endpoint
	interval time.Duration

	updates chan Response
	fetch   *fetcher
	limiter *rate.Limiter
	metrics *Metrics
	logger  *log.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// Start validates q, publishes ErrLoading and starts polling. The poller runs until
// Stop is called or ctx is cancelled. interval is clamped to the minimum interval.
func Start(ctx context.Context, q Query, interval time.Duration, opts ...Option) (*Poller, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	o := options{
		baseURL:     DefaultBaseURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		buffer:      DefaultBuffer,
		minInterval: DefaultMinInterval,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	q = q.withDefaults()
	loc := ResolveLocation(q.Location)

	p := &Poller{
		id:       uuid.NewString(),
		url:      BuildURL(o.baseURL, o.endpoint, loc, q, o.days),
		endpoint: o.endpoint,
		interval: clampInterval(interval, o.minInterval),
		updates:  make(chan Response, o.buffer),
		fetch:    &fetcher{client: o.client},
		limiter:  rate.NewLimiter(rate.Every(o.minInterval), 1),
		metrics:  o.metrics,
		logger:   o.logger,
		done:     make(chan struct{}),
	}

	if o.breaker != nil {
		settings := *o.breaker
		if settings.Name == "" {
			settings.Name = "owm-" + p.id
		}
		p.fetch.circuit = gobreaker.NewCircuitBreaker(settings)
	}

	p.publish(Response{Err: ErrLoading})

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go p.run(loopCtx)

	p.logger.Printf("INFO: poller %s started for %s location %q every %s",
		p.id, loc.Kind, q.Location, p.interval)
	return p, nil
}

// StartMinutes is Start with the interval given in whole minutes.
func StartMinutes(ctx context.Context, location, units, lang, apiKey string, minutes uint, opts ...Option) (*Poller, error) {
	q := Query{Location: location, Units: units, Lang: lang, APIKey: apiKey}
	return Start(ctx, q, time.Duration(minutes)*time.Minute, opts...)
}

// Updates returns the channel the poller publishes to. It is closed after the poller stops.
func (p *Poller) Updates() <-chan Response {
	return p.updates
}

// ID returns the poller identity used in log lines.
func (p *Poller) ID() string {
	return p.id
}

// URL returns the request URL, API key included.
func (p *Poller) URL() string {
	return p.url
}

// Interval returns the effective delay after a successful cycle.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Endpoint returns the polled resource.
func (p *Poller) Endpoint() Endpoint {
	return p.endpoint
}

// Done is closed once the background goroutine has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Stop cancels polling and waits for the goroutine to exit. It is safe to call more than once.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer close(p.updates)

	for {
		// The limiter spaces every attempt by at least the minimum interval,
		// including the ones that follow a failure.
		if err := p.limiter.Wait(ctx); err != nil {
			break
		}

		start := time.Now()
		body, err := p.fetch.get(ctx, p.url)
		if ctx.Err() != nil {
			break
		}
		p.metrics.RecordCycle(p.endpoint, start, err)

		if err != nil {
			p.logger.Printf("ERROR: poller %s: request to %s failed: %v", p.id, redact(p.url), err)
			p.publish(Response{Err: err})
			continue
		}

		p.publish(Response{Body: body})
		if !sleep(ctx, p.interval) {
			break
		}
	}

	p.logger.Printf("INFO: poller %s stopped", p.id)
}

// publish never blocks; an update that does not fit in the buffer is dropped.
func (p *Poller) publish(r Response) {
	select {
	case p.updates <- r:
	default:
		p.metrics.RecordDrop()
		p.logger.Printf("DEBUG: poller %s: buffer full, update dropped", p.id)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func clampInterval(interval, floor time.Duration) time.Duration {
	if interval < floor {
		return floor
	}
	return interval
}
