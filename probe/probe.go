// Package probe checks over plain HTTP that the auction site answers before
// the browser is asked to reload it.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Options configures a Checker.
type Options struct {
	UserAgent   string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	BackoffMax  time.Duration
	// Markers are CSS selectors reported as present or absent in Result.
	Markers []string
}

// DefaultOptions returns conservative probe settings.
func DefaultOptions() Options {
	return Options{
		UserAgent:   "Mozilla/5.0 (compatible; auction-lister/1.0)",
		Timeout:     10 * time.Second,
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
		BackoffMax:  5 * time.Second,
	}
}

// Result describes one probe.
type Result struct {
	URL        string
	StatusCode int
	Latency    time.Duration
	Markers    map[string]bool
}

// Checker issues probe requests through a colly collector.
type Checker struct {
	opts      Options
	collector *colly.Collector

	sleep func(ctx context.Context, d time.Duration) error
}

// NewChecker builds a checker from opts. Zero values fall back to
// DefaultOptions.
func NewChecker(opts Options) *Checker {
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = def.Backoff
	}

	collector := colly.NewCollector(
		colly.UserAgent(opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(opts.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &Checker{
		opts:      opts,
		collector: collector,
		sleep:     sleepContext,
	}
}

// Check fetches url once. Non-2xx answers and transport failures are
// returned classified (ErrTimeout, ErrForbidden and so on) along with
// whatever the response carried.
func (c *Checker) Check(ctx context.Context, url string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{URL: url}, err
	}

	result := Result{URL: url, Markers: make(map[string]bool, len(c.opts.Markers))}
	for _, m := range c.opts.Markers {
		result.Markers[m] = false
	}

	var reqErr error
	collector := c.collector.Clone()
	collector.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
	})
	collector.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			result.Latency = time.Since(start)
		}
	})
	collector.OnHTML("html", func(e *colly.HTMLElement) {
		for _, m := range c.opts.Markers {
			if e.DOM.Find(m).Length() > 0 {
				result.Markers[m] = true
			}
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
			result.StatusCode = status
		}
		reqErr = classifyError(err, status)
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return Result{URL: url}, ctx.Err()
	case err := <-done:
		if reqErr != nil {
			return result, reqErr
		}
		if err != nil {
			return result, classifyError(err, 0)
		}
	}

	slog.Debug("probe ok",
		slog.String("url", url),
		slog.Int("status", result.StatusCode),
		slog.Duration("latency", result.Latency),
	)
	return result, nil
}

// AwaitReachable probes url until it answers, retrying with capped
// exponential backoff up to MaxAttempts. Forbidden and not-found answers
// are returned at once.
func (c *Checker) AwaitReachable(ctx context.Context, url string) error {
	var lastErr error
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		_, err := c.Check(ctx, url)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		if !retryable(err) {
			break
		}
		if attempt == c.opts.MaxAttempts {
			break
		}

		delay := c.backoff(attempt)
		slog.Warn("sell page probe failed, retrying",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.String("category", ErrorType(err)),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("probe %s: %w", url, lastErr)
}

func (c *Checker) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := c.opts.Backoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := c.opts.BackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
