// Package crawl drives a crawl run end to end: launch the browser,
// discover article links for the target date, fetch and extract each
// article with inter-request pacing, and hand the collected result to
// exactly one sink.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sjlee/hanmicrawl/article"
	"github.com/sjlee/hanmicrawl/browser"
	"github.com/sjlee/hanmicrawl/extract"
)

// State is the orchestrator's position in a run. A run moves forward
// through these states and never revisits one.
type State string

const (
	StateIdle             State = "idle"
	StateLaunching        State = "launching"
	StateDiscoveringLinks State = "discovering-links"
	StateFetchingDetails  State = "fetching-details"
	StateDispatching      State = "dispatching"
	StateDone             State = "done"
	StateFailed           State = "failed"
)

// Session is what a run needs from a launched browser: fetching and a
// single release. Close must be safe to call more than once.
type Session interface {
	browser.Fetcher
	Close()
}

// LaunchFunc acquires the browser engine for one run.
type LaunchFunc func(ctx context.Context) (Session, error)

// Sink consumes the final article collection. Exactly one sink is
// invoked per non-empty run.
type Sink interface {
	Name() string
	Deliver(result *article.CrawlResult) error
}

// ProgressFunc receives human-readable status lines during a run, in
// order. It is called synchronously; nil means no progress reporting.
type ProgressFunc func(line string)

// Recorder receives a bookkeeping record once per finished run.
type Recorder interface {
	Record(rec RunRecord) error
}

// RunRecord summarizes one finished run, successful or not.
type RunRecord struct {
	RunID      uuid.UUID
	TargetDate string
	Shape      article.ListingShape
	Discovered int
	Collected  int
	Delivery   string // "file", "email" or "none"
	Outcome    string // "ok" or "failed"
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Config holds the orchestrator settings that do not vary per target.
type Config struct {
	// ListingURL is the category listing page used for ShapeCategory.
	ListingURL string
	// HomeURL is the homepage used for ShapeHomepage.
	HomeURL string
	// RequestDelay paces successive detail fetches to bound load on
	// the source site.
	RequestDelay time.Duration
}

// DefaultConfig returns the site defaults.
func DefaultConfig() *Config {
	return &Config{
		ListingURL:   extract.CategoryListURL,
		HomeURL:      extract.BaseURL,
		RequestDelay: 1 * time.Second,
	}
}

// Options wires a Crawler. Launch and FileSink are required; the rest
// are optional.
type Options struct {
	Launch    LaunchFunc
	Config    *Config
	FileSink  Sink
	EmailSink Sink
	Recorder  Recorder
	Progress  ProgressFunc
	Logger    *slog.Logger
}

// Crawler orchestrates crawl runs. It is the only stateful entity in
// the pipeline; its state is valid for the duration of one Run call.
type Crawler struct {
	launch    LaunchFunc
	cfg       *Config
	fileSink  Sink
	emailSink Sink
	recorder  Recorder
	progress  ProgressFunc
	logger    *slog.Logger

	state State
}

// New builds a Crawler from options.
func New(opts Options) *Crawler {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		launch:    opts.Launch,
		cfg:       cfg,
		fileSink:  opts.FileSink,
		emailSink: opts.EmailSink,
		recorder:  opts.Recorder,
		progress:  opts.Progress,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the orchestrator's current state.
func (c *Crawler) State() State {
	return c.state
}

// Run executes one crawl for the given target. Per-article failures
// are absorbed: a single bad page is logged and skipped. Only engine
// launch and listing-page failures end the run with an error. A
// cancelled context stops the run between detail fetches; articles
// collected up to that point are still dispatched.
func (c *Crawler) Run(ctx context.Context, target article.CrawlTarget) (*article.CrawlResult, error) {
	if target.MaxArticles <= 0 {
		target.MaxArticles = article.DefaultMaxArticles
	}
	if target.Shape == "" {
		target.Shape = article.ShapeCategory
	}

	result := &article.CrawlResult{
		RunID:     uuid.New(),
		Target:    target,
		StartedAt: time.Now(),
	}
	log := c.logger.With("run_id", result.RunID, "target_date", target.DateString())

	c.state = StateLaunching
	c.report("launching browser engine")
	session, err := c.launch(ctx)
	if err != nil {
		return nil, c.fail(result, "none", fmt.Errorf("acquire browser engine: %w", err))
	}

	// The engine is released exactly once per run on every exit path.
	released := false
	release := func() {
		if !released {
			released = true
			session.Close()
		}
	}
	defer release()

	c.state = StateDiscoveringLinks
	listingURL := c.listingURL(target.Shape)
	c.report(fmt.Sprintf("fetching listing page %s", listingURL))
	markup, err := session.Fetch(ctx, listingURL)
	if err != nil {
		return nil, c.fail(result, "none", fmt.Errorf("fetch listing page: %w", err))
	}

	items, err := extract.ListingLinks(markup, target.Shape, target.Date, target.MaxArticles)
	if err != nil {
		return nil, c.fail(result, "none", fmt.Errorf("extract listing links: %w", err))
	}

	c.report(fmt.Sprintf("discovered %d article(s) dated %s", len(items), target.DateString()))
	if len(items) == 0 {
		// Nothing published on the target date. A normal outcome:
		// release the engine, skip all sinks, finish Done and empty.
		release()
		result.FinishedAt = time.Now()
		c.state = StateDone
		c.report("nothing to crawl for the target date")
		c.record(result, len(items), "none", "ok", "")
		return result, nil
	}

	c.state = StateFetchingDetails
	for i, item := range items {
		if i > 0 {
			if err := c.pace(ctx); err != nil {
				log.Warn("run cancelled between detail fetches", "collected", len(result.Articles))
				c.report("run cancelled; dispatching what was collected")
				break
			}
		}

		c.report(fmt.Sprintf("fetching article %d/%d: %s", i+1, len(items), item.Title))
		page, err := session.Fetch(ctx, item.URL)
		if err != nil {
			log.Warn("detail fetch failed, skipping", "url", item.URL, "error", err)
			c.report(fmt.Sprintf("skipped %s: %v", item.URL, err))
			continue
		}

		a, err := extract.Article(page, item.URL)
		if err != nil {
			log.Warn("detail extraction failed, skipping", "url", item.URL, "error", err)
			c.report(fmt.Sprintf("skipped %s: %v", item.URL, err))
			continue
		}

		result.Articles = append(result.Articles, a)
		c.report(fmt.Sprintf("collected: %s", a.Title))
	}

	release()

	c.state = StateDispatching
	delivery := "none"
	if !result.Empty() {
		sink := c.fileSink
		if c.emailSink != nil {
			sink = c.emailSink
		}
		delivery = sink.Name()
		c.report(fmt.Sprintf("dispatching %d article(s) to %s sink", len(result.Articles), delivery))
		if err := sink.Deliver(result); err != nil {
			// Delivery failing does not erase what was collected.
			result.DeliveryErr = err
			log.Warn("delivery failed", "sink", delivery, "error", err)
			c.report(fmt.Sprintf("delivery failed: %v", err))
		}
	}

	result.FinishedAt = time.Now()
	c.state = StateDone
	c.report(fmt.Sprintf("done: %d/%d article(s) collected", len(result.Articles), len(items)))
	c.record(result, len(items), delivery, "ok", "")
	return result, nil
}

// listingURL picks the discovery page for the shape.
func (c *Crawler) listingURL(shape article.ListingShape) string {
	if shape == article.ShapeHomepage {
		return c.cfg.HomeURL
	}
	return c.cfg.ListingURL
}

// pace waits the configured inter-request delay, or returns early when
// the context is cancelled.
func (c *Crawler) pace(ctx context.Context) error {
	if c.cfg.RequestDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.cfg.RequestDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fail finishes the run in the Failed state and records it.
func (c *Crawler) fail(result *article.CrawlResult, delivery string, err error) error {
	result.FinishedAt = time.Now()
	c.state = StateFailed
	c.logger.Error("run failed", "run_id", result.RunID, "error", err)
	c.report(fmt.Sprintf("run failed: %v", err))
	c.record(result, 0, delivery, "failed", err.Error())
	return err
}

// record hands the run summary to the recorder, if one is configured.
// Recorder failures never affect the run outcome.
func (c *Crawler) record(result *article.CrawlResult, discovered int, delivery, outcome, errText string) {
	if c.recorder == nil {
		return
	}
	rec := RunRecord{
		RunID:      result.RunID,
		TargetDate: result.Target.DateString(),
		Shape:      result.Target.Shape,
		Discovered: discovered,
		Collected:  len(result.Articles),
		Delivery:   delivery,
		Outcome:    outcome,
		Error:      errText,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	if err := c.recorder.Record(rec); err != nil {
		c.logger.Warn("run history not recorded", "run_id", result.RunID, "error", err)
	}
}

// report emits one progress line.
func (c *Crawler) report(line string) {
	if c.progress != nil {
		c.progress(line)
	}
}
