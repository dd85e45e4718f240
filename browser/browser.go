// Package browser owns the headless browser engine used to render
// pages before extraction. The target site builds listings and article
// bodies with client-side script, so a plain HTTP fetch never sees the
// content; every fetch navigates a real browser and waits for the page
// to settle.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// installHint is shown when the browser binary cannot be found. The
// engine itself cannot fix this; the operator has to install Chrome.
const installHint = "install Google Chrome or Chromium and make sure it is on PATH " +
	"(e.g. `apt install chromium` or download from https://www.google.com/chrome/)"

// LaunchError means the browser engine could not be started at all.
// It is fatal to a run.
type LaunchError struct {
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch browser engine: %v\n%s", e.Err, e.RemediationHint())
}

func (e *LaunchError) Unwrap() error { return e.Err }

// RemediationHint returns the actionable install step for the operator.
func (e *LaunchError) RemediationHint() string { return installHint }

// FetchError means a single navigation failed. The session remains
// usable; only this URL is affected.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher is the capability the orchestrator needs from a browser
// session: render a URL and return the resulting document markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Options configures a browser session.
type Options struct {
	// Headless disables the visible browser window. On by default.
	Headless bool
	// NavigationTimeout bounds a single navigation including its
	// settle delay.
	NavigationTimeout time.Duration
	// SettleDelay is the fixed wait after document readiness that
	// lets client-side rendering finish.
	SettleDelay time.Duration
}

// DefaultOptions returns the options used when the caller passes zero
// values.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
		SettleDelay:       2 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = def.NavigationTimeout
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = def.SettleDelay
	}
	return o
}

// Session is a single running browser instance. It is exclusively
// owned by one run and must be closed exactly once.
type Session struct {
	opts      Options
	browser   context.Context
	cancelAll []context.CancelFunc
	closed    bool
}

// Launch starts the headless browser and verifies it is actually
// running. A missing browser binary surfaces as *LaunchError carrying
// an install hint rather than a raw exec failure.
func Launch(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &Session{
		opts:      opts,
		browser:   browserCtx,
		cancelAll: []context.CancelFunc{cancelBrowser, cancelAlloc},
	}

	// Running with no actions forces the browser process to start, so
	// a missing binary fails here instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, &LaunchError{Err: err}
	}
	return s, nil
}

// Fetch navigates to url, waits for the document to become ready plus
// the settle delay, and returns the rendered markup. A failed
// navigation returns *FetchError and leaves the session usable for
// subsequent calls.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	navCtx, cancel := context.WithTimeout(s.browser, s.opts.NavigationTimeout)
	defer cancel()

	// Honor caller cancellation without tying the browser context to
	// the caller's lifetime.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var markup string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.OuterHTML("html", &markup),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &FetchError{URL: url, Err: err}
	}
	return markup, nil
}

// Close releases the browser engine. Safe to call more than once;
// only the first call does anything.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, cancel := range s.cancelAll {
		cancel()
	}
}

// IsMissingBinary reports whether err looks like the browser binary
// not being installed, as opposed to some other launch failure.
func IsMissingBinary(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "executable file not found") ||
		strings.Contains(msg, "no such file or directory")
}
