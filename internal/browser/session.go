// Package browser drives a headless Chrome session for the listing agent.
// Requires Chrome/Chromium to be installed on the system.
package browser

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Per-action timeouts. A run is never bounded as a whole; each browser
// action gets its own deadline so a hung page cannot stall the worker.
const (
	navigateTimeout   = 20 * time.Second
	screenshotTimeout = 10 * time.Second
	pageTextTimeout   = 10 * time.Second
	clickTimeout      = 5 * time.Second
	scrollTimeout     = 5 * time.Second
)

// PageTextLimit caps the visible text returned from a page.
const PageTextLimit = 10000

// Session is a stateful headless browser. The underlying Chrome process is
// started lazily on first use and lives until Close, so page state (cookies,
// current URL) carries across actions and across agent runs.
type Session struct {
	headless bool

	mu          sync.Mutex
	ctx         context.Context
	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
}

// NewSession prepares a session without launching Chrome.
func NewSession(headless bool) *Session {
	return &Session{headless: headless}
}

// start launches Chrome. Caller holds s.mu.
func (s *Session) start() error {
	if s.ctx != nil {
		return nil
	}

	log.Printf("[BROWSER] Starting headless browser (headless=%v)", s.headless)

	// The browser outlives any single request, so it hangs off Background
	// rather than a caller context.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", s.headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)

	browserCtx, ctxCancel := chromedp.NewContext(allocCtx)

	// Force the browser process to start now so a missing Chrome install
	// surfaces here instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		ctxCancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	s.ctx = browserCtx
	s.allocCancel = allocCancel
	s.ctxCancel = ctxCancel
	return nil
}

// run executes chromedp actions under a per-action timeout.
func (s *Session) run(timeout time.Duration, actions ...chromedp.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.start(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads a URL and waits for the document body.
func (s *Session) Navigate(url string) error {
	err := s.run(navigateTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		// Give JavaScript-rendered pages a moment to paint.
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// PageInfo returns the title and URL of the current page.
func (s *Session) PageInfo() (title, url string, err error) {
	if err := s.run(pageTextTimeout,
		chromedp.Title(&title),
		chromedp.Location(&url),
	); err != nil {
		return "", "", fmt.Errorf("failed to read page info: %w", err)
	}
	return title, url, nil
}

// Screenshot captures the current viewport as PNG bytes.
func (s *Session) Screenshot() ([]byte, error) {
	var buf []byte
	if err := s.run(screenshotTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// PageText returns the visible text of the current page, capped at
// PageTextLimit characters.
func (s *Session) PageText() (string, error) {
	var html string
	if err := s.run(pageTextTimeout, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	text, err := VisibleText(html)
	if err != nil {
		return "", fmt.Errorf("failed to extract page text: %w", err)
	}
	if len(text) > PageTextLimit {
		text = text[:PageTextLimit]
	}
	return text, nil
}

// Click clicks the first visible element matching the CSS selector.
func (s *Session) Click(selector string) error {
	if err := s.run(clickTimeout, chromedp.Click(selector, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

// Scroll scrolls the page vertically by the given number of pixels.
// Negative values scroll up.
func (s *Session) Scroll(pixels int) error {
	script := fmt.Sprintf("window.scrollBy(0, %d)", pixels)
	if err := s.run(scrollTimeout, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("failed to scroll: %w", err)
	}
	return nil
}

// Close shuts down the browser process. Safe to call when never started.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx == nil {
		return
	}
	s.ctxCancel()
	s.allocCancel()
	s.ctx = nil
	s.ctxCancel = nil
	s.allocCancel = nil
}
