// Package cdpcapture provides a screencast capture source using chromedp.
package cdpcapture

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/user/pagecast/pkg/adapters/logger"
	"github.com/user/pagecast/pkg/ports"
)

// frameChanSize buffers bursty frame arrivals between the DevTools event
// handler and the pipeline consumer.
const frameChanSize = 100

// stopTimeout bounds the stop-screencast command so a wedged browser session
// cannot hang shutdown.
const stopTimeout = 5 * time.Second

// Options configures the browser session.
type Options struct {
	Headless          bool
	ChromePath        string
	UserAgent         string
	WindowWidth       int
	WindowHeight      int
	IgnoreHTTPSErrors bool
	ProxyServer       string
	Incognito         bool

	// StopDelay ends the screencast this long after the page load event,
	// capturing the settled page. Zero keeps capturing until Stop.
	StopDelay time.Duration
}

// Source implements ports.CaptureSource over a Chrome DevTools screencast.
type Source struct {
	opts   Options
	logger ports.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	mu      sync.Mutex
	frameCh chan ports.CapturedFrame
	active  bool

	// stopScreencast issues the DevTools stop command. Replaceable in tests.
	stopScreencast func(ctx context.Context) error
}

// New creates a new Source.
func New(log ports.Logger, opts Options) *Source {
	if log == nil {
		log = logger.NewNoop()
	}
	s := &Source{
		opts:   opts,
		logger: log.WithComponent("capture"),
	}
	s.stopScreencast = func(ctx context.Context) error {
		return chromedp.Run(ctx, page.StopScreencast())
	}
	return s
}

// Launch starts the browser.
func (s *Source) Launch(ctx context.Context) error {
	chromedpOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("disable-gpu", true),
	}

	if s.opts.Headless {
		chromedpOpts = append(chromedpOpts, chromedp.Flag("headless", "new"))
	}

	// Resolve Chrome path: option → CHROME_PATH env → system defaults
	chromePath := ResolveChromePath(s.opts.ChromePath)
	if chromePath == "" {
		return fmt.Errorf("chrome not found: install Chrome/Chromium or set CHROME_PATH")
	}
	chromedpOpts = append(chromedpOpts, chromedp.ExecPath(chromePath))

	if s.opts.Incognito {
		chromedpOpts = append(chromedpOpts, chromedp.Flag("incognito", true))
	}
	if s.opts.UserAgent != "" {
		chromedpOpts = append(chromedpOpts, chromedp.UserAgent(s.opts.UserAgent))
	}
	if s.opts.WindowWidth > 0 && s.opts.WindowHeight > 0 {
		chromedpOpts = append(chromedpOpts,
			chromedp.WindowSize(s.opts.WindowWidth, s.opts.WindowHeight),
			chromedp.Flag("window-size", fmt.Sprintf("%d,%d", s.opts.WindowWidth, s.opts.WindowHeight)))
	}
	if s.opts.IgnoreHTTPSErrors {
		chromedpOpts = append(chromedpOpts,
			chromedp.Flag("ignore-certificate-errors", true),
			chromedp.Flag("allow-insecure-localhost", true))
	}
	if s.opts.ProxyServer != "" {
		chromedpOpts = append(chromedpOpts, chromedp.Flag("proxy-server", s.opts.ProxyServer))
	}

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, chromedpOpts...)
	s.ctx, s.cancel = chromedp.NewContext(s.allocCtx)

	// Force browser startup now so launch failures surface here.
	if err := chromedp.Run(s.ctx); err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	return nil
}

// Navigate loads the specified URL.
func (s *Source) Navigate(url string) error {
	return chromedp.Run(s.ctx, chromedp.Navigate(url))
}

// Start begins the screencast and returns the frame event channel. Frames
// carry their DevTools capture timestamp in seconds; acknowledgment is
// deferred to the consumer via each event's Ack.
func (s *Source) Start(ctx context.Context, opts ports.CaptureOptions) (<-chan ports.CapturedFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil, fmt.Errorf("screencast already active")
	}
	if s.ctx == nil {
		return nil, fmt.Errorf("browser not launched")
	}
	if opts.FollowNewTab {
		// DevTools screencasts are per-target; chromedp pins one target.
		s.logger.Warn("Follow-new-tab is not supported by the chromedp source")
	}

	s.frameCh = make(chan ports.CapturedFrame, frameChanSize)
	s.active = true

	quality := opts.Quality
	if quality <= 0 {
		quality = 80
	}

	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventScreencastFrame:
			s.handleFrame(e)

		case *page.EventLoadEventFired:
			if s.opts.StopDelay > 0 {
				go func() {
					time.Sleep(s.opts.StopDelay)
					s.Stop()
				}()
			}
		}
	})

	err := chromedp.Run(s.ctx,
		page.StartScreencast().
			WithFormat(page.ScreencastFormatJpeg).
			WithQuality(int64(quality)).
			WithEveryNthFrame(1),
	)
	if err != nil {
		s.active = false
		close(s.frameCh)
		return nil, fmt.Errorf("start screencast: %w", err)
	}

	s.logger.Debug("Screencast started with JPEG quality %d", quality)
	return s.frameCh, nil
}

// handleFrame converts a DevTools screencast event into a CapturedFrame.
func (s *Source) handleFrame(e *page.EventScreencastFrame) {
	data, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		s.logger.Warn("Discarding undecodable frame: %s", err)
		s.ack(e.SessionID)
		return
	}

	timestamp := float64(time.Now().UnixNano()) / 1e9
	var deviceWidth, deviceHeight int
	if e.Metadata != nil {
		if e.Metadata.Timestamp != nil {
			t := e.Metadata.Timestamp.Time()
			timestamp = float64(t.UnixNano()) / 1e9
		}
		deviceWidth = int(e.Metadata.DeviceWidth)
		deviceHeight = int(e.Metadata.DeviceHeight)
	}

	sessionID := e.SessionID
	frame := ports.CapturedFrame{
		Data:         data,
		Timestamp:    timestamp,
		DeviceWidth:  deviceWidth,
		DeviceHeight: deviceHeight,
		Ack: func() {
			s.ack(sessionID)
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		// Session ended between event delivery and handling; the
		// transport still expects its acknowledgment.
		s.ack(sessionID)
		return
	}
	select {
	case s.frameCh <- frame:
	default:
		// Consumer fell behind; skip the frame but keep the transport
		// flowing.
		s.ack(sessionID)
	}
}

// ack acknowledges a screencast frame to the browser.
func (s *Source) ack(sessionID int64) {
	go chromedp.Run(s.ctx, page.ScreencastFrameAck(sessionID))
}

// Stop ends the screencast and closes the frame channel.
//
// The stop command must run outside s.mu: chromedp dispatches screencast
// events synchronously on the target's message goroutine, and handleFrame
// takes the same lock before the command response could be processed.
func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	frameCh := s.frameCh
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, stopTimeout)
	defer cancel()
	if err := s.stopScreencast(ctx); err != nil {
		s.logger.Warn("Stopping screencast failed: %s", err)
	}

	close(frameCh)
	s.logger.Debug("Screencast stopped")
	return nil
}

// Close shuts down the browser.
func (s *Source) Close() error {
	s.Stop()

	if s.cancel != nil {
		s.cancel()
	}
	// Give Chrome a moment to shut down gracefully.
	time.Sleep(100 * time.Millisecond)
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return nil
}

// Ensure Source implements ports.CaptureSource
var _ ports.CaptureSource = (*Source)(nil)
