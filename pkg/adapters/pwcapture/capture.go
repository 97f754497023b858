// Package pwcapture provides a screencast capture source using Playwright.
//
// Unlike the chromedp source, Playwright exposes per-page CDP sessions, so
// this source can follow pages opened in new tabs and multiplex their
// screencast frames into a single stream.
package pwcapture

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/user/pagecast/pkg/adapters/logger"
	"github.com/user/pagecast/pkg/ports"
)

const frameChanSize = 100

// Options configures the browser session.
type Options struct {
	Headless          bool
	ExecutablePath    string
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	IgnoreHTTPSErrors bool

	// StopDelay ends the screencast this long after the page load event,
	// capturing the settled page. Zero keeps capturing until Stop.
	StopDelay time.Duration
}

// Source implements ports.CaptureSource over Playwright CDP sessions.
type Source struct {
	opts   Options
	logger ports.Logger

	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	mu       sync.Mutex
	frameCh  chan ports.CapturedFrame
	sessions []playwright.CDPSession
	active   bool
	quality  int
}

// New creates a new Source.
func New(log ports.Logger, opts Options) *Source {
	if log == nil {
		log = logger.NewNoop()
	}
	return &Source{
		opts:   opts,
		logger: log.WithComponent("capture"),
	}
}

// Launch starts the browser and opens the initial page.
func (s *Source) Launch(ctx context.Context) error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}
	s.pw = pw

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
	}
	if s.opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(s.opts.ExecutablePath)
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return fmt.Errorf("launch browser: %w", err)
	}
	s.browser = browser

	contextOpts := playwright.BrowserNewContextOptions{}
	if s.opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(s.opts.UserAgent)
	}
	if s.opts.IgnoreHTTPSErrors {
		contextOpts.IgnoreHttpsErrors = playwright.Bool(true)
	}
	if s.opts.ViewportWidth > 0 && s.opts.ViewportHeight > 0 {
		contextOpts.Viewport = &playwright.Size{
			Width:  s.opts.ViewportWidth,
			Height: s.opts.ViewportHeight,
		}
	}
	browserContext, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("create browser context: %w", err)
	}
	s.context = browserContext

	page, err := browserContext.NewPage()
	if err != nil {
		browserContext.Close()
		browser.Close()
		pw.Stop()
		return fmt.Errorf("open page: %w", err)
	}
	s.page = page
	return nil
}

// Navigate loads the specified URL in the initial page.
func (s *Source) Navigate(url string) error {
	if s.page == nil {
		return fmt.Errorf("browser not launched")
	}
	_, err := s.page.Goto(url)
	return err
}

// Start begins the screencast and returns the frame event channel.
func (s *Source) Start(ctx context.Context, opts ports.CaptureOptions) (<-chan ports.CapturedFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return nil, fmt.Errorf("screencast already active")
	}
	if s.page == nil {
		return nil, fmt.Errorf("browser not launched")
	}

	s.quality = opts.Quality
	if s.quality <= 0 {
		s.quality = 80
	}
	s.frameCh = make(chan ports.CapturedFrame, frameChanSize)
	s.active = true

	if err := s.startSessionLocked(s.page); err != nil {
		s.active = false
		close(s.frameCh)
		return nil, err
	}

	if opts.FollowNewTab {
		s.context.OnPage(func(page playwright.Page) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if !s.active {
				return
			}
			if err := s.startSessionLocked(page); err != nil {
				s.logger.Warn("Screencast for new tab failed: %s", err)
			}
		})
	}

	if s.opts.StopDelay > 0 {
		s.page.OnLoad(func(playwright.Page) {
			go func() {
				time.Sleep(s.opts.StopDelay)
				s.Stop()
			}()
		})
	}

	s.logger.Debug("Screencast started with JPEG quality %d", s.quality)
	return s.frameCh, nil
}

// startSessionLocked attaches a CDP session to the page and starts its
// screencast. Caller holds s.mu.
func (s *Source) startSessionLocked(page playwright.Page) error {
	session, err := s.context.NewCDPSession(page)
	if err != nil {
		return fmt.Errorf("attach CDP session: %w", err)
	}

	session.On("Page.screencastFrame", func(params map[string]interface{}) {
		s.handleFrame(session, params)
	})

	_, err = session.Send("Page.startScreencast", map[string]interface{}{
		"format":        "jpeg",
		"quality":       s.quality,
		"everyNthFrame": 1,
	})
	if err != nil {
		session.Detach()
		return fmt.Errorf("start screencast: %w", err)
	}

	s.sessions = append(s.sessions, session)
	return nil
}

// handleFrame converts a screencastFrame event into a CapturedFrame.
func (s *Source) handleFrame(session playwright.CDPSession, params map[string]interface{}) {
	encoded, _ := params["data"].(string)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.logger.Warn("Discarding undecodable frame: %s", err)
		s.ack(session, params["sessionId"])
		return
	}

	timestamp := float64(time.Now().UnixNano()) / 1e9
	var deviceWidth, deviceHeight int
	if metadata, ok := params["metadata"].(map[string]interface{}); ok {
		if ts := asFloat(metadata["timestamp"]); ts > 0 {
			timestamp = ts
		}
		deviceWidth = int(asFloat(metadata["deviceWidth"]))
		deviceHeight = int(asFloat(metadata["deviceHeight"]))
	}

	sessionID := params["sessionId"]
	frame := ports.CapturedFrame{
		Data:         data,
		Timestamp:    timestamp,
		DeviceWidth:  deviceWidth,
		DeviceHeight: deviceHeight,
		Ack: func() {
			s.ack(session, sessionID)
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		s.ack(session, sessionID)
		return
	}
	select {
	case s.frameCh <- frame:
	default:
		// Consumer fell behind; skip the frame but keep the transport
		// flowing.
		s.ack(session, sessionID)
	}
}

// ack acknowledges a screencast frame so the browser keeps sending them.
func (s *Source) ack(session playwright.CDPSession, sessionID interface{}) {
	go func() {
		_, err := session.Send("Page.screencastFrameAck", map[string]interface{}{
			"sessionId": sessionID,
		})
		if err != nil {
			s.logger.Debug("Frame acknowledgment failed: %s", err)
		}
	}()
}

// Stop ends all screencast sessions and closes the frame channel. The stop
// round trips run outside s.mu so an in-flight frame event handler waiting
// on the lock cannot stall the session transport.
func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	sessions := s.sessions
	s.sessions = nil
	frameCh := s.frameCh
	s.mu.Unlock()

	for _, session := range sessions {
		if _, err := session.Send("Page.stopScreencast", nil); err != nil {
			s.logger.Warn("Stopping screencast failed: %s", err)
		}
	}

	close(frameCh)
	s.logger.Debug("Screencast stopped")
	return nil
}

// Close shuts down the browser.
func (s *Source) Close() error {
	s.Stop()

	var firstErr error
	if s.context != nil {
		if err := s.context.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// asFloat extracts a float64 from a decoded CDP parameter value.
func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Ensure Source implements ports.CaptureSource
var _ ports.CaptureSource = (*Source)(nil)
