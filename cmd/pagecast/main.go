// Package main provides the CLI entry point for pagecast.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/pagecast/pkg/adapters/cdpcapture"
	"github.com/user/pagecast/pkg/adapters/ffmpegfeed"
	"github.com/user/pagecast/pkg/adapters/filesink"
	"github.com/user/pagecast/pkg/adapters/ggtransform"
	"github.com/user/pagecast/pkg/adapters/logger"
	"github.com/user/pagecast/pkg/adapters/mp4probe"
	"github.com/user/pagecast/pkg/adapters/nullsink"
	"github.com/user/pagecast/pkg/adapters/osfilesystem"
	"github.com/user/pagecast/pkg/adapters/pwcapture"
	"github.com/user/pagecast/pkg/config"
	"github.com/user/pagecast/pkg/pipeline"
	"github.com/user/pagecast/pkg/ports"
	"github.com/user/pagecast/pkg/recorder"
)

var version = "dev"

// browserSource is a capture source with a browser lifecycle.
type browserSource interface {
	ports.CaptureSource
	Launch(ctx context.Context) error
	Navigate(url string) error
	Close() error
}

func main() {
	app := &cli.App{
		Name:    "pagecast",
		Usage:   "Record web pages as screencast videos.",
		Version: version,
		Commands: []*cli.Command{
			recordCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Record a page load as video.",
		ArgsUsage: "<url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file."},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output video file path."},
			&cli.StringFlag{Name: "driver", Usage: "Capture driver (chromedp or playwright)."},
			&cli.IntFlag{Name: "fps", Usage: "Output video frame rate."},
			&cli.StringFlag{Name: "size", Aliases: []string{"s"}, Usage: "Output frame size as WIDTHxHEIGHT (e.g. 1024x576)."},
			&cli.StringFlag{Name: "background", Usage: "Padding color for undersized frames (hex, e.g. #000000)."},
			&cli.StringFlag{Name: "codec", Usage: "Video codec (default libx264)."},
			&cli.IntFlag{Name: "crf", Usage: "Constant rate factor (lower is better quality)."},
			&cli.StringFlag{Name: "preset", Usage: "Encoder preset (default fast)."},
			&cli.IntFlag{Name: "bitrate", Usage: "Target bitrate in kbps (0 uses CRF instead)."},
			&cli.StringFlag{Name: "pixel-format", Usage: "Output pixel format (default yuv420p)."},
			&cli.StringFlag{Name: "aspect-ratio", Usage: "Display aspect ratio (e.g. 4:3)."},
			&cli.BoolFlag{Name: "no-autopad", Usage: "Stretch frames to the output size instead of letterboxing."},
			&cli.StringFlag{Name: "autopad-color", Usage: "Letterbox color (hex or ffmpeg color name)."},
			&cli.IntFlag{Name: "quality", Aliases: []string{"q"}, Usage: "Screencast JPEG quality (0-100)."},
			&cli.BoolFlag{Name: "follow-new-tab", Usage: "Keep recording pages opened in new tabs (playwright driver)."},
			&cli.IntFlag{Name: "limit-ms", Usage: "Maximum recording duration in milliseconds."},
			&cli.IntFlag{Name: "viewport-width", Usage: "Browser viewport width."},
			&cli.IntFlag{Name: "viewport-height", Usage: "Browser viewport height."},
			&cli.BoolFlag{Name: "no-headless", Usage: "Run browser in visible mode."},
			&cli.StringFlag{Name: "chrome-path", Usage: "Path to Chrome executable (falls back to CHROME_PATH env, then system default)."},
			&cli.StringFlag{Name: "user-agent", Usage: "Custom browser user agent."},
			&cli.BoolFlag{Name: "ignore-https-errors", Usage: "Ignore HTTPS certificate errors."},
			&cli.StringFlag{Name: "ffmpeg-path", Usage: "Path to ffmpeg executable (falls back to FFMPEG_PATH env, then PATH)."},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "Save raw captured frames for debugging."},
			&cli.StringFlag{Name: "debug-dir", Usage: "Directory for debug output."},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: "Log level (debug, info, warn, error)."},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: "Suppress all log output."},
		},
		Action: runRecord,
	}
}

func runRecord(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		level, _ := ports.ParseLogLevel(cfg.LogLevel)
		log = logger.NewConsole(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
	}()

	fs := osfilesystem.New()

	source := buildSource(cfg, log)
	log.Info(l10n.T("Launching browser"))
	if err := source.Launch(ctx); err != nil {
		log.Error(l10n.F("Failed to launch browser: %s", err))
		return fmt.Errorf("launch browser: %w", err)
	}
	defer source.Close()

	feedOpts := cfg.FeedOptions()
	feedOpts.Logger = log
	feed, err := ffmpegfeed.NewFile(cfg.OutputPath, fs, feedOpts)
	if err != nil {
		return fmt.Errorf("configure encoder: %w", err)
	}

	var debug ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return fmt.Errorf("create debug directory: %w", err)
		}
		debug = filesink.New(cfg.DebugDir, fs)
	} else {
		debug = nullsink.New()
	}

	rec := recorder.New(source, feed, ggtransform.New(0), recorder.Options{
		RecordLimit:    time.Duration(cfg.RecordLimitMs) * time.Millisecond,
		CaptureQuality: cfg.CaptureQuality,
		FollowNewTab:   cfg.FollowNewTab,
		Canvas:         pipeline.Dimension{Width: cfg.FrameWidth, Height: cfg.FrameHeight},
		Background:     config.ParseColor(cfg.Background),
		BufferCapacity: cfg.BufferCapacity,
		Navigate: func(ctx context.Context) error {
			log.Info(l10n.F("Navigating to %s", cfg.URL))
			return source.Navigate(cfg.URL)
		},
		DebugSink: debug,
		Logger:    log,
	})

	log.Info(l10n.F("Recording %s...", cfg.URL))
	if _, err := rec.Run(ctx); err != nil {
		return err
	}

	log.Info(l10n.F("Output saved to %s", cfg.OutputPath))
	if strings.EqualFold(filepath.Ext(cfg.OutputPath), ".mp4") {
		if info, err := mp4probe.ProbeFile(cfg.OutputPath); err == nil {
			log.Info(l10n.F("Video duration: %.2fs", info.Duration.Seconds()))
		}
	}
	return nil
}

// buildConfig layers CLI flags over the config file and defaults.
func buildConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.LoadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	if c.Args().Len() > 0 {
		cfg.URL = c.Args().First()
	}
	if c.IsSet("output") {
		cfg.OutputPath = c.String("output")
	}
	if c.IsSet("driver") {
		cfg.Driver = c.String("driver")
	}
	if c.IsSet("fps") {
		cfg.Video.FPS = c.Int("fps")
	}
	if c.IsSet("size") {
		w, h, err := parseSize(c.String("size"))
		if err != nil {
			return cfg, err
		}
		cfg.FrameWidth = w
		cfg.FrameHeight = h
	}
	if c.IsSet("background") {
		cfg.Background = c.String("background")
	}
	if c.IsSet("codec") {
		cfg.Video.Codec = c.String("codec")
	}
	if c.IsSet("crf") {
		cfg.Video.CRF = c.Int("crf")
	}
	if c.IsSet("preset") {
		cfg.Video.Preset = c.String("preset")
	}
	if c.IsSet("bitrate") {
		cfg.Video.Bitrate = c.Int("bitrate")
	}
	if c.IsSet("pixel-format") {
		cfg.Video.PixelFormat = c.String("pixel-format")
	}
	if c.IsSet("aspect-ratio") {
		cfg.Video.AspectRatio = c.String("aspect-ratio")
	}
	if c.Bool("no-autopad") {
		cfg.Video.Autopad = false
	}
	if c.IsSet("autopad-color") {
		cfg.Video.AutopadColor = c.String("autopad-color")
	}
	if c.IsSet("quality") {
		cfg.CaptureQuality = c.Int("quality")
	}
	if c.Bool("follow-new-tab") {
		cfg.FollowNewTab = true
	}
	if c.IsSet("limit-ms") {
		cfg.RecordLimitMs = c.Int("limit-ms")
	}
	if c.IsSet("viewport-width") {
		cfg.ViewportWidth = c.Int("viewport-width")
	}
	if c.IsSet("viewport-height") {
		cfg.ViewportHeight = c.Int("viewport-height")
	}
	if c.Bool("no-headless") {
		cfg.Headless = false
	}
	if c.IsSet("chrome-path") {
		cfg.ChromePath = c.String("chrome-path")
	}
	if c.IsSet("user-agent") {
		cfg.UserAgent = c.String("user-agent")
	}
	if c.Bool("ignore-https-errors") {
		cfg.IgnoreHTTPSErrors = true
	}
	if c.IsSet("ffmpeg-path") {
		cfg.Video.FFmpegPath = c.String("ffmpeg-path")
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

// buildSource selects the capture driver.
func buildSource(cfg config.Config, log ports.Logger) browserSource {
	stopDelay := time.Duration(cfg.StopDelayMs) * time.Millisecond
	switch cfg.Driver {
	case "playwright":
		return pwcapture.New(log, pwcapture.Options{
			Headless:          cfg.Headless,
			ExecutablePath:    cfg.ChromePath,
			UserAgent:         cfg.UserAgent,
			ViewportWidth:     cfg.ViewportWidth,
			ViewportHeight:    cfg.ViewportHeight,
			IgnoreHTTPSErrors: cfg.IgnoreHTTPSErrors,
			StopDelay:         stopDelay,
		})
	default:
		return cdpcapture.New(log, cdpcapture.Options{
			Headless:          cfg.Headless,
			ChromePath:        cfg.ChromePath,
			UserAgent:         cfg.UserAgent,
			WindowWidth:       cfg.ViewportWidth,
			WindowHeight:      cfg.ViewportHeight,
			IgnoreHTTPSErrors: cfg.IgnoreHTTPSErrors,
			StopDelay:         stopDelay,
		})
	}
}

// parseSize parses "WIDTHxHEIGHT" into a pair of positive ints.
func parseSize(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid size %q, expected WIDTHxHEIGHT", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid width in %q", s)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid height in %q", s)
	}
	return w, h, nil
}
