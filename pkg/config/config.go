// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/pagecast/pkg/adapters/ffmpegfeed"
	"github.com/user/pagecast/pkg/ports"
)

// Config represents the full configuration for pagecast.
type Config struct {
	// Input/Output
	URL        string `yaml:"url"`
	OutputPath string `yaml:"output"`

	// Capture
	Driver            string `yaml:"driver"` // chromedp or playwright
	ViewportWidth     int    `yaml:"viewport_width"`
	ViewportHeight    int    `yaml:"viewport_height"`
	CaptureQuality    int    `yaml:"capture_quality"`
	FollowNewTab      bool   `yaml:"follow_new_tab"`
	Headless          bool   `yaml:"headless"`
	ChromePath        string `yaml:"chrome_path"`
	UserAgent         string `yaml:"user_agent"`
	IgnoreHTTPSErrors bool   `yaml:"ignore_https_errors"`
	RecordLimitMs     int    `yaml:"record_limit_ms"`
	StopDelayMs       int    `yaml:"stop_delay_ms"`

	// Frame assembly
	BufferCapacity int    `yaml:"buffer_capacity"`
	FrameWidth     int    `yaml:"frame_width"`
	FrameHeight    int    `yaml:"frame_height"`
	Background     string `yaml:"background"`

	// Encoding
	Video VideoConfig `yaml:"video"`

	// Debug
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debug_dir"`
	LogLevel string `yaml:"log_level"`
}

// VideoConfig represents encoder settings passed to ffmpeg.
type VideoConfig struct {
	FPS          int    `yaml:"fps"`
	Codec        string `yaml:"codec"`
	Bitrate      int    `yaml:"bitrate"` // kbps
	CRF          int    `yaml:"crf"`
	Preset       string `yaml:"preset"`
	PixelFormat  string `yaml:"pixel_format"`
	AspectRatio  string `yaml:"aspect_ratio"`
	Autopad      bool   `yaml:"autopad"`
	AutopadColor string `yaml:"autopad_color"`
	FFmpegPath   string `yaml:"ffmpeg_path"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		OutputPath: "pagecast.mp4",

		Driver:         "chromedp",
		ViewportWidth:  1280,
		ViewportHeight: 720,
		CaptureQuality: 80,
		Headless:       true,
		RecordLimitMs:  30000,
		StopDelayMs:    500,

		Video: VideoConfig{
			FPS:     25,
			CRF:     23,
			Autopad: true,
		},

		DebugDir: "./debug",
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the configuration before any browser or encoder work
// starts, so misconfiguration fails fast.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	switch c.Driver {
	case "chromedp", "playwright":
	default:
		return fmt.Errorf("unknown driver %q (chromedp or playwright)", c.Driver)
	}
	if c.Video.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.Video.FPS)
	}
	if c.CaptureQuality < 0 || c.CaptureQuality > 100 {
		return fmt.Errorf("capture_quality must be 0-100, got %d", c.CaptureQuality)
	}
	if (c.FrameWidth == 0) != (c.FrameHeight == 0) {
		return fmt.Errorf("frame_width and frame_height must be set together")
	}
	if c.BufferCapacity != 0 && c.BufferCapacity < 2 {
		return fmt.Errorf("buffer_capacity must be 0 (default) or at least 2, got %d", c.BufferCapacity)
	}
	if _, ok := ports.ParseLogLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// FeedOptions converts the encoding settings for the ffmpeg feed.
func (c Config) FeedOptions() ffmpegfeed.Options {
	return ffmpegfeed.Options{
		FPS:          c.Video.FPS,
		Width:        c.FrameWidth,
		Height:       c.FrameHeight,
		AspectRatio:  c.Video.AspectRatio,
		Autopad:      c.Video.Autopad,
		AutopadColor: c.Video.AutopadColor,
		Codec:        c.Video.Codec,
		Bitrate:      c.Video.Bitrate,
		CRF:          c.Video.CRF,
		Preset:       c.Video.Preset,
		PixelFormat:  c.Video.PixelFormat,
		FFmpegPath:   c.Video.FFmpegPath,
	}
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	if len(hex) == 0 {
		return color.Black
	}

	if hex[0] == '#' {
		hex = hex[1:]
	}

	if len(hex) != 6 {
		return color.Black
	}

	var r, g, b uint8
	for i, c := range []byte{hex[0], hex[1]} {
		v := hexValue(c)
		if i == 0 {
			r = v << 4
		} else {
			r |= v
		}
	}
	for i, c := range []byte{hex[2], hex[3]} {
		v := hexValue(c)
		if i == 0 {
			g = v << 4
		} else {
			g |= v
		}
	}
	for i, c := range []byte{hex[4], hex[5]} {
		v := hexValue(c)
		if i == 0 {
			b = v << 4
		} else {
			b |= v
		}
	}

	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
