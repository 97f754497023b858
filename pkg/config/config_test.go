package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Driver != "chromedp" {
		t.Errorf("expected default driver chromedp, got %q", cfg.Driver)
	}
	if cfg.Video.FPS != 25 {
		t.Errorf("expected default fps 25, got %d", cfg.Video.FPS)
	}
	if !cfg.Headless {
		t.Error("expected headless by default")
	}
	if cfg.RecordLimitMs != 30000 {
		t.Errorf("expected default record limit 30000ms, got %d", cfg.RecordLimitMs)
	}
}

func TestLoadFromFile(t *testing.T) {
	yamlContent := `
url: https://example.com
output: out/recording.webm
driver: playwright
follow_new_tab: true
frame_width: 1024
frame_height: 576
video:
  fps: 30
  codec: libvpx-vp9
  crf: 31
`
	path := filepath.Join(t.TempDir(), "pagecast.yaml")
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.URL != "https://example.com" {
		t.Errorf("unexpected url %q", cfg.URL)
	}
	if cfg.Driver != "playwright" {
		t.Errorf("unexpected driver %q", cfg.Driver)
	}
	if !cfg.FollowNewTab {
		t.Error("expected follow_new_tab true")
	}
	if cfg.Video.FPS != 30 || cfg.Video.Codec != "libvpx-vp9" || cfg.Video.CRF != 31 {
		t.Errorf("unexpected video config %+v", cfg.Video)
	}
	// Untouched fields keep their defaults
	if !cfg.Headless {
		t.Error("expected headless default to survive partial config")
	}
	if cfg.CaptureQuality != 80 {
		t.Errorf("expected default capture quality 80, got %d", cfg.CaptureQuality)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/pagecast.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	valid.URL = "https://example.com"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.URL = "" }, true},
		{"missing output", func(c *Config) { c.OutputPath = "" }, true},
		{"bad driver", func(c *Config) { c.Driver = "selenium" }, true},
		{"zero fps", func(c *Config) { c.Video.FPS = 0 }, true},
		{"quality out of range", func(c *Config) { c.CaptureQuality = 101 }, true},
		{"width without height", func(c *Config) { c.FrameWidth = 1024 }, true},
		{"frame size pair", func(c *Config) { c.FrameWidth = 1024; c.FrameHeight = 576 }, false},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"quiet log level", func(c *Config) { c.LogLevel = "quiet" }, false},
		{"tiny buffer capacity", func(c *Config) { c.BufferCapacity = 1 }, true},
		{"explicit buffer capacity", func(c *Config) { c.BufferCapacity = 20 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFeedOptions(t *testing.T) {
	cfg := Defaults()
	cfg.FrameWidth = 1024
	cfg.FrameHeight = 576
	cfg.Video.Codec = "libx264"
	cfg.Video.AspectRatio = "16:9"

	opts := cfg.FeedOptions()
	if opts.FPS != 25 {
		t.Errorf("expected fps 25, got %d", opts.FPS)
	}
	if opts.Width != 1024 || opts.Height != 576 {
		t.Errorf("unexpected size %dx%d", opts.Width, opts.Height)
	}
	if opts.AspectRatio != "16:9" {
		t.Errorf("unexpected aspect ratio %q", opts.AspectRatio)
	}
	if !opts.Autopad {
		t.Error("expected autopad default true")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		hex  string
		want color.RGBA
	}{
		{"#ffffff", color.RGBA{255, 255, 255, 255}},
		{"#000000", color.RGBA{0, 0, 0, 255}},
		{"1a2b3c", color.RGBA{0x1a, 0x2b, 0x3c, 255}},
		{"", color.RGBA{0, 0, 0, 255}},
		{"#fff", color.RGBA{0, 0, 0, 255}},
	}

	for _, tt := range tests {
		got := ParseColor(tt.hex)
		r, g, b, a := got.RGBA()
		want := tt.want
		if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B || uint8(a>>8) != want.A {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.hex, got, want)
		}
	}
}
