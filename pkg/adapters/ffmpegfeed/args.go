package ffmpegfeed

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// containerFormats maps output file extensions to ffmpeg muxer names.
var containerFormats = map[string]string{
	".mp4":  "mp4",
	".m4v":  "mp4",
	".mov":  "mov",
	".webm": "webm",
	".mkv":  "matroska",
	".avi":  "avi",
}

// streamableFormats are muxers that can write to a non-seekable pipe.
var streamableFormats = map[string]bool{
	"mp4":      true,
	"webm":     true,
	"matroska": true,
}

// formatForPath resolves the ffmpeg muxer name from an output file extension.
func formatForPath(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	format, ok := containerFormats[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return format, nil
}

// buildArgs assembles the ffmpeg command line: a stream of JPEG stills on
// stdin at the target frame rate, encoded to the configured codec. The
// output argument is either a file path or "pipe:1".
func buildArgs(opts Options, format, output string, piped bool) []string {
	args := []string{
		"-y",               // Overwrite output
		"-f", "image2pipe", // Input is a stream of still images
		"-c:v", "mjpeg",    // Decoded as JPEG
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "pipe:0", // Read from stdin
	}

	codec := opts.Codec
	if codec == "" {
		codec = "libx264"
	}
	preset := opts.Preset
	if preset == "" {
		preset = "fast"
	}
	pixFmt := opts.PixelFormat
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}

	args = append(args,
		"-c:v", codec,
		"-preset", preset,
		"-pix_fmt", pixFmt,
		"-r", fmt.Sprintf("%d", opts.FPS),
	)

	if opts.CRF > 0 {
		args = append(args, "-crf", fmt.Sprintf("%d", opts.CRF))
	}
	if opts.Bitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", opts.Bitrate))
	}

	// Output geometry: pad to the exact frame size when autopad is on,
	// otherwise hard-scale.
	if opts.Width > 0 && opts.Height > 0 {
		if opts.Autopad {
			pad := fmt.Sprintf(
				"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:%s",
				opts.Width, opts.Height, opts.Width, opts.Height, padColor(opts.AutopadColor))
			args = append(args, "-vf", pad)
		} else {
			args = append(args, "-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height))
		}
	}
	if opts.AspectRatio != "" {
		args = append(args, "-aspect", opts.AspectRatio)
	}

	if piped {
		args = append(args, "-f", format)
		if format == "mp4" {
			// A pipe is not seekable, so the moov box must come first.
			args = append(args, "-movflags", "frag_keyframe+empty_moov")
		}
	} else if format == "mp4" {
		args = append(args, "-movflags", "+faststart")
	}

	return append(args, output)
}

// padColor converts a "#rrggbb" hex color to ffmpeg's 0xRRGGBB notation.
// Plain color names pass through.
func padColor(c string) string {
	if c == "" {
		return "black"
	}
	if strings.HasPrefix(c, "#") {
		return "0x" + strings.TrimPrefix(c, "#")
	}
	return c
}

// IsFFmpegAvailable checks if ffmpeg is available on the system.
func IsFFmpegAvailable() bool {
	_, err := FindFFmpeg("")
	return err == nil
}

// FindFFmpeg searches for ffmpeg.
// Priority: 1) customPath, 2) FFMPEG_PATH env, 3) PATH, 4) common locations.
func FindFFmpeg(customPath string) (string, error) {
	if customPath != "" {
		if _, err := os.Stat(customPath); err == nil {
			return customPath, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, customPath)
	}

	if envPath := os.Getenv("FFMPEG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: FFMPEG_PATH %s not found", ErrFFmpegNotFound, envPath)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	switch runtime.GOOS {
	case "windows":
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files (x86)\ffmpeg\bin\ffmpeg.exe`,
		}
	case "darwin":
		commonPaths = []string{
			"/opt/homebrew/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/usr/bin/ffmpeg",
		}
	default:
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}
