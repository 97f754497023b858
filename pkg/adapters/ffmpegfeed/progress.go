package ffmpegfeed

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"
	"sync"
)

// timemarkRe extracts the encoded-duration readout from ffmpeg's progress
// lines, e.g. "frame=   42 fps= 12 ... time=00:00:03.52 bitrate= ...".
var timemarkRe = regexp.MustCompile(`time=(\d+:\d+:\d+(?:\.\d+)?)`)

// tailLines is how many stderr lines are kept for error context.
const tailLines = 20

// progressReader consumes ffmpeg's stderr: it forwards progress timemarks
// and retains the trailing lines for error reporting.
type progressReader struct {
	progressCh chan<- string

	mu       sync.Mutex
	lines    []string
	inputEOF bool
}

func newProgressReader(progressCh chan<- string) *progressReader {
	return &progressReader{progressCh: progressCh}
}

// consume reads r to EOF. ffmpeg rewrites its progress line with carriage
// returns, so both \r and \n are treated as line breaks.
func (p *progressReader) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(scanCRorLF)
	for scanner.Scan() {
		p.observe(scanner.Text())
	}
}

func (p *progressReader) observe(line string) {
	if line == "" {
		return
	}

	if m := timemarkRe.FindStringSubmatch(line); m != nil {
		select {
		case p.progressCh <- m[1]:
		default:
			// Slow consumer, drop the readout.
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if strings.Contains(line, "pipe:0: End of file") {
		p.inputEOF = true
	}
	p.lines = append(p.lines, line)
	if len(p.lines) > tailLines {
		p.lines = p.lines[len(p.lines)-tailLines:]
	}
}

// sawInputEOF reports whether ffmpeg complained about end of file on its
// input pipe, the benign condition after a normal stop.
func (p *progressReader) sawInputEOF() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inputEOF
}

// tail returns the retained stderr lines for error context.
func (p *progressReader) tail() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.Join(p.lines, "\n")
}

// scanCRorLF is a bufio.SplitFunc that breaks on \n or \r.
func scanCRorLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
