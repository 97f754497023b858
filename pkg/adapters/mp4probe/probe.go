// Package mp4probe reads summary information from encoded MP4 files.
package mp4probe

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Info summarizes an MP4 file.
type Info struct {
	Duration time.Duration
	Width    int
	Height   int
	Codec    string
}

// ProbeFile reads summary information from an MP4 file on disk.
func ProbeFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return ProbeReader(f)
}

// ProbeBytes reads summary information from MP4 data in memory.
func ProbeBytes(data []byte) (Info, error) {
	return ProbeReader(bytes.NewReader(data))
}

// ProbeReader reads summary information from an io.ReadSeeker.
func ProbeReader(reader io.ReadSeeker) (Info, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return Info{}, fmt.Errorf("decode mp4: %w", err)
	}

	moov := mp4File.Moov
	if moov == nil && mp4File.Init != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return Info{}, fmt.Errorf("no moov box found")
	}

	info := Info{
		Duration: movieDuration(moov),
	}

	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		if trak.Tkhd != nil {
			// Tkhd dimensions are 16.16 fixed point
			info.Width = int(trak.Tkhd.Width >> 16)
			info.Height = int(trak.Tkhd.Height >> 16)
		}
		info.Codec = videoCodec(trak)
		break
	}

	return info, nil
}

// movieDuration resolves the presentation duration from the movie header,
// falling back to the fragmented-MP4 extension header when the progressive
// duration is absent.
func movieDuration(moov *mp4.MoovBox) time.Duration {
	if moov.Mvhd != nil && moov.Mvhd.Duration > 0 && moov.Mvhd.Timescale > 0 {
		return ticksToDuration(moov.Mvhd.Duration, moov.Mvhd.Timescale)
	}
	if moov.Mvex != nil && moov.Mvex.Mehd != nil && moov.Mvhd != nil && moov.Mvhd.Timescale > 0 {
		return ticksToDuration(uint64(moov.Mvex.Mehd.FragmentDuration), moov.Mvhd.Timescale)
	}
	return 0
}

func ticksToDuration(ticks uint64, timescale uint32) time.Duration {
	return time.Duration(float64(ticks) / float64(timescale) * float64(time.Second))
}

// videoCodec reports the sample entry type of the track's video stream.
func videoCodec(trak *mp4.TrakBox) string {
	if trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return ""
	}
	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		switch child.Type() {
		case "avc1", "avc3":
			return "h264"
		case "av01":
			return "av1"
		case "hvc1", "hev1":
			return "h265"
		case "vp09":
			return "vp9"
		}
	}
	return ""
}
