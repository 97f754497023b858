package assembler

import (
	"github.com/user/pagecast/pkg/pipeline"
)

// resolveDurations converts consecutive timestamps into per-frame display
// durations. Each frame lasts until the next frame's timestamp; the last
// frame in the batch lasts until batchEnd, which is either the timestamp of
// the next retained frame (half drain) or the stream stop time (final drain).
//
// Timestamps that regress, as can happen when concurrent capture sources
// multiplex into one buffer, produce a clamped zero duration rather than an
// error.
func resolveDurations(frames []pipeline.ProcessedFrame, batchEnd float64) []pipeline.TimedFrame {
	timed := make([]pipeline.TimedFrame, 0, len(frames))
	for i, f := range frames {
		end := batchEnd
		if i+1 < len(frames) {
			end = frames[i+1].Timestamp
		}
		d := end - f.Timestamp
		if d < 0 {
			d = 0
		}
		timed = append(timed, pipeline.TimedFrame{
			Blob:     f.Blob,
			Duration: d,
		})
	}
	return timed
}
