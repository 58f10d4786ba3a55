// If you are AI: This file implements HlsWindow, the rolling segment list backing one stream's playlist.

package hls

import "time"

// Segment describes one completed TS file still referenced by the current
// playlist (or just evicted from it, pending delayed deletion).
type Segment struct {
	SequenceNumber int64
	Path           string
	DurationSec    float64
	CreatedAt      time.Time
	Bytes          int64
}

// Window holds the ordered, bounded segment list for one stream. It is
// owned single-threadedly by its HlsSegmenter task; nothing else mutates it.
type Window struct {
	segments      []Segment
	mediaSequence int64 // sequence number of segments[0], i.e. #EXT-X-MEDIA-SEQUENCE

	maxSegments   int
	minAge        time.Duration
	cleanupDelay  time.Duration
	maxTotalBytes int64
}

// NewWindow creates an empty Window with the given retention policy.
func NewWindow(maxSegments int, minAge, cleanupDelay time.Duration, maxTotalBytes int64) *Window {
	return &Window{
		maxSegments:   maxSegments,
		minAge:        minAge,
		cleanupDelay:  cleanupDelay,
		maxTotalBytes: maxTotalBytes,
	}
}

// Append adds a newly closed segment to the window and evicts whatever the
// retention policy now requires it to evict (segment count over
// max_segments, or total bytes over max_total_bytes). Eviction always
// removes from the oldest end, preserving strict sequence-number order:
// media_sequence only ever increases.
//
// Evicted segments are returned for the caller to schedule deletion of —
// Window itself performs no file I/O or timer scheduling.
func (w *Window) Append(seg Segment) (evicted []Segment) {
	wasEmpty := len(w.segments) == 0
	w.segments = append(w.segments, seg)
	if wasEmpty {
		w.mediaSequence = seg.SequenceNumber
	}

	for len(w.segments) > 1 && w.maxSegments > 0 && len(w.segments) > w.maxSegments {
		evicted = append(evicted, w.evictOldest())
	}
	for len(w.segments) > 1 && w.maxTotalBytes > 0 && w.totalBytes() > w.maxTotalBytes {
		evicted = append(evicted, w.evictOldest())
	}
	return evicted
}

func (w *Window) evictOldest() Segment {
	s := w.segments[0]
	w.segments = w.segments[1:]
	if len(w.segments) > 0 {
		w.mediaSequence = w.segments[0].SequenceNumber
	}
	return s
}

func (w *Window) totalBytes() int64 {
	var total int64
	for _, s := range w.segments {
		total += s.Bytes
	}
	return total
}

// DeletionDelay returns how long to wait, from now, before it is safe to
// unlink seg's file: at least cleanup_delay, and never before the segment
// reaches min_age_before_delete total age — preventing deletion of a file a
// client may still be fetching.
func (w *Window) DeletionDelay(seg Segment, now time.Time) time.Duration {
	fromAge := seg.CreatedAt.Add(w.minAge).Sub(now)
	if fromAge < 0 {
		fromAge = 0
	}
	if w.cleanupDelay > fromAge {
		return w.cleanupDelay
	}
	return fromAge
}

// Segments returns a snapshot of the current window, oldest first.
func (w *Window) Segments() []Segment {
	out := make([]Segment, len(w.segments))
	copy(out, w.segments)
	return out
}

// MediaSequence returns the sequence number of the oldest segment still in
// the window — the playlist's #EXT-X-MEDIA-SEQUENCE value.
func (w *Window) MediaSequence() int64 {
	return w.mediaSequence
}

// NextSequenceNumber returns the sequence number the next appended segment
// must use to preserve strict, never-reused ordering.
func (w *Window) NextSequenceNumber() int64 {
	if len(w.segments) == 0 {
		return w.mediaSequence
	}
	return w.segments[len(w.segments)-1].SequenceNumber + 1
}
