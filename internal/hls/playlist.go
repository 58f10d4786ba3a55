// If you are AI: This file renders a Window into an m3u8 playlist body.

package hls

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// RenderPlaylist builds the `.m3u8` body for the current window. endlist is
// true only during segmenter shutdown, after the final in-progress segment
// has been flushed — the tag is never written while the publisher is still
// live.
func RenderPlaylist(w *Window, endlist bool) []byte {
	segments := w.Segments()

	target := 1
	for _, s := range segments {
		if d := int(math.Ceil(s.DurationSec)); d > target {
			target = d
		}
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", target)
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", w.MediaSequence())

	for _, s := range segments {
		fmt.Fprintf(&b, "#EXTINF:%.3f,\n%s\n", s.DurationSec, filepath.Base(s.Path))
	}

	if endlist {
		b.WriteString("#EXT-X-ENDLIST\n")
	}

	return []byte(b.String())
}
