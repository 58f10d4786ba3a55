// If you are AI: This file provides FLV muxing helpers for converting Packets to FLV tags.
// Muxing preserves original payloads without transcoding.

package flv

import (
	"github.com/streamforge/origind/internal/core/packet"
)

// MuxAudio converts an audio Packet to an FLV audio tag.
// The payload is used directly without modification.
func MuxAudio(p *packet.Packet) *Tag {
	if p == nil || p.Kind != packet.KindAudio {
		return nil
	}
	return NewTag(TagTypeAudio, p.TimestampMS, p.Payload)
}

// MuxVideo converts a video Packet to an FLV video tag.
// The payload is used directly without modification.
func MuxVideo(p *packet.Packet) *Tag {
	if p == nil || p.Kind != packet.KindVideo {
		return nil
	}
	return NewTag(TagTypeVideo, p.TimestampMS, p.Payload)
}

// MuxScript converts a metadata Packet to an FLV script-data tag.
// The payload is used directly without modification.
func MuxScript(p *packet.Packet) *Tag {
	if p == nil || p.Kind != packet.KindMetadata {
		return nil
	}
	return NewTag(TagTypeScript, p.TimestampMS, p.Payload)
}

// MuxPacket converts a Packet to an FLV tag based on its Kind.
// Returns nil if the kind is not supported.
func MuxPacket(p *packet.Packet) *Tag {
	if p == nil {
		return nil
	}
	switch p.Kind {
	case packet.KindAudio:
		return MuxAudio(p)
	case packet.KindVideo:
		return MuxVideo(p)
	case packet.KindMetadata:
		return MuxScript(p)
	default:
		return nil
	}
}
