// If you are AI: This file defines Packet, the immutable media frame shared across the stream hub.
// A Packet is constructed once by the ingest layer and fanned out by reference to every subscriber.

package packet

// Kind identifies the media type carried by a Packet.
type Kind uint8

const (
	// KindVideo identifies a video frame.
	KindVideo Kind = iota
	// KindAudio identifies an audio frame.
	KindAudio
	// KindMetadata identifies a script-data/metadata frame (e.g. onMetaData).
	KindMetadata
)

// String returns a human-readable name for the kind, used in log lines.
func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	case KindMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// Packet is an immutable, shareable media frame. Once returned by New, a
// Packet's fields and Payload bytes are never mutated; it is fanned out to
// every subscriber by reference, not by copy. Lifetime is left to the
// garbage collector rather than manual pooling: payloads are shared by an
// unknown, dynamically-changing number of subscriber channels, and a
// single-owner pool cannot be returned safely without a refcount per
// subscriber — reclaiming a buffer a slow subscriber hasn't read yet would
// corrupt its view.
//
// CodecID is an opaque small integer set by the ingest wire-codec layer
// (e.g. FLV/RTMP AVCPacketType conventions: AVC=7, AAC=10). The core never
// interprets it beyond passing it through to egress unchanged.
type Packet struct {
	Kind             Kind
	CodecID          uint8
	TimestampMS      uint32
	IsSequenceHeader bool
	IsKeyframe       bool
	Payload          []byte
}

// New constructs a Packet, copying data into a freshly allocated buffer.
// Construction is the only write; the returned Packet must not be mutated
// afterward.
func New(kind Kind, codecID uint8, timestampMS uint32, isSeqHeader, isKeyframe bool, data []byte) *Packet {
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Packet{
		Kind:             kind,
		CodecID:          codecID,
		TimestampMS:      timestampMS,
		IsSequenceHeader: isSeqHeader,
		IsKeyframe:       isKeyframe,
		Payload:          buf,
	}
}

// Clone returns a shallow copy of the packet header sharing the same
// Payload backing array. Safe because Payload is never mutated after New.
func (p *Packet) Clone() *Packet {
	clone := *p
	return &clone
}
