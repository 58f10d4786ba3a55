// If you are AI: This file turns FLV-framed RTMP audio/video/data messages
// into Packets and fans them out through the stream hub.

package ingest

import (
	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/packet"
	"github.com/streamforge/origind/internal/core/protocol/flv"
	"github.com/streamforge/origind/internal/core/registry"
)

// Publisher adapts one RTMP publish session onto a Hub, classifying each
// FLV payload (codec, keyframe, sequence header) before publishing it.
type Publisher struct {
	hub   *hub.Hub
	key   hub.StreamKey
	token hub.PublisherToken
}

// NewPublisher attaches a Publisher for an already-acquired hub/token pair.
func NewPublisher(h *hub.Hub, key hub.StreamKey, token hub.PublisherToken) *Publisher {
	return &Publisher{hub: h, key: key, token: token}
}

// PublishAudio classifies and publishes one RTMP audio message.
func (p *Publisher) PublishAudio(timestamp uint32, payload []byte) {
	codecID := flv.AudioCodecID(payload)
	isSeqHeader := flv.IsAudioSequenceHeader(payload)
	pkt := packet.New(packet.KindAudio, codecID, timestamp, isSeqHeader, false, payload)
	p.hub.Publish(p.token, pkt)
}

// PublishVideo classifies and publishes one RTMP video message.
func (p *Publisher) PublishVideo(timestamp uint32, payload []byte) {
	codecID := flv.VideoCodecID(payload)
	isSeqHeader := codecID == flv.VideoCodecAVC && flv.IsVideoSequenceHeader(payload)
	isKeyframe := flv.IsVideoKeyframe(payload)
	pkt := packet.New(packet.KindVideo, codecID, timestamp, isSeqHeader, isKeyframe, payload)
	p.hub.Publish(p.token, pkt)
}

// PublishMetadata publishes one RTMP script-data (onMetaData) message.
func (p *Publisher) PublishMetadata(timestamp uint32, payload []byte) {
	pkt := packet.New(packet.KindMetadata, 0, timestamp, false, false, payload)
	p.hub.Publish(p.token, pkt)
}

// Detach releases the publisher token on the hub and notifies reg so the
// hub can be reclaimed once empty.
func (p *Publisher) Detach(reg *registry.Registry) {
	reg.NotifyPublisherLeft(p.key, p.token)
}

// StreamKey returns the stream key this publisher is attached to.
func (p *Publisher) StreamKey() hub.StreamKey {
	return p.key
}
