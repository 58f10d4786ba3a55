// If you are AI: This file mux-encodes one HLS segment's packets into MPEG-TS bytes using mediacommon.

package hls

import (
	"bytes"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"

	"github.com/streamforge/origind/internal/core/packet"
)

const (
	tsVideoPID = 0x0100
	tsAudioPID = 0x0101
)

// tsMuxer encodes a run of Packets for one segment into an MPEG-TS byte
// stream. It is single-use per segment: callers construct one per segment
// close and discard it once Bytes has been read.
type tsMuxer struct {
	buf        bytes.Buffer
	muxer      *mpegts.Writer
	videoTrack *mpegts.Track
	audioTrack *mpegts.Track

	sps, pps []byte // most recent parameter sets, carried across segments by the caller
}

// newTSMuxer builds a muxer for one segment. sps/pps are the most recently
// observed H.264 parameter sets (extracted from the AVC sequence header),
// reused so every segment — not only the one containing the original
// sequence header — starts with a decodable keyframe.
func newTSMuxer(sps, pps []byte, aacConfig *mpeg4audio.AudioSpecificConfig) (*tsMuxer, error) {
	m := &tsMuxer{sps: sps, pps: pps}

	m.videoTrack = &mpegts.Track{PID: tsVideoPID, Codec: &mpegts.CodecH264{}}
	tracks := []*mpegts.Track{m.videoTrack}

	if aacConfig != nil {
		m.audioTrack = &mpegts.Track{PID: tsAudioPID, Codec: &mpegts.CodecMPEG4Audio{Config: *aacConfig}}
		tracks = append(tracks, m.audioTrack)
	}

	m.muxer = &mpegts.Writer{W: &m.buf, Tracks: tracks}
	if err := m.muxer.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing mpegts writer: %w", err)
	}
	return m, nil
}

// WritePacket encodes one media Packet (never a sequence header — those are
// consumed by the segmenter to maintain sps/pps and AAC config, not muxed
// directly) into the TS stream. pts/dts are both set to the packet
// timestamp; this server does not track B-frame reordering offsets, so
// presentation and decode order are assumed equal (true for the baseline
// profile streams RTMP publishers in the wild almost always send).
func (m *tsMuxer) WritePacket(p *packet.Packet) error {
	ts := int64(p.TimestampMS) * 90 // 90kHz clock, matches mediacommon's PTS/DTS unit

	switch p.Kind {
	case packet.KindVideo:
		au := avccToNALUs(p.Payload)
		if len(au) == 0 {
			return nil
		}
		if p.IsKeyframe && len(m.sps) > 0 && len(m.pps) > 0 {
			au = prependParamSets(au, m.sps, m.pps)
		}
		return m.muxer.WriteH264(m.videoTrack, ts, ts, au)
	case packet.KindAudio:
		if m.audioTrack == nil {
			return nil
		}
		frames := extractAACFrames(p.Payload)
		if len(frames) == 0 {
			return nil
		}
		return m.muxer.WriteMPEG4Audio(m.audioTrack, ts, frames)
	default:
		return nil
	}
}

// Bytes returns the accumulated MPEG-TS byte stream for this segment.
func (m *tsMuxer) Bytes() []byte {
	return m.buf.Bytes()
}

// avccToNALUs splits AVCC length-prefixed data (RTMP/FLV's native video
// framing) into individual NAL units.
func avccToNALUs(data []byte) [][]byte {
	var au h264.AVCC
	if err := au.Unmarshal(data); err != nil || len(au) == 0 {
		return nil
	}
	return au
}

// prependParamSets ensures a keyframe's access unit carries SPS/PPS even if
// the publisher only sent them once, at stream start — necessary because
// each TS segment must be independently decodable.
func prependParamSets(au [][]byte, sps, pps []byte) [][]byte {
	out := make([][]byte, 0, len(au)+2)
	out = append(out, sps, pps)
	out = append(out, au...)
	return out
}

// extractSPSPPS pulls the SPS/PPS NAL units out of an AVC sequence header
// payload (AVCDecoderConfigurationRecord) for reuse across segments.
func extractSPSPPS(avcConfig []byte) (sps, pps []byte) {
	var cfg h264.AVCDecoderConfiguration
	if err := cfg.Unmarshal(avcConfig); err != nil {
		return nil, nil
	}
	if len(cfg.SPS) > 0 {
		sps = cfg.SPS[0]
	}
	if len(cfg.PPS) > 0 {
		pps = cfg.PPS[0]
	}
	return sps, pps
}

// extractAudioSpecificConfig decodes an AAC sequence header (the raw
// AudioSpecificConfig FLV/RTMP sends verbatim) for reuse in the TS audio
// track descriptor.
func extractAudioSpecificConfig(data []byte) *mpeg4audio.AudioSpecificConfig {
	var cfg mpeg4audio.AudioSpecificConfig
	if err := cfg.Unmarshal(data); err != nil {
		return nil
	}
	return &cfg
}

// extractAACFrames returns the raw AAC access units mediacommon expects,
// unwrapping ADTS framing if present (some publishers ADTS-frame audio
// despite FLV/RTMP's AudioSpecificConfig convention expecting raw AUs).
func extractAACFrames(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	if len(data) >= 7 && data[0] == 0xFF && (data[1]&0xF0) == 0xF0 {
		return extractADTSFrames(data)
	}
	return [][]byte{data}
}

func extractADTSFrames(data []byte) [][]byte {
	var frames [][]byte
	offset := 0
	for offset+7 <= len(data) {
		if data[offset] != 0xFF || (data[offset+1]&0xF0) != 0xF0 {
			offset++
			continue
		}
		protectionAbsent := data[offset+1]&0x01 != 0
		headerSize := 7
		if !protectionAbsent {
			headerSize = 9
		}
		frameLen := int(data[offset+3]&0x03)<<11 | int(data[offset+4])<<3 | int(data[offset+5]>>5)
		if frameLen < headerSize || offset+frameLen > len(data) {
			break
		}
		frames = append(frames, data[offset+headerSize:offset+frameLen])
		offset += frameLen
	}
	return frames
}
