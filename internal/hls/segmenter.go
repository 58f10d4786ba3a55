// If you are AI: This file implements HlsSegmenter: consumes one stream's packets and produces TS segments + playlist.

package hls

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/streamforge/origind/internal/core/hub"
	"github.com/streamforge/origind/internal/core/packet"
	"github.com/streamforge/origind/internal/core/subscriber"
)

// Config bounds one HlsSegmenter's behavior.
type Config struct {
	DataPath      string
	TSDuration    time.Duration // target segment duration
	MaxSegments   int
	MinAge        time.Duration
	CleanupDelay  time.Duration
	MaxTotalBytes int64
}

// Segmenter owns the TS-file/playlist lifecycle for one HLS-enabled stream.
// It subscribes to its hub with overflow policy DisconnectSlow: correctness
// (never skip a packet, never corrupt segment ordering) outranks liveness
// for the file path.
type Segmenter struct {
	streamName string
	cfg        Config
	window     *Window
	ch         *subscriber.Channel

	current    []*packet.Packet
	segStartTS uint32
	warnedLong bool

	sps, pps  []byte
	aacConfig []byte // raw AudioSpecificConfig payload, re-parsed per segment by the muxer
}

// New creates a Segmenter for streamName, ready to Run once subscribed.
func New(streamName string, cfg Config) *Segmenter {
	if cfg.TSDuration <= 0 {
		cfg.TSDuration = time.Second
	}
	return &Segmenter{
		streamName: streamName,
		cfg:        cfg,
		window:     NewWindow(cfg.MaxSegments, cfg.MinAge, cfg.CleanupDelay, cfg.MaxTotalBytes),
	}
}

// Run subscribes to h and processes packets until its channel is closed:
// by Stop, or by the hub when the segmenter falls behind (DisconnectSlow).
// The hub does not close the channel when the publisher leaves. It blocks;
// callers run it in its own goroutine, one per HLS-enabled stream.
func (s *Segmenter) Run(h *hub.Hub) {
	s.ch = h.SubscribeWithPolicy(subscriber.DisconnectSlow)
	defer s.shutdown()

	for {
		p, err := s.ch.Dequeue()
		if err != nil {
			return
		}
		s.process(p)
	}
}

// Stop closes the subscriber channel, causing Run's next dequeue to observe
// closure. It does not unsubscribe; the hub drops the closed channel on its
// next fanout.
func (s *Segmenter) Stop() {
	if s.ch != nil {
		s.ch.Close()
	}
}

func (s *Segmenter) process(p *packet.Packet) {
	if p.IsSequenceHeader {
		switch p.Kind {
		case packet.KindVideo:
			sps, pps := extractSPSPPS(p.Payload)
			if sps != nil {
				s.sps, s.pps = sps, pps
			}
		case packet.KindAudio:
			s.aacConfig = p.Payload
		}
		return
	}

	if p.Kind == packet.KindVideo && p.IsKeyframe && len(s.current) > 0 {
		elapsed := time.Duration(p.TimestampMS-s.segStartTS) * time.Millisecond
		if elapsed >= s.cfg.TSDuration {
			s.closeSegment()
		}
	}

	if len(s.current) == 0 {
		s.segStartTS = p.TimestampMS
		s.warnedLong = false
	} else if !s.warnedLong {
		elapsed := time.Duration(p.TimestampMS-s.segStartTS) * time.Millisecond
		if elapsed >= 2*s.cfg.TSDuration {
			log.Printf("hls[%s]: no keyframe within %s, segment running long", s.streamName, 2*s.cfg.TSDuration)
			s.warnedLong = true
		}
	}

	s.current = append(s.current, p)
}

// closeSegment muxes the accumulated packets to MPEG-TS, writes the file
// atomically, updates the window, and rewrites the playlist.
func (s *Segmenter) closeSegment() {
	if len(s.current) == 0 {
		return
	}

	var aacCfg = extractAudioSpecificConfig(s.aacConfig)
	muxer, err := newTSMuxer(s.sps, s.pps, aacCfg)
	if err != nil {
		log.Printf("hls[%s]: segment muxer init failed: %v", s.streamName, err)
		s.current = nil
		return
	}
	for _, p := range s.current {
		if err := muxer.WritePacket(p); err != nil {
			log.Printf("hls[%s]: segment write failed: %v", s.streamName, err)
		}
	}

	firstTS := s.current[0].TimestampMS
	lastTS := s.current[len(s.current)-1].TimestampMS
	durationSec := math.Ceil(float64(lastTS-firstTS) / 1000.0)
	if durationSec <= 0 {
		durationSec = math.Ceil(float64(s.cfg.TSDuration) / float64(time.Second))
	}

	seq := s.window.NextSequenceNumber()
	name := fmt.Sprintf("%s_%d.ts", s.streamName, seq)
	path := filepath.Join(s.cfg.DataPath, name)

	data := muxer.Bytes()
	if err := writeFileAtomic(path, data); err != nil {
		log.Printf("hls[%s]: segment write failed: %v", s.streamName, err)
		s.current = nil
		return
	}

	seg := Segment{
		SequenceNumber: seq,
		Path:           path,
		DurationSec:    durationSec,
		CreatedAt:      time.Now(),
		Bytes:          int64(len(data)),
	}
	evicted := s.window.Append(seg)
	for _, ev := range evicted {
		s.scheduleDelete(ev)
	}

	s.writePlaylist(false)
	s.current = nil
}

// scheduleDelete removes a pruned segment's file once it is safe to do so.
// A failed removal (the file already gone, e.g. on a second process restart
// cleanup) is logged and otherwise ignored — one segment's I/O failure never
// brings down the segmenter task.
func (s *Segmenter) scheduleDelete(seg Segment) {
	delay := s.window.DeletionDelay(seg, time.Now())
	time.AfterFunc(delay, func() {
		if err := os.Remove(seg.Path); err != nil && !os.IsNotExist(err) {
			log.Printf("hls[%s]: segment cleanup failed for %s: %v", s.streamName, seg.Path, err)
		}
	})
}

func (s *Segmenter) writePlaylist(endlist bool) {
	body := RenderPlaylist(s.window, endlist)
	path := filepath.Join(s.cfg.DataPath, s.streamName+".m3u8")
	if err := writeFileAtomic(path, body); err != nil {
		log.Printf("hls[%s]: playlist write failed: %v", s.streamName, err)
	}
}

// shutdown flushes any in-progress segment and writes the terminal
// playlist with #EXT-X-ENDLIST.
func (s *Segmenter) shutdown() {
	s.closeSegment()
	s.writePlaylist(true)
}

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by rename, so concurrent readers never observe a
// partially written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
