// If you are AI: This file holds small AMF0/RTMP encoding and command-parsing
// helpers shared by Session's command handlers.

package ingest

import (
	"strings"

	"github.com/streamforge/origind/internal/core/protocol/amf0"
)

// extractStreamName extracts the stream name from a publish command.
// Format: ["publish", txnID, null, streamName, publishType]. Some clients
// omit the null command object, shifting the name to index 2.
func extractStreamName(command amf0.Array) string {
	name, _ := extractStreamNameAndKey(command)
	return name
}

// extractStreamNameAndKey extracts the stream name and, if present, a
// stream key suffix of the form "name?key=value" or "name?value" that
// clients commonly append to authenticate a publish.
func extractStreamNameAndKey(command amf0.Array) (name, key string) {
	var raw string
	if len(command) >= 4 {
		if s, ok := command[3].(string); ok {
			raw = s
		}
	}
	if raw == "" && len(command) >= 3 {
		if s, ok := command[2].(string); ok {
			raw = s
		}
	}
	if raw == "" {
		return "", ""
	}
	name = raw
	if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		name = raw[:idx]
		query := raw[idx+1:]
		if eq := strings.IndexByte(query, '='); eq >= 0 {
			key = query[eq+1:]
		} else {
			key = query
		}
	}
	return name, key
}

// toFloat64 coerces an AMF0-decoded transaction ID to float64, defaulting
// to 1 if the type is unexpected.
func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 1.0
	}
}

func windowAckSizeBody(size uint32) []byte {
	return be32(size)
}

func setPeerBandwidthBody(size uint32, limitType byte) []byte {
	body := be32(size)
	return append(body, limitType)
}

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
