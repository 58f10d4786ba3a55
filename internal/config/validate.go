// If you are AI: This file validates configuration values and returns descriptive errors.

package config

import "fmt"

// Validate checks that all configuration values are within acceptable ranges.
// Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if c.HLS.Enable {
		if c.HLS.TSDurationSeconds <= 0 {
			return fmt.Errorf("hls config: ts_duration_seconds must be positive, got %d", c.HLS.TSDurationSeconds)
		}
		if c.HLS.DataPath == "" {
			return fmt.Errorf("hls config: data_path must not be empty")
		}
	}
	if c.GOPCacheMaxFrames < 0 {
		return fmt.Errorf("gop_cache_max_frames must not be negative, got %d", c.GOPCacheMaxFrames)
	}
	if c.Subscriber.ChannelCapacity <= 0 {
		return fmt.Errorf("subscriber config: channel_capacity must be positive, got %d", c.Subscriber.ChannelCapacity)
	}
	switch c.Subscriber.OverflowPolicy {
	case "drop_oldest", "disconnect_slow":
	default:
		return fmt.Errorf("subscriber config: overflow_policy must be drop_oldest or disconnect_slow, got %q", c.Subscriber.OverflowPolicy)
	}
	return nil
}

// Validate checks server configuration values.
func (s *ServerConfig) Validate() error {
	ports := map[string]int{
		"health_port":   s.HealthPort,
		"http_flv_port": s.HTTPFLVPort,
		"hls_port":      s.HLSPort,
		"rtmp_port":     s.RTMPPort,
	}
	for name, port := range ports {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
		}
	}

	seen := make(map[int]string, len(ports))
	for name, port := range ports {
		if other, ok := seen[port]; ok {
			return fmt.Errorf("%s and %s must be different, both are %d", other, name, port)
		}
		seen[port] = name
	}
	return nil
}
