// If you are AI: This file defines the configuration structure for origind.
// It uses strict YAML decoding and explicit defaults.

package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration.
// All fields must have explicit defaults or be required.
type Config struct {
	Server            ServerConfig     `yaml:"server"`
	HLS               HLSConfig        `yaml:"hls"`
	FullGOP           bool             `yaml:"full_gop"`
	GOPCacheMaxFrames int              `yaml:"gop_cache_max_frames"`
	Subscriber        SubscriberConfig `yaml:"subscriber"`
	Auth              AuthConfig       `yaml:"auth"`
	LogLevel          string           `yaml:"log_level"`
}

// ServerConfig defines listener ports for each service.
type ServerConfig struct {
	RTMPPort    int `yaml:"rtmp_port"`     // Ingest + playback RTMP port
	HTTPFLVPort int `yaml:"http_flv_port"` // HTTP-FLV + WebSocket-FLV port
	HLSPort     int `yaml:"hls_port"`      // Static file server for .ts/.m3u8
	HealthPort  int `yaml:"health_port"`   // Health endpoint
}

// HLSConfig controls the HLS segmenter.
type HLSConfig struct {
	Enable            bool          `yaml:"enable"`
	TSDurationSeconds int           `yaml:"ts_duration_seconds"`
	DataPath          string        `yaml:"data_path"`
	Cleanup           CleanupConfig `yaml:"cleanup"`
}

// CleanupConfig bounds the HLS segment window's pruning behavior.
type CleanupConfig struct {
	MaxFilesPerStream   int `yaml:"max_files_per_stream"`
	MinFileAgeSeconds   int `yaml:"min_file_age_seconds"`
	CleanupDelaySeconds int `yaml:"cleanup_delay_seconds"`
	MaxTotalSizeMB      int `yaml:"max_total_size_mb"`
}

// SubscriberConfig controls per-stream egress channel sizing and
// overflow behavior.
type SubscriberConfig struct {
	ChannelCapacity int    `yaml:"channel_capacity"`
	OverflowPolicy  string `yaml:"overflow_policy"` // "drop_oldest" or "disconnect_slow"
}

// AuthConfig controls whether publish/play requests are authenticated.
type AuthConfig struct {
	Enable bool `yaml:"enable"`
}

// Load reads configuration from a YAML file.
// Returns an error if the file cannot be read or decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// full_gop and hls.enable default to true: the decoder leaves fields the
	// file omits at these values. setDefaults fills in every other field.
	cfg := Config{FullGOP: true, HLS: HLSConfig{Enable: true}}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Server.HealthPort == 0 {
		c.Server.HealthPort = 8080
	}
	if c.Server.HTTPFLVPort == 0 {
		c.Server.HTTPFLVPort = 3006
	}
	if c.Server.HLSPort == 0 {
		c.Server.HLSPort = 3001
	}
	if c.Server.RTMPPort == 0 {
		c.Server.RTMPPort = 1935
	}

	if c.HLS.TSDurationSeconds == 0 {
		c.HLS.TSDurationSeconds = 1
	}
	if c.HLS.DataPath == "" {
		c.HLS.DataPath = "data/"
	}
	if c.HLS.Cleanup.MaxFilesPerStream == 0 {
		c.HLS.Cleanup.MaxFilesPerStream = 10
	}
	if c.HLS.Cleanup.MinFileAgeSeconds == 0 {
		c.HLS.Cleanup.MinFileAgeSeconds = 30
	}
	if c.HLS.Cleanup.CleanupDelaySeconds == 0 {
		c.HLS.Cleanup.CleanupDelaySeconds = 5
	}
	if c.HLS.Cleanup.MaxTotalSizeMB == 0 {
		c.HLS.Cleanup.MaxTotalSizeMB = 1000
	}

	if c.GOPCacheMaxFrames == 0 {
		c.GOPCacheMaxFrames = 100
	}

	if c.Subscriber.ChannelCapacity == 0 {
		c.Subscriber.ChannelCapacity = 256
	}
	if c.Subscriber.OverflowPolicy == "" {
		c.Subscriber.OverflowPolicy = "drop_oldest"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
