package config

import "testing"

func TestSetDefaults(t *testing.T) {
	var cfg Config
	cfg.setDefaults()

	if cfg.Server.RTMPPort != 1935 {
		t.Errorf("expected default rtmp_port 1935, got %d", cfg.Server.RTMPPort)
	}
	if cfg.HLS.TSDurationSeconds != 1 {
		t.Errorf("expected default ts_duration_seconds 1, got %d", cfg.HLS.TSDurationSeconds)
	}
	if cfg.HLS.Cleanup.MaxFilesPerStream != 10 {
		t.Errorf("expected default max_files_per_stream 10, got %d", cfg.HLS.Cleanup.MaxFilesPerStream)
	}
	if cfg.GOPCacheMaxFrames != 100 {
		t.Errorf("expected default gop_cache_max_frames 100, got %d", cfg.GOPCacheMaxFrames)
	}
	if cfg.Subscriber.OverflowPolicy != "drop_oldest" {
		t.Errorf("expected default overflow_policy drop_oldest, got %q", cfg.Subscriber.OverflowPolicy)
	}
}

func TestValidateRejectsUnknownOverflowPolicy(t *testing.T) {
	var cfg Config
	cfg.setDefaults()
	cfg.Subscriber.OverflowPolicy = "bogus"

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown overflow_policy")
	}
}

func TestValidateRejectsDuplicatePorts(t *testing.T) {
	var cfg Config
	cfg.setDefaults()
	cfg.Server.HTTPFLVPort = cfg.Server.RTMPPort

	if err := cfg.Validate(); err == nil {
		t.Error("expected error for duplicate ports")
	}
}

func TestValidatePassesWithDefaults(t *testing.T) {
	var cfg Config
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate cleanly, got %v", err)
	}
}
