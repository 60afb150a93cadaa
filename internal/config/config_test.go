package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DeviceID != DefaultDeviceID {
		t.Errorf("device ID = %q, want %q", cfg.DeviceID, DefaultDeviceID)
	}
	if cfg.Capture.SampleRate != DefaultSampleRate {
		t.Errorf("sample rate = %d, want %d", cfg.Capture.SampleRate, DefaultSampleRate)
	}
	if cfg.Capture.BurstSeconds != DefaultBurstSeconds || cfg.Capture.PeriodSecs != DefaultPeriodSecs {
		t.Errorf("cadence = %d/%d, want %d/%d",
			cfg.Capture.BurstSeconds, cfg.Capture.PeriodSecs, DefaultBurstSeconds, DefaultPeriodSecs)
	}
	if cfg.Storage.OutputDir != DefaultOutputDir {
		t.Errorf("output dir = %q, want %q", cfg.Storage.OutputDir, DefaultOutputDir)
	}
	if len(cfg.Capture.DeviceMatch) != 2 {
		t.Errorf("device match = %v, want defaults", cfg.Capture.DeviceMatch)
	}
}

func TestLoadSparseFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{"device_id": "ROOF-7", "capture": {"burst_seconds": 10}}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DeviceID != "ROOF-7" {
		t.Errorf("device ID = %q, want ROOF-7", cfg.DeviceID)
	}
	if cfg.Capture.BurstSeconds != 10 {
		t.Errorf("burst = %d, want 10", cfg.Capture.BurstSeconds)
	}
	// Fields the file did not name keep their defaults.
	if cfg.Capture.PeriodSecs != DefaultPeriodSecs {
		t.Errorf("period = %d, want default %d", cfg.Capture.PeriodSecs, DefaultPeriodSecs)
	}
	if cfg.Capture.SampleRate != DefaultSampleRate {
		t.Errorf("sample rate = %d, want default %d", cfg.Capture.SampleRate, DefaultSampleRate)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NOISEWATCH_DEVICE_ID", "ENV-42")
	t.Setenv("NOISEWATCH_OUTPUT_DIR", "/var/lib/noisewatch")
	t.Setenv("NOISEWATCH_S3_BUCKET", "env-bucket")
	t.Setenv("NOISEWATCH_PORT", "9090")

	path := writeConfig(t, `{"device_id": "FILE-1"}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DeviceID != "ENV-42" {
		t.Errorf("device ID = %q, want env override ENV-42", cfg.DeviceID)
	}
	if cfg.Storage.OutputDir != "/var/lib/noisewatch" {
		t.Errorf("output dir = %q", cfg.Storage.OutputDir)
	}
	if cfg.Upload.Bucket != "env-bucket" {
		t.Errorf("bucket = %q", cfg.Upload.Bucket)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"burst longer than period", `{"capture": {"burst_seconds": 30, "period_seconds": 10}}`},
		{"sample rate too low", `{"capture": {"sample_rate": 4000}}`},
		{"burst too long", `{"capture": {"burst_seconds": 120, "period_seconds": 240}}`},
		{"positive alert threshold", `{"alerts": {"threshold_dbfs": 10}}`},
		{"alert threshold at level floor", `{"alerts": {"threshold_dbfs": -120}}`},
		{"alert threshold below level floor", `{"alerts": {"threshold_dbfs": -150}}`},
		{"device id with separator", `{"device_id": "a/b"}`},
		{"port out of range", `{"server": {"port": 70000}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Errorf("Load accepted %s", tt.name)
			}
		})
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"device_id": `)
	if _, err := Load(path); err == nil {
		t.Error("Load accepted malformed JSON")
	}
}
