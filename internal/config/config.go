// Package config provides application configuration management.
// Configuration is read once at startup and immutable afterwards;
// changing settings requires a restart.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/soundscape-labs/noisewatch/internal/dsp"
	"github.com/soundscape-labs/noisewatch/internal/notify"
	"github.com/soundscape-labs/noisewatch/internal/store"
	"github.com/soundscape-labs/noisewatch/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultDeviceID     = "USM-001"
	DefaultOutputDir    = "recordings"
	DefaultBurstSeconds = 6
	DefaultPeriodSecs   = 60
	DefaultSampleRate   = 48000
	DefaultWebPort      = 8080
)

// DefaultDeviceMatch lists the substrings tried against device names
// when no explicit input device is configured.
var DefaultDeviceMatch = []string{"usb", "mic"}

// CaptureConfig holds audio capture settings.
type CaptureConfig struct {
	InputDevice  string   `json:"input_device"`                                     // Explicit device ID (empty = auto-select)
	DeviceMatch  []string `json:"device_match"`                                     // Name substrings for auto-selection
	SampleRate   int      `json:"sample_rate"   validate:"min=8000,max=192000"`     // Capture sample rate in Hz
	BurstSeconds int      `json:"burst_seconds" validate:"min=1,max=60"`            // Capture burst length
	PeriodSecs   int      `json:"period_seconds" validate:"gtefield=BurstSeconds"` // Cycle cadence, start to start
}

// StorageConfig holds recording storage settings.
type StorageConfig struct {
	OutputDir     string `json:"output_dir"`
	RetentionDays int    `json:"retention_days" validate:"min=0"` // 0 disables local cleanup
}

// ServerConfig holds the status HTTP server settings.
type ServerConfig struct {
	Port   int    `json:"port" validate:"min=0,max=65535"` // 0 disables the server
	APIKey string `json:"api_key"`
}

// Config holds all application configuration. It is populated once by
// Load and never mutated afterwards.
type Config struct {
	DeviceID   string `json:"device_id" validate:"required,max=64"`
	FFmpegPath string `json:"ffmpeg_path"` // Path to FFmpeg binary (empty = use PATH)
	EventLog   string `json:"event_log"`   // JSON-lines event log path (empty = disabled)

	Capture CaptureConfig  `json:"capture"`
	Storage StorageConfig  `json:"storage"`
	Alerts  notify.Config  `json:"alerts"`
	Upload  store.S3Config `json:"upload"`
	Server  ServerConfig   `json:"server"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		DeviceID: DefaultDeviceID,
		Capture: CaptureConfig{
			DeviceMatch:  DefaultDeviceMatch,
			SampleRate:   DefaultSampleRate,
			BurstSeconds: DefaultBurstSeconds,
			PeriodSecs:   DefaultPeriodSecs,
		},
		Storage: StorageConfig{
			OutputDir: DefaultOutputDir,
		},
		Server: ServerConfig{
			Port: DefaultWebPort,
		},
	}
}

// Load reads configuration from filePath, applies environment
// overrides and validates the result. A missing file is not an error;
// defaults plus environment apply.
func Load(filePath string) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(filePath)
	switch {
	case os.IsNotExist(err):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, util.WrapError("parse config", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults restores defaults for zero-value fields so a sparse
// config file only overrides what it names.
func (c *Config) applyDefaults() {
	if c.DeviceID == "" {
		c.DeviceID = DefaultDeviceID
	}
	if c.Capture.DeviceMatch == nil {
		c.Capture.DeviceMatch = DefaultDeviceMatch
	}
	if c.Capture.SampleRate == 0 {
		c.Capture.SampleRate = DefaultSampleRate
	}
	if c.Capture.BurstSeconds == 0 {
		c.Capture.BurstSeconds = DefaultBurstSeconds
	}
	if c.Capture.PeriodSecs == 0 {
		c.Capture.PeriodSecs = DefaultPeriodSecs
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = DefaultOutputDir
	}
}

// applyEnv overrides fields from NOISEWATCH_* environment variables.
// Only deployment-specific settings are exposed this way; tuning
// parameters stay in the config file.
func (c *Config) applyEnv() {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("NOISEWATCH_DEVICE_ID", &c.DeviceID)
	setString("NOISEWATCH_INPUT_DEVICE", &c.Capture.InputDevice)
	setString("NOISEWATCH_OUTPUT_DIR", &c.Storage.OutputDir)
	setString("NOISEWATCH_FFMPEG_PATH", &c.FFmpegPath)
	setString("NOISEWATCH_API_KEY", &c.Server.APIKey)
	setString("NOISEWATCH_ALERT_WEBHOOK_URL", &c.Alerts.WebhookURL)

	setString("NOISEWATCH_S3_ENDPOINT", &c.Upload.Endpoint)
	setString("NOISEWATCH_S3_BUCKET", &c.Upload.Bucket)
	setString("NOISEWATCH_S3_ACCESS_KEY_ID", &c.Upload.AccessKeyID)
	setString("NOISEWATCH_S3_SECRET_ACCESS_KEY", &c.Upload.SecretAccessKey)
	setString("NOISEWATCH_S3_PREFIX", &c.Upload.Prefix)

	if v := os.Getenv("NOISEWATCH_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

// validate checks the configuration using struct tags plus the
// cross-field rules tags cannot express.
func (c *Config) validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config field %s: failed %q validation", verrs[0].Namespace(), verrs[0].Tag())
		}
		return util.WrapError("validate config", err)
	}

	if c.Alerts.ThresholdDBFS > 0 {
		return fmt.Errorf("invalid alert threshold %.1f: must be negative dBFS (0 disables alerting)", c.Alerts.ThresholdDBFS)
	}
	if c.Alerts.ThresholdDBFS != 0 && c.Alerts.ThresholdDBFS <= dsp.LevelFloorDBFS {
		return fmt.Errorf("invalid alert threshold %.1f: must be above the %.0f dBFS level floor", c.Alerts.ThresholdDBFS, dsp.LevelFloorDBFS)
	}
	if strings.ContainsAny(c.DeviceID, "/\\") {
		return fmt.Errorf("invalid device_id %q: must not contain path separators", c.DeviceID)
	}
	return nil
}
