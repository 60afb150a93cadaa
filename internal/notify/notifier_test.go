package notify

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soundscape-labs/noisewatch/internal/dsp"
	"github.com/soundscape-labs/noisewatch/internal/types"
)

func measurementAt(level float64, ts time.Time) types.Measurement {
	return types.Measurement{
		DeviceID:  "USM-001",
		Timestamp: ts,
		LAeqDBFS:  level,
	}
}

func TestEpisodeStateMachine(t *testing.T) {
	n := NewAlertNotifier(Config{ThresholdDBFS: -30}, "USM-001", nil)

	start := time.Now()
	steps := []struct {
		level      float64
		wantActive bool
	}{
		{-50, false}, // quiet
		{-20, true},  // crosses threshold, episode starts
		{-10, true},  // still loud, same episode
		{-45, false}, // recovery ends the episode
		{-45, false}, // stays quiet
		{-25, true},  // second episode
	}

	for i, step := range steps {
		n.HandleMeasurement(measurementAt(step.level, start.Add(time.Duration(i)*time.Minute)))
		n.mu.Lock()
		active := n.active
		n.mu.Unlock()
		if active != step.wantActive {
			t.Errorf("step %d (level %.0f): active = %v, want %v", i, step.level, active, step.wantActive)
		}
	}

	n.Reset()
	n.mu.Lock()
	active := n.active
	n.mu.Unlock()
	if active {
		t.Error("Reset left the episode active")
	}
}

func TestDisabledThresholdNeverAlerts(t *testing.T) {
	n := NewAlertNotifier(Config{}, "USM-001", nil)
	if n.Enabled() {
		t.Fatal("zero threshold should disable alerting")
	}

	n.HandleMeasurement(measurementAt(-1, time.Now()))
	n.mu.Lock()
	active := n.active
	n.mu.Unlock()
	if active {
		t.Error("disabled notifier entered an episode")
	}
}

func TestSilentBurstNeverAlerts(t *testing.T) {
	// A silent cycle clamps to the floor, far below any valid threshold.
	n := NewAlertNotifier(Config{ThresholdDBFS: -90}, "USM-001", nil)

	n.HandleMeasurement(measurementAt(-120, time.Now()))
	n.mu.Lock()
	active := n.active
	n.mu.Unlock()
	if active {
		t.Error("floor-level burst triggered an alert")
	}

	// Even a threshold at the clamp floor must not fire on dead silence.
	n = NewAlertNotifier(Config{ThresholdDBFS: dsp.LevelFloorDBFS}, "USM-001", nil)
	n.HandleMeasurement(measurementAt(math.Inf(-1), time.Now()))
	n.mu.Lock()
	active = n.active
	n.mu.Unlock()
	if active {
		t.Error("silence triggered an alert against a floor threshold")
	}
}

func TestSendAlertWebhook(t *testing.T) {
	var received WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := SendAlertWebhook(srv.URL, "USM-001", -20.5, -30); err != nil {
		t.Fatalf("SendAlertWebhook: %v", err)
	}

	if received.Event != "noise_alert" {
		t.Errorf("event = %q, want noise_alert", received.Event)
	}
	if received.DeviceID != "USM-001" || received.LAeqDBFS != -20.5 || received.ThresholdDBFS != -30 {
		t.Errorf("unexpected payload: %+v", received)
	}
	if received.Timestamp == "" {
		t.Error("timestamp missing")
	}
}

func TestSendWebhookNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := SendRecoveryWebhook(srv.URL, "USM-001", -50, -30, 120); err == nil {
		t.Error("502 response not reported as error")
	}
}

func TestAlertLogAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.log")

	if err := LogAlertStart(path, "USM-001", -20, -30); err != nil {
		t.Fatalf("LogAlertStart: %v", err)
	}
	if err := LogAlertEnd(path, "USM-001", -50, -30, 90); err != nil {
		t.Fatalf("LogAlertEnd: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("log has %d lines, want 2", len(lines))
	}

	var entry alertLogEntry
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("parse entry: %v", err)
	}
	if entry.Event != "noise_recovered" || entry.DurationSeconds != 90 {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestSplitRecipients(t *testing.T) {
	got := splitRecipients(" a@example.com, ,b@example.com ,")
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Errorf("splitRecipients = %v", got)
	}
}

func TestValidateCredentials(t *testing.T) {
	valid := EmailConfig{
		TenantID:     "12345678-1234-1234-1234-123456789abc",
		ClientID:     "87654321-4321-4321-4321-cba987654321",
		ClientSecret: "secret",
	}
	if err := validateCredentials(&valid); err != nil {
		t.Errorf("valid credentials rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*EmailConfig)
	}{
		{"missing tenant ID", func(c *EmailConfig) { c.TenantID = "" }},
		{"tenant ID not a GUID", func(c *EmailConfig) { c.TenantID = "contoso" }},
		{"missing client ID", func(c *EmailConfig) { c.ClientID = "" }},
		{"client ID not a GUID", func(c *EmailConfig) { c.ClientID = "not-a-guid" }},
		{"missing client secret", func(c *EmailConfig) { c.ClientSecret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := validateCredentials(&cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEmailConfigIsConfigured(t *testing.T) {
	full := EmailConfig{
		TenantID:     "t",
		ClientID:     "c",
		ClientSecret: "s",
		FromAddress:  "from@example.com",
		Recipients:   "to@example.com",
	}
	if !full.IsConfigured() {
		t.Error("complete email config reported unconfigured")
	}

	partial := full
	partial.ClientSecret = ""
	if partial.IsConfigured() {
		t.Error("incomplete email config reported configured")
	}
}
