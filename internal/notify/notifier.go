// Package notify delivers noise alert notifications through webhook,
// log file and email channels. An alert episode starts when a cycle's
// LAeq crosses the configured threshold and ends on the first cycle
// back below it; each channel fires once per episode.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/soundscape-labs/noisewatch/internal/dsp"
	"github.com/soundscape-labs/noisewatch/internal/eventlog"
	"github.com/soundscape-labs/noisewatch/internal/types"
	"github.com/soundscape-labs/noisewatch/internal/util"
)

// timestampUTC returns the current UTC time in RFC3339 format.
func timestampUTC() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// EmailConfig holds Microsoft Graph email notification settings.
type EmailConfig struct {
	TenantID     string `json:"tenant_id,omitempty"`
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	FromAddress  string `json:"from_address,omitempty"`
	Recipients   string `json:"recipients,omitempty"` // comma-separated
}

// IsConfigured reports whether all email fields are set.
func (e *EmailConfig) IsConfigured() bool {
	return util.IsConfigured(e.TenantID, e.ClientID, e.ClientSecret, e.FromAddress, e.Recipients)
}

// Config holds the alert threshold and the notification channels.
// ThresholdDBFS of 0 disables alerting entirely (valid thresholds are
// negative, dBFS referenced).
type Config struct {
	ThresholdDBFS float64     `json:"threshold_dbfs,omitempty"`
	WebhookURL    string      `json:"webhook_url,omitempty"`
	LogPath       string      `json:"log_path,omitempty"`
	Email         EmailConfig `json:"email,omitempty"`
}

// AlertNotifier tracks alert episodes across cycles. It is safe for
// concurrent use.
type AlertNotifier struct {
	cfg      Config
	deviceID string
	events   *eventlog.Logger // optional

	mu           sync.Mutex
	active       bool
	episodeStart time.Time
	graphClient  *GraphClient // cached across episodes
}

// NewAlertNotifier returns an AlertNotifier. events may be nil.
func NewAlertNotifier(cfg Config, deviceID string, events *eventlog.Logger) *AlertNotifier {
	return &AlertNotifier{cfg: cfg, deviceID: deviceID, events: events}
}

// Enabled reports whether a threshold is configured.
func (n *AlertNotifier) Enabled() bool {
	return n.cfg.ThresholdDBFS != 0
}

// HandleMeasurement evaluates one cycle's level against the threshold
// and fires start or recovery notifications on state transitions.
func (n *AlertNotifier) HandleMeasurement(m types.Measurement) {
	if !n.Enabled() {
		return
	}

	// Levels at the clamp floor are silence; they never open an episode
	// even against a threshold at the floor itself.
	level := dsp.ClampLevel(m.LAeqDBFS)
	loud := level > dsp.LevelFloorDBFS && level >= n.cfg.ThresholdDBFS

	n.mu.Lock()
	justStarted := loud && !n.active
	justEnded := !loud && n.active
	if justStarted {
		n.active = true
		n.episodeStart = m.Timestamp
	}
	var episodeSecs float64
	if justEnded {
		n.active = false
		episodeSecs = m.Timestamp.Sub(n.episodeStart).Seconds()
	}
	n.mu.Unlock()

	switch {
	case justStarted:
		slog.Warn("noise threshold exceeded", "laeq_dbfs", level, "threshold_dbfs", n.cfg.ThresholdDBFS)
		n.logEvent(eventlog.AlertStart, level, 0)
		n.fanOutStart(level)
	case justEnded:
		slog.Info("noise level recovered", "laeq_dbfs", level, "episode_seconds", episodeSecs)
		n.logEvent(eventlog.AlertEnd, level, episodeSecs)
		n.fanOutEnd(level, episodeSecs)
	}
}

// Reset clears the episode state.
func (n *AlertNotifier) Reset() {
	n.mu.Lock()
	n.active = false
	n.episodeStart = time.Time{}
	n.mu.Unlock()
}

// logEvent records the transition in the event log when one is attached.
func (n *AlertNotifier) logEvent(eventType eventlog.EventType, level, episodeSecs float64) {
	if n.events == nil {
		return
	}
	if err := n.events.LogAlert(eventType, level, n.cfg.ThresholdDBFS, episodeSecs); err != nil {
		slog.Warn("failed to log alert event", "error", err)
	}
}

// fanOutStart fires the configured channels for an episode start.
func (n *AlertNotifier) fanOutStart(level float64) {
	if n.cfg.WebhookURL != "" {
		go util.LogNotifyResult(func() error {
			return SendAlertWebhook(n.cfg.WebhookURL, n.deviceID, level, n.cfg.ThresholdDBFS)
		}, "webhook")
	}
	if n.cfg.LogPath != "" {
		go util.LogNotifyResult(func() error {
			return LogAlertStart(n.cfg.LogPath, n.deviceID, level, n.cfg.ThresholdDBFS)
		}, "log")
	}
	if n.cfg.Email.IsConfigured() {
		go util.LogNotifyResult(func() error {
			return n.sendEmail(alertStartSubject(n.deviceID), alertStartBody(n.deviceID, level, n.cfg.ThresholdDBFS))
		}, "email")
	}
}

// fanOutEnd fires the configured channels for an episode end.
func (n *AlertNotifier) fanOutEnd(level, episodeSecs float64) {
	if n.cfg.WebhookURL != "" {
		go util.LogNotifyResult(func() error {
			return SendRecoveryWebhook(n.cfg.WebhookURL, n.deviceID, level, n.cfg.ThresholdDBFS, episodeSecs)
		}, "webhook")
	}
	if n.cfg.LogPath != "" {
		go util.LogNotifyResult(func() error {
			return LogAlertEnd(n.cfg.LogPath, n.deviceID, level, n.cfg.ThresholdDBFS, episodeSecs)
		}, "log")
	}
	if n.cfg.Email.IsConfigured() {
		go util.LogNotifyResult(func() error {
			return n.sendEmail(alertEndSubject(n.deviceID), alertEndBody(n.deviceID, level, episodeSecs))
		}, "email")
	}
}

// sendEmail delivers through the cached Graph client, creating it on
// first use.
func (n *AlertNotifier) sendEmail(subject, body string) error {
	n.mu.Lock()
	client := n.graphClient
	n.mu.Unlock()

	if client == nil {
		var err error
		client, err = NewGraphClient(&n.cfg.Email)
		if err != nil {
			return err
		}
		n.mu.Lock()
		n.graphClient = client
		n.mu.Unlock()
	}

	return client.SendMail(splitRecipients(n.cfg.Email.Recipients), subject, body)
}
