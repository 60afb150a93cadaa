// Package monitor runs the duty-cycle capture loop: one burst per
// period, measured and persisted, then sleep until the next period
// boundary. The loop is strictly sequential; a cycle never overlaps
// the next one.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/soundscape-labs/noisewatch/internal/audio"
	"github.com/soundscape-labs/noisewatch/internal/dsp"
	"github.com/soundscape-labs/noisewatch/internal/eventlog"
	"github.com/soundscape-labs/noisewatch/internal/notify"
	"github.com/soundscape-labs/noisewatch/internal/types"
	"github.com/soundscape-labs/noisewatch/internal/util"
)

// Persister stores one recording unit per cycle.
type Persister interface {
	Persist(ctx context.Context, burst *audio.Burst, m types.Measurement) (types.RecordingUnit, error)
}

// Options configures a Monitor. Backend and Store are required; the
// rest is optional.
type Options struct {
	DeviceID     string
	InputDevice  string   // explicit device ID, empty = auto-select
	DeviceMatch  []string // name substrings for auto-selection
	SampleRate   int
	BurstSeconds int
	Period       time.Duration

	Backend audio.Backend
	Store   Persister
	Events  *eventlog.Logger      // optional
	Alerts  *notify.AlertNotifier // optional
	OnUnit  func(types.RecordingUnit)
}

// Monitor owns the capture loop state. All mutable state is guarded by
// mu so Status and Subscribe can be called from the HTTP server while
// the loop runs.
type Monitor struct {
	opts  Options
	chain dsp.Chain

	mu              sync.RWMutex
	state           types.MonitorState
	startedAt       time.Time
	cyclesCompleted int64
	cyclesFailed    int64
	lastError       string
	lastMeasurement *types.Measurement
	subscribers     map[chan types.Measurement]struct{}
}

// New returns a Monitor. The weighting filter chain is built once
// here; Filter resets its state per burst.
func New(opts Options) *Monitor {
	return &Monitor{
		opts:        opts,
		chain:       dsp.WeightingChain(opts.SampleRate),
		state:       types.StateIdle,
		subscribers: make(map[chan types.Measurement]struct{}),
	}
}

// Run executes capture cycles until ctx is cancelled. A failed cycle
// is logged and skipped; the cadence continues regardless.
func (m *Monitor) Run(ctx context.Context) {
	m.mu.Lock()
	m.startedAt = time.Now()
	m.mu.Unlock()

	slog.Info("monitor started",
		"device_id", m.opts.DeviceID,
		"period", m.opts.Period,
		"burst_seconds", m.opts.BurstSeconds,
		"sample_rate", m.opts.SampleRate)

	for {
		cycleStart := time.Now()

		measurement, err := m.runCycle(ctx)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			m.recordFailure(err)
		} else {
			m.recordSuccess(measurement)
		}

		if !m.sleepUntilNext(ctx, cycleStart) {
			break
		}
	}

	m.setState(types.StateStopped)
	slog.Info("monitor stopped")
}

// runCycle performs one capture, measure and store pass.
func (m *Monitor) runCycle(ctx context.Context) (types.Measurement, error) {
	m.setState(types.StateCapturing)

	devices, err := m.opts.Backend.Devices(ctx)
	if err != nil {
		return types.Measurement{}, util.WrapError("list devices", err)
	}
	device, err := audio.SelectInput(devices, m.opts.InputDevice, m.opts.DeviceMatch)
	if err != nil {
		return types.Measurement{}, err
	}

	burstLen := time.Duration(m.opts.BurstSeconds) * time.Second
	burst, err := m.opts.Backend.Capture(ctx, device, m.opts.SampleRate, burstLen)
	if err != nil {
		return types.Measurement{}, util.WrapError("capture burst", err)
	}

	m.setState(types.StateProcessing)
	weighted := m.chain.Filter(burst.Samples)
	level := dsp.LAeq(weighted)

	measurement := types.Measurement{
		DeviceID:      m.opts.DeviceID,
		CaptureDevice: device.Name,
		Timestamp:     burst.Start,
		Duration:      burst.Duration(),
		SampleRate:    burst.SampleRate,
		Channels:      1,
		LAeqDBFS:      dsp.ClampLevel(level),
	}

	m.setState(types.StateStoring)
	unit, err := m.opts.Store.Persist(ctx, burst, measurement)
	if err != nil {
		return types.Measurement{}, util.WrapError("store unit", err)
	}

	slog.Info("cycle complete",
		"base_name", unit.BaseName,
		"laeq_dbfs", measurement.LAeqDBFS,
		"capture_device", device.Name)
	m.logCycleEvent(eventlog.CycleComplete, "cycle complete", &eventlog.CycleDetails{
		BaseName: unit.BaseName,
		LAeqDBFS: measurement.LAeqDBFS,
		DeviceID: m.opts.DeviceID,
	})

	if m.opts.Alerts != nil {
		m.opts.Alerts.HandleMeasurement(measurement)
	}
	if m.opts.OnUnit != nil {
		m.opts.OnUnit(unit)
	}
	m.publish(measurement)

	return measurement, nil
}

// sleepUntilNext waits out the remainder of the period. An overrun
// cycle starts the next one immediately and the skipped sleep is
// recorded. Returns false when ctx was cancelled.
func (m *Monitor) sleepUntilNext(ctx context.Context, cycleStart time.Time) bool {
	remaining := m.opts.Period - time.Since(cycleStart)
	if remaining <= 0 {
		overrun := -remaining
		slog.Warn("cycle overran period, starting next immediately", "overrun", overrun)
		m.logCycleEvent(eventlog.SleepSkipped, "cycle overran period", &eventlog.CycleDetails{
			DeviceID:  m.opts.DeviceID,
			OverrunMs: overrun.Milliseconds(),
		})
		return ctx.Err() == nil
	}

	m.setState(types.StateSleeping)
	select {
	case <-ctx.Done():
		return false
	case <-time.After(remaining):
		return true
	}
}

// recordFailure logs a skipped cycle and updates counters.
func (m *Monitor) recordFailure(err error) {
	slog.Error("cycle failed, skipping", "error", err)
	m.logCycleEvent(eventlog.CycleFailed, "cycle failed", &eventlog.CycleDetails{
		DeviceID: m.opts.DeviceID,
		Error:    err.Error(),
	})

	m.mu.Lock()
	m.cyclesFailed++
	m.lastError = err.Error()
	m.mu.Unlock()
}

func (m *Monitor) recordSuccess(measurement types.Measurement) {
	m.mu.Lock()
	m.cyclesCompleted++
	m.lastError = ""
	m.lastMeasurement = &measurement
	m.mu.Unlock()
}

func (m *Monitor) setState(state types.MonitorState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}

func (m *Monitor) logCycleEvent(eventType eventlog.EventType, msg string, details *eventlog.CycleDetails) {
	if m.opts.Events == nil {
		return
	}
	if err := m.opts.Events.LogCycle(eventType, msg, details); err != nil {
		slog.Warn("failed to log cycle event", "error", err)
	}
}

// Status returns a snapshot of the monitor for the status API.
func (m *Monitor) Status() types.MonitorStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := types.MonitorStatus{
		State:           m.state,
		CyclesCompleted: m.cyclesCompleted,
		CyclesFailed:    m.cyclesFailed,
		LastError:       m.lastError,
		LastMeasurement: m.lastMeasurement,
	}
	if !m.startedAt.IsZero() {
		status.Uptime = time.Since(m.startedAt).Round(time.Second).String()
	}
	return status
}

// Subscribe registers a channel that receives every completed
// measurement. Slow subscribers miss measurements rather than stall
// the loop.
func (m *Monitor) Subscribe() chan types.Measurement {
	ch := make(chan types.Measurement, 8)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (m *Monitor) Unsubscribe(ch chan types.Measurement) {
	m.mu.Lock()
	if _, ok := m.subscribers[ch]; ok {
		delete(m.subscribers, ch)
		close(ch)
	}
	m.mu.Unlock()
}

func (m *Monitor) publish(measurement types.Measurement) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.subscribers {
		select {
		case ch <- measurement:
		default:
		}
	}
}
