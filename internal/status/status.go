// Package status provides a thread-safe status tracker for the testpod-monitor daemon.
// It is written by the run loop and read by HTTP handlers and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/testpod-monitor/internal/monitor"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	ADCDriver   string
	I2CBus      int // -1 when the DNA slave is disabled
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Report        monitor.Report
	Iterations    uint64
	Baselined     bool
	Counts        monitor.EventCounts
	I2CAddress    uint8 // 0 when the DNA slave is not running
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	t := &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
	for _, r := range monitor.Rails {
		t.snap.Report.Readings[r].Rail = r
	}
	return t
}

// Update records the latest engine report, baseline status and event counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(report monitor.Report, iterations uint64, baselined bool, counts monitor.EventCounts) {
	t.mu.Lock()
	t.snap.Report = report
	t.snap.Iterations = iterations
	t.snap.Baselined = baselined
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetI2CAddress records the address the DNA slave answers on.
func (t *Tracker) SetI2CAddress(addr uint8) {
	t.mu.Lock()
	t.snap.I2CAddress = addr
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
