package status

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/testpod-monitor/internal/monitor"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Ready         bool         `json:"ready"`
	Baselined     bool         `json:"baselined"`
	Field         uint8        `json:"status_field"`
	Pins          uint8        `json:"status_pins"`
	Mode          string       `json:"mode"`
	Rails         []RailJSON   `json:"rails"`
	Iterations    uint64       `json:"iterations"`
	I2CAddress    string       `json:"i2c_address,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// RailJSON is the JSON representation of one rail reading.
type RailJSON struct {
	Rail       string `json:"rail"`
	State      string `json:"state"`
	Average    uint16 `json:"average"`
	Millivolts uint32 `json:"millivolts"`
	Window     string `json:"window"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// RailCounts is the number of transitions in each direction for one rail.
type RailCounts struct {
	Good int `json:"good"`
	Bad  int `json:"bad"`
}

// CountsJSON is the JSON representation of event counts, keyed by rail name.
type CountsJSON map[string]RailCounts

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	ADCDriver   string `json:"adc_driver"`
	I2CBus      int    `json:"i2c_bus"`
}

// RailState returns GOOD, BAD or PENDING for a reading.
func RailState(r monitor.Reading) string {
	switch {
	case !r.Valid:
		return "PENDING"
	case r.InSpec:
		return "GOOD"
	default:
		return "BAD"
	}
}

// ModeName returns the reporting polarity selected by the mode pin.
func ModeName(direct bool) string {
	if direct {
		return "direct"
	}
	return "inverted"
}

// FormatCounts converts per-rail counts to their JSON form.
func FormatCounts(c monitor.EventCounts) CountsJSON {
	out := CountsJSON{}
	for _, r := range monitor.Rails {
		out[r.String()] = RailCounts{Good: c.Good[r], Bad: c.Bad[r]}
	}
	return out
}

func buildRails(report monitor.Report) []RailJSON {
	rails := make([]RailJSON, 0, monitor.NumRails)
	for _, r := range monitor.Rails {
		rd := report.Readings[r]
		w := monitor.Windows[r]
		rails = append(rails, RailJSON{
			Rail:       r.String(),
			State:      RailState(rd),
			Average:    rd.Average,
			Millivolts: rd.Millivolts,
			Window:     fmt.Sprintf("(%d, %d)", w.Low, w.High),
		})
	}
	return rails
}

// FindRail returns the JSON form of the rail called name, ignoring case.
func FindRail(report monitor.Report, name string) (RailJSON, bool) {
	for _, rj := range buildRails(report) {
		if strings.EqualFold(rj.Rail, name) {
			return rj, true
		}
	}
	return RailJSON{}, false
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.Report.Ready,
		Baselined:     snap.Baselined,
		Field:         uint8(snap.Report.Status & monitor.StatusMask),
		Pins:          snap.Report.Pins,
		Mode:          ModeName(snap.Report.Direct),
		Rails:         buildRails(snap.Report),
		Iterations:    snap.Iterations,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:        FormatCounts(snap.Counts),
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			ADCDriver:   snap.Config.ADCDriver,
			I2CBus:      snap.Config.I2CBus,
		},
	}
	if snap.I2CAddress != 0 {
		inner.I2CAddress = fmt.Sprintf("0x%02x", snap.I2CAddress)
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
