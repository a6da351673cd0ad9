package monitor

import "time"

// Detector turns successive reports into rail transition events.
type Detector struct {
	baselined     bool
	last          StatusField
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a new transition detector.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(startTime time.Time) *Detector {
	return &Detector{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes an engine report and returns any events that should be emitted.
// The first ready report establishes the baseline and emits nothing; warm-up
// reports are ignored entirely.
func (d *Detector) Process(report Report, now time.Time) []Event {
	if !report.Ready {
		return nil
	}

	if !d.baselined {
		d.baselined = true
		d.last = report.Status
		return nil
	}

	changed := (report.Status ^ d.last) & StatusMask
	d.last = report.Status
	if changed == 0 {
		return nil
	}

	var events []Event
	// Emit in bit order: 5V, VIO, 3V3
	for _, r := range Rails {
		if changed&r.Bit() == 0 {
			continue
		}
		e := Event{
			Timestamp:  now,
			Type:       EventRailBad,
			Rail:       r,
			Millivolts: report.Readings[r].Millivolts,
			Status:     report.Status,
		}
		if report.Status.Good(r) {
			e.Type = EventRailGood
			d.eventCounts.Good[r]++
		} else {
			d.eventCounts.Bad[r]++
		}
		events = append(events, e)
	}
	return events
}

// IsBaselined returns whether the detector has seen a ready report.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentStatus returns the last status field seen after baseline.
func (d *Detector) CurrentStatus() StatusField {
	return d.last
}

// EventCountsSnapshot returns a copy of the transition counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts,
	}
}
