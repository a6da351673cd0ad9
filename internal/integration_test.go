package internal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sweeney/testpod-monitor/internal/adc"
	"github.com/sweeney/testpod-monitor/internal/dna"
	"github.com/sweeney/testpod-monitor/internal/gpio"
	"github.com/sweeney/testpod-monitor/internal/monitor"
	"github.com/sweeney/testpod-monitor/internal/mqtt"
	"github.com/sweeney/testpod-monitor/internal/status"
)

func repeat(v uint16, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]uint16) []uint16 {
	var out []uint16
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func modes(direct bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = direct
	}
	return out
}

type harness struct {
	conv      *adc.Fake
	pins      *gpio.FakePort
	engine    *monitor.Engine
	detector  *monitor.Detector
	publisher *mqtt.FakePublisher
	tracker   *status.Tracker
	start     time.Time
}

func newHarness(conv *adc.Fake, pins *gpio.FakePort) *harness {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return &harness{
		conv:      conv,
		pins:      pins,
		engine:    monitor.NewEngine(conv, pins, monitor.DefaultChannels),
		detector:  monitor.NewDetector(start),
		publisher: mqtt.NewFakePublisher(),
		tracker:   status.NewTracker(start, status.Config{PollMs: 10}),
		start:     start,
	}
}

// run simulates n iterations of the main loop, returning the step at which
// each published event occurred.
func (h *harness) run(t *testing.T, n int) []int {
	t.Helper()
	var at []int
	for i := 1; i <= n; i++ {
		now := h.start.Add(time.Duration(i) * 10 * time.Millisecond)
		report, err := h.engine.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		for _, event := range h.detector.Process(report, now) {
			if err := h.publisher.Publish(event); err != nil {
				t.Fatalf("step %d: publish error: %v", i, err)
			}
			at = append(at, i)
		}
		h.tracker.Update(report, h.engine.Iterations(), h.detector.IsBaselined(), h.detector.EventCountsSnapshot())
	}
	return at
}

// TestIntegrationFullFlow drives a 5V dropout and recovery through the ring
// averages, with the host flipping polarity part way through.
func TestIntegrationFullFlow(t *testing.T) {
	conv := adc.NewFake(map[uint8][]uint16{
		1: concat(repeat(310, 10), repeat(0, 5), repeat(310, 1)),
		2: {113},
		3: {205},
	})
	pins := gpio.NewFakePort(append(modes(true, 20), false)...)
	h := newHarness(conv, pins)

	at := h.run(t, 25)

	events := h.publisher.Events
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Type != monitor.EventRailBad || events[0].Rail != monitor.Rail5V || at[0] != 12 {
		t.Errorf("event 0: %s %s at step %d, want RAIL_BAD 5V at 12", events[0].Type, events[0].Rail, at[0])
	}
	if events[1].Type != monitor.EventRailGood || events[1].Rail != monitor.Rail5V || at[1] != 24 {
		t.Errorf("event 1: %s %s at step %d, want RAIL_GOOD 5V at 24", events[1].Type, events[1].Rail, at[1])
	}

	w := pins.Writes
	if len(w) != 25 {
		t.Fatalf("expected 25 pin writes, got %d", len(w))
	}
	wantPins := map[int]uint8{
		9:  0b000, // still warming up
		10: 0b111, // first full window
		12: 0b110, // 5V dropped
		20: 0b110, // last direct read
		21: 0b001, // inverted: 5V still bad
		25: 0b000, // inverted: all good
	}
	for step, want := range wantPins {
		if w[step-1] != want {
			t.Errorf("pins after step %d: got %03b, want %03b", step, w[step-1], want)
		}
	}

	snap := h.tracker.Snapshot()
	if snap.Counts.Bad[monitor.Rail5V] != 1 || snap.Counts.Good[monitor.Rail5V] != 1 {
		t.Errorf("5V counts: %+v", snap.Counts)
	}
	if snap.Report.Direct {
		t.Error("expected inverted mode in final report")
	}
}

func TestIntegrationNoEventsDuringWarmup(t *testing.T) {
	conv := adc.NewFake(map[uint8][]uint16{1: {0}, 2: {0}, 3: {0}})
	h := newHarness(conv, gpio.NewFakePort(true))

	h.run(t, monitor.WindowSize-1)

	if h.detector.IsBaselined() {
		t.Error("should not be baselined before the window fills")
	}
	if len(h.publisher.Events) != 0 {
		t.Errorf("expected no events, got %d", len(h.publisher.Events))
	}

	h.run(t, 1)
	if !h.detector.IsBaselined() {
		t.Error("expected baseline once the window filled")
	}
	if len(h.publisher.Events) != 0 {
		t.Errorf("baseline must not emit events, got %d", len(h.publisher.Events))
	}
}

func TestIntegrationSimultaneousTransitions(t *testing.T) {
	conv := adc.NewFake(map[uint8][]uint16{
		1: concat(repeat(310, 10), repeat(1023, 1)),
		2: {113},
		3: concat(repeat(205, 10), repeat(1023, 1)),
	})
	h := newHarness(conv, gpio.NewFakePort(true))

	h.run(t, 15)

	events := h.publisher.Events
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	// Bit order: 5V before 3V3
	if events[0].Rail != monitor.Rail5V || events[1].Rail != monitor.Rail3V3 {
		t.Errorf("event order: %s, %s", events[0].Rail, events[1].Rail)
	}
	for _, e := range events {
		if e.Type != monitor.EventRailBad {
			t.Errorf("%s: got %s, want RAIL_BAD", e.Rail, e.Type)
		}
	}
}

func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	conv := adc.NewFake(map[uint8][]uint16{
		1: {310},
		2: concat(repeat(113, 10), repeat(0, 1)),
		3: {205},
	})
	h := newHarness(conv, gpio.NewFakePort(true))
	h.publisher.PublishError = errors.New("broker gone")

	for i := 0; i < 15; i++ {
		report, err := h.engine.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		for _, e := range h.detector.Process(report, time.Now()) {
			if err := h.publisher.Publish(e); err == nil {
				t.Error("expected publish error")
			}
		}
	}
	if got := h.detector.EventCountsSnapshot().Bad[monitor.RailVIO]; got != 1 {
		t.Errorf("VIO bad count: got %d, want 1", got)
	}
}

func TestIntegrationStatusJSON(t *testing.T) {
	conv := adc.NewFake(map[uint8][]uint16{1: {310}, 2: {113}, 3: {205}})
	h := newHarness(conv, gpio.NewFakePort(false))
	h.tracker.SetI2CAddress(0x3f)

	h.run(t, monitor.WindowSize)

	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(h.tracker.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if !s.Ready || s.Field != 7 || s.Pins != 0 || s.Mode != "inverted" {
		t.Errorf("unexpected status: ready=%v field=%d pins=%d mode=%s", s.Ready, s.Field, s.Pins, s.Mode)
	}
	if s.I2CAddress != "0x3f" {
		t.Errorf("i2c_address: got %q", s.I2CAddress)
	}
	for _, r := range s.Rails {
		if r.State != "GOOD" {
			t.Errorf("%s: got %s, want GOOD", r.Rail, r.State)
		}
	}
}

func TestIntegrationShutdownEvent(t *testing.T) {
	conv := adc.NewFake(map[uint8][]uint16{1: {310}, 2: {113}, 3: {205}})
	h := newHarness(conv, gpio.NewFakePort(true))
	h.run(t, 12)

	snap := h.tracker.Snapshot()
	err := h.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "SHUTDOWN",
		Reason:     "SIGTERM",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM"),
	})
	if err != nil {
		t.Fatalf("publish shutdown: %v", err)
	}

	var parsed status.StatusJSON
	if err := json.Unmarshal(h.publisher.SystemPayloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
	if parsed.Status.Iterations != 12 {
		t.Errorf("iterations: got %d, want 12", parsed.Status.Iterations)
	}
}

// TestIntegrationDNABringUpThenMonitor shares one converter between the
// one-shot RGA read and the rail loop, with the slave backed by a fake sysfs tree.
func TestIntegrationDNABringUpThenMonitor(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"i2c-1", "1-103f"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	slave := dna.NewSysfsSlave(1)
	slave.Root = root
	slave.Refresh = 10 * time.Millisecond

	conv := adc.NewFake(map[uint8][]uint16{0: {47}, 1: {310}, 2: {113}, 3: {205}})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := dna.BringUp(ctx, conv, 0, slave, dna.DefaultRegisters())
	if err != nil {
		t.Fatalf("bring-up: %v", err)
	}
	if session == nil || session.Address != 0x3f {
		t.Fatalf("expected session at 0x3f, got %+v", session)
	}

	img, err := os.ReadFile(filepath.Join(root, "1-103f", "slave-eeprom"))
	if err != nil {
		t.Fatalf("read eeprom: %v", err)
	}
	if len(img) != dna.ImageSize {
		t.Fatalf("image size: got %d, want %d", len(img), dna.ImageSize)
	}
	if img[4] != 0x04 || img[6] != 0xFF {
		t.Errorf("unexpected register image: % x", img[:8])
	}
	if img[dna.DNABase] != 0xFF {
		t.Errorf("dna store: got %#x, want erased", img[dna.DNABase])
	}

	h := newHarness(conv, gpio.NewFakePort(true))
	h.run(t, monitor.WindowSize)
	if h.engine.Status() != 0b111 {
		t.Errorf("status: got %03b, want 111", h.engine.Status())
	}

	cancel()
	select {
	case <-session.Done():
	case <-time.After(time.Second):
		t.Fatal("slave did not stop")
	}
	b, err := os.ReadFile(filepath.Join(root, "i2c-1", "delete_device"))
	if err != nil || string(b) != "0x103f\n" {
		t.Errorf("delete_device: %q, %v", b, err)
	}
}
