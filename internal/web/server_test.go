package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/testpod-monitor/internal/monitor"
	"github.com/sweeney/testpod-monitor/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      10,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPPort:    ":80",
		ADCDriver:   "spidev",
		I2CBus:      1,
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func report(field monitor.StatusField, direct bool) monitor.Report {
	rep := monitor.Report{Status: field, Pins: field.Encode(direct), Direct: direct, Ready: true}
	mv := [monitor.NumRails]uint32{1000, 401, 660}
	for _, r := range monitor.Rails {
		rep.Readings[r] = monitor.Reading{Rail: r, Millivolts: mv[r], InSpec: field.Good(r), Valid: true}
	}
	return rep
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	counts := monitor.EventCounts{}
	counts.Bad[monitor.RailVIO] = 1
	tr.Update(report(0x5, true), 120, true, counts)
	tr.SetMQTTConnected(true)
	tr.SetI2CAddress(0x3a)

	resp, body := get(t, ts.URL+"/index.json")

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.Unmarshal([]byte(body), &sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Field != 5 {
		t.Errorf("status_field: got %d, want 5", sj.Status.Field)
	}
	if sj.Status.Pins != 5 {
		t.Errorf("status_pins: got %d, want 5", sj.Status.Pins)
	}
	if sj.Status.Rails[1].State != "BAD" {
		t.Errorf("VIO state: got %q, want BAD", sj.Status.Rails[1].State)
	}
	if sj.Status.Counts["VIO"].Bad != 1 {
		t.Errorf("VIO bad count: got %d, want 1", sj.Status.Counts["VIO"].Bad)
	}
	if sj.Status.Iterations != 120 {
		t.Errorf("iterations: got %d, want 120", sj.Status.Iterations)
	}
	if sj.Status.I2CAddress != "0x3a" {
		t.Errorf("i2c_address: got %q, want 0x3a", sj.Status.I2CAddress)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected")
	}
}

func TestHTMLEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(report(0x3, false), 50, true, monitor.EventCounts{})
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "Lab"})

	for _, path := range []string{"/", "/index.html"} {
		resp, body := get(t, ts.URL+path)
		if resp.StatusCode != 200 {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s Content-Type: got %q", path, ct)
		}
		for _, want := range []string{
			"Test Pod Monitor",
			`<td>5V</td><td class="GOOD">GOOD</td>`,
			`<td>3V3</td><td class="BAD">BAD</td>`,
			"<td>011</td>",
			"100 (inverted)",
			"192.168.1.42",
			"Lab",
			"disconnected",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("%s: body missing %q", path, want)
			}
		}
	}
}

func TestHTMLWarmup(t *testing.T) {
	ts, _ := newTestServer(t)

	_, body := get(t, ts.URL+"/")
	if strings.Count(body, `class="PENDING"`) != 3 {
		t.Errorf("expected three pending rails:\n%s", body)
	}
	if !strings.Contains(body, "<td>none</td>") {
		t.Error("expected no DNA address during warm-up")
	}
}

func TestHTMLMQTTDisabled(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr).httpServer.Handler)
	defer ts.Close()

	_, body := get(t, ts.URL+"/")
	if !strings.Contains(body, "<td>disabled</td>") {
		t.Error("expected MQTT shown as disabled")
	}
}

func TestNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStatusHeaders(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(report(0x5, false), 10, true, monitor.EventCounts{})

	for _, path := range []string{"/", "/index.json", "/rails/5v"} {
		resp, _ := get(t, ts.URL+path)
		if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
			t.Errorf("%s Cache-Control: got %q, want no-store", path, cc)
		}
		// inverted mode drives ^101 = 010
		if st := resp.Header.Get("X-Testpod-Status"); st != "010" {
			t.Errorf("%s X-Testpod-Status: got %q, want 010", path, st)
		}
		if m := resp.Header.Get("X-Testpod-Mode"); m != "inverted" {
			t.Errorf("%s X-Testpod-Mode: got %q, want inverted", path, m)
		}
	}
}

func TestRailEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(report(0x5, true), 10, true, monitor.EventCounts{})

	tests := []struct {
		path  string
		rail  string
		state string
		mv    uint32
	}{
		{"/rails/5V", "5V", "GOOD", 1000},
		{"/rails/vio", "VIO", "BAD", 401},
		{"/rails/3v3.json", "3V3", "GOOD", 660},
	}
	for _, tt := range tests {
		resp, body := get(t, ts.URL+tt.path)
		if resp.StatusCode != 200 {
			t.Fatalf("%s: status %d", tt.path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s Content-Type: got %q", tt.path, ct)
		}
		var rj status.RailJSON
		if err := json.Unmarshal([]byte(body), &rj); err != nil {
			t.Fatalf("%s: decode: %v", tt.path, err)
		}
		if rj.Rail != tt.rail || rj.State != tt.state || rj.Millivolts != tt.mv {
			t.Errorf("%s: got %+v", tt.path, rj)
		}
	}
}

func TestRailEndpointErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := get(t, ts.URL+"/rails/12v")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown rail: got %d, want 404", resp.StatusCode)
	}

	resp, err := http.Post(ts.URL+"/rails/vio", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST: got %d, want 405", resp.StatusCode)
	}
}
