package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/testpod-monitor/internal/monitor"
	"github.com/sweeney/testpod-monitor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"bits": func(v uint8) string {
		return fmt.Sprintf("%03b", v&0x7)
	},
	"hexaddr": func(a uint8) string {
		if a == 0 {
			return "none"
		}
		return fmt.Sprintf("0x%02x", a)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Test Pod Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.GOOD { color: green; font-weight: bold; }
.BAD { color: red; font-weight: bold; }
.PENDING { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Test Pod Monitor</h1>
<table>
<tr><th>Rail</th><th>State</th><th>mV</th><th>Window (mV)</th><th>Good</th><th>Bad</th></tr>
{{range .Rails}}<tr><td>{{.Name}}</td><td class="{{.State}}">{{.State}}</td><td>{{.Millivolts}}</td><td>{{.Low}} &ndash; {{.High}}</td><td>{{.Good}}</td><td>{{.Bad}}</td></tr>
{{end}}</table>
<table>
<tr><th>Status field</th><td>{{bits .Field}}</td></tr>
<tr><th>Status pins</th><td>{{bits .Report.Pins}} ({{.Mode}})</td></tr>
<tr><th>Iterations</th><td>{{.Iterations}}</td></tr>
<tr><th>DNA address</th><td>{{hexaddr .I2CAddress}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>MQTT</th><td>{{if .Config.Broker}}{{if .MQTTConnected}}<span class="connected">connected</span>{{else}}<span class="disconnected">disconnected</span>{{end}} ({{.Config.Broker}}){{else}}disabled{{end}}</td></tr>
{{with .Network}}<tr><th>Network</th><td>{{.Type}} {{.IP}} ({{.Status}}){{if .SSID}} {{.SSID}}{{end}}</td></tr>
{{end}}</table>
<p><a href="/index.json">index.json</a></p>
</body>
</html>
`

type railRow struct {
	Name       string
	State      string
	Millivolts uint32
	Low, High  uint32
	Good, Bad  int
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]railRow, 0, monitor.NumRails)
	for _, r := range monitor.Rails {
		rd := snap.Report.Readings[r]
		rows = append(rows, railRow{
			Name:       r.String(),
			State:      status.RailState(rd),
			Millivolts: rd.Millivolts,
			Low:        monitor.Windows[r].Low,
			High:       monitor.Windows[r].High,
			Good:       snap.Counts.Good[r],
			Bad:        snap.Counts.Bad[r],
		})
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Field  uint8
		Mode   string
		Rails  []railRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Field:    uint8(snap.Report.Status & monitor.StatusMask),
		Mode:     status.ModeName(snap.Report.Direct),
		Rails:    rows,
	}
	indexTmpl.Execute(w, data)
}
