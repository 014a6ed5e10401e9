package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/env-sensor/internal/status"
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
	"stateClass": func(s fmt.Stringer) string {
		if s.String() == "CONNECTED" {
			return "connected"
		}
		return "disconnected"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Env Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.connected { color: green; }
.disconnected { color: red; }
.stale { color: orange; }
</style>
</head>
<body>
<h1>Env Sensor</h1>

<h2>Reading</h2>
<table>
{{if .HasRead}}<tr><th>Temperature</th><td id="temperature" class="{{if not .Reading.Valid}}stale{{end}}">{{printf "%.1f" .Reading.Temperature}} °C</td></tr>
<tr><th>Humidity</th><td id="humidity" class="{{if not .Reading.Valid}}stale{{end}}">{{printf "%.1f" .Reading.Humidity}} %</td></tr>
<tr><th>Sampled</th><td>{{.Reading.Time.UTC.Format "2006-01-02T15:04:05Z"}}{{if not .Reading.Valid}} (sensor read failed){{end}}</td></tr>
{{else}}<tr><th>Temperature</th><td id="temperature">waiting for first sample</td></tr>{{end}}
{{if .Phase}}<tr><th>Actuator</th><td id="phase">{{.Phase}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Link</th><td id="link" class="{{stateClass .Link}}">{{.Link}}</td></tr>
<tr><th>Session</th><td id="session" class="{{stateClass .Session}}">{{.Session}}</td></tr>
<tr><th>Server</th><td>{{.Config.Server}}:{{.Config.Port}}</td></tr>
{{if .Network}}<tr><th>SSID</th><td>{{.Network.SSID}} ({{.Network.BSSID}}, ch {{.Network.Channel}}, {{.Network.SignalStrength}} dBm)</td></tr>
<tr><th>IP</th><td>{{.Network.LocalAddress}}</td></tr>
<tr><th>MAC</th><td>{{.Network.MACAddress}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Readings</th><td>{{.Counts.Readings}}</td></tr>
<tr><th>Sensor failures</th><td>{{.Counts.SensorFailures}}</td></tr>
<tr><th>Published</th><td>{{.Counts.Published}}</td></tr>
<tr><th>Dropped</th><td>{{.Counts.Dropped}}</td></tr>
<tr><th>Session connects</th><td>{{.Counts.SessionConnects}}</td></tr>
<tr><th>Link drops</th><td>{{.Counts.LinkDrops}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Telemetry</th><td>{{.Config.TelemetryMs}}ms</td></tr>
<tr><th>Link check</th><td>{{.Config.LinkCheckMs}}ms</td></tr>
<tr><th>Session retry</th><td>{{.Config.SessionRetryMs}}ms</td></tr>
<tr><th>Tasks</th><td>{{range $i, $t := .Config.Tasks}}{{if $i}}, {{end}}{{$t}}{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  function set(id, text, cls) {
    var el = document.getElementById(id);
    if (!el) return;
    el.textContent = text;
    if (cls !== undefined) el.className = cls;
  }
  ws.onmessage = function(ev) {
    try {
      var st = JSON.parse(ev.data).status;
      set("link", st.link, st.link === "CONNECTED" ? "connected" : "disconnected");
      set("session", st.session, st.session === "CONNECTED" ? "connected" : "disconnected");
      if (st.reading) {
        var cls = st.reading.valid ? "" : "stale";
        set("temperature", st.reading.temperature.toFixed(1) + " °C", cls);
        set("humidity", st.reading.humidity.toFixed(1) + " %", cls);
      }
      if (st.phase) set("phase", st.phase);
    } catch (e) {}
  };
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
