package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/squat-coach/internal/logic"
	"github.com/sweeney/squat-coach/internal/mqtt"
	"github.com/sweeney/squat-coach/internal/status"
)

// mqttScript is the browser MQTT client loaded by the live page.
const mqttScript = "https://unpkg.com/mqtt@5.10.1/dist/mqtt.min.js"

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
	"stateLabel": func(s logic.PostureState) string { return status.StateLabel(string(s)) },
	"deg":        func(v float64) string { return fmt.Sprintf("%.1f°", v) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
{{if not .Config.WSBroker}}<meta http-equiv="refresh" content="2">{{end}}
<title>Squat Coach</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.correct { color: green; font-weight: bold; }
.incorrect { color: #c00; font-weight: bold; }
.fault { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.feedback { font-size: 1.3em; margin: 1em 0; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Squat Coach{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<p class="feedback" id="feedback">{{if .Feedback}}{{.Feedback}}{{else}}&nbsp;{{end}}</p>

<h2>Session</h2>
<table>
<tr><th>Correct</th><td id="correct" class="correct">{{.Counts.Correct}}</td></tr>
<tr><th>Incorrect</th><td id="incorrect" class="incorrect">{{.Counts.Incorrect}}</td></tr>
<tr><th>Goal</th><td>{{if gt .Config.SuccessAfter 0}}more than {{.Config.SuccessAfter}} correct{{else}}none{{end}}{{if gt .Config.MaxAttempts 0}}, {{.Config.MaxAttempts}} attempts max{{end}}</td></tr>
<tr><th>Session</th><td>{{if .SessionID}}{{.SessionID}}{{else}}none{{end}}</td></tr>
<tr><th>Last result</th><td>{{if .LastOutcome}}{{.LastOutcome}}{{else}}-{{end}} ({{.Sessions}} ended)</td></tr>
</table>
{{if .ResetEnabled}}<form method="post" action="/reset"><input type="hidden" name="redirect" value="1"><button type="submit">Restart session</button></form>{{end}}

<h2>Posture</h2>
<table>
<tr><th>State</th><td id="state">{{stateLabel .State}}</td></tr>
<tr><th>Fault this rep</th><td class="{{if .FaultRaised}}fault{{end}}">{{if .FaultRaised}}yes{{else}}no{{end}}</td></tr>
<tr><th>Knee</th><td>{{deg .Angles.Knee}}</td></tr>
<tr><th>Hip</th><td>{{deg .Angles.Hip}}</td></tr>
<tr><th>Ankle</th><td>{{deg .Angles.Ankle}}</td></tr>
</table>

<h2>Frames</h2>
<table>
<tr><th>Processed</th><td>{{.Frames}}</td></tr>
<tr><th>Missing landmarks</th><td>{{.Skipped}}</td></tr>
<tr><th>Stale</th><td>{{.Stale}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
<tr><th>Source</th><td>{{.Config.Source}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>LED</th><td>{{if lt .Config.LEDPin 0}}disabled{{else}}GPIO {{.Config.LEDPin}}{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/sessions.json">Sessions</a> · <a href="/metrics">Metrics</a></p>
{{if .Config.WSBroker}}
<script src="{{.MQTTScript}}"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var repsTopic = "{{.RepsTopic}}";
  var systemTopic = "{{.SystemTopic}}";
  var dot = document.getElementById("live-dot");
  var correctEl = document.getElementById("correct");
  var incorrectEl = document.getElementById("incorrect");
  var feedbackEl = document.getElementById("feedback");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe([repsTopic, systemTopic]);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (t === repsTopic && msg.rep) {
        correctEl.textContent = msg.rep.counts.correct;
        incorrectEl.textContent = msg.rep.counts.incorrect;
        if (msg.rep.feedback) {
          feedbackEl.textContent = msg.rep.feedback;
        }
      } else if (t === systemTopic && msg.status && msg.status.event === "SESSION_END") {
        correctEl.textContent = "0";
        incorrectEl.textContent = "0";
        feedbackEl.textContent = "Session over: " + msg.status.reason;
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, resetEnabled bool) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime       time.Duration
		ResetEnabled bool
		MQTTScript   string
		RepsTopic    string
		SystemTopic  string
	}{
		Snapshot:     snap,
		Uptime:       snap.Uptime(),
		ResetEnabled: resetEnabled,
		MQTTScript:   mqttScript,
		RepsTopic:    mqtt.Topic,
		SystemTopic:  mqtt.TopicSystem,
	}
	indexTmpl.Execute(w, data)
}
