// Command squat-coach scores squat reps from pose keypoints and publishes
// rep counts and form feedback to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/sweeney/squat-coach/internal/config"
	"github.com/sweeney/squat-coach/internal/gpio"
	"github.com/sweeney/squat-coach/internal/logging"
	"github.com/sweeney/squat-coach/internal/logic"
	"github.com/sweeney/squat-coach/internal/metrics"
	"github.com/sweeney/squat-coach/internal/mqtt"
	"github.com/sweeney/squat-coach/internal/pose"
	"github.com/sweeney/squat-coach/internal/pulse"
	"github.com/sweeney/squat-coach/internal/status"
	"github.com/sweeney/squat-coach/internal/store"
	"github.com/sweeney/squat-coach/internal/web"
)

type options struct {
	configPath string
	broker     string
	clientID   string
	heartbeat  time.Duration
	ledPin     int
	httpAddr   string
	dbPath     string
	replay     string
	wsBroker   string
	printState bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "TOML file with thresholds, session and log settings (empty for defaults)")
	flag.StringVar(&o.broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	flag.StringVar(&o.clientID, "client-id", "squat-coach", "MQTT client ID")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.IntVar(&o.ledPin, "led-pin", gpio.DefaultPinLED, "BCM pin number for the success LED (-1 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&o.dbPath, "db", "squat-coach.db", "SQLite history file (empty to disable)")
	flag.StringVar(&o.replay, "replay", "", `JSONL keypoint file to replay instead of subscribing ("-" for stdin)`)
	flag.StringVar(&o.wsBroker, "ws-broker", "=broker", `MQTT websocket URL for live UI ("=broker" derives from --broker, "off" disables)`)
	flag.BoolVar(&o.printState, "print-state", false, "Print effective settings and thresholds, then exit")

	flag.Parse()
	o.wsBroker = resolveWSBroker(o.wsBroker, o.broker)

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) (err error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Print state mode
	if o.printState {
		return printState(os.Stdout, o, cfg)
	}

	logCloser := logging.Setup(logging.SetupParams{
		Level:      cfg.Log.Level,
		FileName:   cfg.Log.File,
		ToStdout:   cfg.Log.Stdout,
		FormatJSON: cfg.Log.JSON,
	})
	defer func() { err = multierr.Append(err, logCloser.Close()) }()

	thresholds := cfg.LogicThresholds()
	policy := cfg.SessionPolicy()

	// Initialize LED
	led := openLED(o.ledPin, func(pin int) (gpio.LED, error) { return gpio.NewRealLED(pin) })
	if _, ok := led.(gpio.NopLED); ok {
		o.ledPin = -1
	}
	defer func() { err = multierr.Append(err, led.Close()) }()
	pulser := pulse.NewPulser(led, pulse.DefaultDuration)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewManager(metrics.Namespace, metrics.Subsystem, reg)

	source := "mqtt"
	if o.replay != "" {
		source = o.replay
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		HeartbeatMs:  o.heartbeat.Milliseconds(),
		Broker:       o.broker,
		HTTPPort:     o.httpAddr,
		Source:       source,
		LEDPin:       o.ledPin,
		SuccessAfter: policy.SuccessAfter,
		MaxAttempts:  policy.MaxAttempts,
		WSBroker:     o.wsBroker,
	})
	if ni := readNetworkInfo(); ni != nil {
		tracker.SetNetwork(ni)
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   o.broker,
		ClientID: o.clientID,
		OnConnectionChange: func(connected bool) {
			tracker.SetMQTTConnected(connected)
			m.SetConnected(connected)
		},
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer func() { err = multierr.Append(err, publisher.Close()) }()

	// Frame source
	var frames pose.Source
	if o.replay != "" {
		frames, err = openReplay(o.replay)
		if err != nil {
			return err
		}
	} else {
		frames, err = publisher.Subscribe(mqtt.SubscribeOptions{
			Capacity: mqtt.DefaultFrameQueue,
			OnDrop:   func() { m.Frame(metrics.FrameDropped) },
		})
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	defer func() { err = multierr.Append(err, frames.Close()) }()

	// History
	var history historyStore
	var sessions web.SessionLister
	if o.dbPath != "" {
		var db *store.DB
		db, err = store.Open(o.dbPath)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer func() { err = multierr.Append(err, db.Close()) }()
		history, sessions = db, db
	}

	l := newLoop(loopDeps{
		tracker:    logic.NewTracker(thresholds, time.Now()),
		policy:     policy,
		publisher:  publisher,
		mqttStatus: publisher,
		status:     tracker,
		history:    history,
		pulser:     pulser,
		metrics:    m,
		network:    readNetworkInfo,
		heartbeat:  o.heartbeat,
		now:        time.Now,
		newID:      uuid.NewString,
	})

	// Publish startup event with full status snapshot
	l.publishLifecycle(mqtt.EventStartup, "", true)

	// Start HTTP status server
	resets := make(chan struct{}, 1)
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, web.Deps{
			Sessions: sessions,
			Gatherer: reg,
			Resets:   resets,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", o.httpAddr)
	}

	log.Infof("started: source=%s broker=%s ws-broker=%q heartbeat=%v led-pin=%d success-after=%d max-attempts=%d",
		source, o.broker, o.wsBroker, o.heartbeat, o.ledPin, policy.SuccessAfter, policy.MaxAttempts)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return l.run(frames.Frames(), resets, ticker.C, sigCh)
}

func openReplay(path string) (*pose.ReplaySource, error) {
	if path == "-" {
		return pose.NewReplaySource(os.Stdin, time.Now), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}
	return pose.NewReplaySource(f, time.Now), nil
}

// openLED opens the success LED. A disabled pin or an unavailable GPIO chip
// yields a no-op LED so replay runs work on any host.
func openLED(pin int, open func(int) (gpio.LED, error)) gpio.LED {
	if pin < 0 {
		return gpio.NopLED{}
	}
	led, err := open(pin)
	if err != nil {
		log.Warnf("led: %v, continuing without success LED", err)
		return gpio.NopLED{}
	}
	return led
}

// printState writes the effective flags and TOML settings.
func printState(w io.Writer, o options, cfg config.Config) error {
	fmt.Fprintf(w, "# broker=%s ws-broker=%q http=%q db=%q led-pin=%d heartbeat=%v\n",
		o.broker, o.wsBroker, o.httpAddr, o.dbPath, o.ledPin, o.heartbeat)
	return cfg.Write(w)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; empty disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil || u.Hostname() == "" {
		log.Warnf("ws-broker: cannot derive from --broker %q", broker)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
