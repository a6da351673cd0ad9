// Command testpod-monitor watches the test pod's supply rails and drives the
// rail status pins. It also serves the SYZYGY DNA over I2C and can publish
// rail transitions to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/testpod-monitor/internal/adc"
	"github.com/sweeney/testpod-monitor/internal/config"
	"github.com/sweeney/testpod-monitor/internal/dna"
	"github.com/sweeney/testpod-monitor/internal/gpio"
	"github.com/sweeney/testpod-monitor/internal/monitor"
	"github.com/sweeney/testpod-monitor/internal/mqtt"
	"github.com/sweeney/testpod-monitor/internal/status"
	"github.com/sweeney/testpod-monitor/internal/web"
)

// cliFlags holds the command line values that can override the config file.
type cliFlags struct {
	poll      time.Duration
	broker    string
	heartbeat time.Duration
	httpAddr  string
	driver    string
}

func main() {
	def := config.Default()

	configPath := flag.String("config", "", "YAML wiring file (optional)")
	var f cliFlags
	flag.DurationVar(&f.poll, "poll", def.Poll, "Monitoring loop interval")
	flag.StringVar(&f.broker, "broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	flag.DurationVar(&f.heartbeat, "heartbeat", def.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	flag.StringVar(&f.httpAddr, "http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	flag.StringVar(&f.driver, "adc", def.ADC.Driver, `ADC driver ("spidev" or "bitbang")`)
	printState := flag.Bool("print-state", false, "Run one averaging window, print rail state and exit")

	flag.Parse()

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	applyFlags(cfg, f, set)

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags copies explicitly set flags over the loaded config.
func applyFlags(cfg *config.Config, f cliFlags, set map[string]bool) {
	if set["poll"] {
		cfg.Poll = f.poll
	}
	if set["broker"] {
		cfg.MQTT.Broker = f.broker
	}
	if set["heartbeat"] {
		cfg.MQTT.Heartbeat = f.heartbeat
	}
	if set["http"] {
		cfg.HTTP.Addr = f.httpAddr
	}
	if set["adc"] {
		cfg.ADC.Driver = f.driver
	}
}

func run(cfg *config.Config, printState bool) error {
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Initialize GPIO
	port, err := gpio.NewRealPort(cfg.GPIO.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer port.Close()

	// Initialize ADC
	conv, err := adc.Open(cfg.ADCOptions())
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer conv.Close()

	engine := monitor.NewEngine(conv, port, cfg.Channels())

	// Print state mode
	if printState {
		return printRailState(os.Stdout, engine)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
		ADCDriver:   cfg.ADC.Driver,
		I2CBus:      i2cBus(cfg),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DNA bring-up happens once, before monitoring starts
	var session *dna.Session
	if cfg.I2C.Enabled {
		slave := dna.NewSysfsSlave(cfg.I2C.Bus)
		slave.Root = cfg.I2C.Sysfs
		slave.Refresh = cfg.I2C.Refresh
		session = bringUpDNA(ctx, conv, cfg.ADC.Channels.RGA, slave, tracker)
	}

	// Initialize MQTT
	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		defer p.Close()
		publisher, mqttStatus = p, p

		// Publish startup event with full status snapshot
		tracker.SetMQTTConnected(p.IsConnected())
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := publisher.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: poll=%v adc=%s channels=%v broker=%q heartbeat=%v",
		cfg.Poll, cfg.ADC.Driver, cfg.Channels(), cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	err = runLoop(engine, publisher, mqttStatus, tracker, cfg.MQTT.Heartbeat, time.Now, ticker.C, sigCh)

	cancel()
	if session != nil {
		select {
		case <-session.Done():
		case <-time.After(2 * time.Second):
			log.Printf("dna: slave did not stop in time")
		}
	}
	return err
}

func i2cBus(cfg *config.Config) int {
	if !cfg.I2C.Enabled {
		return -1
	}
	return cfg.I2C.Bus
}

// bringUpDNA runs the one-shot address derivation and starts the slave.
// Failure is logged and never retried; rail monitoring runs regardless.
func bringUpDNA(ctx context.Context, conv monitor.ADC, rga uint8, slave dna.Slave, tracker *status.Tracker) *dna.Session {
	session, err := dna.BringUp(ctx, conv, rga, slave, dna.DefaultRegisters())
	if err != nil {
		log.Printf("dna: bring-up failed: %v", err)
		return nil
	}
	if session == nil {
		return nil
	}
	log.Printf("dna: serving at i2c address 0x%02x", session.Address)
	if tracker != nil {
		tracker.SetI2CAddress(session.Address)
	}
	return session
}

func runLoop(engine *monitor.Engine, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector := monitor.NewDetector(startTime)
	var lastErr string

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			if publisher == nil {
				return nil
			}
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			report, err := engine.Step()
			if err != nil {
				// Log once per distinct error; the loop runs every few ms
				if msg := err.Error(); msg != lastErr {
					log.Printf("step error: %v", err)
					lastErr = msg
				}
				continue
			}
			if lastErr != "" {
				log.Printf("step recovered")
				lastErr = ""
			}

			events := detector.Process(report, t)

			for _, event := range events {
				log.Printf("event: %s %s (%dmV, status=%03b pins=%03b)",
					event.Type, event.Rail, event.Millivolts, event.Status, report.Pins)
				if publisher != nil {
					if err := publisher.Publish(event); err != nil {
						log.Printf("publish error: %v", err)
						// Don't crash on publish failure
					}
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(report, engine.Iterations(), detector.IsBaselined(), detector.EventCountsSnapshot())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if !detector.IsBaselined() {
				// Still filling the averaging windows
				continue
			}

			// Check for heartbeat
			if hbData := detector.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v good=%v bad=%v",
					hbData.Uptime, hbData.Counts.Good, hbData.Counts.Bad)
				if publisher == nil {
					continue
				}

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// printRailState runs one full averaging window and prints the result.
func printRailState(w io.Writer, engine *monitor.Engine) error {
	var report monitor.Report
	for i := 0; i < monitor.WindowSize; i++ {
		var err error
		if report, err = engine.Step(); err != nil {
			return err
		}
	}
	for _, r := range monitor.Rails {
		rd := report.Readings[r]
		win := monitor.Windows[r]
		fmt.Fprintf(w, "%-3s avg=%4d mV=%4d window=(%d,%d) %s\n",
			r, rd.Average, rd.Millivolts, win.Low, win.High, status.RailState(rd))
	}
	fmt.Fprintf(w, "status=%03b mode=%s pins=%03b\n",
		report.Status, status.ModeName(report.Direct), report.Pins)
	return nil
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
