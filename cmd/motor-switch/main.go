// Command motor-switch reads ON/OFF commands from a serial console, MQTT and
// HTTP, and drives a single GPIO output line accordingly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/xid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sweeney/motor-switch/internal/config"
	"github.com/sweeney/motor-switch/internal/console"
	"github.com/sweeney/motor-switch/internal/gpio"
	"github.com/sweeney/motor-switch/internal/history"
	"github.com/sweeney/motor-switch/internal/logic"
	"github.com/sweeney/motor-switch/internal/mqtt"
	"github.com/sweeney/motor-switch/internal/status"
	"github.com/sweeney/motor-switch/internal/web"
)

// requestQueue is the number of pending commands the loop accepts before
// MQTT messages are dropped and HTTP callers wait.
const requestQueue = 16

func main() {
	def := config.Default()
	configPath := flag.String("config", "", "YAML config file (optional)")
	flag.String("device", def.Input.Device, `Command input: serial device path, or "-" for stdin`)
	flag.Int("baud", def.Input.Baud, "Serial baud rate")
	flag.Duration("error-delay", def.Input.ErrorDelay, "Pause after an input read error")
	flag.String("chip", def.GPIO.Chip, "GPIO chip name")
	flag.Int("pin", def.GPIO.Pin, "GPIO line offset driving the motor")
	flag.Bool("active-low", def.GPIO.ActiveLow, "Drive the line low for ON")
	flag.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	flag.Duration("heartbeat", def.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	flag.String("http", def.HTTP.Addr, "HTTP status address (empty to disable)")
	flag.String("history", def.History.Path, "Command history SQLite file (empty to disable)")
	flag.String("log-file", def.Log.File, "Also write logs to this rotated file")
	flag.String("env-file", def.EnvFile, "pi-helper network env file")
	printConfig := flag.Bool("print-config", false, "Print effective config and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	applyFlags(cfg, flag.CommandLine)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid flags: %v", err)
	}

	if *printConfig {
		out, err := cfg.YAML()
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		os.Stdout.Write(out)
		return
	}

	if closer := setupLogging(cfg.Log); closer != nil {
		defer closer.Close()
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// applyFlags copies explicitly set command-line flags over cfg, so flags
// win over the config file and environment.
func applyFlags(cfg *config.Config, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		v := getter.Get()
		switch f.Name {
		case "device":
			cfg.Input.Device = v.(string)
		case "baud":
			cfg.Input.Baud = v.(int)
		case "error-delay":
			cfg.Input.ErrorDelay = v.(time.Duration)
		case "chip":
			cfg.GPIO.Chip = v.(string)
		case "pin":
			cfg.GPIO.Pin = v.(int)
		case "active-low":
			cfg.GPIO.ActiveLow = v.(bool)
		case "broker":
			cfg.MQTT.Broker = v.(string)
		case "heartbeat":
			cfg.MQTT.Heartbeat = v.(time.Duration)
		case "http":
			cfg.HTTP.Addr = v.(string)
		case "history":
			cfg.History.Path = v.(string)
		case "log-file":
			cfg.Log.File = v.(string)
		case "env-file":
			cfg.EnvFile = v.(string)
		}
	})
}

// setupLogging tees the standard logger into a rotated file when configured.
func setupLogging(lc config.LogConfig) io.Closer {
	if lc.File == "" {
		return nil
	}
	lj := &lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, lj))
	return lj
}

func run(cfg *config.Config) error {
	// Initialize GPIO (line starts low: motor OFF)
	pin, err := gpio.NewRealWriter(cfg.GPIO.Chip, cfg.GPIO.Pin, cfg.GPIO.ActiveLow)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := pin.Close(); err != nil {
			log.Printf("gpio close: %v", err)
		}
	}()

	port, err := console.Open(cfg.Input.Device, cfg.Input.Baud)
	if err != nil {
		return fmt.Errorf("init input: %w", err)
	}
	defer port.Close()

	requests := make(chan logic.Request, requestQueue)

	var (
		store    *history.Store
		recorder history.Recorder
		hist     web.HistoryReader
	)
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			return fmt.Errorf("init history: %w", err)
		}
		defer store.Close()
		recorder, hist = store, store
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(cfg.EnvFile); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(logic.StateOff, logic.Counts{})

	var (
		publisher  mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
	)
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, requests)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher, mqttStatus = p, p
		tracker.SetMQTTConnected(p.IsConnected())

		// Publish startup event with full status snapshot
		snap := tracker.Snapshot()
		startupEvent := mqtt.SystemEvent{
			Timestamp:  snap.Now,
			Event:      "STARTUP",
			Retained:   true,
			RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
		}
		if err := p.PublishSystem(startupEvent); err != nil {
			log.Printf("failed to publish startup event: %v", err)
		} else {
			log.Printf("published startup event")
		}
	}

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, requests, hist)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	done := make(chan struct{})
	defer close(done)
	go console.Pump(port, requests, done, cfg.Input.ErrorDelay)

	log.Printf("started: device=%s chip=%s pin=%d broker=%s heartbeat=%v",
		cfg.Input.Device, cfg.GPIO.Chip, cfg.GPIO.Pin, cfg.MQTT.Broker, cfg.MQTT.Heartbeat)

	var heartbeat <-chan time.Time
	if cfg.MQTT.Heartbeat > 0 && publisher != nil {
		ticker := time.NewTicker(cfg.MQTT.Heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		ctrl:       logic.NewController(pin, logic.StateOff),
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
		history:    recorder,
		now:        time.Now,
		newID:      func() string { return xid.New().String() },
		envFile:    cfg.EnvFile,
	}
	// A second Ctrl-C during cleanup kills the process immediately.
	l.stopSignals = func() { signal.Stop(sigCh) }
	return l.run(requests, heartbeat, sigCh)
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		Device:      cfg.Input.Device,
		Baud:        cfg.Input.Baud,
		Chip:        cfg.GPIO.Chip,
		Pin:         cfg.GPIO.Pin,
		ActiveLow:   cfg.GPIO.ActiveLow,
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPPort:    cfg.HTTP.Addr,
		History:     cfg.History.Path != "",
	}
}

// loop is the command loop. It is the only owner of ctrl and the pin behind it.
// publisher, mqttStatus, tracker and history may be nil.
type loop struct {
	ctrl       *logic.Controller
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	history    history.Recorder
	now        func() time.Time
	newID      func() string
	envFile    string

	// stopSignals, if set, is called once shutdown starts.
	stopSignals func()
}

// run dispatches requests until a termination signal arrives.
// Signals bypass the log-and-continue handling of command errors.
func (l *loop) run(requests <-chan logic.Request, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil

		case req := <-requests:
			l.handle(req)

		case <-heartbeat:
			l.heartbeat()
		}
	}
}

func (l *loop) handle(req logic.Request) logic.Outcome {
	t := l.now()
	out := l.ctrl.Handle(req)
	id := l.newID()

	if out.Result == logic.ResultError {
		log.Printf("%s (source=%s)", out.Message, req.Source)
	} else {
		log.Printf("%s: %q: %s", req.Source, out.Command, out.Message)
	}

	if req.Reply != nil {
		select {
		case req.Reply <- out:
		default:
			log.Printf("reply to %s dropped: receiver not ready", req.Source)
		}
	}

	if event, ok := logic.NewEvent(id, t, req.Source, out); ok && l.publisher != nil {
		if err := l.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}

	if l.history != nil {
		entry := history.Entry{
			ID:      id,
			Time:    t,
			Source:  req.Source,
			Command: out.Command,
			Result:  out.Result,
			State:   out.State,
			Message: out.Message,
		}
		if err := l.history.Record(entry); err != nil {
			log.Printf("history error: %v", err)
		}
	}

	if l.tracker != nil {
		l.tracker.Update(l.ctrl.State(), l.ctrl.Counts())
		l.tracker.Record(status.LastCommand{
			Command: out.Command,
			Source:  req.Source,
			Result:  out.Result,
			Message: out.Message,
			Time:    t,
		})
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
	}
	return out
}

func (l *loop) heartbeat() {
	counts := l.ctrl.Counts()
	log.Printf("heartbeat: motor=%s on=%d off=%d unknown=%d errors=%d",
		l.ctrl.State(), counts.On, counts.Off, counts.Unknown, counts.Errors)

	if l.publisher == nil {
		return
	}

	hbEvent := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "HEARTBEAT",
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		// Refresh network info for heartbeat
		if net := readNetworkInfo(l.envFile); net != nil {
			l.tracker.SetNetwork(net)
		}
		l.tracker.Update(l.ctrl.State(), counts)
		snap := l.tracker.Snapshot()
		hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(hbEvent); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (l *loop) shutdown(s os.Signal) {
	log.Printf("received %v, shutting down", s)
	if l.stopSignals != nil {
		l.stopSignals()
	}
	if l.publisher == nil {
		return
	}

	reason := signalName(s)
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		snap := l.tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
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

// readNetworkInfo reads network state from the pi-helper env file, falling
// back to the process environment for keys the file does not set.
// Returns nil when no network status is known.
func readNetworkInfo(path string) *status.NetworkInfo {
	fileEnv := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		switch {
		case err == nil:
			fileEnv = m
		case !errors.Is(err, fs.ErrNotExist):
			log.Printf("read %s: %v", path, err)
		}
	}
	get := func(key string) string {
		if v, ok := fileEnv[key]; ok {
			return v
		}
		return os.Getenv(key)
	}

	s := get(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       get(envNetworkType),
		IP:         get(envNetworkIP),
		Status:     s,
		Gateway:    get(envNetworkGateway),
		WifiStatus: get(envNetworkWifiStatus),
		SSID:       get(envNetworkWifiSSID),
	}
}
