// Command azmctl is an operator console for AtlasIED Atmosphere zone
// processors.
//
// The console connects to one processor over its TCP control port and
// drives zone volume, mute, and source routing, including per-output
// volume on zones wired for more than one amp channel. The target
// processor comes from a -host flag, a YAML inventory file, or mDNS
// discovery.
//
// Usage:
//
//	azmctl [flags] [command ...]
//
// With no command, azmctl starts an interactive prompt. With a command,
// it connects, runs the command once, and exits.
//
// Flags:
//
//	-host string          Processor address as host[:port]
//	-model string         Processor model when using -host (AZM4, AZM8)
//	-zones int            Zone count override for unknown models
//	-config string        YAML processor inventory file
//	-processor string     Inventory entry or mDNS instance name to use
//	-discover             Locate the processor via mDNS
//	-interface string     Network interface for mDNS (default all)
//	-timeout duration     Per-command timeout (default 7s)
//	-no-reconnect         Do not redial after a dropped connection
//	-protocol-log string  Write a protocol capture (.alog) file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Interactive console against a known address
//	azmctl -host 192.168.1.50 -model AZM8
//
//	# Pick a processor from the inventory
//	azmctl -config bars.yaml -processor main-bar
//
//	# Discover the processor on the LAN
//	azmctl -discover -processor "Main Bar AZM8"
//
//	# One-shot: set zone 2 to 70%
//	azmctl -host 192.168.1.50 -model AZM8 vol 2 70
//
// Interactive commands: type 'help' at the prompt.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/azm-tools/azm-go/cmd/azmctl/interactive"
	"github.com/azm-tools/azm-go/pkg/connection"
	"github.com/azm-tools/azm-go/pkg/control"
	"github.com/azm-tools/azm-go/pkg/discovery"
	"github.com/azm-tools/azm-go/pkg/log"
	"github.com/azm-tools/azm-go/pkg/model"
)

// discoverTimeout bounds the mDNS browse when resolving the target
// processor at startup.
const discoverTimeout = 5 * time.Second

// Config holds the console configuration.
type Config struct {
	Host        string
	Model       string
	Zones       int
	ConfigFile  string
	Processor   string
	Discover    bool
	Interface   string
	Timeout     time.Duration
	NoReconnect bool
	ProtocolLog string
	LogLevel    string
}

// DiscoveryInterface returns the network interface for mDNS browsing,
// empty for all interfaces.
func (c *Config) DiscoveryInterface() string {
	return c.Interface
}

var config Config

func init() {
	flag.StringVar(&config.Host, "host", "", "Processor address as host[:port]")
	flag.StringVar(&config.Model, "model", "", "Processor model when using -host (AZM4, AZM8)")
	flag.IntVar(&config.Zones, "zones", 0, "Zone count override for unknown models")
	flag.StringVar(&config.ConfigFile, "config", "", "YAML processor inventory file")
	flag.StringVar(&config.Processor, "processor", "", "Inventory entry or mDNS instance name to use")
	flag.BoolVar(&config.Discover, "discover", false, "Locate the processor via mDNS")
	flag.StringVar(&config.Interface, "interface", "", "Network interface for mDNS (default all)")
	flag.DurationVar(&config.Timeout, "timeout", 0, "Per-command timeout (default 7s)")
	flag.BoolVar(&config.NoReconnect, "no-reconnect", false, "Do not redial after a dropped connection")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "Write a protocol capture (.alog) file")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	level, err := parseLogLevel(config.LogLevel)
	if err != nil {
		fatalf("%v", err)
	}
	out := &switchWriter{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))

	processor, err := resolveProcessor()
	if err != nil {
		fatalf("%v", err)
	}

	var capture log.Logger
	if config.ProtocolLog != "" {
		fl, err := log.NewFileLogger(config.ProtocolLog)
		if err != nil {
			fatalf("failed to open protocol log: %v", err)
		}
		defer fl.Close()
		capture = fl
		if level == slog.LevelDebug {
			// At debug level, mirror capture events into the process log.
			capture = log.NewMultiLogger(fl, log.NewSlogAdapter(logger))
		}
	}

	cfg := control.DefaultConfig()
	cfg.CommandTimeout = config.Timeout
	cfg.Logger = logger
	cfg.Capture = capture

	// The supervisor drives redials; the service reports drops to it.
	// Config is copied by New, so the callback must be set first.
	var sup *connection.Supervisor
	cfg.OnConnectionLost = func(cause error) { sup.ConnectionLost(cause) }

	svc, err := control.New(processor, cfg)
	if err != nil {
		fatalf("%v", err)
	}
	sup = connection.NewSupervisor(svc.Connect, connection.SupervisorConfig{Logger: logger})
	if config.NoReconnect {
		sup.SetAutoReconnect(false)
	}

	// One-shot mode: connect, run the command, exit.
	if flag.NArg() > 0 {
		sup.SetAutoReconnect(false)
		ctx := context.Background()
		if err := sup.Connect(ctx); err != nil {
			fatalf("connect %s: %v", processor.Address(), err)
		}
		bc := interactive.NewBatch(svc, sup, &config, os.Stdout)
		bc.Execute(ctx, flag.Args())
		_ = svc.Disconnect()
		if bc.LastError() != nil {
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ic, err := interactive.New(svc, sup, &config)
	if err != nil {
		fatalf("failed to start console: %v", err)
	}

	// Route log records through the prompt so they do not mangle input.
	out.SetOutput(ic.Stdout())

	sup.Start()
	defer sup.Close()

	if err := sup.Connect(ctx); err != nil {
		logger.Warn("initial connect failed, use 'connect' to retry",
			"address", processor.Address(), "error", err)
	}

	go ic.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
		cancel()
	}

	sup.Disconnect()
	_ = svc.Disconnect()
	logger.Info("goodbye")
}

// fatalf reports a startup failure and exits.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "azmctl: "+format+"\n", args...)
	os.Exit(1)
}

// parseLogLevel maps a -log-level flag value to a slog level.
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// switchWriter is a writer whose destination can be swapped at runtime.
// Log output starts on stderr and moves to the readline-coordinated
// writer once the prompt exists.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) SetOutput(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

// resolveProcessor builds the target processor from flags, the
// inventory file, or mDNS discovery, in that order of precedence.
func resolveProcessor() (model.Processor, error) {
	switch {
	case config.Host != "":
		return processorFromFlags()
	case config.ConfigFile != "":
		return processorFromInventory()
	case config.Discover:
		return processorFromDiscovery()
	default:
		return model.Processor{}, errors.New("no processor selected: use -host, -config, or -discover")
	}
}

// processorFromFlags builds a processor from -host, -model, and -zones.
func processorFromFlags() (model.Processor, error) {
	host := config.Host
	port := 0
	if h, p, err := net.SplitHostPort(config.Host); err == nil {
		host = h
		if port, err = strconv.Atoi(p); err != nil {
			return model.Processor{}, fmt.Errorf("invalid port in -host %q: %v", config.Host, err)
		}
	}

	zones := config.Zones
	if zones == 0 {
		zones = model.ZoneCountForModel(config.Model)
	}
	if zones == 0 {
		return model.Processor{}, fmt.Errorf("unknown model %q: set -model or -zones", config.Model)
	}

	p := model.Processor{
		ID:          host,
		Name:        host,
		Host:        host,
		ControlPort: port,
		Model:       config.Model,
		ZoneCount:   zones,
	}
	return p, p.Validate()
}

// processorFromInventory picks an entry from the YAML inventory file.
func processorFromInventory() (model.Processor, error) {
	list, err := loadProcessorList(config.ConfigFile)
	if err != nil {
		return model.Processor{}, err
	}

	name := config.Processor
	if name == "" {
		name = list.Default
	}
	entry, err := list.lookup(name)
	if err != nil {
		return model.Processor{}, fmt.Errorf("%s: %w", config.ConfigFile, err)
	}
	return entry.processor()
}

// processorFromDiscovery locates the processor via mDNS.
func processorFromDiscovery() (model.Processor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), discoverTimeout)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: config.Interface})

	if config.Processor != "" {
		found, err := browser.Find(ctx, config.Processor)
		if err != nil {
			return model.Processor{}, fmt.Errorf("discover %q: %w", config.Processor, err)
		}
		return found.Processor(), nil
	}

	found, err := browser.FindAll(ctx)
	if err != nil {
		return model.Processor{}, fmt.Errorf("discover: %w", err)
	}
	switch len(found) {
	case 0:
		return model.Processor{}, errors.New("no processors discovered")
	case 1:
		return found[0].Processor(), nil
	default:
		names := make([]string, len(found))
		for i, d := range found {
			names[i] = d.InstanceName
		}
		return model.Processor{}, fmt.Errorf("found %d processors (%s): set -processor",
			len(found), strings.Join(names, ", "))
	}
}

// ProcessorList is the YAML processor inventory:
//
//	default: main-bar
//	processors:
//	  - name: main-bar
//	    host: 192.168.1.50
//	    port: 5321
//	    model: AZM8
//	  - name: patio
//	    host: 192.168.1.51
//	    model: AZM4
type ProcessorList struct {
	// Default names the entry used when -processor is not set.
	Default string `yaml:"default"`

	// Processors lists the known processors.
	Processors []ProcessorEntry `yaml:"processors"`
}

// ProcessorEntry describes one processor in the inventory.
type ProcessorEntry struct {
	Name  string `yaml:"name"`
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Model string `yaml:"model"`
	Zones int    `yaml:"zones"`
}

// processor converts an inventory entry to a processor value.
func (e *ProcessorEntry) processor() (model.Processor, error) {
	zones := e.Zones
	if zones == 0 {
		zones = model.ZoneCountForModel(e.Model)
	}
	if zones == 0 {
		return model.Processor{}, fmt.Errorf("processor %q: unknown model %q and no zone count", e.Name, e.Model)
	}

	p := model.Processor{
		ID:          e.Name,
		Name:        e.Name,
		Host:        e.Host,
		ControlPort: e.Port,
		Model:       e.Model,
		ZoneCount:   zones,
	}
	return p, p.Validate()
}

// lookup finds an inventory entry by name, case-insensitively. An empty
// name selects a single-entry inventory.
func (l *ProcessorList) lookup(name string) (*ProcessorEntry, error) {
	if name == "" {
		if len(l.Processors) == 1 {
			return &l.Processors[0], nil
		}
		return nil, fmt.Errorf("inventory has %d processors: set -processor or a default", len(l.Processors))
	}
	for i := range l.Processors {
		if strings.EqualFold(l.Processors[i].Name, name) {
			return &l.Processors[i], nil
		}
	}
	return nil, fmt.Errorf("processor %q not in inventory", name)
}

// loadProcessorList reads and parses a YAML inventory file.
func loadProcessorList(path string) (*ProcessorList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}
	var list ProcessorList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%s: failed to parse inventory: %w", path, err)
	}
	if len(list.Processors) == 0 {
		return nil, fmt.Errorf("%s: inventory has no processors", path)
	}
	return &list, nil
}
