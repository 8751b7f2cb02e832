// Command azm-sim is a simulated AtlasIED Atmosphere zone processor.
//
// The simulator serves the processor's JSON-RPC parameter namespace over
// TCP from a YAML device definition and advertises itself via mDNS, so
// azmctl and integrations can be exercised without hardware. Definitions
// can script per-parameter quirks: response delays, dropped responses,
// and injected device errors.
//
// Usage:
//
//	azm-sim [flags]
//
// Flags:
//
//	-definition string    YAML device definition (default: built-in AZM4)
//	-port int             Listen port, 0 for ephemeral (default 5321)
//	-name string          Override the advertised device name
//	-serial string        Override the device serial number
//	-delay duration       Fixed delay added to every response
//	-no-mdns              Do not advertise via mDNS
//	-interface string     Network interface for mDNS (default all)
//	-simulate             Simulate front-panel activity (periodic gain nudges)
//	-protocol-log string  Write a protocol capture (.alog) file
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Default four-zone AZM4 on the standard port
//	azm-sim
//
//	# Custom definition on an ephemeral port, without mDNS
//	azm-sim -definition rack.yaml -port 0 -no-mdns
//
//	# Slow device for timeout testing
//	azm-sim -delay 500ms -log-level debug
//
//	# Capture traffic, mirrored live into the debug log
//	azm-sim -protocol-log session.alog -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/azm-tools/azm-go/internal/simdevice"
	"github.com/azm-tools/azm-go/pkg/discovery"
	"github.com/azm-tools/azm-go/pkg/log"
	"github.com/azm-tools/azm-go/pkg/model"
)

// Config holds the simulator configuration.
type Config struct {
	Definition  string
	Port        int
	Name        string
	Serial      string
	Delay       time.Duration
	NoMDNS      bool
	Interface   string
	Simulate    bool
	ProtocolLog string
	LogLevel    string
}

var config Config

func init() {
	flag.StringVar(&config.Definition, "definition", "", "YAML device definition (default: built-in AZM4)")
	flag.IntVar(&config.Port, "port", model.DefaultControlPort, "Listen port, 0 for ephemeral")
	flag.StringVar(&config.Name, "name", "", "Override the advertised device name")
	flag.StringVar(&config.Serial, "serial", "", "Override the device serial number")
	flag.DurationVar(&config.Delay, "delay", 0, "Fixed delay added to every response")
	flag.BoolVar(&config.NoMDNS, "no-mdns", false, "Do not advertise via mDNS")
	flag.StringVar(&config.Interface, "interface", "", "Network interface for mDNS (default all)")
	flag.BoolVar(&config.Simulate, "simulate", false, "Simulate front-panel activity (periodic gain nudges)")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "Write a protocol capture (.alog) file")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	logger, logLevel, err := setupLogging(config.LogLevel)
	if err != nil {
		fatalf("%v", err)
	}

	def, err := loadDefinition()
	if err != nil {
		fatalf("%v", err)
	}
	if config.Name != "" {
		def.Name = config.Name
	}
	if config.Serial != "" {
		def.SerialNumber = config.Serial
	}

	var capture log.Logger
	if config.ProtocolLog != "" {
		fl, err := log.NewFileLogger(config.ProtocolLog)
		if err != nil {
			fatalf("failed to open protocol log: %v", err)
		}
		defer fl.Close()
		capture = fl
		if logLevel == slog.LevelDebug {
			// At debug level, mirror capture events into the process log.
			capture = log.NewMultiLogger(fl, log.NewSlogAdapter(logger))
		}
		logger.Info("writing protocol capture", "path", config.ProtocolLog)
	}

	device, err := simdevice.New(simdevice.Config{
		Address:       fmt.Sprintf(":%d", config.Port),
		Definition:    def,
		ResponseDelay: config.Delay,
		Logger:        capture,
	})
	if err != nil {
		fatalf("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := device.Start(ctx); err != nil {
		fatalf("failed to start: %v", err)
	}

	logger.Info("simulated processor listening",
		"address", device.Addr(), "model", def.Model, "name", def.Name, "zones", def.ZoneCount())
	for z, zd := range def.Zones {
		logger.Info("zone configured",
			"zone", z, "name", zd.Name, "outputs", zd.Outputs, "scheme", zoneScheme(zd))
	}

	advertiser := discovery.NewAdvertiser(discovery.AdvertiserConfig{
		Interface: config.Interface,
		Logger:    logger,
	})
	if !config.NoMDNS {
		port, err := listenPort(device.Addr())
		if err != nil {
			fatalf("failed to resolve listen port: %v", err)
		}
		info := &discovery.ProcessorInfo{
			Name:            def.Name,
			Model:           def.Model,
			ZoneCount:       def.ZoneCount(),
			SerialNumber:    def.SerialNumber,
			FirmwareVersion: def.FirmwareVersion,
			Port:            port,
		}
		if err := advertiser.Advertise(ctx, info); err != nil {
			logger.Warn("mDNS advertise failed, continuing without discovery", "error", err)
		} else {
			logger.Info("advertising via mDNS", "instance", def.Name, "service", discovery.ServiceType)
		}
	}

	if config.Simulate {
		logger.Info("front-panel simulation enabled")
		go runSimulation(ctx, device, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received signal, shutting down", "signal", sig.String())

	advertiser.StopAll()
	if err := device.Stop(); err != nil {
		logger.Error("error stopping device", "error", err)
	}
	logger.Info("goodbye")
}

// fatalf reports a startup failure and exits.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "azm-sim: "+format+"\n", args...)
	os.Exit(1)
}

// setupLogging builds the process logger for the requested level.
func setupLogging(level string) (*slog.Logger, slog.Level, error) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil, 0, fmt.Errorf("unknown log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), l, nil
}

// loadDefinition reads the definition file, or falls back to the
// built-in default layout.
func loadDefinition() (*simdevice.Definition, error) {
	if config.Definition == "" {
		return simdevice.DefaultDefinition(), nil
	}
	return simdevice.LoadDefinition(config.Definition)
}

// zoneScheme names a zone's output scheme for the startup log.
func zoneScheme(zd simdevice.ZoneDef) string {
	if zd.Outputs == 0 || zd.Scheme == simdevice.SchemeNone {
		return simdevice.SchemeNone
	}
	if zd.Scheme == "" {
		return simdevice.SchemeZoneOutput
	}
	return zd.Scheme
}

// listenPort extracts the port number from a listener address.
func listenPort(addr string) (int, error) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(p)
}

// runSimulation nudges zone gains at a steady cadence, standing in for
// staff touching the front panel. Subscribed clients observe the
// changes as unsolicited reports.
func runSimulation(ctx context.Context, device *simdevice.Device, logger *slog.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	zones := device.Definition().ZoneCount()
	step := 2

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			z := i % zones
			param := model.ZoneGain(z)
			gain, ok := device.Param(param)
			if !ok {
				continue
			}
			// Wander inside a band a bartender would plausibly use.
			next := gain + step
			if next > 70 || next < 30 {
				step = -step
				next = gain + step
			}
			device.SetParam(param, next)
			logger.Debug("front-panel nudge", "zone", z, "gain", next)
		}
	}
}
