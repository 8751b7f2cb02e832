// Package interactive provides the interactive command-line interface
// for the azmctl console.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/azm-tools/azm-go/pkg/connection"
	"github.com/azm-tools/azm-go/pkg/control"
	"github.com/azm-tools/azm-go/pkg/discovery"
	"github.com/azm-tools/azm-go/pkg/zone"
)

// ConsoleConfig provides configuration information to the interactive
// console. This interface allows the interactive layer to access
// settings without depending on the main package's config structure.
type ConsoleConfig interface {
	// DiscoveryInterface returns the network interface for mDNS
	// browsing, empty for all interfaces.
	DiscoveryInterface() string
}

// Console handles interactive mode for azmctl.
type Console struct {
	svc    *control.Service
	sup    *connection.Supervisor
	config ConsoleConfig
	out    io.Writer
	rl     *readline.Instance

	lastErr error
}

// New creates a new interactive console handler.
func New(svc *control.Service, sup *connection.Supervisor, cfg ConsoleConfig) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "azm> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &Console{
		svc:    svc,
		sup:    sup,
		config: cfg,
		out:    rl.Stdout(),
		rl:     rl,
	}

	// Show supervisor activity between prompts.
	sup.OnConnectionLost(func(cause error) {
		fmt.Fprintf(rl.Stdout(), "\n[%s] Connection lost: %v\n", timestamp(), cause)
		rl.Refresh()
	})
	sup.OnReconnecting(func(attempt int, delay time.Duration) {
		fmt.Fprintf(rl.Stdout(), "\n[%s] Reconnect attempt %d in %s\n",
			timestamp(), attempt, delay.Round(time.Millisecond))
		rl.Refresh()
	})
	sup.OnStateChange(func(oldState, newState connection.State) {
		if oldState == connection.StateReconnecting && newState == connection.StateConnected {
			proc := svc.Processor()
			fmt.Fprintf(rl.Stdout(), "\n[%s] Reconnected to %s\n", timestamp(), proc.Address())
			rl.Refresh()
		}
	})

	return c, nil
}

// NewBatch creates a console that executes commands without a prompt,
// writing output to w. Used for one-shot command invocations.
func NewBatch(svc *control.Service, sup *connection.Supervisor, cfg ConsoleConfig, w io.Writer) *Console {
	return &Console{svc: svc, sup: sup, config: cfg, out: w}
}

// Stdout returns a writer that properly coordinates with the readline
// input. Use this for log output to avoid interfering with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// LastError returns the error recorded by the most recent Execute, nil
// if the command succeeded.
func (c *Console) LastError() error {
	return c.lastErr
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// errorf reports a command failure and records it for LastError.
func (c *Console) errorf(format string, args ...any) {
	c.lastErr = fmt.Errorf(format, args...)
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if c.Execute(ctx, strings.Fields(input)) {
			cancel()
			return
		}
	}
}

// Execute runs one console command. It returns true when the command
// asks the console to exit.
func (c *Console) Execute(ctx context.Context, parts []string) bool {
	c.lastErr = nil

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "discover":
		c.cmdDiscover(ctx)

	case "connect":
		c.cmdConnect(ctx)

	case "disconnect":
		c.cmdDisconnect()

	case "status":
		c.cmdStatus()

	case "zones", "ls":
		c.cmdZones(ctx)

	case "zone", "z":
		c.cmdZone(ctx, args)

	case "label":
		c.cmdLabel(ctx, args)

	case "vol", "v":
		c.cmdVolume(ctx, args)

	case "bump", "b":
		c.cmdBump(ctx, args)

	case "mute":
		c.cmdMute(ctx, args, true)

	case "unmute":
		c.cmdMute(ctx, args, false)

	case "source", "src":
		c.cmdSource(ctx, args)

	case "outputs", "o":
		c.cmdOutputs(ctx, args)

	case "outvol", "ov":
		c.cmdOutputVolume(ctx, args)

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		c.errorf("Unknown command: %s (type 'help' for commands)", cmd)
	}

	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
AZM Console Commands:
  Connection:
    discover                - Browse mDNS for processors on the LAN
    connect                 - Connect to the processor
    disconnect              - Close the connection
    status                  - Show connection status

  Zones:
    zones                   - Show every zone's status
    zone <z>                - Show one zone in detail
    label <z>               - Show a zone's display name

  Control:
    vol <z> <pct>           - Set zone volume (0-100)
    bump <z> <delta>        - Nudge zone volume by a signed step
    mute <z> | unmute <z>   - Set zone mute state
    source <z> <n>          - Select a zone's input source
    outputs <z>             - Re-probe a zone's outputs
    outvol <z> <out> <pct>  - Set one output's volume (0-100)

  General:
    help                    - Show this help
    quit                    - Exit console

  Zones and outputs are addressed by 0-based index.`)
}

// cmdDiscover handles the discover command.
func (c *Console) cmdDiscover(ctx context.Context) {
	fmt.Fprintln(c.out, "Browsing for processors...")
	browseCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	browser := discovery.NewBrowser(discovery.BrowserConfig{Interface: c.config.DiscoveryInterface()})
	procs, err := browser.FindAll(browseCtx)
	if err != nil {
		c.errorf("Discovery error: %v", err)
		return
	}
	if len(procs) == 0 {
		fmt.Fprintln(c.out, "No processors found")
		return
	}

	fmt.Fprintf(c.out, "Found %d processor(s):\n", len(procs))
	for idx, p := range procs {
		host := p.Host
		if len(p.Addresses) > 0 {
			host = p.Addresses[0]
		}
		fmt.Fprintf(c.out, "  %d. %s (%s, %d zones, %s:%d)\n",
			idx+1, p.InstanceName, p.Model, p.ZoneCount, host, p.Port)
	}
}

// cmdConnect handles the connect command.
func (c *Console) cmdConnect(ctx context.Context) {
	p := c.svc.Processor()
	fmt.Fprintf(c.out, "Connecting to %s...\n", p.Address())

	if err := c.sup.Connect(ctx); err != nil {
		c.errorf("Connect failed: %v", err)
		return
	}
	fmt.Fprintf(c.out, "Connected: %d zones\n", p.ZoneCount)
}

// cmdDisconnect handles the disconnect command.
func (c *Console) cmdDisconnect() {
	c.sup.Disconnect()
	if err := c.svc.Disconnect(); err != nil {
		c.errorf("Disconnect error: %v", err)
		return
	}
	fmt.Fprintln(c.out, "Disconnected")
}

// cmdStatus handles the status command.
func (c *Console) cmdStatus() {
	p := c.svc.Processor()

	fmt.Fprintln(c.out, "\nConsole Status")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Processor:   %s\n", p.Name)
	fmt.Fprintf(c.out, "  Address:     %s\n", p.Address())
	if p.Model != "" {
		fmt.Fprintf(c.out, "  Model:       %s\n", p.Model)
	}
	fmt.Fprintf(c.out, "  Zones:       %d\n", p.ZoneCount)
	fmt.Fprintf(c.out, "  Connection:  %s\n", c.svc.State())
	fmt.Fprintf(c.out, "  Supervisor:  %s\n", c.sup.State())
	fmt.Fprintln(c.out)
}

// cmdZones handles the zones command.
func (c *Console) cmdZones(ctx context.Context) {
	statuses, err := c.svc.ZoneStatuses(ctx)
	if err != nil {
		c.errorf("Failed to read zones: %v", err)
		return
	}

	fmt.Fprintf(c.out, "\nZones (%d):\n", len(statuses))
	fmt.Fprintln(c.out, "-------------------------------------------")
	for _, zn := range statuses {
		c.printZone(zn)
	}
}

// cmdZone handles the zone command.
func (c *Console) cmdZone(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: zone <z>")
		return
	}
	z, ok := c.zoneArg(args[0])
	if !ok {
		return
	}

	zn, err := c.svc.ZoneStatus(ctx, z)
	if err != nil {
		c.errorf("Failed to read zone %d: %v", z, err)
		return
	}
	fmt.Fprintln(c.out)
	c.printZone(zn)
}

// printZone writes one zone's status block.
func (c *Console) printZone(zn *zone.Zone) {
	muted := ""
	if zn.Muted {
		muted = "  [MUTED]"
	}
	fmt.Fprintf(c.out, "  %d. %s%s\n", zn.Index, zn.Label, muted)
	fmt.Fprintf(c.out, "     Volume: %d%%  Source: %d\n", zn.Gain, zn.Source)
	for _, o := range zn.Outputs {
		fmt.Fprintf(c.out, "     Output %d %-5s %3d%%  (%s)\n", o.Index, o.Label+":", o.Volume, o.Param)
	}
	fmt.Fprintln(c.out)
}

// cmdLabel handles the label command.
func (c *Console) cmdLabel(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: label <z>")
		return
	}
	z, ok := c.zoneArg(args[0])
	if !ok {
		return
	}

	label, err := c.svc.ZoneLabel(ctx, z)
	if err != nil {
		c.errorf("Failed to read label: %v", err)
		return
	}
	fmt.Fprintf(c.out, "Zone %d: %q\n", z, label)
}

// cmdVolume handles the vol command.
func (c *Console) cmdVolume(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: vol <z> <pct>")
		return
	}
	z, ok := c.zoneArg(args[0])
	if !ok {
		return
	}
	pct, err := strconv.Atoi(args[1])
	if err != nil {
		c.errorf("Invalid volume: %v", err)
		return
	}

	if err := c.svc.SetVolume(ctx, z, pct); err != nil {
		c.errorf("Failed to set volume: %v", err)
		return
	}
	fmt.Fprintf(c.out, "Zone %d volume set to %d%%\n", z, pct)
}

// cmdBump handles the bump command.
func (c *Console) cmdBump(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: bump <z> <delta>")
		fmt.Fprintln(c.out, "  Example: bump 2 -5")
		return
	}
	z, ok := c.zoneArg(args[0])
	if !ok {
		return
	}
	delta, err := strconv.Atoi(args[1])
	if err != nil {
		c.errorf("Invalid delta: %v", err)
		return
	}

	gain, err := c.svc.BumpVolume(ctx, z, delta)
	if err != nil {
		c.errorf("Failed to bump volume: %v", err)
		return
	}
	fmt.Fprintf(c.out, "Zone %d volume now %d%%\n", z, gain)
}

// cmdMute handles the mute and unmute commands.
func (c *Console) cmdMute(ctx context.Context, args []string, muted bool) {
	verb := "mute"
	if !muted {
		verb = "unmute"
	}
	if len(args) < 1 {
		fmt.Fprintf(c.out, "Usage: %s <z>\n", verb)
		return
	}
	z, ok := c.zoneArg(args[0])
	if !ok {
		return
	}

	if err := c.svc.SetMute(ctx, z, muted); err != nil {
		c.errorf("Failed to %s: %v", verb, err)
		return
	}
	if muted {
		fmt.Fprintf(c.out, "Zone %d muted\n", z)
	} else {
		fmt.Fprintf(c.out, "Zone %d unmuted\n", z)
	}
}

// cmdSource handles the source command.
func (c *Console) cmdSource(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: source <z> <n>")
		return
	}
	z, ok := c.zoneArg(args[0])
	if !ok {
		return
	}
	src, err := strconv.Atoi(args[1])
	if err != nil {
		c.errorf("Invalid source: %v", err)
		return
	}

	if err := c.svc.SetSource(ctx, z, src); err != nil {
		c.errorf("Failed to set source: %v", err)
		return
	}
	fmt.Fprintf(c.out, "Zone %d source set to %d\n", z, src)
}

// cmdOutputs handles the outputs command.
func (c *Console) cmdOutputs(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: outputs <z>")
		return
	}
	z, ok := c.zoneArg(args[0])
	if !ok {
		return
	}

	res, err := c.svc.RefreshOutputs(ctx, z)
	if err != nil {
		c.errorf("Probe failed: %v", err)
		return
	}

	fmt.Fprintf(c.out, "Zone %d: %d output(s) in %d probe(s)\n", z, len(res.Outputs), res.Probes)
	for _, o := range res.Outputs {
		fmt.Fprintf(c.out, "  Output %d %-5s %3d%%  (%s)\n", o.Index, o.Label+":", o.Volume, o.Param)
	}
	if res.Exhausted {
		fmt.Fprintln(c.out, "  No output-level parameters responded; zone gain controls the whole zone.")
	}
}

// cmdOutputVolume handles the outvol command.
func (c *Console) cmdOutputVolume(ctx context.Context, args []string) {
	if len(args) < 3 {
		fmt.Fprintln(c.out, "Usage: outvol <z> <out> <pct>")
		fmt.Fprintln(c.out, "  Run 'zone <z>' or 'outputs <z>' first to map the outputs")
		return
	}
	z, ok := c.zoneArg(args[0])
	if !ok {
		return
	}
	out, err := strconv.Atoi(args[1])
	if err != nil {
		c.errorf("Invalid output index: %v", err)
		return
	}
	pct, err := strconv.Atoi(args[2])
	if err != nil {
		c.errorf("Invalid volume: %v", err)
		return
	}

	if err := c.svc.SetOutputVolume(ctx, z, out, pct, ""); err != nil {
		c.errorf("Failed to set output volume: %v", err)
		return
	}
	fmt.Fprintf(c.out, "Zone %d output %d volume set to %d%%\n", z, out, pct)
}

// zoneArg parses a 0-based zone index argument.
func (c *Console) zoneArg(s string) (int, bool) {
	z, err := strconv.Atoi(s)
	if err != nil {
		c.errorf("Invalid zone index: %v", err)
		return 0, false
	}
	return z, true
}
