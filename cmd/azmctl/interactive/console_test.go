package interactive

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

// testConfig satisfies ConsoleConfig for tests.
type testConfig struct{}

func (testConfig) DiscoveryInterface() string { return "" }

// newTestConsole builds a batch console with no service attached; only
// commands that stop before touching the service can run against it.
func newTestConsole() (*Console, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewBatch(nil, nil, testConfig{}, &buf), &buf
}

func TestExecuteQuitVariants(t *testing.T) {
	for _, cmd := range []string{"quit", "exit", "q", "QUIT"} {
		c, buf := newTestConsole()
		if exit := c.Execute(context.Background(), []string{cmd}); !exit {
			t.Errorf("Execute(%q) did not request exit", cmd)
		}
		if !strings.Contains(buf.String(), "Exiting") {
			t.Errorf("Execute(%q) output = %q, want exit message", cmd, buf.String())
		}
	}
}

func TestExecuteHelp(t *testing.T) {
	c, buf := newTestConsole()
	if exit := c.Execute(context.Background(), []string{"help"}); exit {
		t.Error("help requested exit")
	}
	if c.LastError() != nil {
		t.Errorf("help recorded error: %v", c.LastError())
	}
	for _, cmd := range []string{"vol", "mute", "outputs", "discover"} {
		if !strings.Contains(buf.String(), cmd) {
			t.Errorf("help output does not mention %q", cmd)
		}
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	c, buf := newTestConsole()
	if exit := c.Execute(context.Background(), []string{"blast", "0"}); exit {
		t.Error("unknown command requested exit")
	}
	if c.LastError() == nil {
		t.Error("unknown command did not record an error")
	}
	if !strings.Contains(buf.String(), "Unknown command") {
		t.Errorf("output = %q, want unknown-command message", buf.String())
	}
}

// A command given too few arguments prints its usage line and records no
// error; only malformed arguments count as failures.
func TestExecuteUsageWithoutArgs(t *testing.T) {
	tests := []struct {
		args  []string
		usage string
	}{
		{[]string{"vol"}, "Usage: vol"},
		{[]string{"bump", "2"}, "Usage: bump"},
		{[]string{"outvol", "0"}, "Usage: outvol"},
	}
	for _, tt := range tests {
		c, buf := newTestConsole()
		c.Execute(context.Background(), tt.args)
		if c.LastError() != nil {
			t.Errorf("Execute(%v) recorded error: %v", tt.args, c.LastError())
		}
		if !strings.Contains(buf.String(), tt.usage) {
			t.Errorf("Execute(%v) output = %q, want %q", tt.args, buf.String(), tt.usage)
		}
	}
}

func TestExecuteRejectsMalformedArgs(t *testing.T) {
	tests := [][]string{
		{"vol", "two", "50"},
		{"vol", "2", "loud"},
		{"bump", "x", "5"},
	}
	for _, args := range tests {
		c, _ := newTestConsole()
		c.Execute(context.Background(), args)
		if c.LastError() == nil {
			t.Errorf("Execute(%v) did not record an error", args)
		}
	}
}

func TestExecuteResetsLastError(t *testing.T) {
	c, _ := newTestConsole()
	ctx := context.Background()

	c.Execute(ctx, []string{"nonsense"})
	if c.LastError() == nil {
		t.Fatal("expected an error from the unknown command")
	}

	c.Execute(ctx, []string{"help"})
	if c.LastError() != nil {
		t.Errorf("LastError survived the next Execute: %v", c.LastError())
	}
}

func TestZoneArg(t *testing.T) {
	c, _ := newTestConsole()

	z, ok := c.zoneArg("3")
	if !ok || z != 3 {
		t.Errorf("zoneArg(\"3\") = %d, %v, want 3, true", z, ok)
	}

	if _, ok := c.zoneArg("bar"); ok {
		t.Error("zoneArg accepted a non-numeric index")
	}
	if c.LastError() == nil {
		t.Error("invalid zone index did not record an error")
	}
}
