package simdevice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azm-tools/azm-go/pkg/dispatch"
	"github.com/azm-tools/azm-go/pkg/transport"
	"github.com/azm-tools/azm-go/pkg/wire"
)

func startDevice(t *testing.T, config Config) *Device {
	t.Helper()
	d, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

// dialDevice connects a dispatcher to the device over loopback.
func dialDevice(t *testing.T, d *Device) *dispatch.Dispatcher {
	t.Helper()
	disp := dispatch.NewDispatcher(nil)
	conn, err := transport.Dial(context.Background(), d.Addr(), disp)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	disp.Bind(conn)
	t.Cleanup(func() { _ = conn.Close() })
	return disp
}

func TestDeviceGetSetRoundTrip(t *testing.T) {
	d := startDevice(t, Config{})
	disp := dialDevice(t, d)
	ctx := context.Background()

	resp, err := disp.Get(ctx, "ZoneGain_0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v, _ := resp.Int(); v != 62 {
		t.Errorf("ZoneGain_0 = %d, want 62", v)
	}

	resp, err = disp.Set(ctx, "ZoneGain_0", 80)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := resp.Int(); v != 80 {
		t.Errorf("set result = %d, want 80", v)
	}
	if v, _ := d.Param("ZoneGain_0"); v != 80 {
		t.Errorf("device ZoneGain_0 = %d, want 80", v)
	}

	resp, err = disp.Get(ctx, "ZoneName_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s, _ := resp.Text(); s != "Dining" {
		t.Errorf("ZoneName_1 = %q, want %q", s, "Dining")
	}
}

func TestDeviceUnknownParameter(t *testing.T) {
	d := startDevice(t, Config{})
	disp := dialDevice(t, d)

	_, err := disp.Get(context.Background(), "Tuner3Preset_0")
	var devErr *wire.DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("err = %v, want device error", err)
	}
	if devErr.Code != wire.CodeInvalidParams {
		t.Errorf("error code = %d, want %d", devErr.Code, wire.CodeInvalidParams)
	}
}

func TestDeviceBumpClamps(t *testing.T) {
	d := startDevice(t, Config{})
	disp := dialDevice(t, d)
	ctx := context.Background()

	resp, err := disp.Bump(ctx, "ZoneGain_0", 1000)
	if err != nil {
		t.Fatalf("Bump failed: %v", err)
	}
	if v, _ := resp.Int(); v != 100 {
		t.Errorf("bump up result = %d, want 100", v)
	}

	resp, err = disp.Bump(ctx, "ZoneGain_0", -1000)
	if err != nil {
		t.Fatalf("Bump failed: %v", err)
	}
	if v, _ := resp.Int(); v != 0 {
		t.Errorf("bump down result = %d, want 0", v)
	}
}

func TestDeviceMuteNormalized(t *testing.T) {
	d := startDevice(t, Config{})
	disp := dialDevice(t, d)

	resp, err := disp.SetVal(context.Background(), "ZoneMute_0", 5)
	if err != nil {
		t.Fatalf("SetVal failed: %v", err)
	}
	if v, _ := resp.Int(); v != 1 {
		t.Errorf("mute result = %d, want 1", v)
	}
}

func TestDeviceSetMissingValue(t *testing.T) {
	d := startDevice(t, Config{})
	disp := dialDevice(t, d)

	resp, err := disp.Call(context.Background(), wire.MethodSet, wire.Params{Param: "ZoneGain_0"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != wire.CodeInvalidParams {
		t.Errorf("response = %+v, want invalid params error", resp)
	}
}

func TestDeviceDropBehavior(t *testing.T) {
	def := DefaultDefinition()
	def.Behaviors = map[string]Behavior{"ZoneGain_1": {Drop: true}}
	d := startDevice(t, Config{Definition: def})
	disp := dialDevice(t, d)

	_, err := disp.CallTimeout(context.Background(), wire.MethodGet, wire.Params{Param: "ZoneGain_1"}, 150*time.Millisecond)
	if !errors.Is(err, dispatch.ErrCommandTimeout) {
		t.Fatalf("err = %v, want ErrCommandTimeout", err)
	}

	// The device still heard the request.
	if n := d.RequestCount(wire.MethodGet, "ZoneGain_1"); n != 1 {
		t.Errorf("request count = %d, want 1", n)
	}
}

func TestDeviceErrorBehavior(t *testing.T) {
	def := DefaultDefinition()
	def.Behaviors = map[string]Behavior{
		"ZoneSource_2": {ErrorCode: wire.CodeDeviceBusy},
		"ZoneGain_2":   {ErrorCode: wire.CodeInvalidParams, ErrorMessage: "gain locked out"},
	}
	d := startDevice(t, Config{Definition: def})
	disp := dialDevice(t, d)
	ctx := context.Background()

	_, err := disp.SetVal(ctx, "ZoneSource_2", 3)
	var devErr *wire.DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("err = %v, want device error", err)
	}
	if devErr.Code != wire.CodeDeviceBusy {
		t.Errorf("error code = %d, want %d", devErr.Code, wire.CodeDeviceBusy)
	}
	if devErr.Message != wire.CodeText(wire.CodeDeviceBusy) {
		t.Errorf("message = %q, want default text", devErr.Message)
	}

	_, err = disp.Set(ctx, "ZoneGain_2", 10)
	if !errors.As(err, &devErr) {
		t.Fatalf("err = %v, want device error", err)
	}
	if devErr.Message != "gain locked out" {
		t.Errorf("message = %q, want custom message", devErr.Message)
	}
}

func TestDeviceDelayedResponseOutOfOrder(t *testing.T) {
	def := DefaultDefinition()
	def.Behaviors = map[string]Behavior{"ZoneGain_0": {Delay: "150ms"}}
	d := startDevice(t, Config{Definition: def})
	disp := dialDevice(t, d)
	ctx := context.Background()

	slow := make(chan int, 1)
	go func() {
		resp, err := disp.Set(ctx, "ZoneGain_0", 80)
		if err != nil {
			slow <- -1
			return
		}
		v, _ := resp.Int()
		slow <- v
	}()

	// Give the slow request a head start so it is on the wire first.
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	resp, err := disp.Get(ctx, "ZoneGain_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v, _ := resp.Int(); v != 48 {
		t.Errorf("ZoneGain_1 = %d, want 48", v)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("fast request took %v, should not wait for the delayed one", elapsed)
	}

	select {
	case v := <-slow:
		if v != 80 {
			t.Errorf("delayed set result = %d, want 80", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delayed set never completed")
	}
}

func TestDeviceSubscribeReports(t *testing.T) {
	d := startDevice(t, Config{})
	disp := dialDevice(t, d)
	ctx := context.Background()

	reports := make(chan *wire.Request, 4)
	disp.SetReportHandler(func(r *wire.Request) { reports <- r })

	resp, err := disp.Subscribe(ctx, "ZoneGain_0")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if v, _ := resp.Int(); v != 62 {
		t.Errorf("subscribe ack = %d, want current value 62", v)
	}

	d.SetParam("ZoneGain_0", 71)

	select {
	case r := <-reports:
		if r.Params.Param != "ZoneGain_0" {
			t.Errorf("report param = %q, want ZoneGain_0", r.Params.Param)
		}
		if r.Params.Val == nil || *r.Params.Val != 71 {
			t.Errorf("report val = %v, want 71", r.Params.Val)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no report after SetParam")
	}

	if _, err := disp.Unsubscribe(ctx, "ZoneGain_0"); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	d.SetParam("ZoneGain_0", 40)

	select {
	case r := <-reports:
		t.Errorf("report after unsubscribe: %v %v", r.Params.Param, r.Params.Val)
	case <-time.After(120 * time.Millisecond):
	}
}

func TestDeviceSubscribeUnknownParameter(t *testing.T) {
	d := startDevice(t, Config{})
	disp := dialDevice(t, d)

	_, err := disp.Subscribe(context.Background(), "Bogus_9")
	var devErr *wire.DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("err = %v, want device error", err)
	}
	if devErr.Code != wire.CodeInvalidParams {
		t.Errorf("error code = %d, want %d", devErr.Code, wire.CodeInvalidParams)
	}
}

func TestDeviceReportsCrossConnections(t *testing.T) {
	d := startDevice(t, Config{})
	watcher := dialDevice(t, d)
	setter := dialDevice(t, d)
	ctx := context.Background()

	reports := make(chan *wire.Request, 1)
	watcher.SetReportHandler(func(r *wire.Request) { reports <- r })

	if _, err := watcher.Subscribe(ctx, "ZoneMute_1"); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if _, err := setter.SetVal(ctx, "ZoneMute_1", 1); err != nil {
		t.Fatalf("SetVal failed: %v", err)
	}

	select {
	case r := <-reports:
		if r.Params.Val == nil || *r.Params.Val != 1 {
			t.Errorf("report val = %v, want 1", r.Params.Val)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no report on watching connection")
	}
}

// frameSink collects raw frames for tests that bypass the dispatcher.
type frameSink struct {
	frames chan []byte
}

func newFrameSink() *frameSink {
	return &frameSink{frames: make(chan []byte, 4)}
}

func (s *frameSink) HandleFrame(frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)
	s.frames <- buf
}

func (s *frameSink) HandleClose(cause error) {}

func TestDeviceMalformedFrame(t *testing.T) {
	d := startDevice(t, Config{})
	sink := newFrameSink()
	conn, err := transport.Dial(context.Background(), d.Addr(), sink)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.Send([]byte(`{"jsonrpc":"2.0","method":`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case frame := <-sink.frames:
		resp, err := wire.DecodeResponse(frame)
		if err != nil {
			t.Fatalf("DecodeResponse failed: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != wire.CodeParseError {
			t.Errorf("response = %+v, want parse error", resp)
		}
		if resp.ID != wire.UncorrelatedID {
			t.Errorf("response id = %d, want %d", resp.ID, wire.UncorrelatedID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no response to malformed frame")
	}
}

func TestDeviceRequestLog(t *testing.T) {
	d := startDevice(t, Config{})
	disp := dialDevice(t, d)
	ctx := context.Background()

	if _, err := disp.Set(ctx, "ZoneGain_0", 33); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := disp.Get(ctx, "ZoneGain_0"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := disp.Get(ctx, "ZoneMute_0"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if n := d.RequestCount(wire.MethodSet, "ZoneGain_0"); n != 1 {
		t.Errorf("set count = %d, want 1", n)
	}
	if n := d.RequestCount(wire.MethodGet, ""); n != 2 {
		t.Errorf("get count = %d, want 2", n)
	}
	if got := len(d.Requests()); got != 3 {
		t.Errorf("request log length = %d, want 3", got)
	}
}
