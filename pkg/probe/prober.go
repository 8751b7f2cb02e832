package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/azm-tools/azm-go/pkg/dispatch"
	"github.com/azm-tools/azm-go/pkg/log"
	"github.com/azm-tools/azm-go/pkg/model"
	"github.com/azm-tools/azm-go/pkg/wire"
	"github.com/azm-tools/azm-go/pkg/zone"
)

const (
	// DefaultGetTimeout bounds each speculative get. Probes are expected to
	// go unanswered, so this is much shorter than the command timeout.
	DefaultGetTimeout = 2 * time.Second

	// MaxProbeOutputs is how many output slots the direct scan tries when
	// no output-count parameter responds.
	MaxProbeOutputs = 4

	// MaxOutputCount clamps a device-reported output count.
	MaxOutputCount = 8

	// DefaultParallelism bounds concurrent zone probes in ProbeZones.
	DefaultParallelism = 4
)

// Probe lifecycle states for capture events.
const (
	stateProbing  = "PROBING"
	stateComplete = "COMPLETE"
	stateFailed   = "FAILED"
)

// Caller issues correlated calls on an established connection.
// *dispatch.Dispatcher implements it.
type Caller interface {
	CallTimeout(ctx context.Context, method wire.Method, params wire.Params, timeout time.Duration) (*wire.Response, error)
}

var _ Caller = (*dispatch.Dispatcher)(nil)

// Config configures a Prober. The zero value selects defaults.
type Config struct {
	// GetTimeout bounds each speculative get.
	GetTimeout time.Duration

	// MaxOutputs bounds the direct scan used when no output-count
	// parameter responds.
	MaxOutputs int

	// CountTemplates are the ordered output-count patterns.
	CountTemplates []Template

	// GainTemplates are the ordered per-output gain patterns.
	GainTemplates []Template

	// Parallelism bounds concurrent zone probes in ProbeZones.
	Parallelism int

	// Logger receives probe state-change capture events. nil disables
	// capture.
	Logger log.Logger

	// ConnectionID tags capture events with the connection the probe ran
	// on.
	ConnectionID string
}

// DefaultConfig returns a Config with all defaults filled in.
func DefaultConfig() Config {
	return Config{
		GetTimeout:     DefaultGetTimeout,
		MaxOutputs:     MaxProbeOutputs,
		CountTemplates: DefaultCountTemplates(),
		GainTemplates:  DefaultGainTemplates(),
		Parallelism:    DefaultParallelism,
	}
}

// Result is the discovered output topology for one zone.
type Result struct {
	// Zone is the probed zone index.
	Zone int

	// Outputs is the topology in output-index order. Never empty.
	Outputs []zone.Output

	// Exhausted reports that no output-specific parameter responded and
	// Outputs holds the synthesized zone-gain fallback.
	Exhausted bool

	// CountParam is the output-count parameter that responded, when one
	// did.
	CountParam string

	// Probes is the number of speculative gets the probe issued.
	Probes int
}

// Prober infers per-zone output topology over a Caller.
type Prober struct {
	caller Caller
	config Config
}

// New creates a Prober. caller must be non-nil; zero config fields take
// their defaults.
func New(caller Caller, config Config) *Prober {
	if config.GetTimeout <= 0 {
		config.GetTimeout = DefaultGetTimeout
	}
	if config.MaxOutputs <= 0 {
		config.MaxOutputs = MaxProbeOutputs
	}
	if len(config.CountTemplates) == 0 {
		config.CountTemplates = DefaultCountTemplates()
	}
	if len(config.GainTemplates) == 0 {
		config.GainTemplates = DefaultGainTemplates()
	}
	if config.Parallelism <= 0 {
		config.Parallelism = DefaultParallelism
	}
	return &Prober{caller: caller, config: config}
}

// ProbeZone discovers the output topology of one zone.
//
// Unanswered and rejected probes shape the result, they do not fail it; an
// error is returned only when the connection is lost or ctx ends.
func (p *Prober) ProbeZone(ctx context.Context, zoneIndex int) (*Result, error) {
	p.logState(zoneIndex, "", stateProbing, "")

	res, err := p.probeZone(ctx, zoneIndex)
	if err != nil {
		p.logState(zoneIndex, stateProbing, stateFailed, err.Error())
		return nil, err
	}

	reason := fmt.Sprintf("%d outputs", len(res.Outputs))
	if res.Exhausted {
		reason = "exhausted"
	}
	p.logState(zoneIndex, stateProbing, stateComplete, reason)
	return res, nil
}

// ProbeZones probes zones 0..zoneCount-1 concurrently and returns results
// in zone order. The first connection-level error aborts the remaining
// probes.
func (p *Prober) ProbeZones(ctx context.Context, zoneCount int) ([]*Result, error) {
	results := make([]*Result, zoneCount)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Parallelism)
	for z := 0; z < zoneCount; z++ {
		g.Go(func() error {
			res, err := p.ProbeZone(ctx, z)
			if err != nil {
				return err
			}
			results[z] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Prober) probeZone(ctx context.Context, zoneIndex int) (*Result, error) {
	res := &Result{Zone: zoneIndex}

	n, err := p.probeCount(ctx, zoneIndex, res)
	if err != nil {
		return nil, err
	}

	// Without a count, scan slots directly and stop at the first slot no
	// template answers for. With one, silent slots are skipped: the count
	// was explicit, later slots may still answer.
	limit := n
	scan := n == 0
	if scan {
		limit = p.config.MaxOutputs
	}

	for i := 0; i < limit; i++ {
		out, found, err := p.probeSlot(ctx, zoneIndex, i, res)
		if err != nil {
			return nil, err
		}
		if !found {
			if scan {
				break
			}
			continue
		}
		res.Outputs = append(res.Outputs, out)
	}

	if len(res.Outputs) == 0 {
		return p.synthesize(ctx, zoneIndex, res)
	}

	for k := range res.Outputs {
		o := &res.Outputs[k]
		if o.Label == "" {
			o.Label = zone.DefaultLabel(o.Index)
		}
		o.Type = zone.DefaultType(o.Index, len(res.Outputs))
	}
	return res, nil
}

// probeCount runs the output-count templates. Returns 0 when none answers.
func (p *Prober) probeCount(ctx context.Context, zoneIndex int, res *Result) (int, error) {
	for _, t := range p.config.CountTemplates {
		param := t.Expand(zoneIndex, 0)
		v, ok, err := p.probeGet(ctx, param, res)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		n := v
		if n < 1 {
			n = 1
		}
		if n > MaxOutputCount {
			n = MaxOutputCount
		}
		res.CountParam = param
		return n, nil
	}
	return 0, nil
}

// probeSlot runs the gain templates for one output slot, strictly in order.
func (p *Prober) probeSlot(ctx context.Context, zoneIndex, slot int, res *Result) (zone.Output, bool, error) {
	for _, t := range p.config.GainTemplates {
		param := t.Expand(zoneIndex, slot)
		v, ok, err := p.probeGet(ctx, param, res)
		if err != nil {
			return zone.Output{}, false, err
		}
		if !ok {
			continue
		}
		return zone.Output{Index: slot, Label: t.Label, Volume: v, Param: param}, true, nil
	}
	return zone.Output{}, false, nil
}

// synthesize builds the degraded single-output result bound to the zone's
// own gain parameter.
func (p *Prober) synthesize(ctx context.Context, zoneIndex int, res *Result) (*Result, error) {
	res.Exhausted = true
	out := zone.Output{
		Index: 0,
		Label: zone.DefaultLabel(0),
		Type:  zone.OutputMain,
		Param: model.ZoneGain(zoneIndex),
	}
	v, ok, err := p.probeGet(ctx, out.Param, res)
	if err != nil {
		return nil, err
	}
	if ok {
		out.Volume = v
	}
	res.Outputs = append(res.Outputs, out)
	return res, nil
}

// probeGet issues one speculative get. An unanswered or rejected probe is
// negative evidence (ok false, nil error); only connection loss or the
// caller's own ctx aborts.
func (p *Prober) probeGet(ctx context.Context, param string, res *Result) (int, bool, error) {
	res.Probes++

	resp, err := p.caller.CallTimeout(ctx, wire.MethodGet, wire.Params{Param: param}, p.config.GetTimeout)
	if err != nil {
		if errors.Is(err, dispatch.ErrCommandTimeout) && ctx.Err() == nil {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("probe %s: %w", param, err)
	}
	if resp.Error != nil {
		return 0, false, nil
	}
	v, err := resp.Int()
	if err != nil {
		// The name exists but is not a numeric parameter.
		return 0, false, nil
	}
	return v, true, nil
}

func (p *Prober) logState(zoneIndex int, oldState, newState, reason string) {
	if p.config.Logger == nil {
		return
	}
	z := zoneIndex
	p.config.Logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: p.config.ConnectionID,
		Layer:        log.LayerService,
		Category:     log.CategoryState,
		LocalRole:    log.RoleClient,
		Zone:         &z,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityProbe,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
