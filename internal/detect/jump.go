package detect

import (
	"fmt"
	"math"

	"github.com/formgrid/interact/internal/object"
)

// Anomaly kinds flagged by the detectors.
const (
	KindSuddenJump       = "sudden_jump"
	KindVelocityOverflow = "velocity_overflow"
	KindOffsetAccum      = "offset_accumulation"
	KindPositionDrift    = "position_drift"
	KindLayoutThrash     = "layout_thrash"

	KindRubberBand    = "rubber_band"
	KindOvershoot     = "overshoot"
	KindOscillation   = "oscillation"
	KindLaunch        = "launch"
	KindMomentumError = "momentum_error"
)

// Anomaly is one flagged irregularity in an object's position stream.
type Anomaly struct {
	Kind   string
	Detail string
}

// JumpConfig holds the sudden-position-change thresholds.
type JumpConfig struct {
	// JumpDistance is the inter-sample distance that counts as a
	// teleport when no move or drag is in progress.
	JumpDistance float64

	// MaxVelocity is the px/s ceiling.
	MaxVelocity float64

	// AccumWindow and AccumDistance flag monotone same-direction
	// movement: AccumWindow consecutive samples in one direction
	// summing past AccumDistance suggests two positioning mechanisms
	// fighting.
	AccumWindow   int
	AccumDistance float64

	// DriftVelocity and DriftDistance flag slow but large net movement
	// with no gesture in progress.
	DriftVelocity float64
	DriftDistance float64

	// ThrashCount of the last ThrashWindow samples moving more than
	// ThrashDistance within ThrashInterval flags layout thrash.
	ThrashWindow   int
	ThrashCount    int
	ThrashDistance float64
	ThrashInterval float64
}

// DefaultJumpConfig returns the stock thresholds.
func DefaultJumpConfig() JumpConfig {
	return JumpConfig{
		JumpDistance:   400,
		MaxVelocity:    2500,
		AccumWindow:    5,
		AccumDistance:  200,
		DriftVelocity:  10,
		DriftDistance:  200,
		ThrashWindow:   5,
		ThrashCount:    3,
		ThrashDistance: 10,
		ThrashInterval: 0.050,
	}
}

// JumpDetector flags sudden position changes.
type JumpDetector struct {
	cfg JumpConfig
}

// NewJumpDetector builds the detector. Zero-valued config fields get
// defaults.
func NewJumpDetector(cfg JumpConfig) *JumpDetector {
	def := DefaultJumpConfig()
	if cfg.JumpDistance <= 0 {
		cfg.JumpDistance = def.JumpDistance
	}
	if cfg.MaxVelocity <= 0 {
		cfg.MaxVelocity = def.MaxVelocity
	}
	if cfg.AccumWindow <= 0 {
		cfg.AccumWindow = def.AccumWindow
	}
	if cfg.AccumDistance <= 0 {
		cfg.AccumDistance = def.AccumDistance
	}
	if cfg.DriftVelocity <= 0 {
		cfg.DriftVelocity = def.DriftVelocity
	}
	if cfg.DriftDistance <= 0 {
		cfg.DriftDistance = def.DriftDistance
	}
	if cfg.ThrashWindow <= 0 {
		cfg.ThrashWindow = def.ThrashWindow
	}
	if cfg.ThrashCount <= 0 {
		cfg.ThrashCount = def.ThrashCount
	}
	if cfg.ThrashDistance <= 0 {
		cfg.ThrashDistance = def.ThrashDistance
	}
	if cfg.ThrashInterval <= 0 {
		cfg.ThrashInterval = def.ThrashInterval
	}
	return &JumpDetector{cfg: cfg}
}

// Check inspects the history after a new sample was pushed and returns
// any anomalies the latest sample triggers.
func (d *JumpDetector) Check(h *History) []Anomaly {
	if h.Len() < 2 {
		return nil
	}
	var out []Anomaly
	cur, prev := h.At(h.Len()-1), h.At(h.Len()-2)

	moving := cur.State == object.StateMoving || cur.State == object.StateDragging ||
		prev.State == object.StateMoving || prev.State == object.StateDragging

	if dist := cur.Position.DistanceTo(prev.Position); dist > d.cfg.JumpDistance && !moving {
		out = append(out, Anomaly{
			Kind:   KindSuddenJump,
			Detail: fmt.Sprintf("position changed %.0fpx between samples with no gesture active", dist),
		})
	}
	if cur.Velocity > d.cfg.MaxVelocity {
		out = append(out, Anomaly{
			Kind:   KindVelocityOverflow,
			Detail: fmt.Sprintf("velocity %.0fpx/s exceeds ceiling %.0f", cur.Velocity, d.cfg.MaxVelocity),
		})
	}
	if a := d.checkAccumulation(h); a != nil {
		out = append(out, *a)
	}
	if a := d.checkDrift(h); a != nil {
		out = append(out, *a)
	}
	if a := d.checkThrash(h); a != nil {
		out = append(out, *a)
	}
	return out
}

// checkAccumulation looks for monotone same-direction movement across
// the window on either axis.
func (d *JumpDetector) checkAccumulation(h *History) *Anomaly {
	if h.Len() < d.cfg.AccumWindow {
		return nil
	}
	tail := h.Tail(d.cfg.AccumWindow)
	if sum, ok := monotoneSum(tail, func(s Sample) float64 { return s.Position.X }); ok && sum > d.cfg.AccumDistance {
		return &Anomaly{
			Kind:   KindOffsetAccum,
			Detail: fmt.Sprintf("%d consecutive samples moved %.0fpx in one x direction", d.cfg.AccumWindow, sum),
		}
	}
	if sum, ok := monotoneSum(tail, func(s Sample) float64 { return s.Position.Y }); ok && sum > d.cfg.AccumDistance {
		return &Anomaly{
			Kind:   KindOffsetAccum,
			Detail: fmt.Sprintf("%d consecutive samples moved %.0fpx in one y direction", d.cfg.AccumWindow, sum),
		}
	}
	return nil
}

// monotoneSum returns the total movement along one coordinate and
// whether every step went the same direction.
func monotoneSum(tail []Sample, coord func(Sample) float64) (float64, bool) {
	var sum, sign float64
	for i := 1; i < len(tail); i++ {
		d := coord(tail[i]) - coord(tail[i-1])
		if d == 0 {
			return 0, false
		}
		s := math.Copysign(1, d)
		if sign == 0 {
			sign = s
		} else if s != sign {
			return 0, false
		}
		sum += math.Abs(d)
	}
	return sum, sign != 0
}

// checkDrift flags slow but large net movement while no gesture is
// active anywhere in the window.
func (d *JumpDetector) checkDrift(h *History) *Anomaly {
	first, last := h.At(0), h.At(h.Len()-1)
	span := last.Timestamp.Sub(first.Timestamp).Seconds()
	if span <= 0 {
		return nil
	}
	for i := 0; i < h.Len(); i++ {
		if !idleState(h.At(i).State) {
			return nil
		}
	}
	net := last.Position.DistanceTo(first.Position)
	if net > d.cfg.DriftDistance && net/span < d.cfg.DriftVelocity {
		return &Anomaly{
			Kind:   KindPositionDrift,
			Detail: fmt.Sprintf("drifted %.0fpx at %.1fpx/s with no gesture", net, net/span),
		}
	}
	return nil
}

func idleState(k object.StateKind) bool {
	return k == object.StateIdle || k == object.StateSelecting
}

// checkThrash counts rapid large changes across the recent window.
func (d *JumpDetector) checkThrash(h *History) *Anomaly {
	if h.Len() < d.cfg.ThrashWindow {
		return nil
	}
	tail := h.Tail(d.cfg.ThrashWindow)
	rapid := 0
	for i := 1; i < len(tail); i++ {
		dist := tail[i].Position.DistanceTo(tail[i-1].Position)
		dt := tail[i].Timestamp.Sub(tail[i-1].Timestamp).Seconds()
		if dist > d.cfg.ThrashDistance && dt <= d.cfg.ThrashInterval {
			rapid++
		}
	}
	if rapid >= d.cfg.ThrashCount {
		return &Anomaly{
			Kind:   KindLayoutThrash,
			Detail: fmt.Sprintf("%d of the last %d samples moved >%.0fpx within %.0fms", rapid, d.cfg.ThrashWindow, d.cfg.ThrashDistance, d.cfg.ThrashInterval*1000),
		}
	}
	return nil
}
