package detect

import (
	"fmt"

	"github.com/formgrid/interact/internal/geometry"
	"github.com/formgrid/interact/internal/object"
)

// SlingshotConfig holds the runaway-motion thresholds.
type SlingshotConfig struct {
	// RubberBandDistance is the minimum outward travel, and
	// RubberBandReturn the fraction of it the object must snap back
	// under, within RubberBandWindow seconds, to count as rubber-banding.
	RubberBandDistance float64
	RubberBandReturn   float64
	RubberBandWindow   float64

	// ReversalCount reversals within ReversalWindow seconds flag
	// oscillation.
	ReversalCount  int
	ReversalWindow float64

	// LaunchVelocity is the instantaneous px/s bound.
	LaunchVelocity float64

	// MaxAcceleration is the frame-to-frame px/s^2 bound.
	MaxAcceleration float64
}

// DefaultSlingshotConfig returns the stock thresholds.
func DefaultSlingshotConfig() SlingshotConfig {
	return SlingshotConfig{
		RubberBandDistance: 150,
		RubberBandReturn:   0.30,
		RubberBandWindow:   0.5,
		ReversalCount:      3,
		ReversalWindow:     2.0,
		LaunchVelocity:     3000,
		MaxAcceleration:    10000,
	}
}

// SlingshotDetector flags oscillating, rubber-banding, and runaway
// motion. It keeps per-object overshoot tracking; everything else is
// derived from the sample history alone.
type SlingshotDetector struct {
	cfg     SlingshotConfig
	targets map[object.ID]geometry.Point
	minDist map[object.ID]float64
}

// NewSlingshotDetector builds the detector. Zero-valued config fields
// get defaults.
func NewSlingshotDetector(cfg SlingshotConfig) *SlingshotDetector {
	def := DefaultSlingshotConfig()
	if cfg.RubberBandDistance <= 0 {
		cfg.RubberBandDistance = def.RubberBandDistance
	}
	if cfg.RubberBandReturn <= 0 {
		cfg.RubberBandReturn = def.RubberBandReturn
	}
	if cfg.RubberBandWindow <= 0 {
		cfg.RubberBandWindow = def.RubberBandWindow
	}
	if cfg.ReversalCount <= 0 {
		cfg.ReversalCount = def.ReversalCount
	}
	if cfg.ReversalWindow <= 0 {
		cfg.ReversalWindow = def.ReversalWindow
	}
	if cfg.LaunchVelocity <= 0 {
		cfg.LaunchVelocity = def.LaunchVelocity
	}
	if cfg.MaxAcceleration <= 0 {
		cfg.MaxAcceleration = def.MaxAcceleration
	}
	return &SlingshotDetector{
		cfg:     cfg,
		targets: make(map[object.ID]geometry.Point),
		minDist: make(map[object.ID]float64),
	}
}

// SetTarget declares where the object is expected to land, enabling
// overshoot detection until the target is cleared.
func (d *SlingshotDetector) SetTarget(id object.ID, p geometry.Point) {
	d.targets[id] = p
	delete(d.minDist, id)
}

// ClearTarget stops overshoot tracking for the object.
func (d *SlingshotDetector) ClearTarget(id object.ID) {
	delete(d.targets, id)
	delete(d.minDist, id)
}

// Forget drops all per-object tracking, for destroyed objects.
func (d *SlingshotDetector) Forget(id object.ID) {
	d.ClearTarget(id)
}

// Check inspects the history after a new sample was pushed.
func (d *SlingshotDetector) Check(id object.ID, h *History) []Anomaly {
	if h.Len() < 2 {
		return nil
	}
	var out []Anomaly
	cur, prev := h.At(h.Len()-1), h.At(h.Len()-2)

	if cur.Velocity > d.cfg.LaunchVelocity {
		out = append(out, Anomaly{
			Kind:   KindLaunch,
			Detail: fmt.Sprintf("velocity %.0fpx/s exceeds launch bound %.0f", cur.Velocity, d.cfg.LaunchVelocity),
		})
	}
	if dt := cur.Timestamp.Sub(prev.Timestamp).Seconds(); dt > 0 {
		if accel := (cur.Velocity - prev.Velocity) / dt; accel > d.cfg.MaxAcceleration {
			out = append(out, Anomaly{
				Kind:   KindMomentumError,
				Detail: fmt.Sprintf("acceleration %.0fpx/s^2 exceeds bound %.0f", accel, d.cfg.MaxAcceleration),
			})
		}
	}
	if a := d.checkOscillation(h); a != nil {
		out = append(out, *a)
	}
	if a := d.checkRubberBand(h); a != nil {
		out = append(out, *a)
	}
	if a := d.checkOvershoot(id, cur.Position); a != nil {
		out = append(out, *a)
	}
	return out
}

// checkOscillation counts direction reversals inside the window. A
// reversal is two consecutive movement deltas pointing against each
// other.
func (d *SlingshotDetector) checkOscillation(h *History) *Anomaly {
	last := h.Last().Timestamp
	reversals := 0
	var prevDelta geometry.Delta
	havePrev := false
	for i := 1; i < h.Len(); i++ {
		s := h.At(i)
		if last.Sub(s.Timestamp).Seconds() > d.cfg.ReversalWindow {
			continue
		}
		delta := s.Position.Sub(h.At(i - 1).Position)
		if delta.Length() == 0 {
			continue
		}
		if havePrev && prevDelta.DX*delta.DX+prevDelta.DY*delta.DY < 0 {
			reversals++
		}
		prevDelta, havePrev = delta, true
	}
	if reversals >= d.cfg.ReversalCount {
		return &Anomaly{
			Kind:   KindOscillation,
			Detail: fmt.Sprintf("%d direction reversals within %.0fms", reversals, d.cfg.ReversalWindow*1000),
		}
	}
	return nil
}

// checkRubberBand looks for a large excursion from the gesture-start
// position followed by a fast snap back.
func (d *SlingshotDetector) checkRubberBand(h *History) *Anomaly {
	// The gesture start is the most recent transition into a moving
	// state. Without one in the window there is nothing to measure.
	start := -1
	for i := h.Len() - 1; i >= 0; i-- {
		s := h.At(i)
		if s.State != object.StateMoving && s.State != object.StateDragging {
			break
		}
		start = i
	}
	if start < 0 {
		// The gesture may have just ended; measure from the oldest
		// contiguous moving run ending at the previous sample.
		end := h.Len() - 2
		if end < 0 || (h.At(end).State != object.StateMoving && h.At(end).State != object.StateDragging) {
			return nil
		}
		start = end
		for start > 0 && (h.At(start-1).State == object.StateMoving || h.At(start-1).State == object.StateDragging) {
			start--
		}
	}

	origin := h.At(start).Position
	maxDist := 0.0
	var maxAt int
	for i := start; i < h.Len(); i++ {
		if dist := h.At(i).Position.DistanceTo(origin); dist > maxDist {
			maxDist, maxAt = dist, i
		}
	}
	if maxDist <= d.cfg.RubberBandDistance {
		return nil
	}
	cur := h.Last()
	curDist := cur.Position.DistanceTo(origin)
	elapsed := cur.Timestamp.Sub(h.At(maxAt).Timestamp).Seconds()
	if curDist < maxDist*d.cfg.RubberBandReturn && elapsed <= d.cfg.RubberBandWindow {
		return &Anomaly{
			Kind:   KindRubberBand,
			Detail: fmt.Sprintf("travelled %.0fpx out then snapped back to %.0fpx in %.0fms", maxDist, curDist, elapsed*1000),
		}
	}
	return nil
}

// checkOvershoot fires when the object closed in on its declared target
// and the distance then starts growing again.
func (d *SlingshotDetector) checkOvershoot(id object.ID, p geometry.Point) *Anomaly {
	target, ok := d.targets[id]
	if !ok {
		return nil
	}
	dist := p.DistanceTo(target)
	min, seen := d.minDist[id]
	if !seen || dist < min {
		d.minDist[id] = dist
		return nil
	}
	if dist > min+1 {
		// Report once, then re-arm from the current distance.
		d.minDist[id] = dist
		return &Anomaly{
			Kind:   KindOvershoot,
			Detail: fmt.Sprintf("passed target: distance grew from %.0fpx to %.0fpx", min, dist),
		}
	}
	return nil
}
