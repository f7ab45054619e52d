package input

import (
	"testing"
	"time"

	"github.com/formgrid/interact/internal/geometry"
)

func TestModifiers(t *testing.T) {
	m := ModShift | ModAlt
	if !m.HasShift() || !m.HasAlt() {
		t.Error("expected shift and alt")
	}
	if m.HasCtrl() || m.HasMeta() {
		t.Error("did not expect ctrl or meta")
	}
}

func TestAxisApply(t *testing.T) {
	d := geometry.Delta{DX: 10, DY: -4}

	tests := []struct {
		axis Axis
		want geometry.Delta
	}{
		{AxisBoth, geometry.Delta{DX: 10, DY: -4}},
		{AxisHorizontal, geometry.Delta{DX: 10, DY: 0}},
		{AxisVertical, geometry.Delta{DX: 0, DY: -4}},
		{AxisNone, geometry.Delta{}},
	}

	for _, tt := range tests {
		t.Run(tt.axis.String(), func(t *testing.T) {
			if got := tt.axis.Apply(d); got != tt.want {
				t.Errorf("Apply() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAxis(t *testing.T) {
	tests := []struct {
		in   string
		want Axis
	}{
		{"both", AxisBoth},
		{"horizontal", AxisHorizontal},
		{"vertical", AxisVertical},
		{"none", AxisNone},
		{"bogus", AxisBoth},
		{"", AxisBoth},
	}

	for _, tt := range tests {
		if got := ParseAxis(tt.in); got != tt.want {
			t.Errorf("ParseAxis(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClickTrackerSequence(t *testing.T) {
	ct := NewClickTracker(400*time.Millisecond, 4)
	base := time.Now()
	pos := geometry.Point{X: 10, Y: 10}

	if got := ct.RecordClick(pos, base); got != 1 {
		t.Errorf("first click count = %d, want 1", got)
	}
	if got := ct.RecordClick(pos, base.Add(100*time.Millisecond)); got != 2 {
		t.Errorf("second click count = %d, want 2", got)
	}
	if got := ct.RecordClick(pos, base.Add(200*time.Millisecond)); got != 3 {
		t.Errorf("third click count = %d, want 3", got)
	}
	// Fourth rapid click starts over.
	if got := ct.RecordClick(pos, base.Add(300*time.Millisecond)); got != 1 {
		t.Errorf("fourth click count = %d, want 1", got)
	}
}

func TestClickTrackerBreaksSequence(t *testing.T) {
	ct := NewClickTracker(400*time.Millisecond, 4)
	base := time.Now()

	ct.RecordClick(geometry.Point{X: 10, Y: 10}, base)

	// Too slow.
	if got := ct.RecordClick(geometry.Point{X: 10, Y: 10}, base.Add(time.Second)); got != 1 {
		t.Errorf("slow click count = %d, want 1", got)
	}

	// Too far.
	ct.Reset()
	ct.RecordClick(geometry.Point{X: 10, Y: 10}, base)
	if got := ct.RecordClick(geometry.Point{X: 50, Y: 50}, base.Add(50*time.Millisecond)); got != 1 {
		t.Errorf("distant click count = %d, want 1", got)
	}
}
