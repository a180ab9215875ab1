package angles

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		angle float64
		want  float64
	}{
		{name: "zero unchanged", angle: 0, want: 0},
		{name: "quarter turn unchanged", angle: math.Pi / 2, want: math.Pi / 2},
		{name: "negative quarter turn unchanged", angle: -math.Pi / 2, want: -math.Pi / 2},
		{name: "half turn wraps to negative half turn", angle: math.Pi, want: -math.Pi},
		{name: "negative half turn unchanged", angle: -math.Pi, want: -math.Pi},
		{name: "full turn wraps to zero", angle: 2 * math.Pi, want: 0},
		{name: "negative full turn wraps to zero", angle: -2 * math.Pi, want: 0},
		{name: "three quarter turn wraps negative", angle: 3 * math.Pi / 2, want: -math.Pi / 2},
		{name: "three half turns wraps to negative half turn", angle: 3 * math.Pi, want: -math.Pi},
		{name: "many turns collapse", angle: 7*2*math.Pi + 0.25, want: 0.25},
		{name: "many negative turns collapse", angle: -5*2*math.Pi - 0.25, want: -0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalize(tt.angle), 1e-9)
		})
	}
}

func TestNormalizeStaysInInterval(t *testing.T) {
	for angle := -50.0; angle <= 50.0; angle += 0.173 {
		got := Normalize(angle)
		assert.GreaterOrEqual(t, got, -math.Pi)
		assert.Less(t, got, math.Pi)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for angle := -50.0; angle <= 50.0; angle += 0.391 {
		once := Normalize(angle)
		assert.InDelta(t, once, Normalize(once), 1e-12)
	}
}
