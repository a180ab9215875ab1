// Package stats provides the statistical helpers behind deviation drift
// detection and simulation noise.
package stats

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TruncatedNormalSampler draws from a normal distribution restricted to
// [lo, hi]. It is used to inject bounded measurement noise into closed-loop
// simulations, where an unbounded tail would make assertions flaky.
type TruncatedNormalSampler struct {
	norm    distuv.Normal
	uniform distuv.Uniform
}

// NewTruncatedNormalSampler builds a sampler seeded from the current time.
func NewTruncatedNormalSampler(lo, hi, mean, sigma float64) *TruncatedNormalSampler {
	norm := distuv.Normal{
		Mu:    mean,
		Sigma: sigma,
	}

	// Use an inverse transform method to sample from the distribution:
	// draw uniformly between the CDF values of the bounds and map the draw
	// back through the quantile function.
	// Reference: https://www.r-bloggers.com/2020/08/generating-data-from-a-truncated-distribution/
	return &TruncatedNormalSampler{
		norm: norm,
		uniform: distuv.Uniform{
			Min: norm.CDF(lo),
			Max: norm.CDF(hi),
			Src: rand.NewSource(uint64(time.Now().UTC().UnixNano())),
		},
	}
}

// Sample returns one draw from the truncated distribution.
func (s *TruncatedNormalSampler) Sample() float64 {
	return s.norm.Quantile(s.uniform.Rand())
}
