package stats

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func TestTruncatedNormalSampler(t *testing.T) {
	sampler := NewTruncatedNormalSampler(-0.5, 0.5, 0, 3)

	var samples []float64
	for i := 0; i < 10000; i++ {
		s := sampler.Sample()
		assert.GreaterOrEqual(t, s, -0.5)
		assert.LessOrEqual(t, s, 0.5)
		samples = append(samples, s)
	}

	p, err := plot.New()
	if err != nil {
		panic(err)
	}

	hist, err := plotter.NewHist(plotter.Values(samples), 1000)
	if err != nil {
		panic(err)
	}
	p.Add(hist)

	if err := os.MkdirAll("out", 0755); err != nil {
		panic(err)
	}
	if err := p.Save(10*vg.Inch, 10*vg.Inch, "out/truncated_normal.png"); err != nil {
		panic(err)
	}
}
