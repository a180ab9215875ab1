package deviationcollector

import (
	"fmt"
	"sync"

	"github.com/montanaflynn/stats"
)

// arrayCollector captures every deviation between resets. As storage and
// computation are both O(n), the caller is expected to reset it each time a
// window is aggregated.
type arrayCollector struct {
	deviations    []float64
	deviationsMux *sync.Mutex
}

func NewArrayCollector() *arrayCollector {
	return &arrayCollector{
		deviations:    []float64{},
		deviationsMux: &sync.Mutex{},
	}
}

func (c *arrayCollector) All() []float64 {
	c.deviationsMux.Lock()
	defer c.deviationsMux.Unlock()
	deviations := make([]float64, len(c.deviations))
	copy(deviations, c.deviations)
	return deviations
}

func (c *arrayCollector) Len() int {
	c.deviationsMux.Lock()
	defer c.deviationsMux.Unlock()
	return len(c.deviations)
}

func (c *arrayCollector) Add(deviation float64) {
	c.deviationsMux.Lock()
	c.deviations = append(c.deviations, deviation)
	c.deviationsMux.Unlock()
}

func (c *arrayCollector) Aggregate() *Aggregation {
	// The stats package creates a copy of the array, so we must hold onto the
	// mutex while calculations are being made.
	c.deviationsMux.Lock()
	defer c.deviationsMux.Unlock()

	// The stats package requires input arrays to be non-empty.
	if len(c.deviations) == 0 {
		return &Aggregation{}
	}

	mean, err := stats.Mean(c.deviations)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating mean: %w", err))
	}
	p50, err := stats.Median(c.deviations)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p50: %w", err))
	}
	p95, err := stats.Percentile(c.deviations, 95)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating p95: %w", err))
	}
	max, err := stats.Max(c.deviations)
	if err != nil {
		panic(fmt.Errorf("unexpected err in arrayCollector.Aggregate() while calculating max: %w", err))
	}

	return &Aggregation{
		Mean: mean,
		P50:  p50,
		P95:  p95,
		Max:  max,
	}
}

func (c *arrayCollector) Reset() {
	c.deviationsMux.Lock()
	c.deviations = []float64{}
	c.deviationsMux.Unlock()
}
