package deviationcollector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArrayCollector_Aggregate(t *testing.T) {
	collector := NewArrayCollector()
	for i := 1; i <= 10; i++ {
		collector.Add(float64(i))
	}

	assert.Equal(t, 10, collector.Len())

	aggregation := collector.Aggregate()
	assert.InDelta(t, 5.5, aggregation.Mean, 1e-9)
	assert.InDelta(t, 5.5, aggregation.P50, 1e-9)
	assert.InDelta(t, 10.0, aggregation.P95, 1e-9)
	assert.InDelta(t, 10.0, aggregation.Max, 1e-9)
}

func TestArrayCollector_AggregateEmpty(t *testing.T) {
	collector := NewArrayCollector()
	assert.Equal(t, &Aggregation{}, collector.Aggregate())
}

func TestArrayCollector_AllReturnsCopy(t *testing.T) {
	collector := NewArrayCollector()
	collector.Add(1)
	collector.Add(2)

	all := collector.All()
	all[0] = 99

	assert.Equal(t, []float64{1, 2}, collector.All())
}

func TestArrayCollector_Reset(t *testing.T) {
	collector := NewArrayCollector()
	collector.Add(3)
	collector.Reset()

	assert.Zero(t, collector.Len())
	assert.Empty(t, collector.All())
}
