// Package deviationcollector captures cross-track deviations for monitoring
// how closely the vehicle follows its planned path.
package deviationcollector

// Aggregation summarizes the deviations collected over a window.
type Aggregation struct {
	Mean float64 // Mean is the average deviation in metres.
	P50  float64 // P50 is the median deviation in metres.
	P95  float64 // P95 is the 95th percentile deviation in metres.
	Max  float64 // Max is the largest deviation in metres.
}

type Collector interface {
	All() []float64          // All gets all the deviations collected.
	Len() int                // Len gets the number of deviations collected.
	Add(deviation float64)   // Add sends a new deviation in metres to the collector.
	Aggregate() *Aggregation // Aggregate calculates aggregate metrics over the collected window.
	Reset()                  // Reset resets the state of the collector for reuse.
}
