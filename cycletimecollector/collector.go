// Package cycletimecollector captures how long control computations take, a
// proxy for whether the tracker keeps up with the planner's update rate.
package cycletimecollector

import "time"

type Aggregation struct {
	P50 time.Duration // P50 is the 50th percentile computation time.
	P75 time.Duration // P75 is the 75th percentile computation time.
	P95 time.Duration // P95 is the 95th percentile computation time.
}

type Collector interface {
	Add(t time.Duration)     // Add sends a new computation time to the collector.
	Aggregate() *Aggregation // Aggregate calculates aggregate metrics over the sliding window.
	Reset()                  // Reset resets the state of the collector for reuse.
}
