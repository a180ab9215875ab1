// Package logging ships tracker telemetry to a configurable backend.
package logging

import (
	"time"

	"github.com/ugvlab/pathtracker/tracking"
)

type Logger interface {
	LogCommand(linear float64, angular float64)                                 // Takes in the published velocity command.
	LogPIDState(p float64, i float64, d float64, errorTerm float64)             // Takes in the speed regulator terms.
	LogDeviation(deviation float64)                                             // Takes in a cross-track deviation in metres.
	LogAggregateDeviations(mean float64, p50 float64, p95 float64, max float64) // Takes in deviation aggregates in metres.
	LogCycleTime(t time.Duration)                                               // Takes in the duration of one control computation.
	LogParameterChange(params tracking.Params)                                  // Takes in a newly accepted parameter bundle.
	LogDriftDetected(statistic float64)                                         // Takes in the test statistic of a detected drift.
}

// noopLogger does not perform any logging.
type noopLogger struct{}

func NewNoopLogger() *noopLogger {
	return &noopLogger{}
}

func (*noopLogger) LogCommand(float64, float64) {
	return
}

func (*noopLogger) LogPIDState(float64, float64, float64, float64) {
	return
}

func (*noopLogger) LogDeviation(float64) {
	return
}

func (*noopLogger) LogAggregateDeviations(float64, float64, float64, float64) {
	return
}

func (*noopLogger) LogCycleTime(time.Duration) {
	return
}

func (*noopLogger) LogParameterChange(tracking.Params) {
	return
}

func (*noopLogger) LogDriftDetected(float64) {
	return
}
