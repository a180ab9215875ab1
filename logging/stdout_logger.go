package logging

import (
	"time"

	"github.com/edaniels/golog"

	"github.com/ugvlab/pathtracker/tracking"
)

// stdoutLogger writes telemetry to the process logger. Per-cycle values go
// to the debug level so a default run only shows aggregates and events.
type stdoutLogger struct {
	log golog.Logger
}

func NewStdoutLogger(log golog.Logger) *stdoutLogger {
	return &stdoutLogger{log: log}
}

func (l *stdoutLogger) LogCommand(linear float64, angular float64) {
	l.log.Debugf("cmd_vel linear: %.3f, angular: %.3f", linear, angular)
}

func (l *stdoutLogger) LogPIDState(p float64, i float64, d float64, errorTerm float64) {
	l.log.Debugf("p: %.3f, i: %.3f, d: %.3f, e(t): %.3f", p, i, d, errorTerm)
}

func (l *stdoutLogger) LogDeviation(_ float64) {
	// Do not log non-aggregated deviations to stdout.
	return
}

func (l *stdoutLogger) LogAggregateDeviations(mean float64, p50 float64, p95 float64, max float64) {
	l.log.Infof("deviation mean: %.3f, p50: %.3f, p95: %.3f, max: %.3f", mean, p50, p95, max)
}

func (l *stdoutLogger) LogCycleTime(_ time.Duration) {
	// Do not log non-aggregated cycle times to stdout.
	return
}

func (l *stdoutLogger) LogParameterChange(params tracking.Params) {
	l.log.Infof("parameters accepted: %+v", params)
}

func (l *stdoutLogger) LogDriftDetected(statistic float64) {
	l.log.Infof("deviation drift detected with test statistic %.3f", statistic)
}
