package logging

import (
	"time"

	"github.com/edaniels/golog"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/ugvlab/pathtracker/tracking"
)

// influxDBLogger logs the output to an external InfluxDB instance.
type influxDBLogger struct {
	client      influxdb2.Client
	asyncWriter api.WriteAPI
}

func NewInfluxDBLogger(baseURL string, authToken string, org string, bucket string, log golog.Logger) *influxDBLogger {
	options := influxdb2.DefaultOptions()
	options.WriteOptions().SetBatchSize(1000)
	options.WriteOptions().SetFlushInterval(250)

	client := influxdb2.NewClientWithOptions(baseURL, authToken, options)
	writeAPI := client.WriteAPI(org, bucket)

	// Create a goroutine for reading and logging async write errors.
	errorsCh := writeAPI.Errors()
	go func() {
		for err := range errorsCh {
			log.Errorw("influxdb2 logging async write error", "error", err)
		}
	}()

	return &influxDBLogger{
		client:      client,
		asyncWriter: writeAPI,
	}
}

func (l *influxDBLogger) LogCommand(linear float64, angular float64) {
	p := influxdb2.NewPointWithMeasurement("tracker_cmd_vel").
		AddField("linear", linear).
		AddField("angular", angular).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogPIDState(p float64, i float64, d float64, errorTerm float64) {
	point := influxdb2.NewPointWithMeasurement("tracker_pid_state").
		AddField("p", p).
		AddField("i", i).
		AddField("d", d).
		AddField("e_t", errorTerm).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(point)
}

func (l *influxDBLogger) LogDeviation(deviation float64) {
	p := influxdb2.NewPointWithMeasurement("tracker_deviation").
		AddField("d", deviation).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogAggregateDeviations(mean float64, p50 float64, p95 float64, max float64) {
	p := influxdb2.NewPointWithMeasurement("tracker_deviation_aggregate").
		AddField("mean", mean).
		AddField("p50", p50).
		AddField("p95", p95).
		AddField("max", max).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogCycleTime(t time.Duration) {
	p := influxdb2.NewPointWithMeasurement("tracker_cycle_time").
		AddField("seconds", t.Seconds()).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogParameterChange(params tracking.Params) {
	p := influxdb2.NewPointWithMeasurement("tracker_params").
		AddField("target_speed", params.TargetSpeed).
		AddField("kp", params.Kp).
		AddField("ki", params.Ki).
		AddField("kd", params.Kd).
		AddField("lookahead_distance", params.LookaheadDistance).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}

func (l *influxDBLogger) LogDriftDetected(statistic float64) {
	p := influxdb2.NewPointWithMeasurement("tracker_drift").
		AddField("statistic", statistic).
		SetTime(time.Now())
	l.asyncWriter.WritePoint(p)
}
