package main

import (
	"github.com/edaniels/golog"
	"github.com/ugvlab/pathtracker/config"
	"github.com/ugvlab/pathtracker/cycletimecollector"
	"github.com/ugvlab/pathtracker/deviationcollector"
	"github.com/ugvlab/pathtracker/logging"
	"github.com/ugvlab/pathtracker/missionqueue"
	"github.com/ugvlab/pathtracker/pidcontroller"
	"github.com/ugvlab/pathtracker/tracking"
	"github.com/ugvlab/pathtracker/transport"
	"time"
)

func main() {
	log := golog.NewDevelopmentLogger("pathtracker")
	conf := config.ReadConfig(log)

	var telemetry logging.Logger
	if *conf.Logging.Driver == "noop" {
		telemetry = logging.NewNoopLogger()
	} else if *conf.Logging.Driver == "stdout" {
		telemetry = logging.NewStdoutLogger(log)
	} else if *conf.Logging.Driver == "influxdb" {
		telemetry = logging.NewInfluxDBLogger(
			*conf.Logging.InfluxDB.Host,
			*conf.Logging.InfluxDB.Token,
			*conf.Logging.InfluxDB.Org,
			*conf.Logging.InfluxDB.Bucket,
			log,
		)
	} else {
		log.Fatalf("expected Logging.Driver one of {noop, stdout, influxdb}; got %s", *conf.Logging.Driver)
	}

	pid, err := pidcontroller.NewPIDController(
		*conf.Tracking.Controller.SamplePeriod,
		*conf.Tracking.Controller.OutputMin,
		*conf.Tracking.Controller.OutputMax,
		*conf.Tracking.Controller.Kp,
		*conf.Tracking.Controller.Ki,
		*conf.Tracking.Controller.Kd,
	)
	if err != nil {
		log.Fatalf("expected pidcontroller.NewPIDController() returns nil err; got err = %v", err)
	}

	params := tracking.NewParamStore(tracking.Params{
		TargetSpeed:       *conf.Tracking.Controller.TargetSpeed,
		Kp:                *conf.Tracking.Controller.Kp,
		Ki:                *conf.Tracking.Controller.Ki,
		Kd:                *conf.Tracking.Controller.Kd,
		LookaheadDistance: *conf.Tracking.Controller.LookaheadDistance,
	})

	redis, err := transport.NewRedis(
		*conf.Transport.Redis.Addr,
		*conf.Transport.Redis.Password,
		*conf.Transport.Redis.DB,
		transport.Channels{
			Odometry: *conf.Transport.Channels.Odometry,
			Path:     *conf.Transport.Channels.Path,
			Command:  *conf.Transport.Channels.Command,
		},
		log,
	)
	if err != nil {
		log.Fatalf("expected transport.NewRedis() returns nil err; got err = %v", err)
	}

	server := NewTrackerServer(&TrackerServerOptions{
		Log:             log,
		Telemetry:       telemetry,
		Controller:      tracking.NewController(pid, params),
		Params:          params,
		Publisher:       redis,
		CycleTimes:      cycletimecollector.NewTachymeterCollector(*conf.Tracking.Monitoring.CycleTimeWindow),
		Deviations:      deviationcollector.NewArrayCollector(),
		Clock:           NewRealtimeClock(),
		TelemetryPeriod: time.Duration(*conf.Tracking.Monitoring.TelemetryPeriod * float64(time.Second)),
		DriftMinSamples: *conf.Tracking.Monitoring.DriftMinSamples,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("expected TrackerServer.Start() returns nil err; got err = %v", err)
	}

	if err := redis.Start(transport.Handlers{
		OnOdometry: server.HandleOdometry,
		OnPath:     server.HandlePath,
	}); err != nil {
		log.Fatalf("expected transport.Redis.Start() returns nil err; got err = %v", err)
	}

	if *conf.Transport.Missions.Enabled {
		missions, err := missionqueue.Start(
			*conf.Transport.Redis.Addr,
			*conf.Transport.Redis.Password,
			*conf.Transport.Missions.QueueDB,
			*conf.Transport.Missions.Queue,
			server.HandlePath,
			log,
		)
		if err != nil {
			log.Fatalf("expected missionqueue.Start() returns nil err; got err = %v", err)
		}
		defer missions.Stop()
	}

	log.Infow("path tracker running",
		"odometry_channel", *conf.Transport.Channels.Odometry,
		"path_channel", *conf.Transport.Channels.Path,
		"command_channel", *conf.Transport.Channels.Command,
		"admin_addr", *conf.Admin.Addr,
	)

	api := &APIServer{Server: server}
	if err := api.ListenAndServe(*conf.Admin.Addr); err != nil {
		log.Fatalf("expected APIServer.ListenAndServe() returns nil err; got err = %v", err)
	}
}
