package main

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edaniels/golog"

	"github.com/ugvlab/pathtracker/cycletimecollector"
	"github.com/ugvlab/pathtracker/deviationcollector"
	"github.com/ugvlab/pathtracker/logging"
	"github.com/ugvlab/pathtracker/msgs"
	"github.com/ugvlab/pathtracker/purepursuit"
	"github.com/ugvlab/pathtracker/stats"
	"github.com/ugvlab/pathtracker/tracking"
)

// Frame names assumed until the first odometry message reports its own.
const (
	defaultWorldFrame = "world"
	defaultRobotFrame = "base_link"
)

// CommandPublisher publishes velocity commands to the actuation side of the
// transport.
type CommandPublisher interface {
	PublishCommand(command msgs.Twist) error
}

type TrackerServerOptions struct {
	Log             golog.Logger
	Telemetry       logging.Logger
	Controller      *tracking.Controller
	Params          *tracking.ParamStore
	Publisher       CommandPublisher
	CycleTimes      cycletimecollector.Collector
	Deviations      deviationcollector.Collector
	Clock           Clock
	TelemetryPeriod time.Duration
	DriftMinSamples int
}

// TrackerServer turns the event streams into commands: it caches the latest
// vehicle state as odometry arrives and runs one control computation per
// path update. Pose updates never trigger computations, so the command rate
// follows the planner rate.
type TrackerServer struct {
	log       golog.Logger
	telemetry logging.Logger

	controller *tracking.Controller
	params     *tracking.ParamStore
	publisher  CommandPublisher

	cycleTimes cycletimecollector.Collector
	deviations deviationcollector.Collector
	clock      Clock

	// stateMux guards the odometry cache, where writes arrive from the
	// transport and reads happen on the control path and the admin API.
	stateMux     *sync.RWMutex
	lastOdometry msgs.Odometry
	odometryAt   time.Time
	odometrySeen bool
	worldFrame   string
	robotFrame   string

	// computeMux serializes control computations with controller resets and
	// active-parameter reads.
	computeMux *sync.Mutex

	// Counters are read by the admin API while handlers bump them.
	posesReceived     uint64
	pathsReceived     uint64
	commandsPublished uint64
	commandsSkipped   uint64
	commandsHeld      uint64

	// driftMux guards the deviation baseline used for drift detection.
	driftMux        *sync.Mutex
	baseline        []float64
	baselinePending bool
	driftMinSamples int

	telemetryPeriod time.Duration
	// loopWG allows the spawned telemetry goroutine to be gracefully stopped.
	loopStarted bool
	loopWG      *sync.WaitGroup
	loopStop    chan bool
}

func NewTrackerServer(options *TrackerServerOptions) *TrackerServer {
	return &TrackerServer{
		log:             options.Log,
		telemetry:       options.Telemetry,
		controller:      options.Controller,
		params:          options.Params,
		publisher:       options.Publisher,
		cycleTimes:      options.CycleTimes,
		deviations:      options.Deviations,
		clock:           options.Clock,
		stateMux:        &sync.RWMutex{},
		worldFrame:      defaultWorldFrame,
		robotFrame:      defaultRobotFrame,
		computeMux:      &sync.Mutex{},
		driftMux:        &sync.Mutex{},
		baselinePending: true,
		driftMinSamples: options.DriftMinSamples,
		telemetryPeriod: options.TelemetryPeriod,
	}
}

// Start launches the telemetry loop which flushes deviation windows at
// regular intervals.
func (s *TrackerServer) Start() error {
	if s.loopStarted {
		return errors.New("tracker server already started")
	}

	s.loopStop = make(chan bool, 1)
	s.loopWG = &sync.WaitGroup{}
	s.loopWG.Add(1)
	go s.telemetryLoop()

	s.loopStarted = true
	return nil
}

// Stop gracefully stops the telemetry loop.
func (s *TrackerServer) Stop() error {
	if !s.loopStarted {
		return errors.New("tracker server not yet started")
	}

	close(s.loopStop)
	s.loopWG.Wait()

	s.loopStarted = false
	return nil
}

// HandleOdometry refreshes the vehicle state cache. The frames reported by
// the estimate are remembered for diagnostics.
func (s *TrackerServer) HandleOdometry(odometry msgs.Odometry) {
	atomic.AddUint64(&s.posesReceived, 1)

	s.stateMux.Lock()
	s.lastOdometry = odometry
	s.odometryAt = s.clock.Now()
	s.odometrySeen = true
	if odometry.FrameID != "" {
		s.worldFrame = odometry.FrameID
	}
	if odometry.ChildFrameID != "" {
		s.robotFrame = odometry.ChildFrameID
	}
	s.stateMux.Unlock()
}

// HandlePath runs one control computation against the cached vehicle state
// and publishes the resulting command. A path without waypoints produces no
// command at all, while non-finite state holds the vehicle with a zero
// command so actuation does not keep replaying the previous motion.
func (s *TrackerServer) HandlePath(path msgs.Path) {
	atomic.AddUint64(&s.pathsReceived, 1)

	s.computeMux.Lock()
	defer s.computeMux.Unlock()

	s.stateMux.RLock()
	odometry := s.lastOdometry
	seen := s.odometrySeen
	s.stateMux.RUnlock()

	if !seen {
		s.log.Debug("computing command before the first odometry message; assuming origin pose")
	}

	start := s.clock.Now()
	command, err := s.controller.ComputeCommand(odometry.Pose, odometry.SpeedMagnitude(), path)
	cycleTime := s.clock.Now().Sub(start)
	s.cycleTimes.Add(cycleTime)
	s.telemetry.LogCycleTime(cycleTime)

	held := false
	if err != nil {
		switch {
		case errors.Is(err, purepursuit.ErrEmptyPath):
			atomic.AddUint64(&s.commandsSkipped, 1)
			s.log.Warn("skipping command for path without waypoints")
			return
		case errors.Is(err, tracking.ErrNonFinite):
			atomic.AddUint64(&s.commandsHeld, 1)
			s.log.Warnf("holding vehicle with a zero command: %v", err)
			command = msgs.Twist{}
			held = true
		default:
			s.log.Errorw("control computation failed", "error", err)
			return
		}
	}

	if err := s.publisher.PublishCommand(command); err != nil {
		s.log.Errorw("publishing velocity command", "error", err)
		return
	}
	atomic.AddUint64(&s.commandsPublished, 1)
	s.telemetry.LogCommand(command.Linear.X, command.Angular.Z)

	if held {
		return
	}

	p, i, d, errorTerm := s.controller.PIDDebug()
	s.telemetry.LogPIDState(p, i, d, errorTerm)

	if deviation, err := purepursuit.CrossTrackDistance(odometry.Pose.Position.R3(), path); err == nil {
		s.deviations.Add(deviation)
		s.telemetry.LogDeviation(deviation)
	}
}

// UpdateParams accepts a new parameter bundle for the controller to pick up
// at its next computation. The returned bundle reflects any clamping. The
// drift baseline is discarded because deviations observed under the old
// tuning no longer describe the current behaviour.
func (s *TrackerServer) UpdateParams(params tracking.Params) tracking.Params {
	stored := s.params.Set(params)
	if stored.LookaheadDistance != params.LookaheadDistance {
		s.log.Warnf("lookahead distance %v below minimum; clamped to %v",
			params.LookaheadDistance, stored.LookaheadDistance)
	}
	s.telemetry.LogParameterChange(stored)

	s.driftMux.Lock()
	s.baseline = nil
	s.baselinePending = true
	s.driftMux.Unlock()

	return stored
}

// DesiredParams returns the latest accepted parameter bundle.
func (s *TrackerServer) DesiredParams() tracking.Params {
	return s.params.Desired()
}

// ActiveParams returns the parameter values the control law is currently
// running with.
func (s *TrackerServer) ActiveParams() tracking.Params {
	s.computeMux.Lock()
	defer s.computeMux.Unlock()
	return s.controller.ActiveParams()
}

// ResetController clears the speed regulator's accumulated state.
func (s *TrackerServer) ResetController() {
	s.computeMux.Lock()
	s.controller.ResetPID()
	s.computeMux.Unlock()

	s.log.Info("speed regulator state reset")
}

// TrackerStats is the admin API view of the server's counters and windows.
type TrackerStats struct {
	PosesReceived     uint64 `json:"poses_received"`
	PathsReceived     uint64 `json:"paths_received"`
	CommandsPublished uint64 `json:"commands_published"`
	CommandsSkipped   uint64 `json:"commands_skipped"`
	CommandsHeld      uint64 `json:"commands_held"`

	WorldFrame     string  `json:"world_frame"`
	RobotFrame     string  `json:"robot_frame"`
	OdometrySeen   bool    `json:"odometry_seen"`
	PoseAgeSeconds float64 `json:"pose_age_seconds"`

	CycleTimeP50Seconds float64 `json:"cycle_time_p50_seconds"`
	CycleTimeP75Seconds float64 `json:"cycle_time_p75_seconds"`
	CycleTimeP95Seconds float64 `json:"cycle_time_p95_seconds"`

	DeviationMean float64 `json:"deviation_mean_m"`
	DeviationP50  float64 `json:"deviation_p50_m"`
	DeviationP95  float64 `json:"deviation_p95_m"`
	DeviationMax  float64 `json:"deviation_max_m"`
}

func (s *TrackerServer) Stats() TrackerStats {
	s.stateMux.RLock()
	worldFrame := s.worldFrame
	robotFrame := s.robotFrame
	odometrySeen := s.odometrySeen
	var poseAge float64
	if odometrySeen {
		poseAge = s.clock.Now().Sub(s.odometryAt).Seconds()
	}
	s.stateMux.RUnlock()

	cycleTimes := s.cycleTimes.Aggregate()
	deviations := s.deviations.Aggregate()

	return TrackerStats{
		PosesReceived:     atomic.LoadUint64(&s.posesReceived),
		PathsReceived:     atomic.LoadUint64(&s.pathsReceived),
		CommandsPublished: atomic.LoadUint64(&s.commandsPublished),
		CommandsSkipped:   atomic.LoadUint64(&s.commandsSkipped),
		CommandsHeld:      atomic.LoadUint64(&s.commandsHeld),

		WorldFrame:     worldFrame,
		RobotFrame:     robotFrame,
		OdometrySeen:   odometrySeen,
		PoseAgeSeconds: poseAge,

		CycleTimeP50Seconds: cycleTimes.P50.Seconds(),
		CycleTimeP75Seconds: cycleTimes.P75.Seconds(),
		CycleTimeP95Seconds: cycleTimes.P95.Seconds(),

		DeviationMean: deviations.Mean,
		DeviationP50:  deviations.P50,
		DeviationP95:  deviations.P95,
		DeviationMax:  deviations.Max,
	}
}

func (s *TrackerServer) telemetryLoop() {
	ticker := time.NewTicker(s.telemetryPeriod)
	defer ticker.Stop()
	defer s.loopWG.Done()
	for {
		select {
		case <-ticker.C:
			s.flushDeviationWindow()
		case <-s.loopStop:
			return
		}
	}
}

// flushDeviationWindow aggregates and resets the deviation window, then
// feeds the window into drift detection.
func (s *TrackerServer) flushDeviationWindow() {
	window := s.deviations.All()
	aggregation := s.deviations.Aggregate()
	s.deviations.Reset()

	if len(window) == 0 {
		return
	}

	s.telemetry.LogAggregateDeviations(aggregation.Mean, aggregation.P50, aggregation.P95, aggregation.Max)
	s.checkDrift(window)
}

// checkDrift compares the window against the baseline captured after the
// last parameter change. A rejected Kolmogorov-Smirnov test means the
// vehicle tracks its paths differently than it used to, worth an operator's
// attention even while commands keep flowing.
func (s *TrackerServer) checkDrift(window []float64) {
	s.driftMux.Lock()
	defer s.driftMux.Unlock()

	if len(window) < s.driftMinSamples {
		return
	}

	if s.baselinePending {
		s.baseline = window
		s.baselinePending = false
		return
	}
	if len(s.baseline) == 0 {
		return
	}

	rejected, statistic := stats.KolmogorovSmirnovTestRejection(s.baseline, window, stats.P95)
	if rejected {
		s.log.Warnw("cross-track deviation distribution drifted from baseline", "statistic", statistic)
		s.telemetry.LogDriftDetected(statistic)
	}
}
