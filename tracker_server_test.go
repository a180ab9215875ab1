package main

import (
	"math"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugvlab/pathtracker/cycletimecollector"
	"github.com/ugvlab/pathtracker/deviationcollector"
	"github.com/ugvlab/pathtracker/msgs"
	"github.com/ugvlab/pathtracker/pidcontroller"
	"github.com/ugvlab/pathtracker/tracking"
)

type fakeCommandPublisher struct {
	commands []msgs.Twist
}

func (f *fakeCommandPublisher) PublishCommand(command msgs.Twist) error {
	f.commands = append(f.commands, command)
	return nil
}

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// recordingTelemetry counts and captures telemetry calls so tests can check
// what the server reports without a real backend.
type recordingTelemetry struct {
	commands        int
	pidStates       int
	deviations      int
	aggregateCalls  int
	cycleTimes      int
	paramChanges    []tracking.Params
	driftStatistics []float64
}

func (r *recordingTelemetry) LogCommand(float64, float64) {
	r.commands++
}

func (r *recordingTelemetry) LogPIDState(float64, float64, float64, float64) {
	r.pidStates++
}

func (r *recordingTelemetry) LogDeviation(float64) {
	r.deviations++
}

func (r *recordingTelemetry) LogAggregateDeviations(float64, float64, float64, float64) {
	r.aggregateCalls++
}

func (r *recordingTelemetry) LogCycleTime(time.Duration) {
	r.cycleTimes++
}

func (r *recordingTelemetry) LogParameterChange(params tracking.Params) {
	r.paramChanges = append(r.paramChanges, params)
}

func (r *recordingTelemetry) LogDriftDetected(statistic float64) {
	r.driftStatistics = append(r.driftStatistics, statistic)
}

type trackerServerHarness struct {
	server    *TrackerServer
	publisher *fakeCommandPublisher
	telemetry *recordingTelemetry
	clock     *manualClock
}

func newTrackerServerHarness(t *testing.T, params tracking.Params) *trackerServerHarness {
	pid, err := pidcontroller.NewPIDController(0.1, -1, 1, params.Kp, params.Ki, params.Kd)
	require.NoError(t, err)

	store := tracking.NewParamStore(params)
	publisher := &fakeCommandPublisher{}
	telemetry := &recordingTelemetry{}
	clock := &manualClock{now: time.Unix(1700000000, 0)}

	server := NewTrackerServer(&TrackerServerOptions{
		Log:             golog.NewTestLogger(t),
		Telemetry:       telemetry,
		Controller:      tracking.NewController(pid, store),
		Params:          store,
		Publisher:       publisher,
		CycleTimes:      cycletimecollector.NewTachymeterCollector(100),
		Deviations:      deviationcollector.NewArrayCollector(),
		Clock:           clock,
		TelemetryPeriod: time.Second,
		DriftMinSamples: 5,
	})

	return &trackerServerHarness{
		server:    server,
		publisher: publisher,
		telemetry: telemetry,
		clock:     clock,
	}
}

func defaultTestParams() tracking.Params {
	return tracking.Params{
		TargetSpeed:       1.0,
		Kp:                1.0,
		Ki:                0,
		Kd:                0,
		LookaheadDistance: 1.0,
	}
}

func stationaryOdometry() msgs.Odometry {
	return msgs.Odometry{
		FrameID:      "map",
		ChildFrameID: "ugv",
		Pose: msgs.Pose{
			Orientation: msgs.Quaternion{W: 1},
		},
	}
}

func pathThrough(waypoints ...[3]float64) msgs.Path {
	path := msgs.Path{FrameID: "map"}
	for _, w := range waypoints {
		path.Poses = append(path.Poses, msgs.PoseStamped{Pose: msgs.Pose{
			Position:    msgs.Vector3{X: w[0], Y: w[1], Z: w[2]},
			Orientation: msgs.Quaternion{W: 1},
		}})
	}
	return path
}

func TestTrackerServer_PublishesCommandPerPathUpdate(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	h.server.HandleOdometry(stationaryOdometry())
	h.server.HandlePath(pathThrough([3]float64{2, 0, 0}))
	h.server.HandlePath(pathThrough([3]float64{2, 0, 0}))

	require.Len(t, h.publisher.commands, 2)
	assert.InDelta(t, 1.0, h.publisher.commands[0].Linear.X, 0.001)
	assert.InDelta(t, 0.0, h.publisher.commands[0].Angular.Z, 0.001)
	assert.Equal(t, 2, h.telemetry.commands)
	assert.Equal(t, 2, h.telemetry.pidStates)
	assert.Equal(t, 2, h.telemetry.cycleTimes)
	assert.Equal(t, 2, h.telemetry.deviations)
}

func TestTrackerServer_OdometryAloneDoesNotPublish(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	h.server.HandleOdometry(stationaryOdometry())
	h.server.HandleOdometry(stationaryOdometry())
	h.server.HandleOdometry(stationaryOdometry())

	assert.Empty(t, h.publisher.commands)
	stats := h.server.Stats()
	assert.Equal(t, uint64(3), stats.PosesReceived)
	assert.Equal(t, uint64(0), stats.CommandsPublished)
}

func TestTrackerServer_SkipsPathWithoutWaypoints(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	h.server.HandleOdometry(stationaryOdometry())
	h.server.HandlePath(msgs.Path{FrameID: "map"})

	assert.Empty(t, h.publisher.commands)
	stats := h.server.Stats()
	assert.Equal(t, uint64(1), stats.PathsReceived)
	assert.Equal(t, uint64(1), stats.CommandsSkipped)
	assert.Equal(t, uint64(0), stats.CommandsPublished)
}

func TestTrackerServer_HoldsVehicleOnNonFiniteState(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	odometry := stationaryOdometry()
	odometry.Pose.Position.X = math.NaN()
	h.server.HandleOdometry(odometry)
	h.server.HandlePath(pathThrough([3]float64{2, 0, 0}))

	require.Len(t, h.publisher.commands, 1)
	assert.Equal(t, msgs.Twist{}, h.publisher.commands[0])
	stats := h.server.Stats()
	assert.Equal(t, uint64(1), stats.CommandsHeld)
	assert.Equal(t, uint64(1), stats.CommandsPublished)

	// A held command reports no regulator terms or deviation: the state they
	// would be derived from is not trustworthy.
	assert.Equal(t, 1, h.telemetry.commands)
	assert.Equal(t, 0, h.telemetry.pidStates)
	assert.Equal(t, 0, h.telemetry.deviations)
}

func TestTrackerServer_ComputesBeforeFirstOdometry(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	h.server.HandlePath(pathThrough([3]float64{2, 0, 0}))

	require.Len(t, h.publisher.commands, 1)
	assert.InDelta(t, 1.0, h.publisher.commands[0].Linear.X, 0.001)
	assert.InDelta(t, 0.0, h.publisher.commands[0].Angular.Z, 0.001)
}

func TestTrackerServer_UpdateParamsTakesEffectNextComputation(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	h.server.HandleOdometry(stationaryOdometry())
	h.server.HandlePath(pathThrough([3]float64{2, 0, 0}, [3]float64{4, 0, 0}))
	require.Len(t, h.publisher.commands, 1)
	assert.InDelta(t, 1.0, h.publisher.commands[0].Linear.X, 0.001)

	update := tracking.Params{
		TargetSpeed:       0.5,
		Kp:                0.4,
		Ki:                0,
		Kd:                0,
		LookaheadDistance: 3.0,
	}
	stored := h.server.UpdateParams(update)
	assert.Equal(t, update, stored)
	assert.Equal(t, update, h.server.DesiredParams())
	assert.Equal(t, defaultTestParams(), h.server.ActiveParams())

	h.server.HandlePath(pathThrough([3]float64{2, 0, 0}, [3]float64{4, 0, 0}))
	require.Len(t, h.publisher.commands, 2)
	assert.InDelta(t, 0.2, h.publisher.commands[1].Linear.X, 0.001)
	assert.Equal(t, update, h.server.ActiveParams())

	require.Len(t, h.telemetry.paramChanges, 1)
	assert.Equal(t, update, h.telemetry.paramChanges[0])
}

func TestTrackerServer_UpdateParamsClampsLookahead(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	update := defaultTestParams()
	update.LookaheadDistance = 0.01
	stored := h.server.UpdateParams(update)

	assert.Equal(t, tracking.MinLookaheadDistance, stored.LookaheadDistance)
	require.Len(t, h.telemetry.paramChanges, 1)
	assert.Equal(t, tracking.MinLookaheadDistance, h.telemetry.paramChanges[0].LookaheadDistance)
}

func TestTrackerServer_ResetControllerClearsRegulator(t *testing.T) {
	params := tracking.Params{
		TargetSpeed:       1.0,
		Kp:                0,
		Ki:                1.0,
		Kd:                0,
		LookaheadDistance: 1.0,
	}
	h := newTrackerServerHarness(t, params)
	h.server.HandleOdometry(stationaryOdometry())

	h.server.HandlePath(pathThrough([3]float64{2, 0, 0}))
	h.server.HandlePath(pathThrough([3]float64{2, 0, 0}))
	h.server.ResetController()
	h.server.HandlePath(pathThrough([3]float64{2, 0, 0}))

	require.Len(t, h.publisher.commands, 3)
	assert.InDelta(t, 0.1, h.publisher.commands[0].Linear.X, 0.001)
	assert.InDelta(t, 0.2, h.publisher.commands[1].Linear.X, 0.001)
	assert.InDelta(t, 0.1, h.publisher.commands[2].Linear.X, 0.001)
}

func TestTrackerServer_StatsReportsFramesAndPoseAge(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	stats := h.server.Stats()
	assert.False(t, stats.OdometrySeen)
	assert.Equal(t, "world", stats.WorldFrame)
	assert.Equal(t, "base_link", stats.RobotFrame)
	assert.Equal(t, 0.0, stats.PoseAgeSeconds)

	h.server.HandleOdometry(stationaryOdometry())
	h.clock.Advance(3 * time.Second)

	stats = h.server.Stats()
	assert.True(t, stats.OdometrySeen)
	assert.Equal(t, "map", stats.WorldFrame)
	assert.Equal(t, "ugv", stats.RobotFrame)
	assert.InDelta(t, 3.0, stats.PoseAgeSeconds, 0.001)
}

func TestTrackerServer_DriftDetectedAgainstBaseline(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	for i := 0; i < 10; i++ {
		h.server.deviations.Add(0.1 + 0.01*float64(i))
	}
	h.server.flushDeviationWindow()
	assert.Equal(t, 1, h.telemetry.aggregateCalls)
	assert.Empty(t, h.telemetry.driftStatistics)

	for i := 0; i < 10; i++ {
		h.server.deviations.Add(5.0 + 0.01*float64(i))
	}
	h.server.flushDeviationWindow()
	assert.Equal(t, 2, h.telemetry.aggregateCalls)
	require.Len(t, h.telemetry.driftStatistics, 1)
	assert.Greater(t, h.telemetry.driftStatistics[0], 0.0)
}

func TestTrackerServer_NoDriftForSimilarWindows(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	for i := 0; i < 10; i++ {
		h.server.deviations.Add(0.1 + 0.01*float64(i))
	}
	h.server.flushDeviationWindow()

	for i := 0; i < 10; i++ {
		h.server.deviations.Add(0.1 + 0.01*float64(i))
	}
	h.server.flushDeviationWindow()

	assert.Empty(t, h.telemetry.driftStatistics)
}

func TestTrackerServer_UpdateParamsResetsDriftBaseline(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	for i := 0; i < 10; i++ {
		h.server.deviations.Add(0.1 + 0.01*float64(i))
	}
	h.server.flushDeviationWindow()

	h.server.UpdateParams(defaultTestParams())

	// The shifted window becomes the new baseline instead of triggering a
	// drift report, since the old tuning's deviations no longer apply.
	for i := 0; i < 10; i++ {
		h.server.deviations.Add(5.0 + 0.01*float64(i))
	}
	h.server.flushDeviationWindow()

	assert.Empty(t, h.telemetry.driftStatistics)
}

func TestTrackerServer_SmallWindowsDoNotFormBaseline(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	h.server.deviations.Add(0.1)
	h.server.deviations.Add(0.2)
	h.server.flushDeviationWindow()
	assert.Equal(t, 1, h.telemetry.aggregateCalls)

	for i := 0; i < 10; i++ {
		h.server.deviations.Add(5.0 + 0.01*float64(i))
	}
	h.server.flushDeviationWindow()

	assert.Empty(t, h.telemetry.driftStatistics)
}

func TestTrackerServer_StartStop(t *testing.T) {
	h := newTrackerServerHarness(t, defaultTestParams())

	require.NoError(t, h.server.Start())
	assert.Error(t, h.server.Start())

	time.Sleep(10 * time.Millisecond)

	require.NoError(t, h.server.Stop())
	assert.Error(t, h.server.Stop())
}
