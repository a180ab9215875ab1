// Package tracking implements the closed-loop trajectory tracking law: a PID
// regulator for longitudinal speed and a pure pursuit steering scheme turned
// into a single velocity command per path update.
package tracking

import (
	"errors"
	"math"

	"github.com/ugvlab/pathtracker/angles"
	"github.com/ugvlab/pathtracker/msgs"
	"github.com/ugvlab/pathtracker/pidcontroller"
	"github.com/ugvlab/pathtracker/purepursuit"
)

// steeringGain converts the heading error in radians into a commanded
// angular rate in radians per second. It is part of the control law tuning
// against the platform and is fixed here rather than exposed as a runtime
// parameter.
const steeringGain = 1.9

// ErrNonFinite is returned when a pose, speed or path carries NaN or Inf
// components. Running the regulator on such input would poison its
// accumulated state.
var ErrNonFinite = errors.New("non-finite input")

// Controller computes velocity commands from the vehicle state and the
// planned path. It is not safe for concurrent use; the server serializes
// computations and resets.
type Controller struct {
	pid    *pidcontroller.PIDController
	params *ParamStore

	// targetSpeed and lookahead are the active values, refreshed from the
	// store at the start of each computation.
	targetSpeed float64
	lookahead   float64

	// lastTarget and lastYawError describe the latest steering decision for
	// telemetry.
	lastTarget   msgs.Vector3
	lastYawError float64
}

// NewController wires the speed regulator to the parameter store. Active
// values are seeded from the store's desired bundle.
func NewController(pid *pidcontroller.PIDController, params *ParamStore) *Controller {
	desired := params.Desired()
	return &Controller{
		pid:         pid,
		params:      params,
		targetSpeed: desired.TargetSpeed,
		lookahead:   desired.LookaheadDistance,
	}
}

// ComputeCommand runs one control cycle: pick up any pending parameters,
// regulate speed towards the target, steer towards the pure pursuit target
// and return the combined command. The linear component is the regulator
// output along the vehicle's forward axis; the angular component is the
// scaled, normalized heading error.
//
// An empty path returns ErrEmptyPath and non-finite input returns
// ErrNonFinite; in both cases the regulator state is left untouched.
func (c *Controller) ComputeCommand(pose msgs.Pose, speed float64, path msgs.Path) (msgs.Twist, error) {
	if pending, due := c.params.TakePending(); due {
		c.pid.UpdateSettings(pending.Kp, pending.Ki, pending.Kd)
		c.targetSpeed = pending.TargetSpeed
		c.lookahead = pending.LookaheadDistance
	}

	if len(path.Poses) == 0 {
		return msgs.Twist{}, purepursuit.ErrEmptyPath
	}
	if !pose.Finite() || math.IsNaN(speed) || math.IsInf(speed, 0) || !path.Finite() {
		return msgs.Twist{}, ErrNonFinite
	}

	linear := c.pid.Calculate(c.targetSpeed, speed)

	target, err := purepursuit.SelectTarget(pose.Position.R3(), path, c.lookahead)
	if err != nil {
		return msgs.Twist{}, err
	}

	yaw := pose.Orientation.Yaw()
	yawToTarget := math.Atan2(target.Y-pose.Position.Y, target.X-pose.Position.X)
	yawError := angles.Normalize(yawToTarget - yaw)

	c.lastTarget = target
	c.lastYawError = yawError

	return msgs.Twist{
		Linear:  msgs.Vector3{X: linear},
		Angular: msgs.Vector3{Z: steeringGain * yawError},
	}, nil
}

// ActiveParams returns the parameter values the control law is currently
// running with, as opposed to the store's desired bundle.
func (c *Controller) ActiveParams() Params {
	kp, ki, kd := c.pid.Gains()
	return Params{
		TargetSpeed:       c.targetSpeed,
		Kp:                kp,
		Ki:                ki,
		Kd:                kd,
		LookaheadDistance: c.lookahead,
	}
}

// PIDDebug returns the terms of the regulator's latest calculation.
func (c *Controller) PIDDebug() (p float64, i float64, d float64, errorTerm float64) {
	return c.pid.DebugP, c.pid.DebugI, c.pid.DebugD, c.pid.DebugErr
}

// LastTarget returns the waypoint the latest computation steered towards.
func (c *Controller) LastTarget() msgs.Vector3 {
	return c.lastTarget
}

// LastYawError returns the normalized heading error of the latest
// computation in radians.
func (c *Controller) LastYawError() float64 {
	return c.lastYawError
}

// ResetPID drops the regulator's accumulated integral and error history.
func (c *Controller) ResetPID() {
	c.pid.Reset()
}
