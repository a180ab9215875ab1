// Package pidcontroller implements the discrete PID regulator used for
// longitudinal speed control.
package pidcontroller

import "errors"

// PIDController is a fixed-step PID regulator. It assumes Calculate is
// invoked once per control cycle at the period given at construction, so the
// integration and differentiation steps use that period rather than the wall
// clock. Callers are expected to serialize access.
type PIDController struct {
	dt        float64 // Fixed step between Calculate calls, in seconds.
	minOutput float64 // Output will never go below lower bound.
	maxOutput float64 // Output will never go above upper bound.

	kp float64 // Proportional gain constant.
	ki float64 // Integral gain constant.
	kd float64 // Differential gain constant.

	integral      float64 // Accumulated error; gains are applied at output time.
	previousError float64 // Used to calculate the differential term.

	DebugP   float64 // Proportional term of the latest calculation.
	DebugI   float64 // Integral term of the latest calculation.
	DebugD   float64 // Differential term of the latest calculation.
	DebugErr float64 // Raw error of the latest calculation.
}

// NewPIDController validates the step and output bounds and returns a
// regulator with zeroed accumulated state.
func NewPIDController(dt float64, minOutput float64, maxOutput float64, kp float64, ki float64, kd float64) (*PIDController, error) {
	if dt <= 0 {
		return nil, errors.New("expected positive sample step")
	}
	if minOutput > maxOutput {
		return nil, errors.New("expected minOutput <= maxOutput")
	}

	return &PIDController{
		dt:        dt,
		minOutput: minOutput,
		maxOutput: maxOutput,
		kp:        kp,
		ki:        ki,
		kd:        kd,
	}, nil
}

// Calculate advances the regulator by one step and returns the clamped
// control output for the given target and measured values.
func (c *PIDController) Calculate(target float64, measured float64) float64 {
	err := target - measured

	p := c.kp * err

	c.integral += err * c.dt
	i := c.ki * c.integral

	d := c.kd * ((err - c.previousError) / c.dt)

	c.previousError = err

	output := p + i + d
	if output > c.maxOutput {
		output = c.maxOutput
	} else if output < c.minOutput {
		output = c.minOutput
	}

	c.DebugP = p
	c.DebugI = i
	c.DebugD = d
	c.DebugErr = err

	return output
}

// UpdateSettings replaces the gains while keeping the accumulated integral
// and previous error, so retuning mid-run does not jolt the output.
func (c *PIDController) UpdateSettings(kp float64, ki float64, kd float64) {
	c.kp = kp
	c.ki = ki
	c.kd = kd
}

// Gains returns the gains currently in effect.
func (c *PIDController) Gains() (kp float64, ki float64, kd float64) {
	return c.kp, c.ki, c.kd
}

// SampleStep returns the fixed step the regulator was built with, in seconds.
func (c *PIDController) SampleStep() float64 {
	return c.dt
}

// Reset clears the accumulated integral and error history. Use it when the
// vehicle is re-tasked and the history no longer describes the plant.
func (c *PIDController) Reset() {
	c.integral = 0
	c.previousError = 0
	c.DebugP = 0
	c.DebugI = 0
	c.DebugD = 0
	c.DebugErr = 0
}
