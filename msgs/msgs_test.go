package msgs

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuaternionYaw(t *testing.T) {
	halfSqrt2 := math.Sqrt2 / 2

	tests := []struct {
		name string
		q    Quaternion
		want float64
	}{
		{name: "identity faces along x", q: Quaternion{W: 1}, want: 0},
		{name: "quarter turn left", q: Quaternion{Z: halfSqrt2, W: halfSqrt2}, want: math.Pi / 2},
		{name: "quarter turn right", q: Quaternion{Z: -halfSqrt2, W: halfSqrt2}, want: -math.Pi / 2},
		{name: "half turn", q: Quaternion{Z: 1}, want: math.Pi},
		{name: "zero quaternion treated as identity", q: Quaternion{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.q.Yaw(), 1e-9)
		})
	}
}

func TestQuaternionYawNormalizesInput(t *testing.T) {
	// Scaling a quaternion does not change the rotation it encodes; a badly
	// scaled estimate must still produce the same heading.
	halfSqrt2 := math.Sqrt2 / 2
	unit := Quaternion{Z: halfSqrt2, W: halfSqrt2}
	scaled := Quaternion{Z: 3 * halfSqrt2, W: 3 * halfSqrt2}

	assert.InDelta(t, unit.Yaw(), scaled.Yaw(), 1e-9)
}

func TestDecodeOdometry(t *testing.T) {
	payload := []byte(`{
		"frame_id": "world",
		"child_frame_id": "base_link",
		"pose": {
			"position": {"x": 1.5, "y": -2.0, "z": 0.1},
			"orientation": {"x": 0, "y": 0, "z": 0, "w": 1}
		},
		"twist": {
			"linear": {"x": 0.6, "y": 0.8, "z": 0},
			"angular": {"x": 0, "y": 0, "z": 0.2}
		}
	}`)

	o, err := DecodeOdometry(payload)
	require.NoError(t, err)
	assert.Equal(t, "world", o.FrameID)
	assert.Equal(t, "base_link", o.ChildFrameID)
	assert.Equal(t, 1.5, o.Pose.Position.X)
	assert.Equal(t, -2.0, o.Pose.Position.Y)
	assert.InDelta(t, 1.0, o.SpeedMagnitude(), 1e-9)
}

func TestDecodeOdometryRejectsMalformedPayload(t *testing.T) {
	_, err := DecodeOdometry([]byte(`{"pose": `))
	assert.Error(t, err)
}

func TestDecodePath(t *testing.T) {
	payload := []byte(`{
		"frame_id": "world",
		"poses": [
			{"pose": {"position": {"x": 1, "y": 0, "z": 0}}},
			{"pose": {"position": {"x": 2, "y": 0, "z": 0}}}
		]
	}`)

	p, err := DecodePath(payload)
	require.NoError(t, err)
	require.Len(t, p.Poses, 2)
	assert.Equal(t, 2.0, p.Poses[1].Pose.Position.X)
}

func TestDecodePathRejectsMalformedPayload(t *testing.T) {
	_, err := DecodePath([]byte(`[`))
	assert.Error(t, err)
}

func TestEncodeTwistRoundTrips(t *testing.T) {
	payload, err := EncodeTwist(Twist{
		Linear:  Vector3{X: 0.4},
		Angular: Vector3{Z: -0.9},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"linear": {"x": 0.4, "y": 0, "z": 0},
		"angular": {"x": 0, "y": 0, "z": -0.9}
	}`, string(payload))
}

func TestFinite(t *testing.T) {
	assert.True(t, Pose{Position: Vector3{X: 1}}.Finite())
	assert.False(t, Pose{Position: Vector3{X: math.NaN()}}.Finite())
	assert.False(t, Pose{Orientation: Quaternion{W: math.Inf(1)}}.Finite())
	assert.False(t, Twist{Angular: Vector3{Z: math.Inf(-1)}}.Finite())

	p := Path{Poses: []PoseStamped{
		{Pose: Pose{Position: Vector3{X: 1}}},
		{Pose: Pose{Position: Vector3{Y: math.NaN()}}},
	}}
	assert.False(t, p.Finite())
	assert.True(t, Path{}.Finite())
}
