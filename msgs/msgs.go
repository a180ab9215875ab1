// Package msgs defines the JSON messages exchanged with the rest of the
// vehicle stack: odometry and planned paths flowing in, velocity commands
// flowing out. Field layout mirrors the planner's wire format, so decoded
// values can be used directly without a translation layer.
package msgs

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Vector3 is a three-dimensional vector in metres (or metres per second for
// velocities).
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// R3 converts the vector for use with geometry routines.
func (v Vector3) R3() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// Finite reports whether all components are finite numbers.
func (v Vector3) Finite() bool {
	return finite(v.X, v.Y, v.Z)
}

// Quaternion is an orientation in the world frame using the (x, y, z, w)
// component order used on the wire.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Yaw extracts the rotation around the world vertical axis in radians in
// (-Pi, Pi]. The quaternion is normalized first so slightly denormalized
// orientations from upstream estimators do not skew the heading. The zero
// quaternion yields a zero yaw.
func (q Quaternion) Yaw() float64 {
	n := quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
	if abs := quat.Abs(n); abs > 0 {
		n = quat.Scale(1/abs, n)
	}
	return math.Atan2(2*(n.Real*n.Kmag+n.Imag*n.Jmag), 1-2*(n.Jmag*n.Jmag+n.Kmag*n.Kmag))
}

// Finite reports whether all components are finite numbers.
func (q Quaternion) Finite() bool {
	return finite(q.X, q.Y, q.Z, q.W)
}

// Pose is a position and orientation in the world frame.
type Pose struct {
	Position    Vector3    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// Finite reports whether every component of the pose is a finite number.
func (p Pose) Finite() bool {
	return p.Position.Finite() && p.Orientation.Finite()
}

// PoseStamped wraps a pose as it appears inside a planned path.
type PoseStamped struct {
	Pose Pose `json:"pose"`
}

// Path is an ordered list of waypoints from the local planner, nearest
// first.
type Path struct {
	FrameID string        `json:"frame_id,omitempty"`
	Poses   []PoseStamped `json:"poses"`
}

// Finite reports whether every waypoint in the path is finite.
func (p Path) Finite() bool {
	for _, ps := range p.Poses {
		if !ps.Pose.Finite() {
			return false
		}
	}
	return true
}

// Twist is a velocity command or reading: linear velocity in metres per
// second and angular velocity in radians per second.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// Finite reports whether all components of the twist are finite numbers.
func (t Twist) Finite() bool {
	return t.Linear.Finite() && t.Angular.Finite()
}

// Odometry is the vehicle state estimate: where the vehicle is and how fast
// it is moving, along with the frames the estimate is expressed in.
type Odometry struct {
	FrameID      string `json:"frame_id"`
	ChildFrameID string `json:"child_frame_id"`
	Pose         Pose   `json:"pose"`
	Twist        Twist  `json:"twist"`
}

// SpeedMagnitude returns the magnitude of the linear velocity vector. The
// controller regulates speed rather than signed forward velocity, so reverse
// motion measures as positive speed.
func (o Odometry) SpeedMagnitude() float64 {
	return o.Twist.Linear.R3().Norm()
}

// Finite reports whether the pose and twist of the estimate are finite.
func (o Odometry) Finite() bool {
	return o.Pose.Finite() && o.Twist.Finite()
}

// DecodeOdometry parses an odometry message.
func DecodeOdometry(payload []byte) (Odometry, error) {
	var o Odometry
	if err := json.Unmarshal(payload, &o); err != nil {
		return Odometry{}, fmt.Errorf("decoding odometry: %w", err)
	}
	return o, nil
}

// DecodePath parses a planned path message.
func DecodePath(payload []byte) (Path, error) {
	var p Path
	if err := json.Unmarshal(payload, &p); err != nil {
		return Path{}, fmt.Errorf("decoding path: %w", err)
	}
	return p, nil
}

// EncodeTwist serializes a velocity command for publishing.
func EncodeTwist(t Twist) ([]byte, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encoding twist: %w", err)
	}
	return payload, nil
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
