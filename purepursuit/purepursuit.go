// Package purepursuit selects steering targets from a planned path using
// the pure pursuit scheme: chase the first waypoint at least one lookahead
// radius away from the vehicle.
package purepursuit

import (
	"errors"
	"math"

	"github.com/golang/geo/r3"

	"github.com/ugvlab/pathtracker/msgs"
)

// ErrEmptyPath is returned when a path carries no waypoints to chase.
var ErrEmptyPath = errors.New("path contains no waypoints")

// SelectTarget scans the path front to back and returns the first waypoint
// whose Euclidean distance from position is at least lookahead. A waypoint
// exactly on the lookahead radius qualifies. When every waypoint lies inside
// the radius, the final waypoint is returned so the vehicle keeps aiming at
// the end of a short remaining path. Waypoints are never interpolated;
// target density is the planner's concern.
func SelectTarget(position r3.Vector, path msgs.Path, lookahead float64) (msgs.Vector3, error) {
	if len(path.Poses) == 0 {
		return msgs.Vector3{}, ErrEmptyPath
	}

	for _, ps := range path.Poses {
		if ps.Pose.Position.R3().Sub(position).Norm() >= lookahead {
			return ps.Pose.Position, nil
		}
	}

	return path.Poses[len(path.Poses)-1].Pose.Position, nil
}

// CrossTrackDistance returns the distance from position to the nearest
// waypoint of the path. It measures how far the vehicle has drifted off the
// plan and feeds monitoring only; the control law never consumes it.
func CrossTrackDistance(position r3.Vector, path msgs.Path) (float64, error) {
	if len(path.Poses) == 0 {
		return 0, ErrEmptyPath
	}

	nearest := math.Inf(1)
	for _, ps := range path.Poses {
		if d := ps.Pose.Position.R3().Sub(position).Norm(); d < nearest {
			nearest = d
		}
	}
	return nearest, nil
}
