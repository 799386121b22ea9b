package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Pose represents a rigid transform: a location and orientation relative to
// the origin of some reference frame. Implementations are immutable, a frame
// change produces a new Pose.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type basicPose struct {
	point       r3.Vector
	orientation Orientation
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return &basicPose{point: p, orientation: NewZeroOrientation()}
	}
	return &basicPose{point: p, orientation: o}
}

// NewZeroPose returns a pose at the origin with no rotation.
func NewZeroPose() Pose {
	return &basicPose{orientation: NewZeroOrientation()}
}

// NewPoseFromPoint takes in a position and returns a Pose with no rotation.
func NewPoseFromPoint(p r3.Vector) Pose {
	return &basicPose{point: p, orientation: NewZeroOrientation()}
}

// NewPoseFromOrientation takes in an orientation and returns a Pose at the
// origin.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

func (bp *basicPose) Point() r3.Vector {
	return bp.point
}

func (bp *basicPose) Orientation() Orientation {
	return bp.orientation
}

// PoseAlmostCoincident checks if two poses approximately are at the same
// location, within a millimeter-scale tolerance for meter units.
func PoseAlmostCoincident(a, b Pose) bool {
	const epsilon = 1e-6
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon)
}

// PoseAlmostEqual checks if two poses approximately are at the same location
// and have the same orientation.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostCoincident(a, b) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// R3VectorAlmostEqual compares two r3 vectors element-wise.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return floatAlmostEqual(a.X, b.X, epsilon) &&
		floatAlmostEqual(a.Y, b.Y, epsilon) &&
		floatAlmostEqual(a.Z, b.Z, epsilon)
}
