// Package spatialmath defines the orientation and pose representations used
// to describe markers relative to a camera, and the fixed basis change
// between the camera's optical axes and the robot's body axes.
package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations
// of the rotation of a rigid object in 3D Euclidean space.
type Orientation interface {
	Quaternion() quat.Number
	EulerAngles() *EulerAngles
	RotationMatrix() *RotationMatrix
}

// NewZeroOrientation returns an orientation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{1, 0, 0, 0}
}

// OrientationAlmostEqual will return a bool describing whether 2 orientations
// are approximately the same.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}

// QuaternionAlmostEqual is an equality test for all the float components of a
// quaternion. Quaternions have a double cover, q and -q represent the same
// rotation, so the negation is checked as well.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	diff := quat.Sub(a, b)
	sum := quat.Add(a, b)
	return quat.Abs(diff) < tol || quat.Abs(sum) < tol
}

func floatAlmostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}
