package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// gimbalLockEpsilon is how close the pitch must be to +-pi/2 before the
// remaining rotation is treated as pure yaw.
const gimbalLockEpsilon = 1e-7

// EulerAngles are three angles (in radians) used to represent the rotation of
// an object in 3D Euclidean space. The convention used here is the intrinsic
// z-y'-x'' Tait-Bryan sequence: yaw about z, then pitch about the new y, then
// roll about the final x.
type EulerAngles struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// NewEulerAngles creates an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{Roll: 0, Pitch: 0, Yaw: 0}
}

// EulerAngles returns orientation in Euler angle representation.
func (ea *EulerAngles) EulerAngles() *EulerAngles {
	return ea
}

// Quaternion returns orientation in quaternion representation.
func (ea *EulerAngles) Quaternion() quat.Number {
	cy := math.Cos(ea.Yaw / 2)
	sy := math.Sin(ea.Yaw / 2)
	cp := math.Cos(ea.Pitch / 2)
	sp := math.Sin(ea.Pitch / 2)
	cr := math.Cos(ea.Roll / 2)
	sr := math.Sin(ea.Roll / 2)

	return quat.Number{
		Real: cr*cp*cy + sr*sp*sy,
		Imag: sr*cp*cy - cr*sp*sy,
		Jmag: cr*sp*cy + sr*cp*sy,
		Kmag: cr*cp*sy - sr*sp*cy,
	}
}

// RotationMatrix returns orientation in rotation matrix representation.
func (ea *EulerAngles) RotationMatrix() *RotationMatrix {
	return quatToRotationMatrix(ea.Quaternion())
}
