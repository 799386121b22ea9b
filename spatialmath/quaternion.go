package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// quaternion is an orientation in quaternion representation.
type quaternion quat.Number

// NewOrientationFromQuaternion returns an Orientation backed by the given
// quaternion, normalized to unit length.
func NewOrientationFromQuaternion(q quat.Number) Orientation {
	qq := quaternion(normalize(q))
	return &qq
}

// Quaternion returns the orientation in quaternion representation.
func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

// EulerAngles returns the orientation in Euler angle representation.
func (q *quaternion) EulerAngles() *EulerAngles {
	return quatToEulerAngles(quat.Number(*q))
}

// RotationMatrix returns the orientation in rotation matrix representation.
func (q *quaternion) RotationMatrix() *RotationMatrix {
	return quatToRotationMatrix(quat.Number(*q))
}

func normalize(q quat.Number) quat.Number {
	length := quat.Abs(q)
	if math.Abs(length-1.0) < 1e-10 {
		return q
	}
	if length == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1./length, q)
}

// quatToRotationMatrix converts a unit quaternion to a rotation matrix.
func quatToRotationMatrix(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	mat := [9]float64{
		1 - 2*y*y - 2*z*z, 2*x*y - 2*z*w, 2*x*z + 2*y*w,
		2*x*y + 2*z*w, 1 - 2*x*x - 2*z*z, 2*y*z - 2*x*w,
		2*x*z - 2*y*w, 2*y*z + 2*x*w, 1 - 2*x*x - 2*y*y,
	}
	return &RotationMatrix{mat}
}

// quatToEulerAngles converts a unit quaternion to the intrinsic z-y'-x''
// Tait-Bryan angles (yaw, pitch, roll).
func quatToEulerAngles(q quat.Number) *EulerAngles {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	sinPitch := 2 * (w*y - x*z)
	if math.Abs(sinPitch) >= 1-gimbalLockEpsilon {
		// gimbal lock. Roll is clamped to zero and the residual twist
		// about the vertical is folded into yaw.
		return &EulerAngles{
			Roll:  0,
			Pitch: math.Copysign(math.Pi/2, sinPitch),
			Yaw:   2 * math.Atan2(z, w),
		}
	}

	return &EulerAngles{
		Roll:  math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y)),
		Pitch: math.Asin(sinPitch),
		Yaw:   math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z)),
	}
}
