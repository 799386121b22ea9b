package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// The camera reports poses in the vision convention: x right in the image,
// y down in the image, z out of the lens into the scene. Downstream robot
// code uses the right-handed body convention: x forward, y left, z up.
// The change of basis between the two is the fixed signed permutation
//
//	robot.x =  camera.z
//	robot.y = -camera.x
//	robot.z = -camera.y
//
// held as a constant matrix rather than re-derived per call.
var cameraToRobotBasis = &RotationMatrix{[9]float64{
	0, 0, 1,
	-1, 0, 0,
	0, -1, 0,
}}

// CameraToRobotBasis returns the constant basis-change matrix mapping camera
// axes to robot axes.
func CameraToRobotBasis() *RotationMatrix {
	return cameraToRobotBasis
}

// CameraToRobotPoint remaps a translation from the camera convention to the
// robot convention. The mapping is a pure permutation with sign flips, so the
// result is exact.
func CameraToRobotPoint(v r3.Vector) r3.Vector {
	return r3.Vector{X: v.Z, Y: -v.X, Z: -v.Y}
}

// RobotToCameraPoint remaps a translation from the robot convention back to
// the camera convention. Inverse of CameraToRobotPoint.
func RobotToCameraPoint(v r3.Vector) r3.Vector {
	return r3.Vector{X: -v.Y, Y: -v.Z, Z: v.X}
}

// CameraToRobotOrientation conjugates a rotation by the basis-change matrix,
// B R Bt. Conjugating by an orthonormal matrix preserves orthonormality, but
// the product is re-orthonormalized to stop floating point drift from
// accumulating across conversions.
func CameraToRobotOrientation(o Orientation) (Orientation, error) {
	return conjugateByBasis(o, cameraToRobotBasis)
}

// RobotToCameraOrientation conjugates a rotation by the transposed
// basis-change matrix, Bt R B. Inverse of CameraToRobotOrientation.
func RobotToCameraOrientation(o Orientation) (Orientation, error) {
	return conjugateByBasis(o, cameraToRobotBasis.Transpose())
}

// CameraToRobotPose converts both components of a camera-convention pose into
// the robot convention.
func CameraToRobotPose(p Pose) (Pose, error) {
	o, err := CameraToRobotOrientation(p.Orientation())
	if err != nil {
		return nil, err
	}
	return NewPose(CameraToRobotPoint(p.Point()), o), nil
}

// RobotToCameraPose converts both components of a robot-convention pose back
// into the camera convention.
func RobotToCameraPose(p Pose) (Pose, error) {
	o, err := RobotToCameraOrientation(p.Orientation())
	if err != nil {
		return nil, err
	}
	return NewPose(RobotToCameraPoint(p.Point()), o), nil
}

func conjugateByBasis(o Orientation, basis *RotationMatrix) (Orientation, error) {
	var product [9]float64
	r := o.RotationMatrix()
	bt := basis.Transpose()
	// product = basis * r * basis^T, expanded row by row
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += basis.Row(i).Dot(r.Col(k)) * bt.At(k, j)
			}
			product[3*i+j] = sum
		}
	}
	return NearestRotation(mat.NewDense(3, 3, product[:]))
}
