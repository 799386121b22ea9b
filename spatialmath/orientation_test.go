package spatialmath

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// a 45 degree rotation around the x axis in each representation
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
	ea45x = &EulerAngles{Roll: th, Pitch: 0, Yaw: 0}
)

func TestZeroOrientation(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, zero.Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, zero.EulerAngles(), test.ShouldResemble, NewEulerAngles())
	test.That(t, zero.RotationMatrix().At(0, 0), test.ShouldEqual, 1.)
	test.That(t, zero.RotationMatrix().At(1, 1), test.ShouldEqual, 1.)
	test.That(t, zero.RotationMatrix().At(2, 2), test.ShouldEqual, 1.)
}

func TestQuaternionEulerConversion(t *testing.T) {
	qq45x := NewOrientationFromQuaternion(q45x)
	test.That(t, qq45x.EulerAngles().Roll, test.ShouldAlmostEqual, ea45x.Roll)
	test.That(t, qq45x.EulerAngles().Pitch, test.ShouldAlmostEqual, ea45x.Pitch)
	test.That(t, qq45x.EulerAngles().Yaw, test.ShouldAlmostEqual, ea45x.Yaw)

	q := ea45x.Quaternion()
	test.That(t, q.Real, test.ShouldAlmostEqual, q45x.Real)
	test.That(t, q.Imag, test.ShouldAlmostEqual, q45x.Imag)
	test.That(t, q.Jmag, test.ShouldAlmostEqual, q45x.Jmag)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, q45x.Kmag)
}

func TestEulerAnglesRoundTrip(t *testing.T) {
	angles := []*EulerAngles{
		{Roll: 0.2, Pitch: -0.3, Yaw: 1.4},
		{Roll: -2.8, Pitch: 1.2, Yaw: -0.1},
		{Roll: math.Pi - 0.01, Pitch: -1.3, Yaw: -math.Pi + 0.01},
	}
	for _, ea := range angles {
		back := quatToEulerAngles(ea.Quaternion())
		test.That(t, back.Roll, test.ShouldAlmostEqual, ea.Roll, 1e-9)
		test.That(t, back.Pitch, test.ShouldAlmostEqual, ea.Pitch, 1e-9)
		test.That(t, back.Yaw, test.ShouldAlmostEqual, ea.Yaw, 1e-9)
	}
}

func TestGimbalLock(t *testing.T) {
	// at pitch of +-pi/2 only the sum or difference of yaw and roll is
	// observable. Roll is reported as zero and yaw carries the twist.
	for _, sign := range []float64{1, -1} {
		ea := &EulerAngles{Roll: 0, Pitch: sign * math.Pi / 2, Yaw: 0.6}
		back := quatToEulerAngles(ea.Quaternion())
		test.That(t, back.Roll, test.ShouldAlmostEqual, 0)
		test.That(t, back.Pitch, test.ShouldAlmostEqual, sign*math.Pi/2)
		test.That(t, back.Yaw, test.ShouldAlmostEqual, 0.6, 1e-9)
	}
}

func TestRotationMatrixRoundTrip(t *testing.T) {
	ea := &EulerAngles{Roll: 0.25, Pitch: -0.5, Yaw: 2.0}
	rm := ea.RotationMatrix()
	back := rm.EulerAngles()
	test.That(t, back.Roll, test.ShouldAlmostEqual, ea.Roll, 1e-9)
	test.That(t, back.Pitch, test.ShouldAlmostEqual, ea.Pitch, 1e-9)
	test.That(t, back.Yaw, test.ShouldAlmostEqual, ea.Yaw, 1e-9)
}

func TestNewRotationMatrixValidation(t *testing.T) {
	_, err := NewRotationMatrix([]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "need exactly 9")

	// a scaled identity is not a rotation
	_, err = NewRotationMatrix([]float64{2, 0, 0, 0, 2, 0, 0, 0, 2})
	test.That(t, err, test.ShouldNotBeNil)

	// a reflection has determinant -1
	_, err = NewRotationMatrix([]float64{1, 0, 0, 0, 1, 0, 0, 0, -1})
	test.That(t, err, test.ShouldNotBeNil)

	rm, err := NewRotationMatrix([]float64{0, -1, 0, 1, 0, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rm.EulerAngles().Yaw, test.ShouldAlmostEqual, math.Pi/2)
}

func TestNearestRotation(t *testing.T) {
	// a valid rotation must project onto itself
	ea := &EulerAngles{Roll: 0.1, Pitch: 0.2, Yaw: 0.3}
	nearest, err := NearestRotation(ea.RotationMatrix().Dense())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, OrientationAlmostEqual(nearest, ea), test.ShouldBeTrue)

	// perturbing the matrix must still yield a proper rotation close to the
	// original
	noisy := ea.RotationMatrix().Dense()
	noisy.Set(0, 1, noisy.At(0, 1)+1e-4)
	noisy.Set(2, 0, noisy.At(2, 0)-1e-4)
	nearest, err = NearestRotation(noisy)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, QuaternionAlmostEqual(nearest.Quaternion(), ea.Quaternion(), 1e-3), test.ShouldBeTrue)

	_, err = NearestRotation(mat.NewDense(2, 2, nil))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMatMul(t *testing.T) {
	yaw := (&EulerAngles{Yaw: 0.5}).RotationMatrix()
	yawInv := yaw.Transpose()
	product := MatMul(yaw, yawInv)
	test.That(t, OrientationAlmostEqual(product, NewZeroOrientation()), test.ShouldBeTrue)
}

func TestQuaternionAlmostEqualDoubleCover(t *testing.T) {
	q := (&EulerAngles{Roll: 0.3, Pitch: 0.1, Yaw: -0.7}).Quaternion()
	negated := quat.Scale(-1, q)
	test.That(t, QuaternionAlmostEqual(q, negated, 1e-8), test.ShouldBeTrue)
}
