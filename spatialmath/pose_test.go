package spatialmath

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNewPose(t *testing.T) {
	p := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, &EulerAngles{Yaw: 0.5})
	test.That(t, p.Point(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, p.Orientation().EulerAngles().Yaw, test.ShouldAlmostEqual, 0.5)

	// nil orientation defaults to no rotation
	p = NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, nil)
	test.That(t, OrientationAlmostEqual(p.Orientation(), NewZeroOrientation()), test.ShouldBeTrue)
}

func TestPoseAlmostEqual(t *testing.T) {
	a := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, &EulerAngles{Roll: 0.1})
	b := NewPose(r3.Vector{X: 1, Y: 2, Z: 3 + 1e-9}, &EulerAngles{Roll: 0.1})
	c := NewPose(r3.Vector{X: 1, Y: 2, Z: 3.1}, &EulerAngles{Roll: 0.1})
	d := NewPose(r3.Vector{X: 1, Y: 2, Z: 3}, &EulerAngles{Roll: 0.2})

	test.That(t, PoseAlmostEqual(a, b), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(a, c), test.ShouldBeFalse)
	test.That(t, PoseAlmostEqual(a, d), test.ShouldBeFalse)

	test.That(t, PoseAlmostCoincident(a, d), test.ShouldBeTrue)
}

func TestZeroPose(t *testing.T) {
	z := NewZeroPose()
	test.That(t, z.Point(), test.ShouldResemble, r3.Vector{})
	test.That(t, PoseAlmostEqual(z, NewPoseFromPoint(r3.Vector{})), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(z, NewPoseFromOrientation(NewZeroOrientation())), test.ShouldBeTrue)
}
