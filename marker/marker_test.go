package marker

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/WillB97/april-vision/spatialmath"
)

var testCorners = [4]r2.Point{
	{X: 100, Y: 100}, {X: 200, Y: 100}, {X: 200, Y: 200}, {X: 100, Y: 200},
}

func posedMarker(translation r3.Vector, orientation spatialmath.Orientation) Marker {
	pose := spatialmath.NewPose(translation, orientation)
	return NewWithPose(5, Tag36h11, testCorners, r2.Point{X: 150, Y: 150}, 40.5, 0.1, pose)
}

func TestGeometryOnlyMarker(t *testing.T) {
	m := New(99, Tag36h11, testCorners, r2.Point{X: 150, Y: 150}, 12.5, 0)

	test.That(t, m.ID(), test.ShouldEqual, 99)
	test.That(t, m.Family(), test.ShouldEqual, Tag36h11)
	test.That(t, m.PixelCorners(), test.ShouldResemble, testCorners)
	test.That(t, m.PixelCenter(), test.ShouldResemble, r2.Point{X: 150, Y: 150})
	test.That(t, m.DecisionMargin(), test.ShouldAlmostEqual, 12.5)
	test.That(t, m.Size(), test.ShouldEqual, 0.)
	test.That(t, m.HasPose(), test.ShouldBeFalse)

	// every derived quantity refuses to answer without a pose
	_, err := m.Pose()
	test.That(t, errors.Is(err, ErrNoPose), test.ShouldBeTrue)
	_, err = m.Distance()
	test.That(t, errors.Is(err, ErrNoPose), test.ShouldBeTrue)
	_, err = m.Bearing()
	test.That(t, errors.Is(err, ErrNoPose), test.ShouldBeTrue)
	_, err = m.Elevation()
	test.That(t, errors.Is(err, ErrNoPose), test.ShouldBeTrue)
	_, err = m.Orientation()
	test.That(t, errors.Is(err, ErrNoPose), test.ShouldBeTrue)
	_, err = m.Cartesian()
	test.That(t, errors.Is(err, ErrNoPose), test.ShouldBeTrue)
	_, err = m.Spherical()
	test.That(t, errors.Is(err, ErrNoPose), test.ShouldBeTrue)
}

func TestDerivedQuantities(t *testing.T) {
	// marker 2m ahead, 1m to the left, 0.5m up
	translation := r3.Vector{X: 2, Y: 1, Z: 0.5}
	m := posedMarker(translation, spatialmath.NewZeroOrientation())

	dist, err := m.Distance()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dist, test.ShouldAlmostEqual, math.Sqrt(4+1+0.25))

	bearing, err := m.Bearing()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bearing, test.ShouldAlmostEqual, math.Atan2(-1, 2))

	elevation, err := m.Elevation()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, elevation, test.ShouldAlmostEqual, math.Atan2(0.5, math.Hypot(2, 1)))

	cartesian, err := m.Cartesian()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cartesian, test.ShouldResemble, translation)

	spherical, err := m.Spherical()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spherical.Distance, test.ShouldAlmostEqual, dist)
	test.That(t, spherical.Theta, test.ShouldAlmostEqual, math.Atan2(1, 2))
	test.That(t, spherical.Phi, test.ShouldAlmostEqual, math.Acos(0.5/dist))
}

func TestSphericalAtOrigin(t *testing.T) {
	// angles are undefined at zero translation, the zero value stands in
	// for NaNs
	m := posedMarker(r3.Vector{}, spatialmath.NewZeroOrientation())
	spherical, err := m.Spherical()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spherical, test.ShouldResemble, SphericalCoordinate{})
}

func TestDistanceIgnoresRotation(t *testing.T) {
	translation := r3.Vector{X: 1.5, Y: -0.5, Z: 0.25}
	plain := posedMarker(translation, spatialmath.NewZeroOrientation())
	rotated := posedMarker(translation, &spatialmath.EulerAngles{Roll: 1.1, Pitch: -0.3, Yaw: 2.2})

	d1, err := plain.Distance()
	test.That(t, err, test.ShouldBeNil)
	d2, err := rotated.Distance()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d1, test.ShouldEqual, d2)
}

func TestOrientation(t *testing.T) {
	angles := &spatialmath.EulerAngles{Roll: 0.1, Pitch: -0.2, Yaw: 0.7}
	m := posedMarker(r3.Vector{X: 1}, angles)

	got, err := m.Orientation()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.Roll, test.ShouldAlmostEqual, angles.Roll, 1e-9)
	test.That(t, got.Pitch, test.ShouldAlmostEqual, angles.Pitch, 1e-9)
	test.That(t, got.Yaw, test.ShouldAlmostEqual, angles.Yaw, 1e-9)
}

func TestMarshalJSON(t *testing.T) {
	m := posedMarker(r3.Vector{X: 1, Y: 2, Z: 3}, spatialmath.NewZeroOrientation())
	data, err := json.Marshal(m)
	test.That(t, err, test.ShouldBeNil)

	var decoded map[string]interface{}
	test.That(t, json.Unmarshal(data, &decoded), test.ShouldBeNil)
	test.That(t, decoded["id"], test.ShouldEqual, 5)
	test.That(t, decoded["family"], test.ShouldEqual, "tag36h11")
	test.That(t, decoded["size"], test.ShouldEqual, 0.1)
	test.That(t, decoded["tvec"], test.ShouldResemble, []interface{}{1., 2., 3.})
	test.That(t, decoded["pixel_corners"], test.ShouldHaveLength, 4)
	test.That(t, decoded["rotation"], test.ShouldHaveLength, 9)

	geometryOnly := New(99, Tag36h11, testCorners, r2.Point{}, 0, 0)
	data, err = json.Marshal(geometryOnly)
	test.That(t, err, test.ShouldBeNil)
	decoded = nil
	test.That(t, json.Unmarshal(data, &decoded), test.ShouldBeNil)
	_, hasTvec := decoded["tvec"]
	test.That(t, hasTvec, test.ShouldBeFalse)
}
