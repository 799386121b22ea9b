// Package marker defines the immutable value object produced for each
// detected fiducial marker, with its derived spatial quantities.
package marker

import (
	"encoding/json"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/WillB97/april-vision/spatialmath"
)

// ErrNoPose is returned when a derived spatial quantity is requested from a
// marker that was detected without calibration or a known physical size.
var ErrNoPose = errors.New("marker was detected without pose information")

// Marker is the reconciled result of one detection in one frame: identity,
// raw pixel geometry, and, when calibration and a physical size were
// available, the pose of the marker in the robot convention. Markers are
// immutable and frame-scoped; there is no identity across frames.
type Marker struct {
	id             int
	family         Family
	corners        [4]r2.Point
	center         r2.Point
	decisionMargin float64
	size           float64
	pose           spatialmath.Pose
}

// New creates a geometry-only marker, with no pose attached. size may be 0
// when no physical size is known for the tag id.
func New(id int, family Family, corners [4]r2.Point, center r2.Point, decisionMargin, size float64) Marker {
	return Marker{
		id:             id,
		family:         family,
		corners:        corners,
		center:         center,
		decisionMargin: decisionMargin,
		size:           size,
	}
}

// NewWithPose creates a marker carrying a robot-convention pose.
func NewWithPose(
	id int,
	family Family,
	corners [4]r2.Point,
	center r2.Point,
	decisionMargin, size float64,
	pose spatialmath.Pose,
) Marker {
	m := New(id, family, corners, center, decisionMargin, size)
	m.pose = pose
	return m
}

// ID returns the marker id number.
func (m Marker) ID() int {
	return m.id
}

// Family returns the tag family of the detected marker, likely tag36h11.
func (m Marker) Family() Family {
	return m.family
}

// PixelCorners returns the pixel locations of the corners of the marker in
// the image, ordered top-left, top-right, bottom-right, bottom-left.
func (m Marker) PixelCorners() [4]r2.Point {
	return m.corners
}

// PixelCenter returns the pixel location of the center of the marker.
func (m Marker) PixelCenter() r2.Point {
	return m.center
}

// DecisionMargin returns the detector's confidence score for the decoded
// identity.
func (m Marker) DecisionMargin() float64 {
	return m.decisionMargin
}

// Size returns the physical side length of the marker in meters, or 0 when
// no size was known for the tag id.
func (m Marker) Size() float64 {
	return m.size
}

// HasPose reports whether a pose was computed for this marker.
func (m Marker) HasPose() bool {
	return m.pose != nil
}

// Pose returns the marker's pose relative to the camera in the robot
// convention: x forward, y left, z up, translation in meters.
func (m Marker) Pose() (spatialmath.Pose, error) {
	if m.pose == nil {
		return nil, ErrNoPose
	}
	return m.pose, nil
}

// Distance returns the Euclidean distance between the camera and the marker
// in meters. Distance depends only on the translation component.
func (m Marker) Distance() (float64, error) {
	if m.pose == nil {
		return 0, ErrNoPose
	}
	return m.pose.Point().Norm(), nil
}

// Bearing returns the horizontal angle to the marker in radians, computed as
// atan2(-y, x) of the robot-convention translation. Zero is straight ahead,
// positive values are clockwise when viewed from above.
func (m Marker) Bearing() (float64, error) {
	if m.pose == nil {
		return 0, ErrNoPose
	}
	t := m.pose.Point()
	return math.Atan2(-t.Y, t.X), nil
}

// Elevation returns the vertical angle to the marker in radians, zero on the
// horizontal plane through the camera, positive upward.
func (m Marker) Elevation() (float64, error) {
	if m.pose == nil {
		return 0, ErrNoPose
	}
	t := m.pose.Point()
	return math.Atan2(t.Z, math.Hypot(t.X, t.Y)), nil
}

// Orientation returns the yaw, pitch and roll of the marker in radians,
// using the intrinsic z-y'-x'' convention of spatialmath.EulerAngles. A
// marker facing the camera square-on has all three angles near zero.
func (m Marker) Orientation() (*spatialmath.EulerAngles, error) {
	if m.pose == nil {
		return nil, ErrNoPose
	}
	return m.pose.Orientation().EulerAngles(), nil
}

// Cartesian returns the robot-convention translation vector of the marker
// in meters: x forward, y left, z up.
func (m Marker) Cartesian() (r3.Vector, error) {
	if m.pose == nil {
		return r3.Vector{}, ErrNoPose
	}
	return m.pose.Point(), nil
}

// SphericalCoordinate is a marker location in spherical form. Theta is the
// azimuth from straight ahead, positive counter-clockwise; Phi is the polar
// angle down from vertical. Distance is in meters, angles in radians.
type SphericalCoordinate struct {
	Distance float64
	Theta    float64
	Phi      float64
}

// Spherical returns the marker's location in spherical coordinates. At zero
// translation the azimuth and polar angle are undefined, so a zero-value
// SphericalCoordinate is returned rather than NaN angles.
func (m Marker) Spherical() (SphericalCoordinate, error) {
	if m.pose == nil {
		return SphericalCoordinate{}, ErrNoPose
	}
	t := m.pose.Point()
	dist := t.Norm()
	if dist == 0 {
		return SphericalCoordinate{}, nil
	}
	return SphericalCoordinate{
		Distance: dist,
		Theta:    math.Atan2(t.Y, t.X),
		Phi:      math.Acos(t.Z / dist),
	}, nil
}

type markerJSON struct {
	ID           int           `json:"id"`
	Family       Family        `json:"family"`
	Size         float64       `json:"size"`
	PixelCorners [4][2]float64 `json:"pixel_corners"`
	Tvec         *[3]float64   `json:"tvec,omitempty"`
	Rotation     *[9]float64   `json:"rotation,omitempty"`
}

// MarshalJSON writes the marker data, including the robot-convention
// translation and rotation matrix when a pose is present.
func (m Marker) MarshalJSON() ([]byte, error) {
	out := markerJSON{
		ID:     m.id,
		Family: m.family,
		Size:   m.size,
	}
	for i, c := range m.corners {
		out.PixelCorners[i] = [2]float64{c.X, c.Y}
	}
	if m.pose != nil {
		t := m.pose.Point()
		out.Tvec = &[3]float64{t.X, t.Y, t.Z}
		rot := m.pose.Orientation().RotationMatrix()
		var rm [9]float64
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				rm[3*i+j] = rot.At(i, j)
			}
		}
		out.Rotation = &rm
	}
	return json.Marshal(out)
}
