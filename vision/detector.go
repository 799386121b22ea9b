// Package vision drives one detection pass over a camera frame: it invokes
// an external fiducial detector, reconciles the raw detections with the
// calibration and tag-size configuration, and emits immutable markers.
package vision

import (
	"context"
	"image"

	"github.com/golang/geo/r2"

	"github.com/WillB97/april-vision/marker"
	"github.com/WillB97/april-vision/spatialmath"
)

// RawDetection is the per-marker record supplied by an external detector
// library. The processor accepts this shape regardless of which underlying
// detector produced it.
type RawDetection struct {
	// ID is the decoded tag id.
	ID int
	// Family is the tag family the detector was configured for.
	Family marker.Family
	// Corners are the pixel locations of the tag corners, ordered top-left,
	// top-right, bottom-right, bottom-left.
	Corners [4]r2.Point
	// Center is the pixel location of the tag center.
	Center r2.Point
	// DecisionMargin is the detector's confidence in the decoded identity.
	DecisionMargin float64
	// PoseHint is a detector-native pose estimate, if the library provides
	// one. It is informational only; the processor always computes its own
	// pose so results do not change when the detector backend is swapped.
	PoseHint spatialmath.Pose
}

// Detector is the capability the processor depends on: locate fiducial
// markers in a grayscale frame. Implementations wrap an external tag
// detection library and must be deterministic for a given frame.
type Detector func(ctx context.Context, img *image.Gray) ([]RawDetection, error)
