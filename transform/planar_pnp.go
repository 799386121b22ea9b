package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/WillB97/april-vision/spatialmath"
)

// ErrDegeneratePose is when the four corners of a detection are collinear or
// enclose nearly zero area, so no pose can be recovered. Callers should treat
// such a detection as geometry-only rather than failing the frame.
var ErrDegeneratePose = errors.New("degenerate marker geometry, cannot estimate pose")

// degenerateAreaEpsilon is the pixel-squared area below which a detected quad
// is considered collapsed.
const degenerateAreaEpsilon = 1e-6

// rankEpsilon is the singular value ratio below which the homography system
// is considered rank deficient.
const rankEpsilon = 1e-10

// TagCorners returns the marker-frame corner points for a square tag of the
// given side length in meters. The marker frame has x to the right of the tag
// face, y downward on the face and z into the face, so a marker facing the
// camera square-on carries the identity rotation. Corner order is top-left,
// top-right, bottom-right, bottom-left, matching the detector's pixel corner
// order.
func TagCorners(sizeMeters float64) [4]r3.Vector {
	half := sizeMeters / 2
	return [4]r3.Vector{
		{X: -half, Y: -half, Z: 0},
		{X: half, Y: -half, Z: 0},
		{X: half, Y: half, Z: 0},
		{X: -half, Y: half, Z: 0},
	}
}

// poseCandidate is one of the two geometrically valid interpretations of a
// planar marker observation.
type poseCandidate struct {
	rotation    *spatialmath.RotationMatrix
	translation r3.Vector
}

// EstimateMarkerPose solves the planar perspective-n-point problem for the
// four detected pixel corners of a square tag of known physical size. The
// returned pose is the rigid transform of the marker relative to the camera,
// in the camera convention, with translation in meters.
//
// A single view of a planar target generically admits two valid poses related
// by a reflection about the marker plane. Both candidates are constructed
// explicitly and reprojected through the full intrinsics and distortion
// chain; the candidate with the smaller sum of squared pixel errors wins,
// with ties broken in favor of positive z translation.
func EstimateMarkerPose(
	corners [4]r2.Point,
	tagSizeMeters float64,
	model *PinholeCameraModel,
) (spatialmath.Pose, error) {
	if model == nil {
		return nil, NewNoIntrinsicsError("cannot estimate pose without calibration")
	}
	if err := model.CheckValid(); err != nil {
		return nil, err
	}
	if tagSizeMeters <= 0 {
		return nil, errors.Errorf("tag size must be positive, got %f", tagSizeMeters)
	}
	if area := quadArea(corners); area < degenerateAreaEpsilon {
		return nil, errors.Wrapf(ErrDegeneratePose, "corner area %g px^2", area)
	}

	objPoints := TagCorners(tagSizeMeters)

	// strip the intrinsics and lens distortion so the homography maps the
	// marker plane to ideal normalized image coordinates
	var normalized [4]r2.Point
	for i, c := range corners {
		x, y := model.PixelToRay(c.X, c.Y)
		x, y = model.Distortion.Undistort(x, y)
		normalized[i] = r2.Point{X: x, Y: y}
	}

	var planePoints [4]r2.Point
	for i, p := range objPoints {
		planePoints[i] = r2.Point{X: p.X, Y: p.Y}
	}
	homography, err := computePlanarHomography(planePoints, normalized)
	if err != nil {
		return nil, err
	}

	candidateA, err := decomposeHomography(homography)
	if err != nil {
		return nil, err
	}
	candidateB := reflectedCandidate(candidateA)

	errA := reprojectionError(candidateA, objPoints, corners, model)
	errB := reprojectionError(candidateB, objPoints, corners, model)

	best := candidateA
	switch {
	case errA < errB:
		best = candidateA
	case errB < errA:
		best = candidateB
	case candidateB.translation.Z > candidateA.translation.Z:
		// exact tie, prefer the marker in front of the camera
		best = candidateB
	}

	return spatialmath.NewPose(best.translation, best.rotation), nil
}

// quadArea computes the area of the quad via the shoelace formula. Corner
// winding does not matter, only the magnitude is used.
func quadArea(corners [4]r2.Point) float64 {
	sum := 0.0
	for i := range corners {
		a := corners[i]
		b := corners[(i+1)%4]
		sum += a.X*b.Y - b.X*a.Y
	}
	return math.Abs(sum) / 2
}

// computePlanarHomography solves the direct linear transform for the
// homography taking marker-plane points to normalized image points. The 8x9
// system is solved by SVD, the solution being the right singular vector of
// the smallest singular value.
func computePlanarHomography(plane, image [4]r2.Point) (*mat.Dense, error) {
	m := mat.NewDense(8, 9, nil)
	for i := range plane {
		p := plane[i]
		q := image[i]
		m.SetRow(2*i, []float64{
			-p.X, -p.Y, -1,
			0, 0, 0,
			q.X * p.X, q.X * p.Y, q.X,
		})
		m.SetRow(2*i+1, []float64{
			0, 0, 0,
			-p.X, -p.Y, -1,
			q.Y * p.X, q.Y * p.Y, q.Y,
		})
	}

	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.Wrap(ErrDegeneratePose, "failed to factorize homography system")
	}
	values := svd.Values(nil)
	// a unique solution needs rank 8: exactly one vanishing singular value
	if values[0] == 0 || values[6]/values[0] < rankEpsilon {
		return nil, errors.Wrap(ErrDegeneratePose, "homography system is rank deficient")
	}
	var v mat.Dense
	svd.VTo(&v)

	h := make([]float64, 9)
	for i := range h {
		h[i] = v.At(i, 8)
	}
	return mat.NewDense(3, 3, h), nil
}

// decomposeHomography extracts the rigid transform from a plane-to-image
// homography. For normalized coordinates H ~ [r1 r2 t]; the scale is fixed
// from the average length of the first two columns, the sign from requiring
// the marker in front of the camera, and the rotation is completed by r1 x r2
// and projected back onto SO(3).
func decomposeHomography(h *mat.Dense) (*poseCandidate, error) {
	h1 := r3.Vector{X: h.At(0, 0), Y: h.At(1, 0), Z: h.At(2, 0)}
	h2 := r3.Vector{X: h.At(0, 1), Y: h.At(1, 1), Z: h.At(2, 1)}
	h3 := r3.Vector{X: h.At(0, 2), Y: h.At(1, 2), Z: h.At(2, 2)}

	normSum := h1.Norm() + h2.Norm()
	if normSum < 1e-12 {
		return nil, errors.Wrap(ErrDegeneratePose, "homography scale vanishes")
	}
	lambda := 2 / normSum
	if h3.Z < 0 {
		// the marker must be in front of the camera
		lambda = -lambda
	}

	r1 := h1.Mul(lambda)
	r2c := h2.Mul(lambda)
	r3c := r1.Cross(r2c)
	t := h3.Mul(lambda)

	approx := mat.NewDense(3, 3, []float64{
		r1.X, r2c.X, r3c.X,
		r1.Y, r2c.Y, r3c.Y,
		r1.Z, r2c.Z, r3c.Z,
	})
	rotation, err := spatialmath.NearestRotation(approx)
	if err != nil {
		return nil, errors.Wrapf(ErrDegeneratePose, "cannot orthonormalize rotation: %v", err)
	}
	return &poseCandidate{rotation: rotation, translation: t}, nil
}

// reflectedCandidate constructs the ambiguous mate of a planar pose: the
// solution whose plane normal is the reflection of the original normal about
// the line of sight to the marker center. The in-plane appearance is
// preserved by rotating with the minimal rotation taking one normal to the
// other.
func reflectedCandidate(c *poseCandidate) *poseCandidate {
	sight := c.translation
	norm := sight.Norm()
	if norm < 1e-12 {
		return c
	}
	sight = sight.Mul(1 / norm)

	normal := c.rotation.Col(2)
	reflected := sight.Mul(2 * sight.Dot(normal)).Sub(normal)

	axis := normal.Cross(reflected)
	sinAngle := axis.Norm()
	if sinAngle < 1e-12 {
		// frontoparallel view, the two solutions coincide
		return c
	}
	angle := math.Atan2(sinAngle, normal.Dot(reflected))
	axis = axis.Mul(1 / sinAngle)

	half := angle / 2
	sin := math.Sin(half)
	q := quat.Number{
		Real: math.Cos(half),
		Imag: sin * axis.X,
		Jmag: sin * axis.Y,
		Kmag: sin * axis.Z,
	}
	correction := spatialmath.NewOrientationFromQuaternion(q).RotationMatrix()

	return &poseCandidate{
		rotation:    spatialmath.MatMul(correction, c.rotation),
		translation: c.translation,
	}
}

// reprojectionError projects the marker corners through a candidate pose and
// the full camera model, returning the sum of squared pixel errors against
// the observed corners.
func reprojectionError(
	c *poseCandidate,
	objPoints [4]r3.Vector,
	observed [4]r2.Point,
	model *PinholeCameraModel,
) float64 {
	sum := 0.0
	for i, p := range objPoints {
		camPoint := c.rotation.Mul(p).Add(c.translation)
		if camPoint.Z <= 0 {
			// behind the camera, count as unbounded error
			return math.Inf(1)
		}
		x := camPoint.X / camPoint.Z
		y := camPoint.Y / camPoint.Z
		x, y = model.Distortion.Transform(x, y)
		u := x*model.Fx + model.Ppx
		v := y*model.Fy + model.Ppy
		du := u - observed[i].X
		dv := v - observed[i].Y
		sum += du*du + dv*dv
	}
	return sum
}
