package transform

import (
	"github.com/pkg/errors"
)

// BrownConrady is the Brown-Conrady lens distortion model, extended with the
// rational radial terms, in OpenCV coefficient order:
//
//	k1 k2 p1 p2 [k3 [k4 k5 k6]]
//
// Coefficient vectors of length 0, 4, 5 and 8 are accepted. The model acts
// on normalized image-plane coordinates, so its coefficients are independent
// of image resolution.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	RadialK4     float64 `json:"rk4"`
	RadialK5     float64 `json:"rk5"`
	RadialK6     float64 `json:"rk6"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`

	nParams int
}

// NewBrownConrady takes in a slice of distortion coefficients in OpenCV
// order. An empty or nil slice is a distortion-free model.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	switch len(inp) {
	case 0:
		return &BrownConrady{}, nil
	case 4:
		return &BrownConrady{
			RadialK1: inp[0], RadialK2: inp[1],
			TangentialP1: inp[2], TangentialP2: inp[3],
			nParams: 4,
		}, nil
	case 5:
		return &BrownConrady{
			RadialK1: inp[0], RadialK2: inp[1],
			TangentialP1: inp[2], TangentialP2: inp[3],
			RadialK3: inp[4],
			nParams:  5,
		}, nil
	case 8:
		return &BrownConrady{
			RadialK1: inp[0], RadialK2: inp[1],
			TangentialP1: inp[2], TangentialP2: inp[3],
			RadialK3: inp[4], RadialK4: inp[5], RadialK5: inp[6], RadialK6: inp[7],
			nParams: 8,
		}, nil
	default:
		return nil, errors.Wrapf(ErrCalibrationDimension,
			"distortion coefficient vector has length %d, expected 0, 4, 5 or 8", len(inp))
	}
}

// Parameters returns the parameters of the distortion model as a list of
// floats in the order they were supplied.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	switch bc.nParams {
	case 4:
		return []float64{bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2}
	case 5:
		return []float64{bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2, bc.RadialK3}
	case 8:
		return []float64{
			bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2,
			bc.RadialK3, bc.RadialK4, bc.RadialK5, bc.RadialK6,
		}
	default:
		return []float64{}
	}
}

// Transform applies the forward distortion model to an undistorted normalized
// image-plane point (x, y), returning the distorted point.
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	radial := (1 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r6) /
		(1 + bc.RadialK4*r2 + bc.RadialK5*r4 + bc.RadialK6*r6)
	xd := x*radial + 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x)
	yd := y*radial + bc.TangentialP1*(r2+2*y*y) + 2*bc.TangentialP2*x*y
	return xd, yd
}

// Undistort inverts the distortion model for a distorted normalized point
// (xd, yd). The forward model has no closed-form inverse, so the undistorted
// point is found by fixed-point iteration: repeatedly strip the distortion
// terms evaluated at the current estimate.
func (bc *BrownConrady) Undistort(xd, yd float64) (float64, float64) {
	if bc == nil {
		return xd, yd
	}

	const maxIterations = 25
	const tolerance = 1e-12

	x, y := xd, yd
	for i := 0; i < maxIterations; i++ {
		r2 := x*x + y*y
		r4 := r2 * r2
		r6 := r4 * r2
		radial := (1 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r6) /
			(1 + bc.RadialK4*r2 + bc.RadialK5*r4 + bc.RadialK6*r6)
		if radial == 0 {
			break
		}
		deltaX := 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x)
		deltaY := bc.TangentialP1*(r2+2*y*y) + 2*bc.TangentialP2*x*y
		xNext := (xd - deltaX) / radial
		yNext := (yd - deltaY) / radial

		dx := xNext - x
		dy := yNext - y
		x, y = xNext, yNext
		if dx*dx+dy*dy < tolerance*tolerance {
			break
		}
	}
	return x, y
}
