// Package transform provides the camera calibration model and the planar
// pose estimator that turns detected marker corners into camera-frame poses.
package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or
// other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// Calibration stage errors. All of them are fatal to the call that raised
// them, the caller recovers by supplying a different calibration.
var (
	// ErrCalibrationFormat is when a calibration artifact has missing or
	// malformed fields.
	ErrCalibrationFormat = errors.New("invalid calibration format")
	// ErrCalibrationDimension is when a calibration matrix or coefficient
	// vector has the wrong shape.
	ErrCalibrationDimension = errors.New("invalid calibration dimensions")
	// ErrCalibrationAspectMismatch is when a calibration is scaled to a
	// resolution with a different aspect ratio.
	ErrCalibrationAspectMismatch = errors.New("calibration aspect ratio mismatch")
)

// NewNoIntrinsicsError is used when the intrinsics are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrapf(ErrNoIntrinsics, msg)
}

// aspectRatioTolerance is the relative difference in aspect ratio allowed
// when rescaling a calibration to a new resolution.
const aspectRatioTolerance = 0.01

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective
// projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width <= 0 || params.Height <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}

// PointToPixel projects a 3D point in the camera frame to a pixel in the
// image plane, without rounding to integer coordinates.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z != 0. {
		xPx := (x/z)*params.Fx + params.Ppx
		yPx := (y/z)*params.Fy + params.Ppy
		return xPx, yPx
	}
	// if depth is zero, return negative coordinates so that bounds checks
	// will filter the result out
	return -1.0, -1.0
}

// PixelToRay converts a pixel to the normalized image-plane coordinates of
// the ray through it, before any distortion correction.
func (params *PinholeCameraIntrinsics) PixelToRay(u, v float64) (float64, float64) {
	return (u - params.Ppx) / params.Fx, (v - params.Ppy) / params.Fy
}

// PinholeCameraModel is the model of a pinhole camera: intrinsics for the
// resolution it was calibrated at, plus an optional distortion model.
type PinholeCameraModel struct {
	PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion              *BrownConrady `json:"distortion"`
}

// rawCalibration is the persisted calibration artifact shape.
type rawCalibration struct {
	CameraMatrix           [][]float64 `json:"camera_matrix"`
	DistortionCoefficients []float64   `json:"distortion_coefficients"`
	Width                  int         `json:"width_px"`
	Height                 int         `json:"height_px"`
}

// NewPinholeCameraModelFromJSON parses a persisted calibration artifact. The
// artifact holds a 3x3 camera matrix, a distortion coefficient vector of
// length 0, 4, 5 or 8, and the resolution the calibration was computed for.
func NewPinholeCameraModelFromJSON(r io.Reader) (*PinholeCameraModel, error) {
	var raw rawCalibration
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrapf(ErrCalibrationFormat, "error parsing calibration JSON: %v", err)
	}
	if raw.CameraMatrix == nil {
		return nil, errors.Wrap(ErrCalibrationFormat, "missing camera_matrix field")
	}
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, errors.Wrapf(ErrCalibrationFormat, "missing or invalid resolution (%d, %d)", raw.Width, raw.Height)
	}
	if len(raw.CameraMatrix) != 3 {
		return nil, errors.Wrapf(ErrCalibrationDimension, "camera matrix has %d rows, expected 3", len(raw.CameraMatrix))
	}
	for i, row := range raw.CameraMatrix {
		if len(row) != 3 {
			return nil, errors.Wrapf(ErrCalibrationDimension, "camera matrix row %d has %d columns, expected 3", i, len(row))
		}
	}
	// the intrinsic matrix must be upper triangular with a unit bottom-right
	// entry, anything else is not a projection matrix
	m := raw.CameraMatrix
	for _, idx := range [][2]int{{1, 0}, {2, 0}, {2, 1}} {
		if m[idx[0]][idx[1]] != 0 {
			return nil, errors.Wrapf(ErrCalibrationFormat,
				"camera matrix entry (%d,%d) is %f, expected 0", idx[0], idx[1], m[idx[0]][idx[1]])
		}
	}
	if m[2][2] != 1 {
		return nil, errors.Wrapf(ErrCalibrationFormat, "camera matrix entry (2,2) is %f, expected 1", m[2][2])
	}

	distortion, err := NewBrownConrady(raw.DistortionCoefficients)
	if err != nil {
		return nil, err
	}
	model := &PinholeCameraModel{
		PinholeCameraIntrinsics: PinholeCameraIntrinsics{
			Width:  raw.Width,
			Height: raw.Height,
			Fx:     m[0][0],
			Fy:     m[1][1],
			Ppx:    m[0][2],
			Ppy:    m[1][2],
		},
		Distortion: distortion,
	}
	if err := model.CheckValid(); err != nil {
		return nil, errors.Wrapf(ErrCalibrationFormat, "%v", err)
	}
	return model, nil
}

// NewPinholeCameraModelFromJSONFile takes in a file path to a JSON
// calibration artifact and turns it into a PinholeCameraModel.
func NewPinholeCameraModelFromJSONFile(jsonPath string) (*PinholeCameraModel, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	return NewPinholeCameraModelFromJSON(jsonFile)
}

// Matches reports whether the model was calibrated for exactly the given
// frame resolution. Pose estimation is only valid when it was.
func (model *PinholeCameraModel) Matches(width, height int) bool {
	return model.Width == width && model.Height == height
}

// ScaledTo returns a new model scaled for a different resolution with the
// same aspect ratio. The focal lengths and principal point scale linearly,
// the distortion coefficients are expressed in normalized coordinates and
// are unchanged.
func (model *PinholeCameraModel) ScaledTo(width, height int) (*PinholeCameraModel, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrCalibrationDimension, "invalid target resolution (%d, %d)", width, height)
	}
	oldAspect := float64(model.Width) / float64(model.Height)
	newAspect := float64(width) / float64(height)
	if math.Abs(newAspect/oldAspect-1) > aspectRatioTolerance {
		return nil, errors.Wrapf(ErrCalibrationAspectMismatch,
			"cannot scale %dx%d calibration to %dx%d", model.Width, model.Height, width, height)
	}
	scaleX := float64(width) / float64(model.Width)
	scaleY := float64(height) / float64(model.Height)
	return &PinholeCameraModel{
		PinholeCameraIntrinsics: PinholeCameraIntrinsics{
			Width:  width,
			Height: height,
			Fx:     model.Fx * scaleX,
			Fy:     model.Fy * scaleY,
			Ppx:    model.Ppx * scaleX,
			Ppy:    model.Ppy * scaleY,
		},
		Distortion: model.Distortion,
	}, nil
}
