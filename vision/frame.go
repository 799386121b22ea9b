package vision

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// ErrInvalidFrame is when a frame is nil or has no pixels. The frame is
// skipped before the detector is invoked and no markers are emitted.
var ErrInvalidFrame = errors.New("invalid frame")

// ConvertFrame validates a frame and converts it to the grayscale form the
// detector consumes. Grayscale input is passed through without copying.
func ConvertFrame(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, errors.Wrap(ErrInvalidFrame, "frame is nil")
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, errors.Wrapf(ErrInvalidFrame, "frame has empty bounds %v", bounds)
	}
	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray, nil
}
