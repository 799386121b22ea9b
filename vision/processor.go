package vision

import (
	"context"
	"image"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/WillB97/april-vision/marker"
	"github.com/WillB97/april-vision/spatialmath"
	"github.com/WillB97/april-vision/transform"
)

// orientationCorrection rotates a marker pose half a turn about its x axis so
// that zero roll corresponds to a marker mounted the ArUco way up.
var orientationCorrection = mustRotation([]float64{
	1, 0, 0,
	0, -1, 0,
	0, 0, -1,
})

func mustRotation(m []float64) *spatialmath.RotationMatrix {
	rot, err := spatialmath.NewRotationMatrix(m)
	if err != nil {
		panic(err)
	}
	return rot
}

// Processor drives detection passes over frames. It holds no mutable state
// between frames: the same frame and detector output always produce the same
// markers, and one Processor may serve any number of concurrent frames.
type Processor struct {
	detector           Detector
	calibration        *transform.PinholeCameraModel
	sizes              *TagSizes
	logger             golog.Logger
	markerFilter       func([]marker.Marker) []marker.Marker
	maskUnknownSizes   bool
	correctOrientation bool
}

// Option configures a Processor at construction.
type Option func(*Processor)

// WithCalibration supplies the camera calibration used for pose estimation.
// Without it every marker is geometry-only.
func WithCalibration(model *transform.PinholeCameraModel) Option {
	return func(p *Processor) { p.calibration = model }
}

// WithTagSizes supplies the mapping from tag ids to physical side lengths.
// Tags with no mapped size are geometry-only.
func WithTagSizes(sizes *TagSizes) Option {
	return func(p *Processor) { p.sizes = sizes }
}

// WithLogger overrides the processor's logger.
func WithLogger(logger golog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithMarkerFilter installs a hook that can filter or reorder the markers of
// a frame before they are returned.
func WithMarkerFilter(filter func([]marker.Marker) []marker.Marker) Option {
	return func(p *Processor) { p.markerFilter = filter }
}

// WithMaskUnknownSizeTags drops detections whose tag id has no mapped size,
// instead of emitting them as geometry-only markers.
func WithMaskUnknownSizeTags() Option {
	return func(p *Processor) { p.maskUnknownSizes = true }
}

// WithOrientationCorrection flips marker orientations so that zero roll is a
// marker mounted with the ArUco reference corner at the top left.
func WithOrientationCorrection() Option {
	return func(p *Processor) { p.correctOrientation = true }
}

// NewProcessor wires a detector to the pose pipeline.
func NewProcessor(detector Detector, opts ...Option) (*Processor, error) {
	if detector == nil {
		return nil, errors.New("a detector is required")
	}
	p := &Processor{
		detector: detector,
		logger:   golog.NewLogger("april_vision"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.calibration != nil {
		if err := p.calibration.CheckValid(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// See runs one detection pass over a frame and returns the visible markers
// in the detector's order. Passing tag ids in only restricts the result to
// that subset, still in detector order.
//
// A marker gets a pose when calibration was supplied, the calibration
// matches the frame resolution exactly, and the tag id has a mapped size.
// Degenerate corner geometry downgrades that marker to geometry-only with a
// logged warning; it never fails the frame.
func (p *Processor) See(ctx context.Context, img image.Image, only ...int) ([]marker.Marker, error) {
	gray, err := ConvertFrame(img)
	if err != nil {
		return nil, err
	}
	detections, err := p.detector(ctx, gray)
	if err != nil {
		return nil, errors.Wrap(err, "detector failed")
	}

	calibration := p.calibration
	if calibration != nil {
		width, height := gray.Bounds().Dx(), gray.Bounds().Dy()
		if !calibration.Matches(width, height) {
			p.logger.Warnw("calibration resolution does not match frame, markers will be geometry-only",
				"calibration_width", calibration.Width, "calibration_height", calibration.Height,
				"frame_width", width, "frame_height", height)
			calibration = nil
		}
	}

	var wanted map[int]struct{}
	if len(only) > 0 {
		wanted = make(map[int]struct{}, len(only))
		for _, id := range only {
			wanted[id] = struct{}{}
		}
	}

	markers := make([]marker.Marker, 0, len(detections))
	for _, det := range detections {
		if wanted != nil {
			if _, ok := wanted[det.ID]; !ok {
				continue
			}
		}
		size, haveSize := p.sizes.Resolve(det.ID)
		if !haveSize {
			if p.maskUnknownSizes {
				continue
			}
			markers = append(markers, marker.New(
				det.ID, det.Family, det.Corners, det.Center, det.DecisionMargin, 0))
			continue
		}
		if calibration == nil {
			markers = append(markers, marker.New(
				det.ID, det.Family, det.Corners, det.Center, det.DecisionMargin, size))
			continue
		}

		pose, err := p.estimate(det, size, calibration)
		if err != nil {
			if errors.Is(err, transform.ErrDegeneratePose) {
				p.logger.Warnw("degenerate marker geometry, emitting geometry-only marker",
					"id", det.ID, "error", err)
				markers = append(markers, marker.New(
					det.ID, det.Family, det.Corners, det.Center, det.DecisionMargin, size))
				continue
			}
			return nil, errors.Wrapf(err, "estimating pose of marker %d", det.ID)
		}
		markers = append(markers, marker.NewWithPose(
			det.ID, det.Family, det.Corners, det.Center, det.DecisionMargin, size, pose))
	}

	if p.markerFilter != nil {
		markers = p.markerFilter(markers)
	}
	p.logger.Debugw("processed frame", "detections", len(detections), "markers", len(markers))
	return markers, nil
}

// SeeIDs runs one detection pass and returns only the visible tag ids, in
// detector order. Size masking and the marker filter apply exactly as in
// See, so the two always report the same tag set, but no pose estimation is
// performed: the filter observes geometry-only markers here.
func (p *Processor) SeeIDs(ctx context.Context, img image.Image) ([]int, error) {
	gray, err := ConvertFrame(img)
	if err != nil {
		return nil, err
	}
	detections, err := p.detector(ctx, gray)
	if err != nil {
		return nil, errors.Wrap(err, "detector failed")
	}
	markers := make([]marker.Marker, 0, len(detections))
	for _, det := range detections {
		size, haveSize := p.sizes.Resolve(det.ID)
		if !haveSize && p.maskUnknownSizes {
			continue
		}
		markers = append(markers, marker.New(
			det.ID, det.Family, det.Corners, det.Center, det.DecisionMargin, size))
	}
	if p.markerFilter != nil {
		markers = p.markerFilter(markers)
	}
	ids := make([]int, 0, len(markers))
	for _, m := range markers {
		ids = append(ids, m.ID())
	}
	return ids, nil
}

// estimate solves the camera-frame pose of one detection and converts it to
// the robot convention. The detector's own pose hint, if any, is ignored.
func (p *Processor) estimate(
	det RawDetection,
	size float64,
	calibration *transform.PinholeCameraModel,
) (spatialmath.Pose, error) {
	cameraPose, err := transform.EstimateMarkerPose(det.Corners, size, calibration)
	if err != nil {
		return nil, err
	}
	robotPose, err := spatialmath.CameraToRobotPose(cameraPose)
	if err != nil {
		return nil, err
	}
	if p.correctOrientation {
		corrected := spatialmath.MatMul(robotPose.Orientation().RotationMatrix(), orientationCorrection)
		robotPose = spatialmath.NewPose(robotPose.Point(), corrected)
	}
	return robotPose, nil
}
