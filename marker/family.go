package marker

// Family is the name of an AprilTag family.
//
// To support AprilTag 2 libraries use Tag36h11.
type Family string

// The tag families supported by the upstream detectors.
const (
	Tag16h5          = Family("tag16h5")
	Tag25h9          = Family("tag25h9")
	Tag36h11         = Family("tag36h11")
	TagCircle21h7    = Family("tagCircle21h7")
	TagCircle49h12   = Family("tagCircle49h12")
	TagCustom48h12   = Family("tagCustom48h12")
	TagStandard41h12 = Family("tagStandard41h12")
	TagStandard52h13 = Family("tagStandard52h13")
)
