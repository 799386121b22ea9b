package vision

import (
	"github.com/pkg/errors"
)

// ErrOverlappingSizes is when two size entries both apply to some tag id, so
// size resolution would be ambiguous.
var ErrOverlappingSizes = errors.New("overlapping tag size entries")

type sizeEntry struct {
	lo, hi int // inclusive id range
	size   float64
}

// TagSizes maps tag ids to physical side lengths in meters. Entries are
// added as explicit id sets or inclusive ranges; overlapping entries are
// rejected at construction so each id resolves to at most one size. A
// TagSizes must not be mutated once handed to a Processor, after which it is
// safe for concurrent reads.
type TagSizes struct {
	uniform *float64
	entries []sizeEntry
}

// NewTagSizes creates an empty size mapping; every tag is geometry-only
// until entries are added.
func NewTagSizes() *TagSizes {
	return &TagSizes{}
}

// NewUniformTagSizes creates a mapping that resolves every tag id to the
// same side length.
func NewUniformTagSizes(sizeMeters float64) *TagSizes {
	return &TagSizes{uniform: &sizeMeters}
}

// AddIDs maps the given tag ids to a side length.
func (ts *TagSizes) AddIDs(sizeMeters float64, ids ...int) error {
	for _, id := range ids {
		if err := ts.AddRange(sizeMeters, id, id); err != nil {
			return err
		}
	}
	return nil
}

// AddRange maps the inclusive id range [lo, hi] to a side length.
func (ts *TagSizes) AddRange(sizeMeters float64, lo, hi int) error {
	if hi < lo {
		return errors.Errorf("invalid id range [%d, %d]", lo, hi)
	}
	if sizeMeters <= 0 {
		return errors.Errorf("tag size must be positive, got %f", sizeMeters)
	}
	if ts.uniform != nil {
		return errors.Wrap(ErrOverlappingSizes, "a uniform size already covers all ids")
	}
	for _, e := range ts.entries {
		if lo <= e.hi && hi >= e.lo {
			return errors.Wrapf(ErrOverlappingSizes,
				"range [%d, %d] overlaps existing range [%d, %d]", lo, hi, e.lo, e.hi)
		}
	}
	ts.entries = append(ts.entries, sizeEntry{lo: lo, hi: hi, size: sizeMeters})
	return nil
}

// Resolve returns the side length for a tag id, if one was mapped.
func (ts *TagSizes) Resolve(id int) (float64, bool) {
	if ts == nil {
		return 0, false
	}
	if ts.uniform != nil {
		return *ts.uniform, true
	}
	for _, e := range ts.entries {
		if id >= e.lo && id <= e.hi {
			return e.size, true
		}
	}
	return 0, false
}
