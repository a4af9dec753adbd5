package domain

import (
	"fmt"
	"regexp"
)

// referencePattern matches the canonical single-video page shape:
// .../@<handle>/video/<numeric-id>. The id must be purely numeric and
// end at a path, query or fragment boundary; trailing garbage glued to
// the digits is not a valid reference.
var referencePattern = regexp.MustCompile(`@([\w.-]+)/video/(\d+)(?:[/?#]|$)`)

// TargetReference identifies one video resource: the author handle and
// the numeric video id parsed from its page URL.
type TargetReference struct {
	Handle string
	ID     string
}

// ParseReference extracts a TargetReference from a video page URL.
// It is a pure function with no I/O; callers must check the error
// before launching any browser work. Returns ErrInvalidReference when
// the URL does not match the @handle/video/id shape.
func ParseReference(pageURL string) (TargetReference, error) {
	m := referencePattern.FindStringSubmatch(pageURL)
	if m == nil {
		return TargetReference{}, fmt.Errorf("%w: %q does not match @handle/video/id", ErrInvalidReference, pageURL)
	}
	return TargetReference{Handle: m[1], ID: m[2]}, nil
}

// DefaultFilename derives the default output filename for the
// reference: <handle>_<id>.mp4.
func (r TargetReference) DefaultFilename() string {
	return fmt.Sprintf("%s_%s.mp4", r.Handle, r.ID)
}

// String returns the reference in @handle/video/id form for logging.
func (r TargetReference) String() string {
	return "@" + r.Handle + "/video/" + r.ID
}
