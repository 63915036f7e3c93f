package protocol

import "errors"

// Depth limits against stack exhaustion from deeply nested payloads.
const (
	// MaxVNodeDepth limits the nesting depth of encoded trees.
	MaxVNodeDepth = 256

	// MaxPatchDepth limits the nesting of patch lists inside RedrawNested,
	// KeyedReorder and KeyedRemove.
	MaxPatchDepth = 128
)

// ErrMaxDepthExceeded is returned when a payload nests deeper than allowed.
var ErrMaxDepthExceeded = errors.New("protocol: maximum nesting depth exceeded")

// depthContext tracks the current decoding depth of one recursive structure.
type depthContext struct {
	current int
	max     int
}

func newDepthContext(max int) *depthContext {
	return &depthContext{max: max}
}

// enter increments the depth, failing without incrementing at the limit.
func (dc *depthContext) enter() error {
	if dc.current >= dc.max {
		return ErrMaxDepthExceeded
	}
	dc.current++
	return nil
}

func (dc *depthContext) leave() {
	dc.current--
}
