package phaseprof

import (
	"fmt"

	"github.com/go-logr/logr"
)

type (
	// Logger is a symbolic link to logr.Logger.
	Logger = logr.Logger

	// Handle is an opaque range handle returned by Backend.OpenAsync. It is
	// owned by whoever opened it until it is passed to Backend.CloseAsync.
	Handle interface{}
)

// Color is an ARGB color value (0xAARRGGBB) used by profiler UIs to paint
// a range.
type Color uint32

// Hex returns the color as eight upper-case hex digits, "AARRGGBB".
func (c Color) Hex() string { return fmt.Sprintf("%08X", uint32(c)) }

// String returns the color as "#AARRGGBB".
func (c Color) String() string { return "#" + c.Hex() }

// Phase is the static classification attached to a range when it opens.
type Phase struct {
	Label string
	Color Color
}

func (p Phase) String() string { return p.Label + "(" + p.Color.String() + ")" }

// CorrelationKey identifies one in-flight asynchronous operation. It must be
// unique among the currently open async ranges of a tracker, and may be
// reused once the previous range for it has ended, as hardware queue slots
// are.
type CorrelationKey uint16
