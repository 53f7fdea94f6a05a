package trace

import (
	"fmt"
)

// InvalidArgumentError reports an incompatible option combination at a
// Simplify or render call site. It is surfaced immediately and never
// retried.
type InvalidArgumentError struct {
	Option string
	Mode   Mode
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("%s cannot be combined with simplify mode %q", e.Option, e.Mode)
}

// malformedTrace reports a parent index that breaks the capture contract.
// This is an internal-consistency violation, not a user error.
func malformedTrace(pos, parent int) string {
	return fmt.Sprintf("trace: frame %d has malformed parent index %d", pos, parent)
}
