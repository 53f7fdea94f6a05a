// Package condition implements the Fern condition object model: the closed
// class hierarchy (condition/message/warning/error/interrupt), the open
// subclass tag for user-defined categories, and the error taxonomy the
// backtrace engine reports for invalid option combinations.
package condition

import (
	"fmt"

	"fern/internal/trace"
)

// Class defines the built-in severity of a condition.
type Class uint8

const (
	// ClassCondition is the base class for bare signals.
	ClassCondition Class = iota
	// ClassMessage is for informational messages.
	ClassMessage
	// ClassWarning is for recoverable warnings.
	ClassWarning
	ClassError
	ClassInterrupt
)

func (c Class) String() string {
	switch c {
	case ClassCondition:
		return "condition"
	case ClassMessage:
		return "message"
	case ClassWarning:
		return "warning"
	case ClassError:
		return "error"
	case ClassInterrupt:
		return "interrupt"
	}
	return "unknown"
}

// ParseClass maps a class name to its Class. Unknown names are not an
// error: they become user-defined subclass tags on the base class.
func ParseClass(s string) (Class, bool) {
	switch s {
	case "condition":
		return ClassCondition, true
	case "message":
		return ClassMessage, true
	case "warning":
		return ClassWarning, true
	case "error":
		return ClassError, true
	case "interrupt":
		return ClassInterrupt, true
	}
	return ClassCondition, false
}

// Condition is a signalled condition. Error-class conditions carry the
// backtrace captured at signal time; Parent chains wrapped conditions.
type Condition struct {
	Class    Class
	Subclass string // optional user-defined category tag
	Message  string
	Parent   *Condition
	Trace    *trace.Trace
}

// New creates a condition of the given class.
func New(class Class, message string) *Condition {
	return &Condition{Class: class, Message: message}
}

// NewError creates an error-class condition.
func NewError(message string) *Condition {
	return New(ClassError, message)
}

// NewWarning creates a warning-class condition.
func NewWarning(message string) *Condition {
	return New(ClassWarning, message)
}

// NewMessage creates a message-class condition.
func NewMessage(message string) *Condition {
	return New(ClassMessage, message)
}

// NewInterrupt creates an interrupt-class condition.
func NewInterrupt() *Condition {
	return New(ClassInterrupt, "interrupt")
}

// Error implements the error interface so error-class conditions propagate
// through ordinary Go error returns inside the evaluator.
func (c *Condition) Error() string {
	if c.Subclass != "" {
		return fmt.Sprintf("%s (%s): %s", c.Class, c.Subclass, c.Message)
	}
	return fmt.Sprintf("%s: %s", c.Class, c.Message)
}

// Is reports whether the condition belongs to the given class or subclass
// tag, walking the parent chain.
func (c *Condition) Is(class Class, subclass string) bool {
	for cur := c; cur != nil; cur = cur.Parent {
		if cur.Class == class && (subclass == "" || cur.Subclass == subclass) {
			return true
		}
	}
	return false
}
