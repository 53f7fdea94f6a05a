package interp

import (
	"fmt"
	"strconv"

	"fern/internal/condition"
	"fern/internal/syntax"
	"fern/internal/trace"
)

// Value is a Fern runtime value.
type Value interface {
	Type() string
	String() string
}

// Number is a Fern number (all numbers are float64).
type Number float64

// String is a Fern string.
type String string

// Bool is a Fern boolean.
type Bool bool

// Nil is the Fern nil value.
type Nil struct{}

// ExprValue is quoted, unevaluated code.
type ExprValue struct {
	Expr syntax.Expr
}

// EnvValue is a first-class reference to an environment.
type EnvValue struct {
	Env *Env
}

// TraceValue wraps a captured backtrace.
type TraceValue struct {
	Trace *trace.Trace
}

// ConditionValue wraps a condition passed to handlers.
type ConditionValue struct {
	Cond *condition.Condition
}

// Closure is a user-defined function and its defining environment.
type Closure struct {
	Name   string
	Params []string
	Body   *syntax.Block
	Env    *Env
}

// BuiltinFn implements one builtin. frameEnv is the builtin's own frame
// environment (its identity on the stack); args are pre-evaluated unless
// the builtin is lazy, in which case it reads call.Args itself.
type BuiltinFn func(in *Interp, call *syntax.Call, frameEnv *Env, args []Value) (Value, error)

// Builtin is a host-provided function.
type Builtin struct {
	Name string
	Lazy bool
	Fn   BuiltinFn
}

func (Number) Type() string         { return "number" }
func (String) Type() string         { return "string" }
func (Bool) Type() string           { return "bool" }
func (Nil) Type() string            { return "nil" }
func (ExprValue) Type() string      { return "expression" }
func (EnvValue) Type() string       { return "environment" }
func (TraceValue) Type() string     { return "trace" }
func (ConditionValue) Type() string { return "condition" }
func (*Closure) Type() string       { return "function" }
func (*Builtin) Type() string       { return "builtin" }

func (v Number) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }
func (v String) String() string { return string(v) }

func (v Bool) String() string {
	if v {
		return "true"
	}
	return "false"
}

func (Nil) String() string { return "nil" }

func (v ExprValue) String() string { return "<expr: " + v.Expr.String() + ">" }
func (EnvValue) String() string    { return "<environment>" }

func (v TraceValue) String() string {
	return fmt.Sprintf("<trace: %d frames>", v.Trace.Len())
}

func (v ConditionValue) String() string { return v.Cond.Error() }

func (v *Closure) String() string { return "fn " + v.Name }
func (v *Builtin) String() string { return "builtin " + v.Name }

// truthy defines Fern conditional semantics: false and nil are false,
// everything else is true.
func truthy(v Value) bool {
	switch v := v.(type) {
	case Bool:
		return bool(v)
	case Nil:
		return false
	default:
		return true
	}
}
