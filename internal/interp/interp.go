// Package interp evaluates Fern programs. The evaluator doubles as the
// frame source for backtrace capture: every call pushes a frame record
// carrying its call expression, a fresh environment, and the position of
// the frame that evaluated it. Caller positions are recorded explicitly
// rather than inferred from stack order because lazily evaluated code
// (eval with an explicit environment, condition handlers) runs in a
// context other than its textual nesting suggests.
package interp

import (
	"fmt"
	"io"
	"os"

	"fern/internal/condition"
	"fern/internal/config"
	"fern/internal/source"
	"fern/internal/syntax"
	"fern/internal/trace"
)

// maxDepth bounds call nesting so runaway recursion surfaces as a Fern
// error with a backtrace instead of exhausting the Go stack.
const maxDepth = 5000

// frameRec is one live evaluation context.
type frameRec struct {
	call      *syntax.Call
	env       *Env
	callerPos int
	hasSrcRef bool
}

// handlerRec is one registered condition handler. env is the frame
// environment of the with_handlers call that installed it, which is both
// the unwind target and the parent position for handler frames.
type handlerRec struct {
	class     condition.Class
	subclass  string
	haveClass bool
	fn        Value
	env       *Env
}

// unwind transfers control from a signal site to the with_handlers frame
// that handled it. It travels as an ordinary Go error so every evaluation
// layer's cleanup runs on the way out.
type unwind struct {
	env   *Env
	value Value
}

func (*unwind) Error() string { return "uncaught handler transfer" }

// Interp is a Fern interpreter session.
type Interp struct {
	FS     *source.FileSet
	Config *config.Store
	Stdout io.Writer

	// Global is the top-level environment; builtins live here.
	Global *Env

	// LastError holds the most recently signalled error condition, with
	// its captured trace.
	LastError *condition.Condition

	// Warnings accumulates unhandled warning conditions.
	Warnings []*condition.Condition

	envSeq   uint64
	stack    []frameRec
	handlers []handlerRec
}

// New creates an interpreter with builtins installed in the global
// environment.
func New(fs *source.FileSet, cfg *config.Store) *Interp {
	in := &Interp{
		FS:     fs,
		Config: cfg,
		Stdout: os.Stdout,
	}
	in.Global = in.newEnv(nil)
	installBuiltins(in.Global)
	return in
}

func (in *Interp) newEnv(parent *Env) *Env {
	in.envSeq++
	return &Env{
		id:     trace.EnvID(in.envSeq),
		vars:   make(map[string]Value),
		parent: parent,
	}
}

// ListFrames implements trace.FrameSource.
func (in *Interp) ListFrames() []trace.RawFrame {
	raw := make([]trace.RawFrame, len(in.stack))
	for i, fr := range in.stack {
		var call syntax.Expr
		if fr.call != nil {
			call = fr.call
		}
		raw[i] = trace.RawFrame{
			Call:      call,
			Env:       fr.env.id,
			Pos:       i + 1,
			CallerPos: fr.callerPos,
			HasSrcRef: fr.hasSrcRef,
		}
	}
	return raw
}

// posOfEnv maps an environment to the 1-based stack position of the frame
// it belongs to, walking lexical parents until a frame environment is
// found. Returns 0 for the global environment.
func (in *Interp) posOfEnv(env *Env) int {
	for e := env; e != nil; e = e.parent {
		for i := len(in.stack) - 1; i >= 0; i-- {
			if in.stack[i].env == e {
				return i + 1
			}
		}
	}
	return 0
}

func (in *Interp) push(fr frameRec) { in.stack = append(in.stack, fr) }

func (in *Interp) popTo(depth int) { in.stack = in.stack[:depth] }

// capture snapshots the current stack. skip names the capture helper's
// own frame environment so capture machinery stays out of rendered
// output; the configured top-environment boundary is resolved by callee
// name against the live stack, newest match wins.
func (in *Interp) capture(skip trace.EnvID) *trace.Trace {
	opts := trace.CaptureOpts{SkipUntil: skip}
	if name := in.Config.Get().TopEnvName; name != "" {
		for i := len(in.stack) - 1; i >= 0; i-- {
			if in.stack[i].call != nil && syntax.CalleeName(in.stack[i].call) == name {
				opts.Top = in.stack[i].env.id
				break
			}
		}
	}
	return trace.Capture(in, opts)
}

// Run evaluates a parsed program in the global environment and returns
// the value of its last statement.
func (in *Interp) Run(prog *syntax.Program) (Value, error) {
	var last Value = Nil{}
	for _, stmt := range prog.Stmts {
		v, err := in.evalStmt(stmt, in.Global)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (in *Interp) evalStmt(stmt syntax.Stmt, env *Env) (Value, error) {
	switch s := stmt.(type) {
	case *syntax.FnDecl:
		fn := &Closure{Name: s.Name, Params: s.Params, Body: s.Body, Env: env}
		env.Set(s.Name, fn)
		return Nil{}, nil
	case *syntax.LetStmt:
		v, err := in.evalExpr(s.Value, env)
		if err != nil {
			return nil, err
		}
		env.Set(s.Name, v)
		return v, nil
	case *syntax.ExprStmt:
		return in.evalExpr(s.X, env)
	case *syntax.Block:
		return in.evalBlock(s, env)
	}
	return nil, in.raise(env, "unexpected statement %T", stmt)
}

// evalBlock evaluates statements in order and yields the last value.
// Blocks do not introduce scope: bindings land in the enclosing frame
// environment.
func (in *Interp) evalBlock(b *syntax.Block, env *Env) (Value, error) {
	var last Value = Nil{}
	for _, stmt := range b.Stmts {
		v, err := in.evalStmt(stmt, env)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (in *Interp) evalExpr(expr syntax.Expr, env *Env) (Value, error) {
	switch e := expr.(type) {
	case *syntax.Number:
		return Number(e.Value), nil
	case *syntax.String:
		return String(e.Value), nil
	case *syntax.Bool:
		return Bool(e.Value), nil
	case *syntax.Nil:
		return Nil{}, nil
	case *syntax.Ident:
		v, ok := env.Get(e.Name)
		if !ok {
			return nil, in.raise(env, "object %q not found", e.Name)
		}
		return v, nil
	case *syntax.If:
		cond, err := in.evalExpr(e.Cond, env)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return in.evalBlock(e.Then, env)
		}
		if e.Else != nil {
			return in.evalBlock(e.Else, env)
		}
		return Nil{}, nil
	case *syntax.Binary:
		return in.evalBinary(e, env)
	case *syntax.Call:
		return in.evalCall(e, env)
	}
	return nil, in.raise(env, "unexpected expression %T", expr)
}

func (in *Interp) evalCall(call *syntax.Call, env *Env) (Value, error) {
	if call.Pipe == syntax.PipeStage {
		return in.evalPipeChain(call, env)
	}
	fnVal, err := in.evalExpr(call.Fn, env)
	if err != nil {
		return nil, err
	}

	var args []Value
	if bi, ok := fnVal.(*Builtin); !ok || !bi.Lazy {
		args = make([]Value, 0, len(call.Args))
		for _, a := range call.Args {
			v, err := in.evalExpr(a, env)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
	}

	depth := len(in.stack)
	defer in.popTo(depth)
	return in.apply(call, fnVal, args, env)
}

// evalPipeChain evaluates a parse-time-rewritten pipe expression stage by
// stage, oldest first. Each stage frame persists until the whole chain
// completes and all stage frames share the containing frame as caller, so
// a capture inside stage k sees stages 1..k as siblings.
func (in *Interp) evalPipeChain(outer *syntax.Call, env *Env) (Value, error) {
	chain := trace.ReconstructPipe(outer)
	depth := len(in.stack)
	defer in.popTo(depth)

	var cur Value
	if !chain.Leading {
		v, err := in.evalExpr(chain.Head, env)
		if err != nil {
			return nil, err
		}
		cur = v
	}

	for i, stage := range chain.Stages {
		fnVal, err := in.evalExpr(stage.Fn, env)
		if err != nil {
			return nil, err
		}
		var args []Value
		rest := stage.Args
		if stage.Pipe == syntax.PipeStage {
			args = append(args, cur)
			rest = stage.Args[1:]
		} else if i > 0 || !chain.Leading {
			return nil, in.raise(env, "malformed pipe stage %s", stage.String())
		}
		for _, a := range rest {
			v, err := in.evalExpr(a, env)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		cur, err = in.apply(stage, fnVal, args, env)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// apply pushes a frame for call and evaluates the callee in it. The frame
// is not popped here: ordinary calls pop via their evalCall, pipe chains
// keep stage frames alive until the chain finishes.
func (in *Interp) apply(call *syntax.Call, fnVal Value, args []Value, evalEnv *Env) (Value, error) {
	if len(in.stack) >= maxDepth {
		return nil, in.raise(evalEnv, "evaluation nested too deeply")
	}
	callerPos := in.posOfEnv(evalEnv)
	hasSrcRef := call.Span().Valid()

	switch fn := fnVal.(type) {
	case *Builtin:
		frameEnv := in.newEnv(evalEnv)
		in.push(frameRec{call: call, env: frameEnv, callerPos: callerPos, hasSrcRef: hasSrcRef})
		return fn.Fn(in, call, frameEnv, args)
	case *Closure:
		if len(args) != len(fn.Params) {
			return nil, in.raise(evalEnv, "%s: expected %d arguments, got %d",
				fn.Name, len(fn.Params), len(args))
		}
		bodyEnv := in.newEnv(fn.Env)
		for i, p := range fn.Params {
			bodyEnv.Set(p, args[i])
		}
		in.push(frameRec{call: call, env: bodyEnv, callerPos: callerPos, hasSrcRef: hasSrcRef})
		return in.evalBlock(fn.Body, bodyEnv)
	default:
		return nil, in.raise(evalEnv, "attempt to call a non-function (%s)", fnVal.Type())
	}
}

func (in *Interp) evalBinary(e *syntax.Binary, env *Env) (Value, error) {
	l, err := in.evalExpr(e.L, env)
	if err != nil {
		return nil, err
	}
	r, err := in.evalExpr(e.R, env)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case "==":
		return Bool(l == r), nil
	case "!=":
		return Bool(l != r), nil
	}
	if ls, ok := l.(String); ok {
		rs, ok := r.(String)
		if ok && e.Op == "+" {
			return ls + rs, nil
		}
		return nil, in.raise(env, "invalid operands for %q: %s and %s", e.Op, l.Type(), r.Type())
	}
	ln, lok := l.(Number)
	rn, rok := r.(Number)
	if !lok || !rok {
		return nil, in.raise(env, "invalid operands for %q: %s and %s", e.Op, l.Type(), r.Type())
	}
	switch e.Op {
	case "+":
		return ln + rn, nil
	case "-":
		return ln - rn, nil
	case "*":
		return ln * rn, nil
	case "/":
		if rn == 0 {
			return nil, in.raise(env, "division by zero")
		}
		return ln / rn, nil
	case "<":
		return Bool(ln < rn), nil
	case "<=":
		return Bool(ln <= rn), nil
	case ">":
		return Bool(ln > rn), nil
	case ">=":
		return Bool(ln >= rn), nil
	}
	return nil, in.raise(env, "unknown operator %q", e.Op)
}

// raise signals a runtime error-class condition from evaluator internals.
// No frame is hidden: the faulting frame is exactly the newest one.
func (in *Interp) raise(env *Env, format string, args ...any) error {
	cond := condition.NewError(fmt.Sprintf(format, args...))
	_, err := in.signal(cond, trace.NoEnv)
	if err != nil {
		return err
	}
	return cond
}

// signal dispatches a condition to the innermost matching handler.
// Error and interrupt conditions that a handler accepts unwind to the
// handler's with_handlers frame; other classes resume after the handler
// returns. Unhandled errors propagate as Go errors, unhandled warnings
// accumulate, unhandled messages print.
func (in *Interp) signal(cond *condition.Condition, skip trace.EnvID) (Value, error) {
	if cond.Class == condition.ClassError || cond.Class == condition.ClassWarning {
		cond.Trace = in.capture(skip)
	}
	if cond.Class == condition.ClassError {
		in.LastError = cond
	}

	for i := len(in.handlers) - 1; i >= 0; i-- {
		h := in.handlers[i]
		if !matches(cond, h) {
			continue
		}
		// The handler must not catch conditions it signals itself. Copy
		// the prefix so handlers installed inside the handler never
		// clobber the saved tail.
		saved := in.handlers
		in.handlers = append([]handlerRec(nil), in.handlers[:i]...)
		v, err := in.invokeHandler(h, cond)
		in.handlers = saved
		if err != nil {
			return nil, err
		}
		if cond.Class == condition.ClassError || cond.Class == condition.ClassInterrupt {
			return nil, &unwind{env: h.env, value: v}
		}
		return Nil{}, nil
	}

	switch cond.Class {
	case condition.ClassError, condition.ClassInterrupt:
		return nil, cond
	case condition.ClassWarning:
		in.Warnings = append(in.Warnings, cond)
		return Nil{}, nil
	case condition.ClassMessage:
		fmt.Fprintln(in.Stdout, cond.Message)
		return Nil{}, nil
	}
	return Nil{}, nil
}

func matches(cond *condition.Condition, h handlerRec) bool {
	if h.haveClass {
		return cond.Is(h.class, "")
	}
	for c := cond; c != nil; c = c.Parent {
		if c.Subclass == h.subclass {
			return true
		}
	}
	return false
}

// invokeHandler runs a handler with the condition as its argument. The
// handler frame's caller is the with_handlers frame that registered it,
// so in a capture the handler subtree is a sibling of the body subtree.
func (in *Interp) invokeHandler(h handlerRec, cond *condition.Condition) (Value, error) {
	name := "handler"
	if cl, ok := h.fn.(*Closure); ok && cl.Name != "" {
		name = cl.Name
	} else if bi, ok := h.fn.(*Builtin); ok {
		name = bi.Name
	}
	callAST := &syntax.Call{
		Fn:   &syntax.Ident{Name: name},
		Args: []syntax.Expr{&syntax.Ident{Name: "cond"}},
	}
	callerPos := in.posOfEnv(h.env)
	depth := len(in.stack)
	defer in.popTo(depth)

	arg := ConditionValue{Cond: cond}
	switch fn := h.fn.(type) {
	case *Closure:
		if len(fn.Params) != 1 {
			return nil, in.raise(h.env, "%s: handler must take one argument", name)
		}
		bodyEnv := in.newEnv(fn.Env)
		bodyEnv.Set(fn.Params[0], arg)
		in.push(frameRec{call: callAST, env: bodyEnv, callerPos: callerPos})
		return in.evalBlock(fn.Body, bodyEnv)
	case *Builtin:
		frameEnv := in.newEnv(h.env)
		in.push(frameRec{call: callAST, env: frameEnv, callerPos: callerPos})
		return fn.Fn(in, callAST, frameEnv, []Value{arg})
	default:
		return nil, in.raise(h.env, "handler is not callable (%s)", h.fn.Type())
	}
}
