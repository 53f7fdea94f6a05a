package interp

import (
	"fmt"

	"fern/internal/condition"
	"fern/internal/syntax"
	"fern/internal/trace"
	"fern/internal/tracefmt"
)

func installBuiltins(global *Env) {
	for _, b := range []*Builtin{
		{Name: "quote", Lazy: true, Fn: builtinQuote},
		{Name: "eval", Fn: builtinEval},
		{Name: "evalq", Lazy: true, Fn: builtinEvalq},
		{Name: "stop", Fn: builtinStop},
		{Name: "warning", Fn: builtinWarning},
		{Name: "message", Fn: builtinMessage},
		{Name: "signal", Fn: builtinSignal},
		{Name: "with_handlers", Lazy: true, Fn: builtinWithHandlers},
		{Name: "trace_back", Fn: builtinTraceBack},
		{Name: "last_error", Fn: builtinLastError},
		{Name: "print_trace", Fn: builtinPrintTrace},
		{Name: "print", Fn: builtinPrint},
		{Name: "caller_env", Fn: builtinCallerEnv},
		{Name: "global_env", Fn: builtinGlobalEnv},
	} {
		global.Set(b.Name, b)
	}
}

func arity(in *Interp, env *Env, name string, args []Value, want int) error {
	if len(args) != want {
		return in.raise(env, "%s: expected %d arguments, got %d", name, want, len(args))
	}
	return nil
}

func builtinQuote(in *Interp, call *syntax.Call, frameEnv *Env, _ []Value) (Value, error) {
	if len(call.Args) != 1 {
		return nil, in.raise(frameEnv, "quote: expected 1 argument, got %d", len(call.Args))
	}
	return ExprValue{Expr: call.Args[0]}, nil
}

// builtinEval evaluates a quoted expression. With one argument the code
// runs in eval's own frame environment, which makes stop() inside it reach
// the caller through a collapsible eval chain. With an explicit
// environment the code runs there instead, so new frames record a caller
// position older than the stack top.
func builtinEval(in *Interp, call *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if len(args) != 1 && len(args) != 2 {
		return nil, in.raise(frameEnv, "eval: expected 1 or 2 arguments, got %d", len(args))
	}
	ex, ok := args[0].(ExprValue)
	if !ok {
		return args[0], nil
	}
	env := frameEnv
	if len(args) == 2 {
		ev, ok := args[1].(EnvValue)
		if !ok {
			return nil, in.raise(frameEnv, "eval: second argument must be an environment, got %s", args[1].Type())
		}
		env = ev.Env
	}
	return in.evalExpr(ex.Expr, env)
}

func builtinEvalq(in *Interp, call *syntax.Call, frameEnv *Env, _ []Value) (Value, error) {
	if len(call.Args) != 1 {
		return nil, in.raise(frameEnv, "evalq: expected 1 argument, got %d", len(call.Args))
	}
	return in.evalExpr(call.Args[0], frameEnv)
}

// builtinStop signals an error condition. The argument is either a
// message or a condition object to re-signal; an optional second string
// argument tags the condition with a subclass.
func builtinStop(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, in.raise(frameEnv, "stop: expected 1 or 2 arguments, got %d", len(args))
	}
	var cond *condition.Condition
	if cv, ok := args[0].(ConditionValue); ok {
		cond = cv.Cond
	} else {
		cond = condition.NewError(args[0].String())
	}
	if len(args) == 2 {
		sub, ok := args[1].(String)
		if !ok {
			return nil, in.raise(frameEnv, "stop: subclass must be a string, got %s", args[1].Type())
		}
		cond.Subclass = string(sub)
	}
	return in.signal(cond, frameEnv.id)
}

func builtinWarning(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if err := arity(in, frameEnv, "warning", args, 1); err != nil {
		return nil, err
	}
	return in.signal(condition.NewWarning(args[0].String()), frameEnv.id)
}

func builtinMessage(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if err := arity(in, frameEnv, "message", args, 1); err != nil {
		return nil, err
	}
	return in.signal(condition.NewMessage(args[0].String()), frameEnv.id)
}

// builtinSignal raises a condition by class name. Names outside the
// built-in hierarchy become subclass tags on the base class.
func builtinSignal(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if err := arity(in, frameEnv, "signal", args, 2); err != nil {
		return nil, err
	}
	name, ok := args[0].(String)
	if !ok {
		return nil, in.raise(frameEnv, "signal: class must be a string, got %s", args[0].Type())
	}
	class, known := condition.ParseClass(string(name))
	cond := condition.New(class, args[1].String())
	if !known {
		cond.Subclass = string(name)
	}
	return in.signal(cond, frameEnv.id)
}

// builtinWithHandlers evaluates its first argument with handlers in
// scope: with_handlers(body, class, handler, class, handler, ...). Class
// names outside the built-in hierarchy match by subclass tag.
func builtinWithHandlers(in *Interp, call *syntax.Call, frameEnv *Env, _ []Value) (Value, error) {
	if len(call.Args) < 3 || len(call.Args)%2 == 0 {
		return nil, in.raise(frameEnv, "with_handlers: expected body followed by class/handler pairs")
	}

	installed := 0
	defer func() {
		in.handlers = in.handlers[:len(in.handlers)-installed]
	}()
	for i := 1; i < len(call.Args); i += 2 {
		classVal, err := in.evalExpr(call.Args[i], frameEnv)
		if err != nil {
			return nil, err
		}
		name, ok := classVal.(String)
		if !ok {
			return nil, in.raise(frameEnv, "with_handlers: class must be a string, got %s", classVal.Type())
		}
		fn, err := in.evalExpr(call.Args[i+1], frameEnv)
		if err != nil {
			return nil, err
		}
		h := handlerRec{fn: fn, env: frameEnv}
		h.class, h.haveClass = condition.ParseClass(string(name))
		if !h.haveClass {
			h.subclass = string(name)
		}
		in.handlers = append(in.handlers, h)
		installed++
	}

	v, err := in.evalExpr(call.Args[0], frameEnv)
	if err != nil {
		if uw, ok := err.(*unwind); ok && uw.env == frameEnv {
			return uw.value, nil
		}
		return nil, err
	}
	return v, nil
}

func builtinTraceBack(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if err := arity(in, frameEnv, "trace_back", args, 0); err != nil {
		return nil, err
	}
	return TraceValue{Trace: in.capture(frameEnv.id)}, nil
}

func builtinLastError(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if err := arity(in, frameEnv, "last_error", args, 0); err != nil {
		return nil, err
	}
	if in.LastError == nil {
		return Nil{}, nil
	}
	return ConditionValue{Cond: in.LastError}, nil
}

// builtinPrintTrace renders a trace with the session's configured
// simplification mode and format options. Without an argument it prints
// the last error's trace.
func builtinPrintTrace(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if len(args) > 1 {
		return nil, in.raise(frameEnv, "print_trace: expected at most 1 argument, got %d", len(args))
	}
	var t *trace.Trace
	switch {
	case len(args) == 1:
		switch v := args[0].(type) {
		case TraceValue:
			t = v.Trace
		case ConditionValue:
			t = v.Cond.Trace
		default:
			return nil, in.raise(frameEnv, "print_trace: expected a trace or condition, got %s", args[0].Type())
		}
	case in.LastError != nil:
		t = in.LastError.Trace
	}
	if t == nil {
		fmt.Fprintln(in.Stdout, "no trace available")
		return Nil{}, nil
	}

	opts := in.Config.Get()
	tree, err := trace.Simplify(trace.NewTree(t), opts.Simplify, opts.MaxFrames)
	if err != nil {
		return nil, in.raise(frameEnv, "print_trace: %s", err)
	}
	ferr := tracefmt.Write(in.Stdout, tree, in.FS, tracefmt.Opts{
		SrcRefs:      opts.SrcRefs,
		FrameNumbers: opts.FrameNumbers,
		Dir:          in.FS.BaseDir(),
		Unicode:      opts.Unicode,
	})
	if ferr != nil {
		return nil, in.raise(frameEnv, "print_trace: %s", ferr)
	}
	return Nil{}, nil
}

func builtinPrint(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if err := arity(in, frameEnv, "print", args, 1); err != nil {
		return nil, err
	}
	fmt.Fprintln(in.Stdout, args[0].String())
	return args[0], nil
}

// builtinCallerEnv returns the environment of the frame that called the
// function currently executing, or the global environment at top level.
func builtinCallerEnv(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if err := arity(in, frameEnv, "caller_env", args, 0); err != nil {
		return nil, err
	}
	pos := in.posOfEnv(frameEnv.parent)
	if pos == 0 {
		return EnvValue{Env: in.Global}, nil
	}
	callerPos := in.stack[pos-1].callerPos
	if callerPos == 0 {
		return EnvValue{Env: in.Global}, nil
	}
	return EnvValue{Env: in.stack[callerPos-1].env}, nil
}

func builtinGlobalEnv(in *Interp, _ *syntax.Call, frameEnv *Env, args []Value) (Value, error) {
	if err := arity(in, frameEnv, "global_env", args, 0); err != nil {
		return nil, err
	}
	return EnvValue{Env: in.Global}, nil
}
