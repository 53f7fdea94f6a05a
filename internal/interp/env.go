package interp

import "fern/internal/trace"

// Env is a lexical environment. Each evaluated call gets a fresh one,
// so the environment identity is also the frame identity.
type Env struct {
	id     trace.EnvID
	vars   map[string]Value
	parent *Env
}

// ID reports the unique identity of this environment.
func (e *Env) ID() trace.EnvID { return e.id }

// Parent reports the lexically enclosing environment, nil for the global.
func (e *Env) Parent() *Env { return e.parent }

// Get looks up name through the lexical chain.
func (e *Env) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set binds name in this environment, shadowing outer bindings.
func (e *Env) Set(name string, v Value) {
	e.vars[name] = v
}
