package extract

import (
	"strings"

	"github.com/phobologic/sherpa/internal/modname"
	"github.com/phobologic/sherpa/internal/parse"
)

// Target is the outcome of one resolution step: a qualified symbol, or
// nothing.
type Target struct {
	symbol string
	ok     bool
}

// Unresolved is the empty resolution result.
var Unresolved = Target{}

// Resolved wraps a qualified symbol.
func Resolved(symbol string) Target {
	return Target{symbol: symbol, ok: true}
}

// Get returns the symbol and whether resolution succeeded.
func (t Target) Get() (string, bool) {
	return t.symbol, t.ok
}

// orElse returns t if resolved, otherwise the result of next.
func (t Target) orElse(next func() Target) Target {
	if t.ok {
		return t
	}
	return next()
}

// receivers are the conventional names of the instance and class receiver.
var receivers = map[string]struct{}{"self": {}, "cls": {}}

// scope is the file-wide name environment shared by all function bodies.
type scope struct {
	module    string
	aliases   modname.AliasSet
	modules   map[string]string
	symbols   map[string]string
	classes   map[string]struct{}
	functions map[string]struct{}
	adapters  []string
}

// bodyResolver walks one function body. Its local type map lives only as
// long as the walk.
type bodyResolver struct {
	*scope
	class    string
	types    map[string]string
	calls    map[string]struct{}
	resolved map[string]struct{}
}

func newBodyResolver(sc *scope, class string) *bodyResolver {
	r := &bodyResolver{
		scope:    sc,
		types:    make(map[string]string),
		calls:    make(map[string]struct{}),
		resolved: make(map[string]struct{}),
	}
	if class != "" {
		r.class = sc.module + "." + class
	}
	return r
}

// walk visits statements in source order. Nested function and class bodies
// are not entered.
func (r *bodyResolver) walk(stmts []parse.Stmt) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *parse.FunctionDef, *parse.ClassDef, *parse.Import, *parse.ImportFrom:
		case *parse.If:
			r.expr(s.Test)
			r.walk(s.Body)
			r.walk(s.Orelse)
		case *parse.Assign:
			for _, t := range s.Targets {
				r.expr(t)
			}
			r.expr(s.Value)
			r.inferAssign(s)
		case *parse.ExprStmt:
			r.expr(s.Value)
		case *parse.Compound:
			for _, e := range s.Exprs {
				r.expr(e)
			}
			r.walk(s.Body)
		}
	}
}

func (r *bodyResolver) expr(e parse.Expr) {
	switch e := e.(type) {
	case nil:
	case *parse.Call:
		r.call(e)
		r.expr(e.Func)
		for _, arg := range e.Args {
			r.expr(arg)
		}
	case *parse.Attribute:
		r.expr(e.Value)
	case *parse.Compare:
		r.expr(e.Left)
		for _, c := range e.Comparators {
			r.expr(c)
		}
	case *parse.OtherExpr:
		for _, c := range e.Children {
			r.expr(c)
		}
	}
}

func (r *bodyResolver) call(c *parse.Call) {
	chain, ok := attributeChain(c.Func)
	if !ok {
		return
	}
	r.calls[chain[len(chain)-1]] = struct{}{}
	if symbol, ok := r.resolveChain(chain).Get(); ok {
		r.resolved[symbol] = struct{}{}
	}
}

// inferAssign records `x = <call>` when the callee resolves.
func (r *bodyResolver) inferAssign(a *parse.Assign) {
	call, ok := a.Value.(*parse.Call)
	if !ok {
		return
	}
	chain, ok := attributeChain(call.Func)
	if !ok {
		return
	}
	symbol, ok := r.resolveChain(chain).Get()
	if !ok {
		return
	}
	for _, t := range a.Targets {
		if n, ok := t.(*parse.Name); ok {
			r.types[n.ID] = symbol
		}
	}
}

func (r *bodyResolver) resolveChain(chain []string) Target {
	var t Target
	if len(chain) == 1 {
		t = r.resolveName(chain[0])
	} else {
		t = r.resolveDotted(chain[0], chain[1:])
	}
	if symbol, ok := t.Get(); ok {
		return Resolved(r.aliases.Canonicalize(symbol))
	}
	return Unresolved
}

func (r *bodyResolver) resolveName(name string) Target {
	return r.symbolBinding(name).
		orElse(func() Target { return r.moduleBinding(name) }).
		orElse(func() Target { return r.receiver(name) }).
		orElse(func() Target {
			if _, ok := r.classes[name]; ok {
				return Resolved(r.module + "." + name)
			}
			return Unresolved
		}).
		orElse(func() Target {
			if _, ok := r.functions[name]; ok {
				return Resolved(r.module + "." + name)
			}
			return Unresolved
		})
}

func (r *bodyResolver) resolveDotted(base string, rest []string) Target {
	suffix := strings.Join(rest, ".")

	if inferred, ok := r.types[base]; ok {
		if isAdapterFactory(inferred) {
			if adapter, ok := substituteAdapter(r.adapters).Get(); ok {
				return Resolved(adapter + "." + suffix)
			}
			return Unresolved
		}
		return Resolved(inferred + "." + suffix)
	}

	t := r.moduleBinding(base).
		orElse(func() Target { return r.symbolBinding(base) }).
		orElse(func() Target { return r.receiver(base) })
	if symbol, ok := t.Get(); ok {
		return Resolved(symbol + "." + suffix)
	}
	return Unresolved
}

func (r *bodyResolver) symbolBinding(name string) Target {
	if target, ok := r.symbols[name]; ok {
		return Resolved(target)
	}
	return Unresolved
}

func (r *bodyResolver) moduleBinding(name string) Target {
	if target, ok := r.modules[name]; ok {
		return Resolved(target)
	}
	return Unresolved
}

func (r *bodyResolver) receiver(name string) Target {
	if r.class == "" {
		return Unresolved
	}
	if _, ok := receivers[name]; ok {
		return Resolved(r.class)
	}
	return Unresolved
}

// attributeChain flattens a callee made only of names and attribute accesses:
// a.b.c -> [a b c]. Anything else (a call result, a subscript) has no chain.
func attributeChain(e parse.Expr) ([]string, bool) {
	var rev []string
	for {
		switch v := e.(type) {
		case *parse.Name:
			rev = append(rev, v.ID)
			chain := make([]string, len(rev))
			for i, s := range rev {
				chain[len(rev)-1-i] = s
			}
			return chain, true
		case *parse.Attribute:
			rev = append(rev, v.Attr)
			e = v.Value
		default:
			return nil, false
		}
	}
}
