package scope

import (
	"fmt"
	"reflect"
)

// ── Proxy mechanism collaborator ──────────────────────────────────────────────

// DispatchFunc routes one proxy invocation: method name plus positional
// arguments in, return values out. Every call through a proxy goes through
// exactly one dispatch function.
type DispatchFunc func(method string, args []any) ([]any, error)

// ProxySpec is the build request handed to a ProxyFactory: the contract the
// proxy must present (interface set, or a concrete type when the set is
// empty), the dispatch function carrying every invocation, and the lifecycle
// capability introduced alongside the target's own methods.
type ProxySpec struct {
	Interfaces []reflect.Type
	Concrete   reflect.Type
	Dispatch   DispatchFunc
	Capability Scoped
}

// ProxyFactory builds callable proxy objects from a spec. The default is
// DispatchFactory; alternative factories (code-generated wrappers, test
// doubles) plug in via ProxyBuilder.SetFactory.
type ProxyFactory interface {
	New(spec ProxySpec) (*Proxy, error)
}

// ── Default factory ───────────────────────────────────────────────────────────

// DispatchFactory builds dispatch-table proxies: no code generation, just a
// method-name table in front of the dispatch function.
type DispatchFactory struct{}

// New validates the spec and assembles a proxy exposing the selected
// contract. The exposed method set is the union of the interface methods
// (interface mode) or the concrete type's method set (concrete mode).
func (DispatchFactory) New(spec ProxySpec) (*Proxy, error) {
	if spec.Dispatch == nil {
		return nil, fmt.Errorf("scope: proxy spec has no dispatch function")
	}
	if spec.Capability == nil {
		return nil, fmt.Errorf("scope: proxy spec has no lifecycle capability")
	}
	if len(spec.Interfaces) == 0 && spec.Concrete == nil {
		return nil, fmt.Errorf("scope: proxy spec declares no contract")
	}

	exposed := make(map[string]struct{})
	if len(spec.Interfaces) > 0 {
		for _, iface := range spec.Interfaces {
			for i := 0; i < iface.NumMethod(); i++ {
				exposed[iface.Method(i).Name] = struct{}{}
			}
		}
	} else {
		for i := 0; i < spec.Concrete.NumMethod(); i++ {
			exposed[spec.Concrete.Method(i).Name] = struct{}{}
		}
	}

	return &Proxy{spec: spec, exposed: exposed}, nil
}

// ── Proxy ─────────────────────────────────────────────────────────────────────

// Proxy is the stable stand-in handed to long-lived consumers. It presents
// the target's contract through Invoke, carries the Scoped lifecycle
// capability as an introduction, and is tagged as infrastructure so
// auto-wrapping layers leave it alone.
//
// A Proxy is safe for concurrent use: it holds no per-call state, and each
// Invoke independently fetches the current target.
type Proxy struct {
	spec    ProxySpec
	exposed map[string]struct{}
}

// lifecycle methods are routed to the capability, never to the target.
func isLifecycleMethod(method string) bool {
	return method == "TargetKey" || method == "Forget"
}

// Invoke forwards a call to the instance currently serving the target.
// Methods outside the selected contract fail with *MethodError; lifecycle
// methods are answered by the capability without touching the scope.
func (p *Proxy) Invoke(method string, args ...any) ([]any, error) {
	if _, ok := p.exposed[method]; !ok && !isLifecycleMethod(method) {
		return nil, &MethodError{Method: method, TargetKey: p.spec.Capability.TargetKey()}
	}
	return p.spec.Dispatch(method, args)
}

// TargetKey implements Scoped by delegating to the introduced capability.
func (p *Proxy) TargetKey() string { return p.spec.Capability.TargetKey() }

// Forget implements Scoped by delegating to the introduced capability.
func (p *Proxy) Forget() error { return p.spec.Capability.Forget() }

// InfrastructureProxy marks the proxy as exempt from further wrapping.
func (p *Proxy) InfrastructureProxy() {}

// Type returns the contract the proxy presents: the concrete type in
// concrete-type mode, otherwise the primary (first) interface.
func (p *Proxy) Type() reflect.Type {
	if len(p.spec.Interfaces) > 0 {
		return p.spec.Interfaces[0]
	}
	return p.spec.Concrete
}

// Interfaces returns the interface set the proxy presents (nil in
// concrete-type mode).
func (p *Proxy) Interfaces() []reflect.Type {
	out := make([]reflect.Type, len(p.spec.Interfaces))
	copy(out, p.spec.Interfaces)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Concrete returns the concrete type the proxy subclasses in concrete-type
// mode, or nil in interface mode.
func (p *Proxy) Concrete() reflect.Type {
	if len(p.spec.Interfaces) > 0 {
		return nil
	}
	return p.spec.Concrete
}

// Implements reports whether the proxy's contract covers the interface
// named by a pointer prototype:
//
//	proxy.Implements((*Mailer)(nil))
func (p *Proxy) Implements(prototype any) bool {
	t := reflect.TypeOf(prototype)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Interface {
		return false
	}
	iface := t.Elem()
	if len(p.spec.Interfaces) > 0 {
		for _, have := range p.spec.Interfaces {
			if have == iface || have.Implements(iface) {
				return true
			}
		}
		return false
	}
	return p.spec.Concrete.Implements(iface)
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Call invokes a single-result method and type-asserts the first return
// value — the proxy counterpart of container.Resolve[T].
//
//	total, err := scope.Call[int](proxy, "Total")
func Call[T any](p *Proxy, method string, args ...any) (T, error) {
	var zero T
	outs, err := p.Invoke(method, args...)
	if err != nil {
		return zero, err
	}
	if len(outs) == 0 {
		return zero, fmt.Errorf("scope: Call[%T]: method %q returns nothing", zero, method)
	}
	typed, ok := outs[0].(T)
	if !ok {
		return zero, fmt.Errorf("scope: Call[%T]: method %q returned %T", zero, method, outs[0])
	}
	return typed, nil
}

// ── Reflection forwarding ─────────────────────────────────────────────────────

// forwardCall invokes method on target by reflection, converting arguments
// where Go allows it. A trailing error return from the target is unwrapped
// into forwardCall's own error result.
func forwardCall(targetKey string, target any, method string, args []any) ([]any, error) {
	m := reflect.ValueOf(target).MethodByName(method)
	if !m.IsValid() {
		return nil, &MethodError{Method: method, TargetKey: targetKey}
	}
	mt := m.Type()

	fixed := mt.NumIn()
	if mt.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("scope: [%s].%s wants at least %d args, got %d", targetKey, method, fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("scope: [%s].%s wants %d args, got %d", targetKey, method, fixed, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		pt := paramType(mt, i, fixed)
		if arg == nil {
			in[i] = reflect.Zero(pt)
			continue
		}
		av := reflect.ValueOf(arg)
		switch {
		case av.Type().AssignableTo(pt):
			in[i] = av
		case av.Type().ConvertibleTo(pt):
			in[i] = av.Convert(pt)
		default:
			return nil, fmt.Errorf("scope: [%s].%s arg %d: cannot use %s as %s", targetKey, method, i, av.Type(), pt)
		}
	}

	outs := m.Call(in)

	// Unwrap a trailing error return into the dispatch error channel.
	if n := len(outs); n > 0 && mt.Out(n-1) == errorType {
		var callErr error
		if !outs[n-1].IsNil() {
			callErr = outs[n-1].Interface().(error)
		}
		outs = outs[:n-1]
		result := valuesToAny(outs)
		return result, callErr
	}
	return valuesToAny(outs), nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// paramType returns the declared type of positional argument i, accounting
// for the variadic tail.
func paramType(mt reflect.Type, i, fixed int) reflect.Type {
	if i < fixed {
		return mt.In(i)
	}
	return mt.In(mt.NumIn() - 1).Elem()
}

func valuesToAny(vals []reflect.Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v.Interface()
	}
	return out
}
