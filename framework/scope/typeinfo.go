package scope

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"unicode"
	"unicode/utf8"
)

// ── TypeInfo ──────────────────────────────────────────────────────────────────

// TypeInfo is the declared shape of a scoped target, resolved once at proxy
// build time. It is everything the interface selector needs to decide how
// the proxy should present itself.
type TypeInfo struct {
	// Declared is the type the binding declares it resolves to.
	Declared reflect.Type

	// IsInterface reports whether the declared type is itself an interface.
	IsInterface bool

	// Unexported reports whether the declared type name is unexported (or
	// anonymous) — unreachable from outside its defining package, so a
	// concrete-type proxy contract cannot be named by consumers.
	Unexported bool

	// Interfaces is the set of registered interfaces the declared type
	// implements, in deterministic order. Embedded interfaces are flattened
	// by the language, so the set is transitive by construction.
	Interfaces []reflect.Type
}

// infoFor computes TypeInfo for a declared type against an interface registry.
// An interface declared type always belongs to its own set, registered or not.
func infoFor(declared reflect.Type, ifaces *InterfaceRegistry) TypeInfo {
	info := TypeInfo{
		Declared:    declared,
		IsInterface: declared.Kind() == reflect.Interface,
		Unexported:  unexportedType(declared),
	}
	if ifaces != nil {
		info.Interfaces = ifaces.ImplementedBy(declared)
	}
	if info.IsInterface && !containsType(info.Interfaces, declared) {
		info.Interfaces = append(info.Interfaces, declared)
		sort.Slice(info.Interfaces, func(i, j int) bool {
			return info.Interfaces[i].String() < info.Interfaces[j].String()
		})
	}
	return info
}

func containsType(set []reflect.Type, t reflect.Type) bool {
	for _, have := range set {
		if have == t {
			return true
		}
	}
	return false
}

// unexportedType reports whether t's name (after stripping pointers) starts
// with a lowercase rune, or t is unnamed.
func unexportedType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsLower(r)
}

// ── InterfaceRegistry ─────────────────────────────────────────────────────────

// InterfaceRegistry is the catalogue of interfaces a proxy may present.
// Go offers no way to enumerate the interfaces a type implements, so the
// application registers the contracts it cares about and the registry
// answers "which of these does type T satisfy".
type InterfaceRegistry struct {
	mu     sync.RWMutex
	ifaces map[reflect.Type]struct{}
}

// NewInterfaceRegistry constructs an empty registry.
func NewInterfaceRegistry() *InterfaceRegistry {
	return &InterfaceRegistry{ifaces: make(map[reflect.Type]struct{})}
}

// Register adds an interface type via a pointer prototype. Registering the
// same interface twice is a no-op.
//
//	reg.Register((*Mailer)(nil))
func (r *InterfaceRegistry) Register(prototype any) error {
	t := reflect.TypeOf(prototype)
	if t == nil || t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Interface {
		return fmt.Errorf("scope: Register wants a pointer-to-interface prototype, got %T", prototype)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ifaces[t.Elem()] = struct{}{}
	return nil
}

// ImplementedBy returns every registered interface the type implements,
// sorted by type name for deterministic output.
func (r *InterfaceRegistry) ImplementedBy(t reflect.Type) []reflect.Type {
	if t == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []reflect.Type
	for iface := range r.ifaces {
		if t.Implements(iface) {
			out = append(out, iface)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len reports the number of registered interfaces.
func (r *InterfaceRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ifaces)
}
