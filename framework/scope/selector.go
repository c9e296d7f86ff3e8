package scope

import "reflect"

// SelectInterfaces decides which public contract the proxy presents.
//
// Concrete-type proxying (empty return) is the default: most scoped objects
// are plain structs without declared interfaces. It degrades to
// interface-based proxying whenever the concrete contract cannot be
// presented transparently — the declared type is itself an interface, its
// name is unexported (consumers cannot refer to it), or the caller asked for
// interfaces with preferConcrete=false.
//
// A non-empty result is the full set of registered interfaces the declared
// type implements; an empty result tells the proxy factory to expose the
// concrete type's own method set.
func SelectInterfaces(info TypeInfo, preferConcrete bool) []reflect.Type {
	if !preferConcrete || info.IsInterface || info.Unexported {
		return info.Interfaces
	}
	return nil
}
