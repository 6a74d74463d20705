package ecs

// Component is the capability contract a type must satisfy to be stored in
// a World. Clone must return an independent value suitable for the debug
// tracker's snapshots; it must not alias any mutable state of the
// original.
type Component[T any] interface {
	Clone() T
}

// PropertyDiff is a single changed field, rendered as its new value.
type PropertyDiff struct {
	PropertyName string
	NewValue     string
}

// Differ is the optional field-level diff contract. Diff receives the
// previous snapshotted value (as produced by Clone) and returns only the
// fields that changed, or nil if nothing did. prev is passed as any
// because the tracker operates across erased component types; the
// implementation should type-assert it back to its own type.
type Differ interface {
	Diff(prev any) []PropertyDiff
}
