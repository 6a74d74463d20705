package ecs

import "reflect"

// Atom is one element of a query's component tuple: a component type
// together with the mutability it is requested under.
type Atom struct {
	Type    reflect.Type
	Mutable bool
}

// AccessSet is the access a query or system declares over component
// types, in registration order. It is the input to both aliasing checks
// and the debug tracker's snapshot selection.
type AccessSet []Atom

// MutableTypes returns the distinct component types this access set
// touches mutably, in first-seen order. The tracker snapshots exactly
// this set before running a system.
func (a AccessSet) MutableTypes() []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var out []reflect.Type
	for _, atom := range a {
		if atom.Mutable && !seen[atom.Type] {
			seen[atom.Type] = true
			out = append(out, atom.Type)
		}
	}
	return out
}

// checkAliasing fails if the same component type appears more than once
// with at least one mutable occurrence — two immutable atoms on the same
// type are redundant but permitted.
func (a AccessSet) checkAliasing() error {
	mutableSeen := make(map[reflect.Type]bool)
	anySeen := make(map[reflect.Type]bool)
	for _, atom := range a {
		if atom.Mutable {
			if anySeen[atom.Type] {
				return errQueryAliasing(atom.Type.String())
			}
			mutableSeen[atom.Type] = true
		} else if mutableSeen[atom.Type] {
			return errQueryAliasing(atom.Type.String())
		}
		anySeen[atom.Type] = true
	}
	return nil
}

// QueryEntities computes the intersection of entities holding every atom
// in atoms, filtered by pool membership (not by borrow success — borrow
// attempts happen lazily per consumer, e.g. the typed iterators). Order
// follows the insertion order of the first atom's pool; a zero-atom query
// returns the registry in creation order. It panics with a
// QueryAliasingError if atoms request conflicting access to one type.
func (w *World) QueryEntities(atoms ...Atom) []Entity {
	if err := AccessSet(atoms).checkAliasing(); err != nil {
		panic(err)
	}
	if len(atoms) == 0 {
		return w.Entities()
	}

	first, ok := w.poolByType(atoms[0].Type)
	if !ok {
		return nil
	}
	candidates := first.entities()

	for _, atom := range atoms[1:] {
		p, ok := w.poolByType(atom.Type)
		if !ok {
			return nil
		}
		filtered := candidates[:0:0]
		for _, e := range candidates {
			if p.has(e) {
				filtered = append(filtered, e)
			}
		}
		candidates = filtered
	}

	if w.metrics != nil {
		w.metrics.ObserveQuerySize("dynamic", len(candidates))
	}
	return candidates
}
