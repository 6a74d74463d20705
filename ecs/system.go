package ecs

import (
	"fmt"
	"reflect"
	"time"
)

// QuerySpec pairs a precomputed access set with the closure that
// materializes a query iterator of type Q against a world. It is the unit
// RegisterSingle and RegisterMultiN compose over, letting one mechanism
// support both a lone iterator and a tuple of independently-aritied
// iterators.
type QuerySpec[Q any] struct {
	access AccessSet
	build  func(w *World) Q
}

// Spec1 declares a single-atom query slot over T.
func Spec1[T Component[T]](mut bool) QuerySpec[*Iter1[T]] {
	var zero T
	t := reflect.TypeOf(zero)
	return QuerySpec[*Iter1[T]]{
		access: AccessSet{{Type: t, Mutable: mut}},
		build:  func(w *World) *Iter1[T] { return Query1[T](w, mut) },
	}
}

// Spec2 declares a two-atom query slot over (A, B).
func Spec2[A Component[A], B Component[B]](mutA, mutB bool) QuerySpec[*Iter2[A, B]] {
	var za A
	var zb B
	return QuerySpec[*Iter2[A, B]]{
		access: AccessSet{{Type: reflect.TypeOf(za), Mutable: mutA}, {Type: reflect.TypeOf(zb), Mutable: mutB}},
		build:  func(w *World) *Iter2[A, B] { return Query2[A, B](w, mutA, mutB) },
	}
}

// Spec3 declares a three-atom query slot over (A, B, C).
func Spec3[A Component[A], B Component[B], C Component[C]](mutA, mutB, mutC bool) QuerySpec[*Iter3[A, B, C]] {
	var za A
	var zb B
	var zc C
	return QuerySpec[*Iter3[A, B, C]]{
		access: AccessSet{
			{Type: reflect.TypeOf(za), Mutable: mutA},
			{Type: reflect.TypeOf(zb), Mutable: mutB},
			{Type: reflect.TypeOf(zc), Mutable: mutC},
		},
		build: func(w *World) *Iter3[A, B, C] { return Query3[A, B, C](w, mutA, mutB, mutC) },
	}
}

// systemDescriptor is the scheduler's record of one registered system:
// its name, its declared access set (used by the tracker), and the thunk
// that runs it against the current world state.
type systemDescriptor struct {
	name   string
	access AccessSet
	run    func(w *World)
}

// systemRegistry holds systems in registration order.
type systemRegistry struct {
	systems []systemDescriptor
}

func newSystemRegistry() *systemRegistry {
	return &systemRegistry{}
}

func autoName(reg *systemRegistry, prefix string) string {
	return fmt.Sprintf("%s#%d", prefix, len(reg.systems))
}

// RegisterImperative registers a system that takes the world directly and
// performs its own queries internally. Its statically-known access set is
// whatever mutableTypes the caller declares; the tracker treats anything
// not listed as outside its scope for this system, since an imperative
// body's real access pattern cannot be derived mechanically.
func RegisterImperative(w *World, name string, mutableTypes []reflect.Type, fn func(w *World)) {
	if name == "" {
		name = autoName(w.systems, "imperative")
	}
	access := make(AccessSet, 0, len(mutableTypes))
	for _, t := range mutableTypes {
		access = append(access, Atom{Type: t, Mutable: true})
	}
	w.systems.systems = append(w.systems.systems, systemDescriptor{
		name:   name,
		access: access,
		run:    fn,
	})
}

// RegisterSingle registers a system driven by exactly one query iterator,
// whose own atom list (1, 2, or 3 atoms) supplies the access set.
func RegisterSingle[Q any](w *World, name string, spec QuerySpec[Q], fn func(w *World, q Q)) {
	if name == "" {
		name = autoName(w.systems, "system")
	}
	w.systems.systems = append(w.systems.systems, systemDescriptor{
		name:   name,
		access: spec.access,
		run:    func(w *World) { fn(w, spec.build(w)) },
	})
}

// RegisterMulti2 registers a system driven by two independently-aritied
// query iterators. The access set is the union, in order, of both specs'
// atoms.
func RegisterMulti2[Q1, Q2 any](w *World, name string, s1 QuerySpec[Q1], s2 QuerySpec[Q2], fn func(w *World, q1 Q1, q2 Q2)) {
	if name == "" {
		name = autoName(w.systems, "system")
	}
	access := append(append(AccessSet{}, s1.access...), s2.access...)
	w.systems.systems = append(w.systems.systems, systemDescriptor{
		name:   name,
		access: access,
		run:    func(w *World) { fn(w, s1.build(w), s2.build(w)) },
	})
}

// RegisterMulti3 registers a system driven by three independently-aritied
// query iterators.
func RegisterMulti3[Q1, Q2, Q3 any](w *World, name string, s1 QuerySpec[Q1], s2 QuerySpec[Q2], s3 QuerySpec[Q3], fn func(w *World, q1 Q1, q2 Q2, q3 Q3)) {
	if name == "" {
		name = autoName(w.systems, "system")
	}
	access := append(append(append(AccessSet{}, s1.access...), s2.access...), s3.access...)
	w.systems.systems = append(w.systems.systems, systemDescriptor{
		name:   name,
		access: access,
		run:    func(w *World) { fn(w, s1.build(w), s2.build(w), s3.build(w)) },
	})
}

// RunSystems invokes every registered system once, in registration order,
// with tracking disabled for the duration of the call regardless of the
// tracker's configured state.
func (w *World) RunSystems() {
	wasEnabled := w.tracker.enabled
	w.tracker.enabled = false
	defer func() { w.tracker.enabled = wasEnabled }()
	w.runAll(false)
}

// RunSystemsTracked invokes every registered system once, in registration
// order, snapshotting and diffing each system's declared mutable
// component types when tracking is enabled.
func (w *World) RunSystemsTracked() {
	w.runAll(true)
}

func (w *World) runAll(track bool) {
	start := time.Now()
	for _, sys := range w.systems.systems {
		w.runOne(sys, track)
	}
	if w.metrics != nil {
		w.metrics.ObserveFrameDuration(time.Since(start).Seconds())
	}
}

func (w *World) runOne(sys systemDescriptor, track bool) {
	var snap *snapshot
	if track && w.tracker.enabled {
		snap = w.snapshotTypes(sys.access.MutableTypes())
	}
	sys.run(w)
	if w.metrics != nil {
		w.metrics.IncSystemsRun()
	}
	if track && w.tracker.enabled {
		rec := w.diffAgainst(snap, sys.name)
		w.recordFrame(rec)
	}
}
