package ecs_test

import (
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecsforge/runtime/ecs"
)

// Position, Velocity, Gravity and TimeDelta are illustrative test
// components only; the core package makes no assumptions about them.

type Position struct{ X, Y float64 }

func (p Position) Clone() Position { return p }

type Velocity struct{ DX, DY float64 }

func (v Velocity) Clone() Velocity { return v }

func (v Velocity) Diff(prevAny any) []ecs.PropertyDiff {
	prev, ok := prevAny.(Velocity)
	if !ok {
		return nil
	}
	var out []ecs.PropertyDiff
	if v.DX != prev.DX {
		out = append(out, ecs.PropertyDiff{PropertyName: "dx", NewValue: strconv.FormatFloat(v.DX, 'g', -1, 64)})
	}
	if v.DY != prev.DY {
		out = append(out, ecs.PropertyDiff{PropertyName: "dy", NewValue: strconv.FormatFloat(v.DY, 'g', -1, 64)})
	}
	return out
}

type Gravity struct{ Acc float64 }

func (g Gravity) Clone() Gravity { return g }

type TimeDelta struct{ DT float64 }

func (t TimeDelta) Clone() TimeDelta { return t }

type A struct{ N int }

func (a A) Clone() A { return a }

type B struct{ N int }

func (b B) Clone() B { return b }

type C struct{ N int }

func (c C) Clone() C { return c }

func TestS1SingleIteratorMovement(t *testing.T) {
	w := ecs.NewWorld()
	e0 := w.CreateEntity()
	ecs.AddComponent(w, e0, Position{X: 0, Y: 0})
	ecs.AddComponent(w, e0, Velocity{DX: 1, DY: 2})

	ecs.RegisterSingle(w, "halve-velocity", ecs.Spec2[Position, Velocity](false, true),
		func(w *ecs.World, it *ecs.Iter2[Position, Velocity]) {
			for _, _, vel, ok := it.Next(); ok; _, _, vel, ok = it.Next() {
				vel.DX *= 0.5
				vel.DY *= 0.5
			}
		})

	w.RunSystems()

	vel, ok := ecs.GetComponent[Velocity](w, e0)
	require.True(t, ok)
	require.Equal(t, Velocity{DX: 0.5, DY: 1.0}, vel)

	pos, ok := ecs.GetComponent[Position](w, e0)
	require.True(t, ok)
	require.Equal(t, Position{X: 0, Y: 0}, pos)
}

func TestS2QueryIntersection(t *testing.T) {
	w := ecs.NewWorld()
	e0 := w.CreateEntity()
	e1 := w.CreateEntity()
	e2 := w.CreateEntity()

	ecs.AddComponent(w, e0, A{})
	ecs.AddComponent(w, e0, B{})

	ecs.AddComponent(w, e1, A{})
	ecs.AddComponent(w, e1, B{})
	ecs.AddComponent(w, e1, C{})

	ecs.AddComponent(w, e2, A{})
	ecs.AddComponent(w, e2, C{})

	gotAB := collect2(ecs.Query2[A, B](w, false, false))
	require.Equal(t, []ecs.Entity{e0, e1}, gotAB)

	gotAC := collect2(ecs.Query2[A, C](w, false, false))
	require.Equal(t, []ecs.Entity{e1, e2}, gotAC)

	gotABC := collect3(ecs.Query3[A, B, C](w, false, false, false))
	require.Equal(t, []ecs.Entity{e1}, gotABC)

	require.Equal(t, []ecs.Entity{e0, e1, e2}, w.Entities())
}

func collect2[X ecs.Component[X], Y ecs.Component[Y]](it *ecs.Iter2[X, Y]) []ecs.Entity {
	var out []ecs.Entity
	for e, _, _, ok := it.Next(); ok; e, _, _, ok = it.Next() {
		out = append(out, e)
	}
	return out
}

func collect3[X ecs.Component[X], Y ecs.Component[Y], Z ecs.Component[Z]](it *ecs.Iter3[X, Y, Z]) []ecs.Entity {
	var out []ecs.Entity
	for e, _, _, _, ok := it.Next(); ok; e, _, _, _, ok = it.Next() {
		out = append(out, e)
	}
	return out
}

func TestS3TrackedDiff(t *testing.T) {
	w := ecs.NewWorld(ecs.WithTrackingEnabled(true))
	w.NextFrame(0)

	e0 := w.CreateEntity()
	ecs.AddComponent(w, e0, Velocity{DX: 1.0, DY: 1.0})

	ecs.RegisterSingle(w, "damp", ecs.Spec1[Velocity](true), func(w *ecs.World, it *ecs.Iter1[Velocity]) {
		for _, v, ok := it.Next(); ok; _, v, ok = it.Next() {
			v.DX *= 0.9
			v.DY *= 0.9
		}
	})

	w.RunSystemsTracked()

	hist := w.History()
	require.Len(t, hist, 1)

	rec := hist[0]
	require.EqualValues(t, 1, rec.FrameNumber)
	require.Equal(t, "damp", rec.SystemName)
	require.Len(t, rec.ComponentDiffs, 1)

	cd := rec.ComponentDiffs[0]
	require.Equal(t, e0, cd.Entity)
	require.Equal(t, []ecs.PropertyDiff{
		{PropertyName: "dx", NewValue: "0.9"},
		{PropertyName: "dy", NewValue: "0.9"},
	}, cd.Changes)
}

func TestS4AliasingRejection(t *testing.T) {
	w := ecs.NewWorld()
	require.Panics(t, func() {
		ecs.Query2[A, A](w, true, true)
	})
	require.Panics(t, func() {
		ecs.Query2[A, A](w, false, true)
	})
}

func TestS5BorrowConflict(t *testing.T) {
	w := ecs.NewWorld()
	e0 := w.CreateEntity()
	ecs.AddComponent(w, e0, A{N: 1})

	it := ecs.Query1[A](w, true)
	_, _, ok := it.Next()
	require.True(t, ok)

	require.Panics(t, func() {
		ecs.GetComponentMut[A](w, e0)
	})
}

func TestS6MultiIteratorPhysics(t *testing.T) {
	w := ecs.NewWorld()
	tEnt := w.CreateEntity()
	ecs.AddComponent(w, tEnt, Gravity{Acc: -9.8})
	ecs.AddComponent(w, tEnt, TimeDelta{DT: 0.016})

	m1 := w.CreateEntity()
	ecs.AddComponent(w, m1, Position{})
	ecs.AddComponent(w, m1, Velocity{})

	m2 := w.CreateEntity()
	ecs.AddComponent(w, m2, Position{})
	ecs.AddComponent(w, m2, Velocity{})

	ecs.RegisterMulti2(w, "apply-gravity",
		ecs.Spec2[Position, Velocity](false, true),
		ecs.Spec2[Gravity, TimeDelta](false, false),
		func(w *ecs.World, moving *ecs.Iter2[Position, Velocity], env *ecs.Iter2[Gravity, TimeDelta]) {
			_, g, dt, ok := env.Next()
			if !ok {
				return
			}
			for _, _, vel, ok := moving.Next(); ok; _, _, vel, ok = moving.Next() {
				vel.DY += g.Acc * dt.DT
			}
		})

	w.RunSystems()

	const expected = -9.8 * 0.016
	v1, _ := ecs.GetComponent[Velocity](w, m1)
	v2, _ := ecs.GetComponent[Velocity](w, m2)
	require.InDelta(t, expected, v1.DY, 1e-9)
	require.InDelta(t, expected, v2.DY, 1e-9)
}

func TestDestroyEntityRemovesFromAllPools(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()
	ecs.AddComponent(w, e, A{N: 1})
	ecs.AddComponent(w, e, B{N: 2})

	w.DestroyEntity(e)

	require.False(t, ecs.HasComponent[A](w, e))
	require.False(t, ecs.HasComponent[B](w, e))
	require.NotContains(t, w.Entities(), e)
}

func TestZeroAtomQueryIsRegistryOrder(t *testing.T) {
	w := ecs.NewWorld()
	e0 := w.CreateEntity()
	e1 := w.CreateEntity()
	e2 := w.CreateEntity()

	require.Equal(t, []ecs.Entity{e0, e1, e2}, w.QueryEntities())
}

func TestRunSystemsDoesNotRecordHistory(t *testing.T) {
	w := ecs.NewWorld(ecs.WithTrackingEnabled(true))
	e0 := w.CreateEntity()
	ecs.AddComponent(w, e0, Velocity{DX: 1})

	ecs.RegisterSingle(w, "noop-mut", ecs.Spec1[Velocity](true), func(w *ecs.World, it *ecs.Iter1[Velocity]) {
		for _, _, ok := it.Next(); ok; _, _, ok = it.Next() {
		}
	})

	w.RunSystems()
	require.Empty(t, w.History())
}

func TestReplaceComponentOnReinsert(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()
	ecs.AddComponent(w, e, A{N: 1})
	ecs.AddComponent(w, e, A{N: 2})

	got, ok := ecs.GetComponent[A](w, e)
	require.True(t, ok)
	require.Equal(t, A{N: 2}, got)
}

func TestQueryOnEmptyPoolYieldsNothing(t *testing.T) {
	w := ecs.NewWorld()
	w.CreateEntity()

	it := ecs.Query1[A](w, false)
	_, _, ok := it.Next()
	require.False(t, ok)
}

func TestRegisterImperativeRunsAndDeclaresMutableTypes(t *testing.T) {
	w := ecs.NewWorld(ecs.WithTrackingEnabled(true))
	e := w.CreateEntity()
	ecs.AddComponent(w, e, Velocity{DX: 1, DY: 1})

	var sawVelocity bool
	ecs.RegisterImperative(w, "imperative-damp", []reflect.Type{reflect.TypeOf(Velocity{})}, func(w *ecs.World) {
		v, ok := ecs.GetComponent[Velocity](w, e)
		sawVelocity = ok
		if ok {
			v.DX *= 0.9
			v.DY *= 0.9
			ecs.AddComponent(w, e, v)
		}
	})

	w.NextFrame(0)
	w.RunSystemsTracked()

	require.True(t, sawVelocity)
	hist := w.History()
	require.Len(t, hist, 1)
	require.Equal(t, "imperative-damp", hist[0].SystemName)
	require.Len(t, hist[0].ComponentDiffs, 1)
	require.Equal(t, "ecs_test.Velocity", hist[0].ComponentDiffs[0].ComponentType)
}

func TestRegisterImperativeWithoutDeclaredTypesSkipsTracking(t *testing.T) {
	w := ecs.NewWorld(ecs.WithTrackingEnabled(true))
	e := w.CreateEntity()
	ecs.AddComponent(w, e, Velocity{DX: 1, DY: 1})

	ecs.RegisterImperative(w, "untracked-imperative", nil, func(w *ecs.World) {
		if v, ok := ecs.GetComponent[Velocity](w, e); ok {
			v.DX *= 2
			ecs.AddComponent(w, e, v)
		}
	})

	w.NextFrame(0)
	w.RunSystemsTracked()

	hist := w.History()
	require.Len(t, hist, 1)
	require.Empty(t, hist[0].ComponentDiffs)
}

func TestDisjointIteratorsInterleaveWithoutConflict(t *testing.T) {
	w := ecs.NewWorld()
	e0 := w.CreateEntity()
	ecs.AddComponent(w, e0, A{N: 1})
	ecs.AddComponent(w, e0, B{N: 10})

	itA := ecs.Query1[A](w, true)
	itB := ecs.Query1[B](w, true)

	_, a, okA := itA.Next()
	require.True(t, okA)
	_, b, okB := itB.Next()
	require.True(t, okB)

	a.N += 1
	b.N += 1

	itA.Close()
	itB.Close()

	gotA, _ := ecs.GetComponent[A](w, e0)
	gotB, _ := ecs.GetComponent[B](w, e0)
	require.Equal(t, A{N: 2}, gotA)
	require.Equal(t, B{N: 11}, gotB)
}
