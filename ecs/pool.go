package ecs

import "reflect"

// erasedPool is the type-erased face of a pool[T], used by World and the
// tracker wherever a concrete T cannot be named (destroy propagation,
// dynamic-arity queries, snapshotting).
type erasedPool interface {
	typ() reflect.Type
	has(e Entity) bool
	remove(e Entity) bool
	entities() []Entity
	len() int
	// cloneEntity returns an owned clone of e's component value, boxed as
	// any, for tracker snapshots. ok is false if e is absent from the pool
	// or the cell could not be borrowed.
	cloneEntity(e Entity) (value any, ok bool)
	// diffEntity computes field-level changes against a previously
	// snapshotted value (itself produced by cloneEntity), if the stored
	// type implements Differ.
	diffEntity(e Entity, prev any) (changes []PropertyDiff, hasDiffer bool, ok bool)
}

// pool is the per-type component store. Insertion order is preserved and
// is the default iteration order; removal preserves the relative order of
// the remaining entities.
type pool[T Component[T]] struct {
	cells map[Entity]*cell[T]
	order []Entity
	index map[Entity]int
}

func newPool[T Component[T]]() *pool[T] {
	return &pool[T]{
		cells: make(map[Entity]*cell[T]),
		index: make(map[Entity]int),
	}
}

func (p *pool[T]) typ() reflect.Type {
	var zero T
	return reflect.TypeOf(zero)
}

func (p *pool[T]) has(e Entity) bool {
	_, ok := p.cells[e]
	return ok
}

func (p *pool[T]) len() int {
	return len(p.order)
}

// insert associates value with e, replacing any prior value for (e, T).
// It panics with a BorrowConflict if e's existing cell is borrowed.
func (p *pool[T]) insert(e Entity, value T) {
	if c, ok := p.cells[e]; ok {
		if !c.set(value) {
			panic(errBorrowConflict(p.typ().String(), e))
		}
		return
	}
	c := newCell(value)
	p.cells[e] = c
	p.index[e] = len(p.order)
	p.order = append(p.order, e)
}

func (p *pool[T]) remove(e Entity) bool {
	idx, ok := p.index[e]
	if !ok {
		return false
	}
	delete(p.cells, e)
	delete(p.index, e)
	p.order = append(p.order[:idx], p.order[idx+1:]...)
	for i := idx; i < len(p.order); i++ {
		p.index[p.order[i]] = i
	}
	return true
}

func (p *pool[T]) entities() []Entity {
	out := make([]Entity, len(p.order))
	copy(out, p.order)
	return out
}

// cellFor returns the underlying cell for e, or nil if e is absent.
func (p *pool[T]) cellFor(e Entity) *cell[T] {
	return p.cells[e]
}

func (p *pool[T]) cloneEntity(e Entity) (any, bool) {
	c, ok := p.cells[e]
	if !ok {
		return nil, false
	}
	var out T
	got := c.withRLock(func(v *T) {
		out = v.Clone()
	})
	if !got {
		return nil, false
	}
	return out, true
}

func (p *pool[T]) diffEntity(e Entity, prev any) ([]PropertyDiff, bool, bool) {
	c, ok := p.cells[e]
	if !ok {
		return nil, false, false
	}
	var changes []PropertyDiff
	hasDiffer := false
	got := c.withRLock(func(v *T) {
		if d, implementsDiffer := any(*v).(Differ); implementsDiffer {
			hasDiffer = true
			changes = d.Diff(prev)
		}
	})
	if !got {
		return nil, hasDiffer, false
	}
	return changes, hasDiffer, true
}
