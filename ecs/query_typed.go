package ecs

// The typed Q1/Q2/Q3 iterators are generic-type sugar over the same
// per-cell borrow rules the dynamic atom-list engine uses; they exist so
// most systems never have to touch reflect.Type directly. Mutability is a
// per-call request, not an encoded type, matching the spec's "atom = type
// + mutability marker" model: Next always hands back a pointer, and
// whether that pointer was taken under a shared or exclusive borrow is
// controlled by the mut flags passed to the constructor.

// Iter1 iterates entities holding a single component type.
type Iter1[T Component[T]] struct {
	w        *World
	p        *pool[T]
	mut      bool
	entities []Entity
	idx      int
	release  func()
}

// Query1 constructs a single-atom iterator over T.
func Query1[T Component[T]](w *World, mut bool) *Iter1[T] {
	p := getPool[T](w)
	ents := w.QueryEntities(Atom{p.typ(), mut})
	return &Iter1[T]{w: w, p: p, mut: mut, entities: ents}
}

// Next advances to the next entity whose cell can be borrowed under the
// requested mutability, skipping any that cannot (missing component or a
// conflicting outstanding borrow). It returns false once exhausted.
func (it *Iter1[T]) Next() (Entity, *T, bool) {
	if it.release != nil {
		it.release()
		it.release = nil
	}
	for it.idx < len(it.entities) {
		e := it.entities[it.idx]
		it.idx++
		c := it.p.cellFor(e)
		if c == nil {
			continue
		}
		if it.mut {
			ptr, ok := c.tryLock()
			if !ok {
				continue
			}
			it.release = c.unlock
			return e, ptr, true
		}
		ptr, ok := c.tryRLock()
		if !ok {
			continue
		}
		it.release = c.runlock
		return e, ptr, true
	}
	return 0, nil, false
}

// Close releases any borrow the iterator currently holds. Safe to call
// multiple times.
func (it *Iter1[T]) Close() {
	if it.release != nil {
		it.release()
		it.release = nil
	}
}

// AccessSet reports this iterator's declared component access.
func (it *Iter1[T]) AccessSet() AccessSet {
	return AccessSet{{it.p.typ(), it.mut}}
}

// Iter2 iterates entities holding both A and B.
type Iter2[A Component[A], B Component[B]] struct {
	w          *World
	pa         *pool[A]
	pb         *pool[B]
	mutA, mutB bool
	entities   []Entity
	idx        int
	release    []func()
}

// Query2 constructs a two-atom iterator over (A, B).
func Query2[A Component[A], B Component[B]](w *World, mutA, mutB bool) *Iter2[A, B] {
	pa := getPool[A](w)
	pb := getPool[B](w)
	ents := w.QueryEntities(Atom{pa.typ(), mutA}, Atom{pb.typ(), mutB})
	return &Iter2[A, B]{w: w, pa: pa, pb: pb, mutA: mutA, mutB: mutB, entities: ents}
}

func (it *Iter2[A, B]) releaseAll() {
	for _, fn := range it.release {
		fn()
	}
	it.release = it.release[:0]
}

func (it *Iter2[A, B]) Next() (Entity, *A, *B, bool) {
	it.releaseAll()
	for it.idx < len(it.entities) {
		e := it.entities[it.idx]
		it.idx++
		ca := it.pa.cellFor(e)
		cb := it.pb.cellFor(e)
		if ca == nil || cb == nil {
			continue
		}
		pa, okA := borrowCell(ca, it.mutA)
		if !okA {
			continue
		}
		pb, okB := borrowCell(cb, it.mutB)
		if !okB {
			releaseCell(ca, it.mutA)
			continue
		}
		it.release = append(it.release, func() { releaseCell(ca, it.mutA) }, func() { releaseCell(cb, it.mutB) })
		return e, pa, pb, true
	}
	return 0, nil, nil, false
}

func (it *Iter2[A, B]) Close() { it.releaseAll() }

func (it *Iter2[A, B]) AccessSet() AccessSet {
	return AccessSet{{it.pa.typ(), it.mutA}, {it.pb.typ(), it.mutB}}
}

// Iter3 iterates entities holding A, B, and C.
type Iter3[A Component[A], B Component[B], C Component[C]] struct {
	w                *World
	pa               *pool[A]
	pb               *pool[B]
	pc               *pool[C]
	mutA, mutB, mutC bool
	entities         []Entity
	idx              int
	release          []func()
}

// Query3 constructs a three-atom iterator over (A, B, C).
func Query3[A Component[A], B Component[B], C Component[C]](w *World, mutA, mutB, mutC bool) *Iter3[A, B, C] {
	pa := getPool[A](w)
	pb := getPool[B](w)
	pc := getPool[C](w)
	ents := w.QueryEntities(Atom{pa.typ(), mutA}, Atom{pb.typ(), mutB}, Atom{pc.typ(), mutC})
	return &Iter3[A, B, C]{w: w, pa: pa, pb: pb, pc: pc, mutA: mutA, mutB: mutB, mutC: mutC, entities: ents}
}

func (it *Iter3[A, B, C]) releaseAll() {
	for _, fn := range it.release {
		fn()
	}
	it.release = it.release[:0]
}

func (it *Iter3[A, B, C]) Next() (Entity, *A, *B, *C, bool) {
	it.releaseAll()
	for it.idx < len(it.entities) {
		e := it.entities[it.idx]
		it.idx++
		ca := it.pa.cellFor(e)
		cb := it.pb.cellFor(e)
		cc := it.pc.cellFor(e)
		if ca == nil || cb == nil || cc == nil {
			continue
		}
		pa, okA := borrowCell(ca, it.mutA)
		if !okA {
			continue
		}
		pb, okB := borrowCell(cb, it.mutB)
		if !okB {
			releaseCell(ca, it.mutA)
			continue
		}
		pc, okC := borrowCell(cc, it.mutC)
		if !okC {
			releaseCell(ca, it.mutA)
			releaseCell(cb, it.mutB)
			continue
		}
		it.release = append(it.release,
			func() { releaseCell(ca, it.mutA) },
			func() { releaseCell(cb, it.mutB) },
			func() { releaseCell(cc, it.mutC) },
		)
		return e, pa, pb, pc, true
	}
	return 0, nil, nil, nil, false
}

func (it *Iter3[A, B, C]) Close() { it.releaseAll() }

func (it *Iter3[A, B, C]) AccessSet() AccessSet {
	return AccessSet{{it.pa.typ(), it.mutA}, {it.pb.typ(), it.mutB}, {it.pc.typ(), it.mutC}}
}

func borrowCell[T any](c *cell[T], mut bool) (*T, bool) {
	if mut {
		return c.tryLock()
	}
	return c.tryRLock()
}

func releaseCell[T any](c *cell[T], mut bool) {
	if mut {
		c.unlock()
	} else {
		c.runlock()
	}
}
