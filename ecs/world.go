package ecs

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/ecsforge/runtime/internal/logging"
)

// MetricsSink is the optional observation surface a World reports to. It
// is satisfied by ecsmetrics.Collector but declared here so the core
// package has no dependency on it.
type MetricsSink interface {
	ObserveFrameDuration(seconds float64)
	IncSystemsRun()
	ObserveQuerySize(site string, n int)
	IncBorrowConflict()
}

// World owns the entity registry, every component pool, the system
// registry, the debug tracker, and the frame clock for one ECS instance.
type World struct {
	session string
	log     *logging.Logger
	metrics MetricsSink

	registry *entityRegistry
	pools    map[reflect.Type]erasedPool

	systems *systemRegistry
	tracker *Tracker
	clock   Clock
}

// Option configures a World at construction.
type Option func(*World)

// WithLogger overrides the default logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.log = l
		}
	}
}

// WithSession sets an explicit session identifier instead of a generated uuid.
func WithSession(id string) Option {
	return func(w *World) {
		if id != "" {
			w.session = id
		}
	}
}

// WithMetrics attaches a metrics sink every frame and query reports to.
func WithMetrics(m MetricsSink) Option {
	return func(w *World) {
		w.metrics = m
	}
}

// WithTrackingEnabled starts the world with the debug tracker enabled.
func WithTrackingEnabled(enabled bool) Option {
	return func(w *World) {
		w.tracker.enabled = enabled
	}
}

// NewWorld constructs an empty World.
func NewWorld(opts ...Option) *World {
	session := uuid.NewString()
	w := &World{
		session:  session,
		log:      logging.NewDefault(session),
		registry: newEntityRegistry(),
		pools:    make(map[reflect.Type]erasedPool),
		systems:  newSystemRegistry(),
		tracker:  newTracker(),
		clock:    Clock{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Session returns the world's correlation identifier, used to tag logs
// and metrics for this runtime instance.
func (w *World) Session() string { return w.session }

// CreateEntity mints a fresh entity identifier.
func (w *World) CreateEntity() Entity {
	e := w.registry.create()
	w.log.WithFrame(w.clock.frame).WithField("entity", e).Debug("entity created")
	return e
}

// Entities lists currently-live entities in creation order.
func (w *World) Entities() []Entity {
	return w.registry.entities()
}

// DestroyEntity removes e from the registry and purges it from every
// component pool. It is a no-op if e is not registered.
func (w *World) DestroyEntity(e Entity) {
	if !w.registry.has(e) {
		return
	}
	w.registry.destroy(e)
	for _, p := range w.pools {
		p.remove(e)
	}
	w.log.WithFrame(w.clock.frame).WithField("entity", e).Debug("entity destroyed")
}

// poolByType looks up the erased pool for a reflect.Type, without
// creating it. Used by the dynamic atom-list query engine, which only
// ever has a reflect.Type to go on.
func (w *World) poolByType(t reflect.Type) (erasedPool, bool) {
	p, ok := w.pools[t]
	return p, ok
}

// getPool returns the typed pool for T, creating it on first use.
func getPool[T Component[T]](w *World) *pool[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if existing, ok := w.pools[t]; ok {
		return existing.(*pool[T])
	}
	p := newPool[T]()
	w.pools[t] = p
	return p
}

// AddComponent associates value with e, replacing any prior component of
// the same type. e must already be registered. It panics with a
// BorrowConflict if the existing T value is currently borrowed.
func AddComponent[T Component[T]](w *World, e Entity, value T) {
	if !w.registry.has(e) {
		panic(errUnknownEntity(e))
	}
	getPool[T](w).insert(e, value)
}

// RemoveComponent drops T from e, reporting whether it was present.
func RemoveComponent[T Component[T]](w *World, e Entity) bool {
	return getPool[T](w).remove(e)
}

// GetComponent returns a shared clone-free read of e's T component. Unlike
// GetComponentMut it does not hold a lock past the call: the returned
// value is a snapshot of the cell's contents at call time.
func GetComponent[T Component[T]](w *World, e Entity) (T, bool) {
	var zero T
	p := getPool[T](w)
	c := p.cellFor(e)
	if c == nil {
		return zero, false
	}
	ptr, ok := c.tryRLock()
	if !ok {
		panic(errBorrowConflict(p.typ().String(), e))
	}
	defer c.runlock()
	return *ptr, true
}

// MutRef is an exclusive borrow of one component cell. It must be
// released exactly once via Release.
type MutRef[T any] struct {
	cell *cell[T]
	ptr  *T
}

// Get returns the borrowed pointer. It is only valid until Release.
func (r *MutRef[T]) Get() *T { return r.ptr }

// Release ends the exclusive borrow.
func (r *MutRef[T]) Release() {
	if r.cell != nil {
		r.cell.unlock()
		r.cell = nil
	}
}

// GetComponentMut returns an exclusive borrow of e's T component. It
// panics with a *RuntimeError carrying ErrCodeBorrowConflict if the cell
// is already borrowed — this is the direct-API borrow-conflict path
// described for programming errors, distinct from the silent skip queries
// perform.
func GetComponentMut[T Component[T]](w *World, e Entity) (MutRef[T], bool) {
	p := getPool[T](w)
	c := p.cellFor(e)
	if c == nil {
		return MutRef[T]{}, false
	}
	ptr, ok := c.tryLock()
	if !ok {
		if w.metrics != nil {
			w.metrics.IncBorrowConflict()
		}
		panic(errBorrowConflict(p.typ().String(), e))
	}
	return MutRef[T]{cell: c, ptr: ptr}, true
}

// HasComponent reports whether e currently holds a T, without borrowing.
func HasComponent[T Component[T]](w *World, e Entity) bool {
	return getPool[T](w).has(e)
}
