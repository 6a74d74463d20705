package ecs

import (
	"fmt"
	"reflect"
	"strings"
)

// ComponentDiff is the set of field changes one system caused to one
// entity's component during one tracked frame.
type ComponentDiff struct {
	Entity        Entity
	ComponentType string
	Changes       []PropertyDiff
	Removed       bool
	DiffFailed    bool
}

// FrameRecord is one system's contribution to the tracked history for a
// single frame.
type FrameRecord struct {
	FrameNumber    uint64
	SystemName     string
	ComponentDiffs []ComponentDiff
}

type snapshotEntry struct {
	typ   reflect.Type
	value any
}

type snapshot struct {
	entries map[reflect.Type][]entitySnapshot
	order   []reflect.Type
}

type entitySnapshot struct {
	entity Entity
	value  any
}

// Tracker is the debug/diff facility: when enabled, it snapshots the
// mutably-accessed components of a system before it runs and diffs them
// afterward, accumulating an ordered, deterministic history.
type Tracker struct {
	enabled bool
	history []FrameRecord
}

func newTracker() *Tracker {
	return &Tracker{}
}

// Enabled reports whether tracking is currently on.
func (t *Tracker) Enabled() bool { return t.enabled }

// EnableTracking turns on snapshot/diff recording.
func (w *World) EnableTracking() { w.tracker.enabled = true }

// DisableTracking turns off snapshot/diff recording. Existing history is
// left untouched.
func (w *World) DisableTracking() { w.tracker.enabled = false }

// History returns the accumulated frame records in recording order.
func (w *World) History() []FrameRecord {
	out := make([]FrameRecord, len(w.tracker.history))
	copy(out, w.tracker.history)
	return out
}

// ClearHistory discards all accumulated frame records.
func (w *World) ClearHistory() {
	w.tracker.history = nil
}

// FormatHistory renders the tracked history as one line per component
// diff: "frame N | system S | entity E TypeName: field=value, ...". This
// layout is advisory; callers needing a stable wire format should consume
// History() directly.
func (w *World) FormatHistory() string {
	var b strings.Builder
	for _, rec := range w.tracker.history {
		for _, cd := range rec.ComponentDiffs {
			fmt.Fprintf(&b, "frame %d | system %s | entity %d %s: ", rec.FrameNumber, rec.SystemName, cd.Entity, cd.ComponentType)
			if cd.Removed {
				b.WriteString("removed\n")
				continue
			}
			if cd.DiffFailed {
				b.WriteString("diff failed\n")
				continue
			}
			parts := make([]string, 0, len(cd.Changes))
			for _, ch := range cd.Changes {
				parts = append(parts, fmt.Sprintf("%s=%s", ch.PropertyName, ch.NewValue))
			}
			b.WriteString(strings.Join(parts, ", "))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// snapshotTypes clones the current values of every entity in the given
// component types' pools, ordered by type-declaration order and then
// pool insertion order, so the resulting diff is reproducible regardless
// of Go's randomized map iteration.
func (w *World) snapshotTypes(types []reflect.Type) *snapshot {
	if !w.tracker.enabled || len(types) == 0 {
		return nil
	}
	snap := &snapshot{entries: make(map[reflect.Type][]entitySnapshot, len(types))}
	for _, t := range types {
		p, ok := w.poolByType(t)
		if !ok {
			continue
		}
		snap.order = append(snap.order, t)
		var entries []entitySnapshot
		for _, e := range p.entities() {
			v, ok := p.cloneEntity(e)
			if !ok {
				continue
			}
			entries = append(entries, entitySnapshot{entity: e, value: v})
		}
		snap.entries[t] = entries
	}
	return snap
}

// diffAgainst compares the snapshot taken before a system ran against the
// world's present state, producing the frame record for that system.
func (w *World) diffAgainst(snap *snapshot, systemName string) FrameRecord {
	rec := FrameRecord{FrameNumber: w.clock.frame, SystemName: systemName}
	if snap == nil {
		return rec
	}
	for _, t := range snap.order {
		p, ok := w.poolByType(t)
		if !ok {
			continue
		}
		for _, prior := range snap.entries[t] {
			changes, hasDiffer, stillPresent, failed := safeDiffEntity(p, prior.entity, prior.value, w)
			cd := ComponentDiff{Entity: prior.entity, ComponentType: t.String()}
			switch {
			case failed:
				cd.DiffFailed = true
			case !stillPresent && !p.has(prior.entity):
				cd.Removed = true
			case !hasDiffer:
				continue
			case len(changes) == 0:
				continue
			default:
				cd.Changes = changes
			}
			rec.ComponentDiffs = append(rec.ComponentDiffs, cd)
		}
	}
	return rec
}

func (w *World) recordFrame(rec FrameRecord) {
	w.tracker.history = append(w.tracker.history, rec)
}

// safeDiffEntity recovers from a panicking user-supplied Differ
// implementation so one bad component diff never aborts a frame.
func safeDiffEntity(p erasedPool, e Entity, prev any, w *World) (changes []PropertyDiff, hasDiffer, stillPresent, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			failed = true
			w.log.WithFrame(w.clock.frame).WithField("entity", e).WithField("panic", r).Warn("component diff failed")
		}
	}()
	changes, hasDiffer, stillPresent = p.diffEntity(e, prev)
	return
}
