package ecsdebug_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecsforge/runtime/ecs"
	"github.com/ecsforge/runtime/ecsdebug"
)

type tickCount struct{ N int }

func (t tickCount) Clone() tickCount { return t }

func TestHistoryEndpointReturnsTrackedFrames(t *testing.T) {
	w := ecs.NewWorld(ecs.WithTrackingEnabled(true))
	e := w.CreateEntity()
	ecs.AddComponent(w, e, tickCount{N: 0})

	ecs.RegisterSingle(w, "increment", ecs.Spec1[tickCount](true), func(w *ecs.World, it *ecs.Iter1[tickCount]) {
		for _, c, ok := it.Next(); ok; _, c, ok = it.Next() {
			c.N++
		}
	})

	w.NextFrame(0)
	w.RunSystemsTracked()

	srv := ecsdebug.New(w, nil)

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var frames []ecs.FrameRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &frames))
	require.Len(t, frames, 1)
	require.Equal(t, "increment", frames[0].SystemName)
}

func TestClearHistoryEmptiesLog(t *testing.T) {
	w := ecs.NewWorld(ecs.WithTrackingEnabled(true))
	e := w.CreateEntity()
	ecs.AddComponent(w, e, tickCount{N: 0})
	ecs.RegisterSingle(w, "noop", ecs.Spec1[tickCount](true), func(w *ecs.World, it *ecs.Iter1[tickCount]) {
		for _, _, ok := it.Next(); ok; _, _, ok = it.Next() {
		}
	})
	w.RunSystemsTracked()
	require.NotEmpty(t, w.History())

	srv := ecsdebug.New(w, nil)
	req := httptest.NewRequest(http.MethodPost, "/history/clear", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, w.History())
}
