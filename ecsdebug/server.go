// Package ecsdebug exposes an ecs.World's tracked history over HTTP and a
// live websocket feed, entirely optional and outside the core package's
// contract.
package ecsdebug

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ecsforge/runtime/ecs"
	"github.com/ecsforge/runtime/internal/logging"
)

// Server serves a world's tracked frame history over HTTP: GET /history
// returns the full log as JSON, POST /history/clear empties it, and
// GET /ws upgrades to a websocket that streams each new FrameRecord as
// the poller observes it.
type Server struct {
	world  *ecs.World
	log    *logging.Logger
	router chi.Router

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan ecs.FrameRecord
	lastLen int
}

// New builds a Server wrapping world.
func New(world *ecs.World, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewDefault(world.Session())
	}
	s := &Server{
		world:    world,
		log:      log,
		clients:  make(map[*websocket.Conn]chan ecs.FrameRecord),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
	r := chi.NewRouter()
	r.Get("/history", s.handleHistory)
	r.Post("/history/clear", s.handleClear)
	r.Get("/ws", s.handleWS)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.world.History())
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.world.ClearHistory()
	s.mu.Lock()
	s.lastLen = 0
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	ch := make(chan ecs.FrameRecord, 64)
	s.mu.Lock()
	s.clients[conn] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for rec := range ch {
		if err := conn.WriteJSON(rec); err != nil {
			return
		}
	}
}

// Poll starts a goroutine that checks the world's history for new
// records every interval and fans out any it finds to connected websocket
// clients, until ctx is canceled.
func (s *Server) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.closeAll()
				return
			case <-ticker.C:
				s.broadcastNew()
			}
		}
	}()
}

func (s *Server) broadcastNew() {
	hist := s.world.History()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(hist) <= s.lastLen {
		return
	}
	fresh := hist[s.lastLen:]
	s.lastLen = len(hist)
	for _, rec := range fresh {
		for _, ch := range s.clients {
			select {
			case ch <- rec:
			default:
			}
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn, ch := range s.clients {
		close(ch)
		conn.Close()
	}
	s.clients = make(map[*websocket.Conn]chan ecs.FrameRecord)
}
