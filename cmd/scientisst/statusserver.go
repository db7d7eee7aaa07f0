package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	sense "github.com/scientisst/sense-go"
)

// StatusServer is a tiny HTTP diagnostics endpoint for long-running
// acquisitions, grounded on api_server.go's router/handler shape but
// scaled down to the one thing a headless acquisition process needs
// to expose: whether it is still connected and acquiring.
type StatusServer struct {
	router  *mux.Router
	server  *http.Server
	session *sense.Session

	mu          sync.RWMutex
	framesRead  int
	lastFrameAt time.Time
}

// NewStatusServer builds a StatusServer bound to session, listening on
// port when Start is called.
func NewStatusServer(session *sense.Session, port int) *StatusServer {
	router := mux.NewRouter()
	s := &StatusServer{
		router:  router,
		session: session,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	return s
}

// RecordFrame updates the counters handleStatus reports; call it once
// per frame a Read call returns.
func (s *StatusServer) RecordFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesRead++
	s.lastFrameAt = time.Now()
}

type statusResponse struct {
	Address     string    `json:"address"`
	Connected   bool      `json:"connected"`
	Acquiring   bool      `json:"acquiring"`
	FramesRead  int       `json:"framesRead"`
	LastFrameAt time.Time `json:"lastFrameAt,omitempty"`
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := statusResponse{
		Address:     s.session.Address(),
		Connected:   s.session.Connected(),
		Acquiring:   s.session.Acquiring(),
		FramesRead:  s.framesRead,
		LastFrameAt: s.lastFrameAt,
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("scientisst: encoding status response: %v", err)
	}
}

// Start begins serving in the background, logging (but not returning)
// a bind failure, matching radio_client.go's fire-and-forget server
// goroutines.
func (s *StatusServer) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("scientisst: status server stopped: %v", err)
		}
	}()
}

// Stop shuts the status server down within ctx's deadline.
func (s *StatusServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
