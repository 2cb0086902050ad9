// Package httpapi is the RESTful HTTP adapter (§6): JSON request/response
// bodies routed with gorilla/mux, plus a polling SSE stream endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"eventqueued/internal/broker"
	"eventqueued/internal/rlog"
)

// Server wraps an *http.Server whose handler is a mux.Router routing the
// endpoints §6 names.
type Server struct {
	addr     string
	broker   *broker.Broker
	http     *http.Server
	listener net.Listener

	tlsCert string
	tlsKey  string
}

// New builds (but does not start) the HTTP adapter bound to addr. If
// tlsCert/tlsKey are both non-empty, Start terminates TLS on the listener.
func New(addr string, b *broker.Broker, tlsCert, tlsKey string) *Server {
	s := &Server{addr: addr, broker: b, tlsCert: tlsCert, tlsKey: tlsKey}

	router := mux.NewRouter()
	router.HandleFunc("/topics", s.handleListTopics).Methods(http.MethodGet)
	router.HandleFunc("/topics/{name}", s.handleCreateTopic).Methods(http.MethodPost)
	router.HandleFunc("/topics/{name}/produce", s.handleProduce).Methods(http.MethodPost)
	router.HandleFunc("/topics/{name}/consume", s.handleConsume).Methods(http.MethodGet)
	router.HandleFunc("/topics/{name}/next_offset", s.handleNextOffset).Methods(http.MethodGet)
	router.HandleFunc("/topics/{name}/stream", s.handleStream).Methods(http.MethodGet)

	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		var err error
		if s.tlsCert != "" {
			err = s.http.ServeTLS(ln, s.tlsCert, s.tlsKey)
		} else {
			err = s.http.Serve(ln)
		}
		if err != nil && err != http.ErrServerClosed {
			rlog.Error("httpapi: serve error: %v", err)
		}
	}()
	rlog.Info("httpapi: listening on %s (tls=%t)", ln.Addr(), s.tlsCert != "")
	return nil
}

// Addr returns the address the server is actually bound to, valid after
// Start returns.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
