// Package wsapi is the JSON-frames-over-upgraded-HTTP adapter (§6): the
// only one of the three that registers live subscribers with the
// subscription registry, since its sessions are long-lived and already
// serialize their own writes.
package wsapi

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"eventqueued/internal/broker"
	"eventqueued/internal/rlog"
	"eventqueued/internal/subscription"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server upgrades every incoming HTTP request to a WebSocket session.
type Server struct {
	addr     string
	broker   *broker.Broker
	executor subscription.Executor
	http     *http.Server

	tlsCert string
	tlsKey  string

	listener net.Listener

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds (but does not start) the WebSocket adapter bound to addr.
// executor backs every subscription this adapter's sessions register
// (§5's process-wide dispatch pool); a nil executor falls back to running
// each delivery on its own goroutine. tlsCert/tlsKey, if both non-empty,
// terminate TLS on the listener Start opens.
func New(addr string, b *broker.Broker, executor subscription.Executor, tlsCert, tlsKey string) *Server {
	if executor == nil {
		executor = subscription.DirectExecutor{}
	}
	s := &Server{addr: addr, broker: b, executor: executor, tlsCert: tlsCert, tlsKey: tlsKey, sessions: make(map[string]*session)}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		rlog.Debug("wsapi: upgrade failed: %v", err)
		return
	}

	sess := newSession(conn, s.broker, s.executor)
	s.addSession(sess)
	defer s.removeSession(sess.id)

	sess.serve()
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.id] = sess
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Start begins serving in the background. If tlsCert/tlsKey were given to
// New, the listener serves TLS.
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
			rlog.Error("wsapi: serve error: %v", err)
		}
	}()
	rlog.Info("wsapi: listening on %s (tls=%t)", ln.Addr(), s.tlsCert != "")
	return nil
}

// Addr returns the address the server is bound to, valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop closes every open session and shuts the HTTP server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, sess := range s.sessions {
		sess.teardown()
	}
	s.mu.Unlock()

	return s.http.Shutdown(ctx)
}
