package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjack/internal/session"
)

const (
	// SessionCookie names the cookie carrying the session ID
	SessionCookie = "blackjack_session"

	// UserHeader selects the stats user when no user query parameter is set
	UserHeader = "X-Blackjack-User"

	maxBodySize = 1 << 20
)

// Server serves the blackjack HTTP and WebSocket API
type Server struct {
	addr        string
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	game        *GameService
	sessions    *session.Store
}

// NewServer creates a new server
func NewServer(addr string, gameService *GameService, sessions *session.Store, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// WebSocket play never uses the session cookie
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		game:        gameService,
		sessions:    sessions,
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.run()
	return s
}

// Handler returns the HTTP routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /hit", s.handleHit)
	mux.HandleFunc("GET /stand", s.handleStand)
	mux.HandleFunc("GET /reset", s.handleReset)
	mux.HandleFunc("GET /reset_stats", s.handleResetStats)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("POST /echo", s.handleEcho)
	mux.HandleFunc("GET /person/{name}", s.handleGetPerson)
	mux.HandleFunc("PUT /person/{name}", s.handlePutPerson)
	mux.HandleFunc("DELETE /person/{name}", s.handleDeletePerson)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("Starting blackjack server", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes WebSocket connections and
// waits for in-flight requests to finish
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.game.Counters().Connections.Add(1)
			s.logger.Info("Client connected", "session", conn.Session().ID, "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)
				s.game.Counters().Connections.Add(-1)
				s.sessions.Delete(conn.Session().ID)
				_ = conn.Close()
			}
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "session", conn.Session().ID, "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket upgrades the request and gives the connection a fresh
// session
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	sess, err := s.sessions.New(s.userFor(r))
	if err != nil {
		s.logger.Error("Failed to create session", "error", err)
		_ = conn.Close()
		return
	}

	client := NewConnection(conn, sess, s.game, s.logger)
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		_ = conn.Close()
		return
	}
	client.Start()

	go func() {
		<-client.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// ConnectionCount returns the number of open WebSocket connections
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// userFor picks the stats user for a request
func (s *Server) userFor(r *http.Request) string {
	if u := strings.TrimSpace(r.URL.Query().Get("user")); u != "" {
		return u
	}
	if u := strings.TrimSpace(r.Header.Get(UserHeader)); u != "" {
		return u
	}
	return s.game.DefaultUser()
}

// session returns the request's session, creating one and setting the
// cookie when the request has none. The returned session is locked.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	user := s.userFor(r)

	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	sess, created, err := s.sessions.Load(id, user)
	if err != nil {
		return nil, err
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	sess.Lock()
	sess.User = user
	return sess, nil
}
