// Package preview streams watch-mode verdicts to editor integrations over
// WebSocket.
//
// Clients connect to /ws and receive one JSON message per saved page:
//
//	{"type":"verdict","time":"...","data":{"page":"install.adoc","verdict":"CodeOnly"}}
//
// A "hello" message carrying the watched tree is sent on connect. Messages
// sent from clients are read and discarded.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/docsync/docsync/internal/classify"
	"github.com/docsync/docsync/internal/logging"
)

// MessageType names the payload of a Message.
type MessageType string

const (
	// MessageHello is sent once to each new client.
	MessageHello MessageType = "hello"
	// MessageVerdict reports the verdict of one saved page.
	MessageVerdict MessageType = "verdict"
	// MessageError reports a page that could not be classified.
	MessageError MessageType = "error"
)

// writeTimeout bounds a single write to one client.
const writeTimeout = 5 * time.Second

// Message is one broadcast frame.
type Message struct {
	Type MessageType     `json:"type"`
	Time time.Time       `json:"time"`
	Data json.RawMessage `json:"data,omitempty"`
}

// HelloData describes the watched tree.
type HelloData struct {
	Tree     string `json:"tree"`
	Language string `json:"language"`
}

// VerdictData is the preview of one page.
type VerdictData struct {
	Page    string           `json:"page"`
	Verdict classify.Verdict `json:"verdict"`
	Error   string           `json:"error,omitempty"`
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address. ":0" picks a free port.
	Addr   string
	Hello  HelloData
	Logger *zap.Logger
}

// Server accepts WebSocket clients and fans messages out to all of them.
type Server struct {
	addr     string
	hello    HelloData
	logger   *zap.Logger
	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]struct{}
	clientsMu sync.RWMutex

	broadcast chan Message
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewServer creates a server. It must be started with Start.
func NewServer(opts Options) *Server {
	logger := logging.OrNop(opts.Logger)
	addr := opts.Addr
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		hello:     opts.Hello,
		logger:    logger.Named("preview"),
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(2)
	go s.broadcastLoop()
	go func() {
		defer s.wg.Done()
		s.logger.Info("preview server listening", zap.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("preview server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop closes every client and shuts the server down.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "watch stopped")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("preview server shutdown: %w", err)
		}
	}
	s.wg.Wait()
	return nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// PublishVerdict queues a verdict for every client.
func (s *Server) PublishVerdict(page string, v classify.Verdict) {
	s.publish(MessageVerdict, VerdictData{Page: page, Verdict: v})
}

// PublishError queues a classification failure for every client.
func (s *Server) PublishError(page string, err error) {
	s.publish(MessageError, VerdictData{Page: page, Error: err.Error()})
}

func (s *Server) publish(t MessageType, data any) {
	msg, err := newMessage(t, data)
	if err != nil {
		s.logger.Warn("encode preview message", zap.Error(err))
		return
	}
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.logger.Warn("preview queue full, dropping message", zap.String("type", string(t)))
	}
}

func newMessage(t MessageType, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: t, Time: time.Now().UTC(), Data: raw}, nil
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range clients {
				if err := s.write(conn, data); err != nil {
					s.logger.Debug("preview client write failed", zap.Error(err))
					s.removeClient(conn)
				}
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	hello, err := newMessage(MessageHello, s.hello)
	if err == nil {
		data, _ := json.Marshal(hello)
		if err := s.write(conn, data); err != nil {
			_ = conn.Close(websocket.StatusInternalError, "hello failed")
			return
		}
	}

	s.clientsMu.Lock()
	s.clients[conn] = struct{}{}
	n := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Debug("preview client connected", zap.Int("clients", n))

	go s.readLoop(conn)
}

// readLoop drains client frames until the connection closes.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	n := len(s.clients)
	s.clientsMu.Unlock()
	if !ok {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
	s.logger.Debug("preview client disconnected", zap.Int("clients", n))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
		"tree":    s.hello.Tree,
	})
}
