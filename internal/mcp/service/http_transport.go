package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/assetsmith/assetsmith/internal/platform/timeouts"
)

// httpTransport serves MCP over HTTP: JSON-RPC messages arrive on POST, and
// an SSE stream carries server-initiated messages. Each client holds a
// session keyed by the X-MCP-Session-ID header.
type httpTransport struct {
	addr       string
	server     *mcp.Server
	logger     zerolog.Logger
	sessions   map[string]*httpSession
	sessionsMu sync.RWMutex
	httpServer *http.Server
	serverCtx  context.Context
	cancel     context.CancelFunc
}

// httpSession binds one client to one MCP connection. runOnce guards the
// per-session server goroutine.
type httpSession struct {
	id       string
	conn     *httpConnection
	lastUsed time.Time
	runOnce  sync.Once
}

// httpConnection implements mcp.Connection over paired channels: requests
// flow in from HTTP handlers, responses flow back out to them.
type httpConnection struct {
	sessionID string
	requests  chan jsonrpc.Message
	responses chan jsonrpc.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newHTTPTransport(addr string, server *mcp.Server, logger zerolog.Logger) *httpTransport {
	return &httpTransport{
		addr:     addr,
		server:   server,
		logger:   logger,
		sessions: make(map[string]*httpSession),
	}
}

// Start runs the HTTP server until ctx ends.
func (t *httpTransport) Start(ctx context.Context) error {
	t.serverCtx, t.cancel = context.WithCancel(ctx)
	defer t.cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp/messages", t.handleMessages)
	mux.HandleFunc("/mcp/sse", t.handleSSE)
	mux.HandleFunc("/mcp/health", t.handleHealth)

	t.httpServer = &http.Server{
		Addr:              t.addr,
		Handler:           mux,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	t.logger.Info().Str("addr", t.addr).Msg("serving MCP over HTTP")

	errChan := make(chan error, 1)
	go func() {
		if err := t.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		t.logger.Info().Msg("shutting down MCP HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := t.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

// session returns the session named by id, creating one when id is unknown
// or empty.
func (t *httpTransport) session(id string) *httpSession {
	if id != "" {
		t.sessionsMu.RLock()
		session, ok := t.sessions[id]
		t.sessionsMu.RUnlock()
		if ok {
			return session
		}
	}

	session := &httpSession{
		id: uuid.NewString(),
		conn: &httpConnection{
			requests:  make(chan jsonrpc.Message, 10),
			responses: make(chan jsonrpc.Message, 10),
			closed:    make(chan struct{}),
		},
	}
	session.conn.sessionID = session.id

	t.sessionsMu.Lock()
	t.sessions[session.id] = session
	t.sessionsMu.Unlock()
	return session
}

// ensureRunning starts the MCP server loop for the session exactly once. The
// loop reads from the session's request channel and writes responses back,
// living as long as the transport's context.
func (t *httpTransport) ensureRunning(session *httpSession) {
	session.runOnce.Do(func() {
		go func() {
			err := t.server.Run(t.serverCtx, &boundTransport{conn: session.conn})
			if err != nil && t.serverCtx.Err() == nil {
				t.logger.Warn().Err(err).Str("session_id", session.id).Msg("MCP session ended")
			}
		}()
	})
}

// handleMessages handles POST /mcp/messages for JSON-RPC requests.
func (t *httpTransport) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := t.session(r.Header.Get("X-MCP-Session-ID"))
	w.Header().Set("X-MCP-Session-ID", session.id)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read request body", http.StatusBadRequest)
		return
	}
	msg, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON-RPC message: %v", err), http.StatusBadRequest)
		return
	}

	t.sessionsMu.Lock()
	session.lastUsed = time.Now()
	t.sessionsMu.Unlock()

	t.ensureRunning(session)

	select {
	case session.conn.requests <- msg:
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	// Notifications carry a zero ID and get no response body.
	if req, ok := msg.(*jsonrpc.Request); ok {
		if (req.ID == jsonrpc.ID{}) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	select {
	case resp := <-session.conn.responses:
		w.Header().Set("Content-Type", "application/json")
		data, err := jsonrpc.EncodeMessage(resp)
		if err != nil {
			t.logger.Error().Err(err).Msg("encode JSON-RPC response")
			http.Error(w, "encode response", http.StatusInternalServerError)
			return
		}
		w.Write(data)
	case <-r.Context().Done():
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
	}
}

// handleSSE handles GET /mcp/sse for server-sent events.
func (t *httpTransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := t.session(r.URL.Query().Get("session"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-MCP-Session-ID", session.id)
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	t.ensureRunning(session)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-session.conn.closed:
			return
		case msg := <-session.conn.responses:
			data, err := jsonrpc.EncodeMessage(msg)
			if err != nil {
				t.logger.Error().Err(err).Msg("encode SSE message")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// handleHealth handles GET /mcp/health.
func (t *httpTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "server": serverName})
}

// boundTransport hands the MCP server a pre-existing connection.
type boundTransport struct {
	conn mcp.Connection
}

func (b *boundTransport) Connect(context.Context) (mcp.Connection, error) {
	return b.conn, nil
}

// Read implements mcp.Connection.
func (c *httpConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	select {
	case msg := <-c.requests:
		return msg, nil
	case <-c.closed:
		return nil, fmt.Errorf("connection closed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write implements mcp.Connection.
func (c *httpConnection) Write(ctx context.Context, msg jsonrpc.Message) error {
	select {
	case c.responses <- msg:
		return nil
	case <-c.closed:
		return fmt.Errorf("connection closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements mcp.Connection.
func (c *httpConnection) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// SessionID implements mcp.Connection.
func (c *httpConnection) SessionID() string {
	return c.sessionID
}
