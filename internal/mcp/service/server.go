// Package service hosts the Assetsmith MCP server: it resolves credentials,
// wires the generation stack, and serves the tool set over stdio or HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/assetsmith/assetsmith/internal/credentials"
	"github.com/assetsmith/assetsmith/internal/forge"
	"github.com/assetsmith/assetsmith/internal/history"
	historysqlite "github.com/assetsmith/assetsmith/internal/history/sqlite"
	"github.com/assetsmith/assetsmith/internal/mcp/domain"
)

const (
	// serverName identifies this MCP server to clients.
	serverName = "Assetsmith"
	// serverVersion identifies the MCP server version.
	serverVersion = "0.1.0"
)

// TransportKind identifies the MCP transport implementation.
type TransportKind string

const (
	// TransportStdio uses standard input/output for MCP.
	TransportStdio TransportKind = "stdio"
	// TransportHTTP serves MCP over an HTTP endpoint.
	TransportHTTP TransportKind = "http"
)

// Config configures the MCP server.
type Config struct {
	// Endpoint is the control-plane GraphQL endpoint.
	Endpoint string
	// MediaBase is the base URL remote file references are built from.
	MediaBase string
	// CredentialDir overrides the credential store location. Empty selects
	// the per-user default.
	CredentialDir string
	// HistoryDB is the path of the job history database. Empty disables the
	// history ledger.
	HistoryDB string
	Transport TransportKind
	// HTTPAddr is the HTTP listen address, defaulting to localhost:8081.
	HTTPAddr string
	Logger   zerolog.Logger
}

// Server hosts the MCP server and owns the resources behind it.
type Server struct {
	mcpServer *mcp.Server
	ledger    *historysqlite.Store
	logger    zerolog.Logger
}

// New resolves credentials and builds a fully wired MCP server.
func New(cfg Config) (*Server, error) {
	dir := cfg.CredentialDir
	if dir == "" {
		dir = credentials.DefaultDir()
	}

	store := credentials.NewStore(dir, os.LookupEnv, cfg.Logger)
	creds, source, err := store.Load()
	if err != nil {
		return nil, err
	}
	cfg.Logger.Info().Str("source", string(source)).Str("workspace_id", creds.WorkspaceID).
		Msg("credentials resolved")

	client := forge.NewClient(forge.ClientOptions{
		Endpoint: cfg.Endpoint,
		Token:    creds.APIToken,
		Logger:   cfg.Logger,
	})
	transfer := forge.NewTransfer(client, creds.WorkspaceID, cfg.MediaBase, nil, cfg.Logger)

	server := &Server{logger: cfg.Logger}

	// A broken history database degrades the server, it does not stop it:
	// generation works without a ledger, list_recent_jobs reports storage
	// failures per call.
	var ledger history.Store
	var reader domain.HistoryReader
	if cfg.HistoryDB != "" {
		opened, err := historysqlite.Open(cfg.HistoryDB)
		if err != nil {
			cfg.Logger.Warn().Err(err).Str("path", cfg.HistoryDB).
				Msg("job history unavailable, continuing without it")
		} else {
			server.ledger = opened
			ledger = opened
			reader = opened
		}
	}

	orchestrator := forge.NewOrchestrator(client, transfer, ledger, creds.WorkspaceID, cfg.Logger, forge.OrchestratorOptions{})

	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	registerAssetTools(mcpServer, orchestrator)
	registerImageTools(mcpServer, client, transfer, creds.WorkspaceID)
	registerWorkspaceTools(mcpServer, domain.WorkspaceInfo{
		WorkspaceID:      creds.WorkspaceID,
		Endpoint:         client.Endpoint(),
		CredentialSource: string(source),
	})
	registerHistoryTools(mcpServer, reader)

	server.mcpServer = mcpServer
	return server, nil
}

// Run creates and serves the MCP server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Transport == "" {
		cfg.Transport = TransportStdio
	}

	switch cfg.Transport {
	case TransportStdio:
		return runWithTransport(ctx, cfg, &mcp.StdioTransport{})
	case TransportHTTP:
		return runWithHTTPTransport(ctx, cfg)
	default:
		return fmt.Errorf("transport %q is not supported", cfg.Transport)
	}
}

// runWithTransport creates a server and serves it over the provided transport.
func runWithTransport(ctx context.Context, cfg Config, transport mcp.Transport) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.serveWithTransport(ctx, transport)
}

// runWithHTTPTransport creates a server and serves it over HTTP.
func runWithHTTPTransport(ctx context.Context, cfg Config) error {
	httpAddr := cfg.HTTPAddr
	if httpAddr == "" {
		httpAddr = "localhost:8081"
	}

	server, err := New(cfg)
	if err != nil {
		return err
	}
	defer server.Close()

	transport := newHTTPTransport(httpAddr, server.mcpServer, cfg.Logger)
	return transport.Start(ctx)
}

// serveWithTransport starts the MCP server using the provided transport.
func (s *Server) serveWithTransport(ctx context.Context, transport mcp.Transport) error {
	if s == nil || s.mcpServer == nil {
		return fmt.Errorf("MCP server is not configured")
	}
	err := s.mcpServer.Run(ctx, transport)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	closeErr := s.Close()
	if closeErr != nil {
		if err == nil {
			return fmt.Errorf("close job history: %w", closeErr)
		}
		return fmt.Errorf("serve MCP: %v; close job history: %w", err, closeErr)
	}
	if err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}

// Close releases the resources held by the server.
func (s *Server) Close() error {
	if s == nil || s.ledger == nil {
		return nil
	}
	err := s.ledger.Close()
	s.ledger = nil
	return err
}
