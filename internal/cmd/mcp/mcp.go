// Package mcp parses MCP command flags and selects stdio or HTTP transport.
package mcp

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/assetsmith/assetsmith/internal/mcp/service"
	"github.com/assetsmith/assetsmith/internal/platform/config"
	"github.com/assetsmith/assetsmith/internal/platform/logging"
	"github.com/assetsmith/assetsmith/internal/platform/otel"
)

// Config holds MCP command configuration.
type Config struct {
	APIURL        string `env:"ASSETSMITH_API_URL"        envDefault:"https://api.app.layer.ai/graphql"`
	MediaURL      string `env:"ASSETSMITH_MEDIA_URL"      envDefault:"https://media.app.layer.ai"`
	CredentialDir string `env:"ASSETSMITH_CONFIG_DIR"`
	HistoryDB     string `env:"ASSETSMITH_HISTORY_DB"`
	HTTPAddr      string `env:"ASSETSMITH_MCP_HTTP_ADDR"  envDefault:"localhost:8081"`
	Transport     string `env:"ASSETSMITH_MCP_TRANSPORT"  envDefault:"stdio"`
	LogLevel      string `env:"ASSETSMITH_LOG_LEVEL"      envDefault:"info"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "control-plane GraphQL endpoint")
	fs.StringVar(&cfg.MediaURL, "media-url", cfg.MediaURL, "media base URL for remote file references")
	fs.StringVar(&cfg.CredentialDir, "config-dir", cfg.CredentialDir, "credential store directory (defaults to ~/.assetsmith)")
	fs.StringVar(&cfg.HistoryDB, "history-db", cfg.HistoryDB, "job history database path (empty disables history)")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport type: stdio or http")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, or error")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP server.
func Run(ctx context.Context, cfg Config) error {
	// Logs go to stderr: stdout belongs to the stdio transport.
	logger := logging.New(os.Stderr, cfg.LogLevel)

	shutdown, err := otel.Setup(ctx, "mcp")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	return service.Run(ctx, service.Config{
		Endpoint:      cfg.APIURL,
		MediaBase:     cfg.MediaURL,
		CredentialDir: cfg.CredentialDir,
		HistoryDB:     cfg.HistoryDB,
		Transport:     service.TransportKind(cfg.Transport),
		HTTPAddr:      cfg.HTTPAddr,
		Logger:        logger,
	})
}
