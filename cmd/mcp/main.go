package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	mcpcmd "github.com/assetsmith/assetsmith/internal/cmd/mcp"
	"github.com/assetsmith/assetsmith/internal/platform/config"
)

// main starts the MCP server on stdio or HTTP.
func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := mcpcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[MCP] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcpcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve MCP: %v", err)
	}
}
