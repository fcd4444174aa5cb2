package main

import (
	"flag"
	"log"
	"os"

	setupcmd "github.com/assetsmith/assetsmith/internal/cmd/setup"
	"github.com/assetsmith/assetsmith/internal/platform/config"
	"github.com/assetsmith/assetsmith/internal/platform/logging"
)

// main stores, verifies, or clears the encrypted API credentials.
func main() {
	if err := config.LoadDotenv(".env"); err != nil {
		log.Fatalf("load .env: %v", err)
	}

	cfg, err := setupcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	logger := logging.New(os.Stderr, "info")
	if err := setupcmd.Run(cfg, os.Stdin, os.Stdout, logger); err != nil {
		log.Fatalf("setup failed: %v", err)
	}
}
