package mcp

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.APIURL != "https://api.app.layer.ai/graphql" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("Transport = %q, want stdio", cfg.Transport)
	}
	if cfg.HTTPAddr != "localhost:8081" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestParseConfigFlagsOverrideEnv(t *testing.T) {
	t.Setenv("ASSETSMITH_API_URL", "https://env.example.com/graphql")
	t.Setenv("ASSETSMITH_MCP_TRANSPORT", "http")

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-api-url", "https://flag.example.com/graphql"})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.APIURL != "https://flag.example.com/graphql" {
		t.Fatalf("APIURL = %q, want the flag value", cfg.APIURL)
	}
	if cfg.Transport != "http" {
		t.Fatalf("Transport = %q, want the env value", cfg.Transport)
	}
}
