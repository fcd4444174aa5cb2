// Package setup stores, verifies, or clears the encrypted API credentials.
package setup

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/assetsmith/assetsmith/internal/credentials"
	"github.com/assetsmith/assetsmith/internal/platform/config"
)

// Config holds setup command configuration.
type Config struct {
	CredentialDir string `env:"ASSETSMITH_CONFIG_DIR"`
	Clear         bool
	Show          bool
	Token         string
	WorkspaceID   string
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.CredentialDir, "config-dir", cfg.CredentialDir, "credential store directory (defaults to ~/.assetsmith)")
	fs.BoolVar(&cfg.Clear, "clear", false, "remove the stored credentials")
	fs.BoolVar(&cfg.Show, "show", false, "report which credential source is in effect")
	fs.StringVar(&cfg.Token, "token", "", "API token (prompted for when omitted)")
	fs.StringVar(&cfg.WorkspaceID, "workspace", "", "workspace identifier (prompted for when omitted)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the setup command, prompting on in for anything missing.
func Run(cfg Config, in io.Reader, out io.Writer, logger zerolog.Logger) error {
	dir := cfg.CredentialDir
	if dir == "" {
		dir = credentials.DefaultDir()
	}
	store := credentials.NewStore(dir, nil, logger)

	switch {
	case cfg.Clear:
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(out, "stored credentials removed")
		return nil
	case cfg.Show:
		creds, source, err := store.Load()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "credentials resolved from %s for workspace %s\n", source, creds.WorkspaceID)
		return nil
	}

	reader := bufio.NewReader(in)
	token, err := promptIfEmpty(reader, out, cfg.Token, "API token: ")
	if err != nil {
		return err
	}
	workspaceID, err := promptIfEmpty(reader, out, cfg.WorkspaceID, "Workspace ID: ")
	if err != nil {
		return err
	}

	if err := store.Save(token, workspaceID); err != nil {
		return err
	}
	fmt.Fprintf(out, "credentials stored in %s\n", dir)
	return nil
}

func promptIfEmpty(reader *bufio.Reader, out io.Writer, value, prompt string) (string, error) {
	value = strings.TrimSpace(value)
	if value != "" {
		return value, nil
	}
	fmt.Fprint(out, prompt)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
