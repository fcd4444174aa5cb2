package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/assetsmith/assetsmith/internal/platform/errors"
)

const (
	recordFile = "credentials.enc"
	keyFile    = ".key"
	keyLen     = 32 // AES-256
)

// Environment variable names for the fallback resolution tier.
const (
	EnvAPIToken    = "ASSETSMITH_API_TOKEN"
	EnvWorkspaceID = "ASSETSMITH_WORKSPACE_ID"
)

// Source identifies which resolution tier produced a credential pair.
type Source string

const (
	// SourceEncryptedStore means the pair came from the on-disk record.
	SourceEncryptedStore Source = "encrypted-store"
	// SourceEnvironment means the pair came from environment variables.
	SourceEnvironment Source = "environment"
)

// record is the JSON shape sealed into the on-disk record. The token digest
// is diagnostic only; it never participates in validation.
type record struct {
	APIToken    string `json:"api_token"`
	WorkspaceID string `json:"workspace_id"`
	TokenDigest string `json:"token_digest"`
}

// Store resolves and persists credentials. Reads are lock-free; concurrent
// writes are last-writer-wins, acceptable because storing credentials is a
// rare single-operator action.
type Store struct {
	dir       string
	lookupEnv func(string) (string, bool)
	logger    zerolog.Logger
}

// NewStore builds a store rooted at dir. lookupEnv may be nil, in which case
// the process environment is consulted.
func NewStore(dir string, lookupEnv func(string) (string, bool), logger zerolog.Logger) *Store {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	return &Store{dir: dir, lookupEnv: lookupEnv, logger: logger}
}

// DefaultDir returns the default credential directory under the user's home.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".assetsmith"
	}
	return filepath.Join(home, ".assetsmith")
}

/// Load resolves credentials: the encrypted record first, environment second.
// Any failure in the first tier degrades silently to the second. When neither
// tier yields a valid pair the returned error carries
// CodeConfigCredentialsMissing and the caller should treat it as a
// recoverable configuration problem.
func (s *Store) Load() (Credentials, Source, error) {
	if creds, err := s.fromDisk(); err == nil {
		return creds, SourceEncryptedStore, nil
	} else {
		s.logger.Debug().Err(err).Msg("encrypted credential record unusable, trying environment")
	}

	if creds, err := s.fromEnv(); err == nil {
		return creds, SourceEnvironment, nil
	} else {
		s.logger.Debug().Err(err).Msg("environment credentials unusable")
	}

	return Credentials{}, "", errors.New(errors.CodeConfigCredentialsMissing,
		"no usable credentials: run the setup command or set "+EnvAPIToken+" and "+EnvWorkspaceID)
}

// Save validates, encrypts, and persists the pair. The key is generated on
// first use and written with owner-only permission. The record is replaced
// atomically via a temp file and rename so a crash mid-write cannot leave a
// partial record behind.
func (s *Store) Save(token, workspaceID string) error {
	token = strings.TrimSpace(token)
	workspaceID = strings.TrimSpace(workspaceID)

	creds := Credentials{APIToken: token, WorkspaceID: workspaceID}
	if err := creds.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrap(errors.CodeConfigCredentialStore, "create credential dir", err)
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return errors.Wrap(errors.CodeConfigCredentialStore, "load encryption key", err)
	}
	sl, err := newSealer(key)
	if err != nil {
		return errors.Wrap(errors.CodeConfigCredentialStore, "build sealer", err)
	}

	digest := sha256.Sum256([]byte(token))
	plaintext, err := json.Marshal(record{
		APIToken:    token,
		WorkspaceID: workspaceID,
		TokenDigest: hex.EncodeToString(digest[:])[:16],
	})
	if err != nil {
		return errors.Wrap(errors.CodeConfigCredentialStore, "encode credential record", err)
	}

	sealed, err := sl.seal(plaintext)
	if err != nil {
		return errors.Wrap(errors.CodeConfigCredentialStore, "seal credential record", err)
	}

	if err := writeFileAtomic(filepath.Join(s.dir, recordFile), sealed, 0o600); err != nil {
		return errors.Wrap(errors.CodeConfigCredentialStore, "write credential record", err)
	}
	return nil
}

// Clear removes the encrypted record. A missing record is success.
func (s *Store) Clear() error {
	err := os.Remove(filepath.Join(s.dir, recordFile))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.CodeConfigCredentialStore, "remove credential record", err)
	}
	return nil
}

func (s *Store) fromDisk() (Credentials, error) {
	key, err := os.ReadFile(filepath.Join(s.dir, keyFile))
	if err != nil {
		return Credentials{}, fmt.Errorf("read key file: %w", err)
	}
	sealed, err := os.ReadFile(filepath.Join(s.dir, recordFile))
	if err != nil {
		return Credentials{}, fmt.Errorf("read record file: %w", err)
	}

	sl, err := newSealer(key)
	if err != nil {
		return Credentials{}, err
	}
	plaintext, err := sl.open(sealed)
	if err != nil {
		return Credentials{}, err
	}

	var rec record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return Credentials{}, fmt.Errorf("decode credential record: %w", err)
	}

	creds := Credentials{APIToken: rec.APIToken, WorkspaceID: rec.WorkspaceID}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

func (s *Store) fromEnv() (Credentials, error) {
	token, _ := s.lookupEnv(EnvAPIToken)
	workspaceID, _ := s.lookupEnv(EnvWorkspaceID)

	creds := Credentials{
		APIToken:    strings.TrimSpace(token),
		WorkspaceID: strings.TrimSpace(workspaceID),
	}
	if creds.APIToken == "" || creds.WorkspaceID == "" {
		return Credentials{}, fmt.Errorf("environment credentials are not set")
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// loadOrCreateKey returns the symmetric key, generating and persisting it
// with owner-only permission on first use.
func (s *Store) loadOrCreateKey() ([]byte, error) {
	path := filepath.Join(s.dir, keyFile)
	if key, err := os.ReadFile(path); err == nil && len(key) == keyLen {
		return key, nil
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := writeFileAtomic(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("persist key: %w", err)
	}
	return key, nil
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
