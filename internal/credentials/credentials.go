// Package credentials resolves, validates, and persists the API credential
// pair. Resolution is layered: an encrypted on-disk record first, environment
// variables second. Failures inside a tier degrade to the next tier instead
// of surfacing; only the final "nothing usable" state is reported, and it is
// a recoverable configuration error.
package credentials

import (
	"strings"

	"github.com/google/uuid"

	"github.com/assetsmith/assetsmith/internal/platform/errors"
)

// TokenPrefix is the fixed literal prefix every valid API token carries.
const TokenPrefix = "pat_"

const (
	minTokenLen = 50
	maxTokenLen = 200
)

// Credentials is a validated API credential pair. Either both fields are
// present and valid or the pair is treated as absent; no partially valid
// state exists.
type Credentials struct {
	APIToken    string
	WorkspaceID string
}

// Validate checks both fields of the pair.
func (c Credentials) Validate() error {
	if err := ValidateToken(c.APIToken); err != nil {
		return err
	}
	return ValidateWorkspaceID(c.WorkspaceID)
}

// ValidateToken checks the token shape: the fixed prefix, total length in
// [50,200], and an alphanumeric-plus-hyphen-underscore charset after the
// prefix.
func ValidateToken(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return errors.New(errors.CodeValidationTokenShape, "api token must start with "+TokenPrefix)
	}
	if len(token) < minTokenLen || len(token) > maxTokenLen {
		return errors.New(errors.CodeValidationTokenShape, "api token length is out of range")
	}
	for _, r := range token[len(TokenPrefix):] {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return errors.New(errors.CodeValidationTokenShape, "api token contains invalid characters")
		}
	}
	return nil
}

// ValidateWorkspaceID checks the canonical 8-4-4-4-12 UUID shape. uuid.Parse
// also accepts braced and URN forms, so the length is pinned first.
func ValidateWorkspaceID(id string) error {
	if len(id) != 36 {
		return errors.New(errors.CodeValidationWorkspaceShape, "workspace id is not a canonical uuid")
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.Wrap(errors.CodeValidationWorkspaceShape, "workspace id is not a canonical uuid", err)
	}
	return nil
}
