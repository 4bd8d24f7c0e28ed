package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"
)

const (
	CredentialModePlain  = "plain"
	CredentialModeBcrypt = "bcrypt"
)

// CredentialPolicy decides how a credential is stored and how a login
// candidate is matched against the stored value.
type CredentialPolicy interface {
	// Prepare returns the value persisted for a new credential.
	Prepare(credential string) (string, error)
	// Matches reports whether candidate matches the stored value.
	Matches(stored, candidate string) bool
}

// NewCredentialPolicy returns the policy for the configured mode.
func NewCredentialPolicy(mode string) (CredentialPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", CredentialModePlain:
		return PlainCredentials{}, nil
	case CredentialModeBcrypt:
		return BcryptCredentials{}, nil
	default:
		return nil, fmt.Errorf("unsupported credential mode: %s", mode)
	}
}

// PlainCredentials stores credentials as given and compares them literally.
// Stored values are readable by anyone with database access; prefer
// BcryptCredentials outside of development.
type PlainCredentials struct{}

func (PlainCredentials) Prepare(credential string) (string, error) {
	return credential, nil
}

func (PlainCredentials) Matches(stored, candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}

// BcryptCredentials stores a bcrypt hash of the credential.
type BcryptCredentials struct{}

func (BcryptCredentials) Prepare(credential string) (string, error) {
	return HashPassword(credential)
}

func (BcryptCredentials) Matches(stored, candidate string) bool {
	return VerifyPassword(stored, candidate) == nil
}
