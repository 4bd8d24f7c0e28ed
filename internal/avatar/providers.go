package avatar

import (
	entity "authserver/internal/entity/db"
	"authserver/internal/metrics"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// provider turns a user into the address of a candidate avatar image.
type provider interface {
	name() string
	locate(user *entity.User) (string, bool)
}

type gravatarProvider struct {
	base string
}

func (gravatarProvider) name() string { return metrics.SourceGravatar }

// locate keys Gravatar by the SHA-256 of the normalised email and asks for a
// 404 instead of a placeholder when no image is registered.
func (p gravatarProvider) locate(user *entity.User) (string, bool) {
	hash := emailHash(user.Email)
	if hash == "" {
		return "", false
	}
	u, err := url.Parse(strings.TrimRight(p.base, "/") + "/" + hash)
	if err != nil {
		return "", false
	}
	q := u.Query()
	q.Set("d", "404")
	u.RawQuery = q.Encode()
	return u.String(), true
}

type uiAvatarsProvider struct {
	base string
}

func (uiAvatarsProvider) name() string { return metrics.SourceUIAvatars }

func (p uiAvatarsProvider) locate(user *entity.User) (string, bool) {
	first, last := splitName(user.Name)
	if first == "" {
		return "", false
	}
	u, err := url.Parse(p.base)
	if err != nil {
		return "", false
	}
	q := u.Query()
	q.Set("name", first+" "+last)
	u.RawQuery = q.Encode()
	return u.String(), true
}

func emailHash(email string) string {
	normalised := strings.ToLower(strings.TrimSpace(email))
	if normalised == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalised))
	return hex.EncodeToString(sum[:])
}

// splitName returns the first and last whitespace separated tokens of name.
// A single token is both.
func splitName(name string) (string, string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], fields[len(fields)-1]
}
