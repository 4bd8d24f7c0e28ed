package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
)

var errInvalidKey = errors.New("storage: invalid object key")

// cleanKey normalises a logical object key and rejects traversal.
func cleanKey(key string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", errInvalidKey
	}
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", fmt.Errorf("%w: %q", errInvalidKey, key)
		}
	}
	return path.Clean(trimmed), nil
}

func contentTypeFor(key, declared string) string {
	if ct := strings.TrimSpace(declared); ct != "" {
		return ct
	}
	return detectContentType(path.Ext(key))
}

func detectContentType(ext string) string {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if normalized == "" {
		return "application/octet-stream"
	}
	typeName := mime.TypeByExtension("." + normalized)
	if typeName == "" {
		return "application/octet-stream"
	}
	return typeName
}

// bodySize returns opts.Size, or measures a seekable body without consuming it.
func bodySize(body io.ReadSeeker, declared int64) (int64, error) {
	if declared > 0 {
		return declared, nil
	}
	current, err := body.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("seek body: %w", err)
	}
	end, err := body.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek body: %w", err)
	}
	if _, err := body.Seek(current, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek body: %w", err)
	}
	return end - current, nil
}

func joinPrefix(prefix, key string) string {
	cleanPrefix := trimPrefix(prefix)
	if cleanPrefix == "" {
		return strings.TrimLeft(key, "/")
	}
	return path.Join(cleanPrefix, strings.TrimLeft(key, "/"))
}

func trimPrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

// publicBase returns an absolute public base URL, or "" when value is not one.
func publicBase(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return strings.TrimRight(trimmed, "/")
	}
	return ""
}

func joinURL(base, key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), strings.TrimLeft(key, "/"))
}
