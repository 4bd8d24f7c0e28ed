package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const metadataSuffix = ".meta.json"

// LocalStorage persists files to the local filesystem.
type LocalStorage struct {
	baseDir    string
	publicBase string
}

// localObjectMeta is written next to every stored file.
type localObjectMeta struct {
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewLocalStorage creates a LocalStorage instance. The directory is created if
// it does not exist. publicBase is either an absolute URL or a path served by
// the HTTP server.
func NewLocalStorage(baseDir, publicBase string) (*LocalStorage, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		baseDir = "datas/files"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, publicBase: normaliseLocalBase(publicBase)}, nil
}

// LocalBaseDir returns the root directory used for storing files.
func (s *LocalStorage) LocalBaseDir() string {
	return s.baseDir
}

// PublicPath returns the URL prefix files are served under.
func (s *LocalStorage) PublicPath() string {
	return s.publicBase
}

// Put writes the body to disk under key together with a metadata sidecar.
func (s *LocalStorage) Put(ctx context.Context, key string, body io.ReadSeeker, opts PutOptions) (string, error) {
	if body == nil {
		return "", errors.New("empty payload")
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	absPath := s.absPath(cleaned)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(absPath), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if written == 0 {
		return "", errors.New("empty payload")
	}
	if err := os.Rename(tmp.Name(), absPath); err != nil {
		return "", fmt.Errorf("move file: %w", err)
	}

	meta := localObjectMeta{
		ContentType: contentTypeFor(cleaned, opts.ContentType),
		Size:        written,
		Metadata:    opts.Metadata.Map(),
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(absPath+metadataSuffix, raw, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	return cleaned, nil
}

// Delete removes the file and its metadata sidecar. Missing files are ignored.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	absPath := s.absPath(cleaned)
	for _, target := range []string{absPath, absPath + metadataSuffix} {
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove file: %w", err)
		}
	}
	return nil
}

// URLFor joins the public base with key.
func (s *LocalStorage) URLFor(key string) string {
	return joinURL(s.publicBase, key)
}

func (s *LocalStorage) absPath(cleaned string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(cleaned))
}

func normaliseLocalBase(value string) string {
	if base := publicBase(value); base != "" {
		return base
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = "/files"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return strings.TrimRight(trimmed, "/")
}

var _ Storage = (*LocalStorage)(nil)
var _ LocalBaseDirProvider = (*LocalStorage)(nil)
