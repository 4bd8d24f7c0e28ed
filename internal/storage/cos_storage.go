package storage

import (
	"authserver/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

type cosStorage struct {
	client     *cos.Client
	prefix     string
	publicBase string
}

func NewCOSStorage(cfg config.Config) (Storage, error) {
	baseURL := strings.TrimSpace(cfg.StorageCOSBucketURL)
	if baseURL == "" {
		return nil, errors.New("storage: missing COS bucket URL")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse COS bucket URL: %w", err)
	}

	secretID := strings.TrimSpace(cfg.StorageCOSSecretID)
	secretKey := strings.TrimSpace(cfg.StorageCOSSecretKey)
	if secretID == "" || secretKey == "" {
		return nil, errors.New("storage: missing COS credentials")
	}

	transport := &cos.AuthorizationTransport{
		SecretID:  secretID,
		SecretKey: secretKey,
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: parsedURL}, &http.Client{Transport: transport})

	base := publicBase(cfg.StoragePublicBaseURL)
	if base == "" {
		base = strings.TrimRight(parsedURL.String(), "/")
	}

	return &cosStorage{
		client:     client,
		prefix:     trimPrefix(cfg.StorageCOSPrefix),
		publicBase: base,
	}, nil
}

func (s *cosStorage) Put(ctx context.Context, key string, body io.ReadSeeker, opts PutOptions) (string, error) {
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
	size, err := bodySize(body, opts.Size)
	if err != nil {
		return "", err
	}
	if size == 0 {
		return "", errors.New("empty payload")
	}

	headers := &cos.ObjectPutHeaderOptions{
		ContentType:   contentTypeFor(cleaned, opts.ContentType),
		ContentLength: size,
	}
	if meta := opts.Metadata.Map(); len(meta) > 0 {
		custom := make(http.Header, len(meta))
		for k, v := range meta {
			custom.Set("x-cos-meta-"+strings.ToLower(k), v)
		}
		headers.XCosMetaXXX = &custom
	}

	resp, err := s.client.Object.Put(ctx, s.objectKey(cleaned), body, &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: headers,
	})
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return cleaned, nil
}

func (s *cosStorage) Delete(ctx context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	resp, err := s.client.Object.Delete(ctx, s.objectKey(cleaned))
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil && !cos.IsNotFoundError(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *cosStorage) URLFor(key string) string {
	return joinURL(s.publicBase, s.objectKey(strings.Trim(strings.TrimSpace(key), "/")))
}

func (s *cosStorage) objectKey(cleaned string) string {
	if s.prefix == "" {
		return cleaned
	}
	return joinPrefix(s.prefix, cleaned)
}

var _ Storage = (*cosStorage)(nil)
