package storage

import (
	"authserver/internal/config"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type ossStorage struct {
	bucket     *oss.Bucket
	prefix     string
	publicBase string
}

func NewOSSStorage(cfg config.Config) (Storage, error) {
	endpoint := strings.TrimSpace(cfg.StorageOSSEndpoint)
	if endpoint == "" {
		return nil, errors.New("storage: missing OSS endpoint")
	}
	bucketName := strings.TrimSpace(cfg.StorageOSSBucket)
	if bucketName == "" {
		return nil, errors.New("storage: missing OSS bucket")
	}
	accessKey := strings.TrimSpace(cfg.StorageOSSAccessKeyID)
	secretKey := strings.TrimSpace(cfg.StorageOSSAccessKeySecret)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing OSS credentials")
	}

	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("storage: create OSS client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("storage: open OSS bucket: %w", err)
	}

	base := publicBase(cfg.StoragePublicBaseURL)
	if base == "" {
		base = ossPublicBase(bucketName, endpoint)
	}

	return &ossStorage{
		bucket:     bucket,
		prefix:     trimPrefix(cfg.StorageOSSPrefix),
		publicBase: base,
	}, nil
}

// ossPublicBase builds the virtual-hosted bucket URL, e.g. https://bucket.oss-cn-hangzhou.aliyuncs.com.
func ossPublicBase(bucket, endpoint string) string {
	scheme := "https"
	host := endpoint
	if before, after, ok := strings.Cut(endpoint, "://"); ok {
		scheme, host = before, after
	}
	return fmt.Sprintf("%s://%s.%s", scheme, bucket, strings.TrimRight(host, "/"))
}

func (s *ossStorage) Put(ctx context.Context, key string, body io.ReadSeeker, opts PutOptions) (string, error) {
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

	options := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentTypeFor(cleaned, opts.ContentType)),
		oss.ContentLength(size),
	}
	for k, v := range opts.Metadata.Map() {
		options = append(options, oss.Meta(k, v))
	}

	if err := s.bucket.PutObject(s.objectKey(cleaned), body, options...); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return cleaned, nil
}

func (s *ossStorage) Delete(ctx context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.bucket.DeleteObject(s.objectKey(cleaned), oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *ossStorage) URLFor(key string) string {
	return joinURL(s.publicBase, s.objectKey(strings.Trim(strings.TrimSpace(key), "/")))
}

func (s *ossStorage) objectKey(cleaned string) string {
	if s.prefix == "" {
		return cleaned
	}
	return joinPrefix(s.prefix, cleaned)
}

var _ Storage = (*ossStorage)(nil)
