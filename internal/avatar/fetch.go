package avatar

import (
	entity "authserver/internal/entity/db"
	"authserver/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
)

var errTooLarge = errors.New("avatar image exceeds size limit")

// probe issues a HEAD request; 200 means found, 404 means absent and anything
// else is an error.
func (r *Resolver) probe(ctx context.Context, target string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return false, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}

// fetchAndStore downloads target into a staging file and uploads it as
// {id}.jpg. The staging file is removed on every path.
func (r *Resolver) fetchAndStore(ctx context.Context, user *entity.User, target string) (string, error) {
	staged, size, err := r.fetch(ctx, target)
	if staged != nil {
		defer func() {
			_ = staged.Close()
			_ = os.Remove(staged.Name())
		}()
	}
	if err != nil {
		return "", err
	}

	name := strconv.FormatUint(uint64(user.ID), 10) + ".jpg"
	_, err = r.store.Put(ctx, r.objectKey(name), staged, storage.PutOptions{
		ContentType: "image/jpeg",
		Size:        size,
		Metadata: storage.Metadata{
			UserID:           strconv.FormatUint(uint64(user.ID), 10),
			OriginalFileName: name,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	return name, nil
}

// fetch streams the GET body of target into a temp file positioned at its
// start. The returned file is non-nil whenever it was created.
func (r *Resolver) fetch(ctx context.Context, target string) (*os.File, int64, error) {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	file, err := os.CreateTemp(r.staging, "avatar-*.jpg")
	if err != nil {
		return nil, 0, fmt.Errorf("create staging file: %w", err)
	}

	n, err := io.Copy(file, io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return file, 0, fmt.Errorf("download avatar: %w", err)
	}
	if n > r.maxBytes {
		return file, 0, errTooLarge
	}
	if n == 0 {
		return file, 0, errors.New("provider returned an empty image")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return file, 0, err
	}
	return file, n, nil
}
