package avatar

import (
	"authserver/internal/apperror"
	entity "authserver/internal/entity/db"
	"authserver/internal/metrics"
	"authserver/internal/storage"
	"bytes"
	"context"
	"mime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Upload is an avatar image supplied by the user.
type Upload struct {
	Data        []byte
	ContentType string
	FileName    string
}

var uploadExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
}

// SupportedTypes are the accepted upload formats as reported to clients.
var SupportedTypes = []string{"jpeg", "png"}

// StoreUpload stores a direct upload as {id}.{ext} and returns that reference.
func (r *Resolver) StoreUpload(ctx context.Context, user *entity.User, upload Upload) (string, error) {
	if !user.Persisted() {
		return "", apperror.Invalid("user must be persisted before storing an avatar")
	}

	ext, ok := uploadExtension(upload.ContentType)
	if !ok {
		return "", apperror.UnsupportedMediaType(SupportedTypes...)
	}
	if len(upload.Data) == 0 {
		return "", apperror.Invalid("avatar image is empty")
	}
	if int64(len(upload.Data)) > r.maxBytes {
		return "", apperror.Invalid("avatar image exceeds %d bytes", r.maxBytes)
	}

	id := strconv.FormatUint(uint64(user.ID), 10)
	name := id + "." + ext
	contentType := "image/png"
	if ext == "jpg" {
		contentType = "image/jpeg"
	}

	_, err := r.store.Put(ctx, r.objectKey(name), bytes.NewReader(upload.Data), storage.PutOptions{
		ContentType: contentType,
		Size:        int64(len(upload.Data)),
		Metadata: storage.Metadata{
			UserID:           id,
			OriginalFileName: upload.FileName,
		},
	})
	if err != nil {
		r.metrics.Resolution(metrics.SourceUpload, metrics.OutcomeError)
		logrus.WithError(err).WithField("user_id", user.ID).Error("failed to store uploaded avatar")
		return "", apperror.External(err, "store avatar")
	}

	r.metrics.Resolution(metrics.SourceUpload, metrics.OutcomeSuccess)
	return name, nil
}

func uploadExtension(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	ext, ok := uploadExtensions[strings.ToLower(mediaType)]
	return ext, ok
}
