package avatar

import (
	"authserver/internal/apperror"
	"encoding/base64"
	"net/http"
	"strings"
)

// DecodeDataURL turns an inline image ("data:image/png;base64,..." or bare
// base64) into an Upload. Bare payloads are typed by content sniffing.
func DecodeDataURL(value, fileName string) (Upload, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Upload{}, apperror.Invalid("avatar image is empty")
	}

	contentType, payload := splitDataURL(trimmed)
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Upload{}, apperror.Invalid("avatar image is empty")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Upload{}, apperror.Invalid("decode avatar image: %v", err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return Upload{Data: data, ContentType: contentType, FileName: fileName}, nil
}

func splitDataURL(value string) (string, string) {
	if !strings.HasPrefix(value, "data:") {
		return "", value
	}
	value = strings.TrimPrefix(value, "data:")
	parts := strings.SplitN(value, ";base64,", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
