package utils

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var ErrEmptyImage = errors.New("image payload is empty")

// DecodeImage accepts a data URL ("data:image/png;base64,....") or a bare
// base64 string and returns the raw bytes and MIME type. Bare payloads are
// sniffed.
func DecodeImage(payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, "", ErrEmptyImage
	}

	mimeType := ""
	if strings.HasPrefix(payload, "data:") {
		meta, body, ok := strings.Cut(payload[len("data:"):], ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("data URL must be base64 encoded")
		}
		mimeType = strings.TrimSuffix(meta, ";base64")
		payload = body
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("payload is not an image (%s)", mimeType)
	}
	return data, mimeType, nil
}

// EncodeDataURL is the inverse of DecodeImage.
func EncodeDataURL(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
