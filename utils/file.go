package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// MaxImageBytes caps a single uploaded image.
const MaxImageBytes = 10 << 20

// ReadImageFile reads an uploaded multipart image. The declared content type
// is trusted only when it names an image; otherwise the bytes are sniffed.
func ReadImageFile(fileHeader *multipart.FileHeader) ([]byte, string, error) {
	if fileHeader == nil {
		return nil, "", ErrEmptyImage
	}
	if fileHeader.Size > MaxImageBytes {
		return nil, "", fmt.Errorf("image %s is larger than %d bytes", fileHeader.Filename, MaxImageBytes)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	if len(data) > MaxImageBytes {
		return nil, "", fmt.Errorf("image %s is larger than %d bytes", fileHeader.Filename, MaxImageBytes)
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("%s is not an image (%s)", fileHeader.Filename, mimeType)
	}
	return data, mimeType, nil
}
