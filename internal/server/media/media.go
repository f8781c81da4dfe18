// Package media stores images attached to memorial messages.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/memorialboard/internal/common"
)

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
}

// UploadedImage references a stored image. PublicID is the handle used for deletion.
type UploadedImage struct {
	URL      string
	PublicID string
}

// Host is an external image store.
type Host interface {
	Upload(ctx context.Context, img Image) (*UploadedImage, error)
	Delete(ctx context.Context, publicID string) error
}

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Extension returns the file extension for an accepted content type.
func Extension(contentType string) string {
	return allowedTypes[contentType]
}

// DecodeDataURI parses "data:image/<type>;base64,<payload>". The content
// type is taken from the decoded bytes, not from the URI header.
func DecodeDataURI(uri string, maxBytes int64) (*Image, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, common.NewValidationError("image", "must be a base64 image data URI")
	}

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, tooLarge(maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, common.NewValidationError("image", "is not valid base64")
	}
	if int64(len(data)) > maxBytes {
		return nil, tooLarge(maxBytes)
	}
	if len(data) == 0 {
		return nil, common.NewValidationError("image", "is empty")
	}

	ct := http.DetectContentType(data)
	if _, ok := allowedTypes[ct]; !ok {
		return nil, common.NewValidationError("image", "must be a JPEG, PNG, GIF or WebP image")
	}

	return &Image{Data: data, ContentType: ct}, nil
}

func tooLarge(maxBytes int64) error {
	return common.NewValidationError("image", fmt.Sprintf("must be at most %d bytes", maxBytes))
}
