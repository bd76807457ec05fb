package listing

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// SourceImageFromBytes builds a source image, sniffing the MIME type from
// the content and falling back to the file extension of name.
func SourceImageFromBytes(name string, data []byte) (SourceImage, error) {
	if len(data) == 0 {
		return SourceImage{}, errors.New("empty image")
	}
	mimeType := http.DetectContentType(data)
	if i := strings.Index(mimeType, ";"); i != -1 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = mimeTypeFromExt(name)
	}
	if mimeType == "" {
		return SourceImage{}, fmt.Errorf("%s does not look like an image", name)
	}
	return SourceImage{Data: data, MIMEType: mimeType}, nil
}

// LoadSourceImage reads a photo from disk.
func LoadSourceImage(path string) (SourceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceImage{}, fmt.Errorf("failed to read image: %w", err)
	}
	return SourceImageFromBytes(filepath.Base(path), data)
}

func mimeTypeFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return ""
	}
}
