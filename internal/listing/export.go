package listing

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EncodeDataURL renders image bytes as a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// DecodeDataURL parses a base64 data URL back into its MIME type and bytes.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, errors.New("not a data URL")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data URL has no payload")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, errors.New("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URL: %w", err)
	}
	return mimeType, data, nil
}

// ExportFileName is the name a gallery image is saved under.
func ExportFileName(slotID string, at time.Time) string {
	return fmt.Sprintf("la-bonne-annonce-%s-%d.png", slotID, at.UnixMilli())
}

// Export decodes a gallery image into bytes ready to be written or uploaded.
func (img GeneratedImage) Export(at time.Time) (name string, data []byte, err error) {
	_, data, err = DecodeDataURL(img.URL)
	if err != nil {
		return "", nil, fmt.Errorf("image %s: %w", img.ID, err)
	}
	return ExportFileName(img.ID, at), data, nil
}
