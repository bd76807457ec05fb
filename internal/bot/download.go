package bot

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/raine/telegram-annonce-bot/internal/listing"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultDownloadTimeout is the default timeout for photo downloads
	DefaultDownloadTimeout = 30 * time.Second
	// DefaultMaxImageSize is the default maximum photo size (10MB)
	DefaultMaxImageSize = 10 * 1024 * 1024
)

// ImageDownloader fetches uploaded photos and turns them into source images.
type ImageDownloader struct {
	client  *resty.Client
	maxSize int64
}

// NewImageDownloader creates a new ImageDownloader with default settings.
func NewImageDownloader() *ImageDownloader {
	return &ImageDownloader{
		client:  resty.New().SetTimeout(DefaultDownloadTimeout),
		maxSize: DefaultMaxImageSize,
	}
}

// WithTimeout sets a custom timeout for downloads.
func (d *ImageDownloader) WithTimeout(timeout time.Duration) *ImageDownloader {
	d.client.SetTimeout(timeout)
	return d
}

// WithMaxSize sets a custom maximum file size.
func (d *ImageDownloader) WithMaxSize(maxSize int64) *ImageDownloader {
	d.maxSize = maxSize
	return d
}

// DownloadFromURL downloads a photo. The MIME type comes from the
// Content-Type header, or is sniffed from the bytes when the server only
// says application/octet-stream.
func (d *ImageDownloader) DownloadFromURL(ctx context.Context, imageURL string) (listing.SourceImage, error) {
	res, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(imageURL)
	if err != nil {
		return listing.SourceImage{}, fmt.Errorf("failed to download image: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	if res.StatusCode() != http.StatusOK {
		return listing.SourceImage{}, fmt.Errorf("download failed: status %d", res.StatusCode())
	}

	contentType := mediaType(res.Header().Get("Content-Type"))
	if contentType != "" && contentType != "application/octet-stream" && !strings.HasPrefix(contentType, "image/") {
		return listing.SourceImage{}, fmt.Errorf("invalid content type: expected image/*, got %s", contentType)
	}

	if res.RawResponse != nil && res.RawResponse.ContentLength > d.maxSize {
		return listing.SourceImage{}, fmt.Errorf("image too large: %d bytes exceeds limit of %d bytes", res.RawResponse.ContentLength, d.maxSize)
	}

	// Content-Length may be missing or wrong
	data, err := io.ReadAll(io.LimitReader(body, d.maxSize+1))
	if err != nil {
		return listing.SourceImage{}, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > d.maxSize {
		return listing.SourceImage{}, fmt.Errorf("image too large: exceeds limit of %d bytes", d.maxSize)
	}
	if len(data) == 0 {
		return listing.SourceImage{}, fmt.Errorf("empty image")
	}

	if !strings.HasPrefix(contentType, "image/") {
		contentType = mediaType(http.DetectContentType(data))
		if !strings.HasPrefix(contentType, "image/") {
			return listing.SourceImage{}, fmt.Errorf("downloaded file is not an image (%s)", contentType)
		}
	}

	return listing.SourceImage{Data: data, MIMEType: contentType}, nil
}

// DownloadFromTelegramFileID downloads a photo from Telegram using a file ID.
// It uses the provided function to resolve the file ID to a direct URL.
func (d *ImageDownloader) DownloadFromTelegramFileID(
	ctx context.Context,
	getFileDirectURL func(fileID string) (string, error),
	fileID string,
) (listing.SourceImage, error) {
	log.Info().Str("fileID", fileID).Msg("downloading telegram file")

	url, err := getFileDirectURL(fileID)
	if err != nil {
		return listing.SourceImage{}, fmt.Errorf("failed to get file URL: %w", err)
	}

	return d.DownloadFromURL(ctx, url)
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
