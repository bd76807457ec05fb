package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURL_RoundTrip(t *testing.T) {
	mimeType, data, err := DecodeDataURL(EncodeDataURL("", []byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, DefaultMIMEType, mimeType)
	assert.Equal(t, []byte("abc"), data)
}

func TestDecodeDataURL_Invalid(t *testing.T) {
	for _, in := range []string{
		"https://example.com/a.png",
		"data:image/png;base64",
		"data:image/png,abc",
		"data:image/png;base64,@@@",
	} {
		_, _, err := DecodeDataURL(in)
		assert.Error(t, err, in)
	}
}

func TestGeneratedImage_Export(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	img := GeneratedImage{ID: "action-1", URL: EncodeDataURL("image/png", []byte{1, 2, 3})}

	name, data, err := img.Export(at)
	require.NoError(t, err)
	assert.Equal(t, "la-bonne-annonce-action-1-1700000000123.png", name)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, _, err = GeneratedImage{ID: "neutral", URL: "broken"}.Export(at)
	assert.ErrorContains(t, err, "image neutral")
}
