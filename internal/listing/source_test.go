package listing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceImageFromBytes(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     []byte
		wantMIME string
		wantErr  bool
	}{
		{"sniffed png", "photo.bin", []byte("\x89PNG\r\n\x1a\n0000"), "image/png", false},
		{"sniffed jpeg", "photo", []byte("\xff\xd8\xff\xe00000"), "image/jpeg", false},
		{"extension fallback", "photo.HEIC", []byte("ftypheic0000"), "image/heic", false},
		{"not an image", "notes.txt", []byte("hello"), "", true},
		{"empty", "photo.png", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := SourceImageFromBytes(tt.file, tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMIME, img.MIMEType)
			assert.Equal(t, tt.data, img.Data)
		})
	}
}

func TestLoadSourceImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chaise.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0644))

	img, err := LoadSourceImage(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)

	_, err = LoadSourceImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
