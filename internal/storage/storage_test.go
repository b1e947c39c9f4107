package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		ct       string
		wantExt  string
		wantCT   string
		wantErr  bool
	}{
		{name: "jpeg", filename: "laptop.JPG", ct: "image/jpeg", wantExt: ".jpg", wantCT: "image/jpeg"},
		{name: "missing type", filename: "a.png", ct: "", wantExt: ".png", wantCT: "image/png"},
		{name: "octet stream", filename: "a.webp", ct: "application/octet-stream", wantExt: ".webp", wantCT: "image/webp"},
		{name: "bad extension", filename: "a.exe", ct: "image/png", wantErr: true},
		{name: "no extension", filename: "image", ct: "image/png", wantErr: true},
		{name: "not an image", filename: "a.png", ct: "text/html", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			name, ct, err := ObjectName(tt.filename, tt.ct)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupported)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(name, tt.wantExt), name)
			assert.Equal(t, tt.wantCT, ct)
		})
	}

	a, _, _ := ObjectName("x.png", "image/png")
	b, _, _ := ObjectName("x.png", "image/png")
	assert.NotEqual(t, a, b)
}

func TestPublicURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "http://localhost:8080/images/a.png", PublicURL("http://localhost:8080/", "a.png"))
	assert.Equal(t, "/images/a.png", PublicURL("", "a.png"))
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte{0x89, 'P', 'N', 'G'}
	require.NoError(t, s.Put(ctx, "a.png", "image/png", data))
	data[0] = 0

	obj, err := s.Get(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, uint64(4), obj.Size)
	assert.Equal(t, byte(0x89), obj.Data[0])

	require.NoError(t, s.Delete(ctx, "a.png"))
	_, err = s.Get(ctx, "a.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "a.png"), ErrNotFound)
}
