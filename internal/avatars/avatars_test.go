package avatars_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/geocoder89/monocontact/internal/avatars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultURL_IsStableAndNormalized(t *testing.T) {
	got := avatars.DefaultURL("a@x.com")
	again := avatars.DefaultURL("  A@X.COM ")

	assert.Equal(t, got, again, "email case and padding must not change the URL")
	assert.Contains(t, got, "https://s.gravatar.com/avatar/")
	assert.Contains(t, got, "?d=robohash")
}

func TestDefaultURL_DiffersPerEmail(t *testing.T) {
	assert.NotEqual(t, avatars.DefaultURL("a@x.com"), avatars.DefaultURL("b@x.com"))
}

func pngUpload(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return &buf
}

func TestSave_ResizesAndNamesByUser(t *testing.T) {
	dir := t.TempDir()
	store := avatars.NewStore(dir, "http://localhost:3000/")

	url, err := store.Save("u1", pngUpload(t, 600, 400), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000/avatars/u1_avatar.png", url)

	saved, err := imaging.Open(filepath.Join(dir, "u1_avatar.png"))
	require.NoError(t, err)

	bounds := saved.Bounds()
	assert.Equal(t, 250, bounds.Dx())
	assert.Equal(t, 250, bounds.Dy())
}

func TestSave_SecondUploadOverwrites(t *testing.T) {
	dir := t.TempDir()
	store := avatars.NewStore(dir, "http://localhost:3000")

	_, err := store.Save("u1", pngUpload(t, 100, 100), "image/png")
	require.NoError(t, err)

	_, err = store.Save("u1", pngUpload(t, 300, 300), "image/png")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "re-upload must replace the previous avatar")
}

func TestSave_RejectsUnsupportedContentType(t *testing.T) {
	store := avatars.NewStore(t.TempDir(), "http://localhost:3000")

	_, err := store.Save("u1", bytes.NewBufferString("plain text"), "text/plain")

	assert.ErrorIs(t, err, avatars.ErrUnsupportedImage)
}

func TestSave_RejectsGarbageImageData(t *testing.T) {
	store := avatars.NewStore(t.TempDir(), "http://localhost:3000")

	_, err := store.Save("u1", bytes.NewBufferString("not a png"), "image/png")

	assert.Error(t, err)
}
