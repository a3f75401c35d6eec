package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestPNG writes a solid-color PNG of the given size and returns its path.
func writeTestPNG(t *testing.T, dir string, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	path := filepath.Join(dir, "source.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestGenerateVariants(t *testing.T) {
	dir := t.TempDir()
	src := writeTestPNG(t, dir, 2400, 1600)

	out, err := GenerateVariants(src, dir)
	require.NoError(t, err)

	main, err := imaging.Open(out.MainPath)
	require.NoError(t, err)
	assert.Equal(t, 1200, main.Bounds().Dx())
	// Aspect ratio preserved
	assert.Equal(t, 800, main.Bounds().Dy())

	thumb, err := imaging.Open(out.ThumbPath)
	require.NoError(t, err)
	assert.Equal(t, 300, thumb.Bounds().Dx())
	assert.Equal(t, 200, thumb.Bounds().Dy())
}

func TestGenerateVariants_NotAnImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bogus.jpg")
	require.NoError(t, os.WriteFile(src, []byte("definitely not a jpeg"), 0644))

	_, err := GenerateVariants(src, dir)
	assert.Error(t, err)
}

func TestGenerateVariants_MissingSource(t *testing.T) {
	_, err := GenerateVariants("/no/such/source.png", t.TempDir())
	assert.Error(t, err)
}
