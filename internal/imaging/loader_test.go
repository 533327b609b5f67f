package imaging

import (
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestImage writes a solid-colour PNG into a temp directory and returns
// its path.
func createTestImage(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	return writePNG(t, "test-image.png", createInMemoryImage(width, height, c))
}

func writePNG(t *testing.T, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestImageCache_Load(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 100, 100, color.RGBA{255, 0, 0, 255})

	img1, err := cache.Load(imgPath)
	require.NoError(t, err)
	assert.Equal(t, 100, img1.Bounds().Dx())
	assert.Equal(t, 100, img1.Bounds().Dy())

	img2, err := cache.Load(imgPath)
	require.NoError(t, err)
	assert.True(t, img1 == img2, "second Load should return the cached image")
	assert.Equal(t, 1, cache.Len())
}

func TestImageCache_Load_NonExistent(t *testing.T) {
	_, err := NewImageCache().Load("/nonexistent/path/to/image.png")
	assert.Error(t, err)
}

func TestImageCache_Load_InvalidImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0o644))

	_, err := NewImageCache().Load(path)
	assert.Error(t, err)
}

func TestImageCache_ClearAndEvict(t *testing.T) {
	cache := NewImageCache()
	a := createTestImage(t, 50, 50, color.RGBA{0, 255, 0, 255})
	b := createTestImage(t, 50, 50, color.RGBA{0, 0, 255, 255})

	_, err := cache.Load(a)
	require.NoError(t, err)
	_, err = cache.Load(b)
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	cache.Evict(a)
	assert.Equal(t, 1, cache.Len())
	cache.Evict("/nonexistent/path")
	assert.Equal(t, 1, cache.Len())

	cache.Clear()
	assert.Equal(t, 0, cache.Len())
}

func TestImageCache_ConcurrentAccess(t *testing.T) {
	cache := NewImageCache()
	imgPath := createTestImage(t, 50, 50, color.RGBA{128, 128, 128, 255})

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(imgPath); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Load error: %v", err)
	}
}

func TestLoadImageInfo(t *testing.T) {
	imgPath := createTestImage(t, 200, 150, color.RGBA{255, 128, 64, 255})

	info, err := LoadImageInfo(NewImageCache(), imgPath)
	require.NoError(t, err)
	assert.Equal(t, 200, info.Width)
	assert.Equal(t, 150, info.Height)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, "landscape", info.Orientation)
	assert.Positive(t, info.FileSizeBytes)
}

func TestLoadImageInfo_FormatDetection(t *testing.T) {
	tests := []struct {
		ext    string
		format string
	}{
		{".png", "png"},
		{".jpg", "jpeg"},
		{".jpeg", "jpeg"},
		{".gif", "gif"},
		{".tif", "tiff"},
		{".bmp", "bmp"},
		{".webp", "webp"},
		{".xyz", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			// PNG content regardless of extension; decoding sniffs the bytes
			path := writePNG(t, "test-format"+tt.ext, image.NewRGBA(image.Rect(0, 0, 10, 10)))

			info, err := LoadImageInfo(NewImageCache(), path)
			require.NoError(t, err)
			assert.Equal(t, tt.format, info.Format)
		})
	}
}

func TestOrientation(t *testing.T) {
	assert.Equal(t, "portrait", Orientation(85, 110))
	assert.Equal(t, "landscape", Orientation(110, 85))
	assert.Equal(t, "square", Orientation(10, 10))
}

func TestGetDimensions(t *testing.T) {
	imgPath := createTestImage(t, 300, 200, color.RGBA{100, 100, 100, 255})

	dims, err := GetDimensions(NewImageCache(), imgPath)
	require.NoError(t, err)
	assert.Equal(t, 300, dims.Width)
	assert.Equal(t, 200, dims.Height)

	_, err = GetDimensions(NewImageCache(), "/nonexistent/image.png")
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	img := createInMemoryImage(40, 30, color.RGBA{10, 20, 30, 255})
	path := filepath.Join(t.TempDir(), "nested", "out.png")

	require.NoError(t, Save(img, path))

	loaded, err := NewImageCache().Load(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), loaded.Bounds())
	r, g, b, _ := loaded.At(5, 5).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})

	assert.Error(t, Save(img, filepath.Join(t.TempDir(), "out.unknown")))
}

func TestEncodePNG(t *testing.T) {
	encoded, err := EncodePNG(createInMemoryImage(12, 7, color.White))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	decoded, err := png.Decode(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 7), decoded.Bounds())
}
