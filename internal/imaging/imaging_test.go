package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func jpegBytes(w, h int) []byte {
	var buf bytes.Buffer
	jpeg.Encode(&buf, solid(w, h, color.RGBA{200, 30, 30, 255}), &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func pngBytes(w, h int) []byte {
	var buf bytes.Buffer
	png.Encode(&buf, solid(w, h, color.RGBA{30, 30, 200, 255}))
	return buf.Bytes()
}

func dims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestProcessListingPhoto(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		wantW, wantH int
	}{
		{"small jpeg kept", jpegBytes(200, 100), 200, 100},
		{"png converted", pngBytes(64, 64), 64, 64},
		{"landscape bounded", jpegBytes(2560, 1280), MaxDimension, MaxDimension / 2},
		{"portrait bounded", pngBytes(640, 2560), MaxDimension / 4, MaxDimension},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photo, err := ProcessListingPhoto(bytes.NewReader(tt.data))
			if err != nil {
				t.Fatalf("ProcessListingPhoto: %v", err)
			}
			if photo.MIME != "image/jpeg" {
				t.Errorf("expected image/jpeg, got %s", photo.MIME)
			}
			w, h := dims(t, photo.Data)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestProcessRejectsNonImages(t *testing.T) {
	_, err := ProcessListingPhoto(strings.NewReader("<html>not a photo</html>"))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestProcessRejectsOversizedUpload(t *testing.T) {
	data := append(jpegBytes(10, 10), make([]byte, MaxUploadBytes)...)
	if _, err := ProcessListingPhoto(bytes.NewReader(data)); err == nil {
		t.Error("expected error for oversized upload")
	}
}

func TestThumbnailIsSquare(t *testing.T) {
	photo, err := ProcessListingPhoto(bytes.NewReader(jpegBytes(900, 300)))
	if err != nil {
		t.Fatalf("ProcessListingPhoto: %v", err)
	}
	thumb, err := Thumbnail(photo.Data)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	w, h := dims(t, thumb.Data)
	if w != ThumbnailSize || h != ThumbnailSize {
		t.Errorf("expected %dx%d thumbnail, got %dx%d", ThumbnailSize, ThumbnailSize, w, h)
	}
}
