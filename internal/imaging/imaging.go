// Package imaging normalises listing photos before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds the longer side of a stored listing photo.
	MaxDimension = 1280

	// ThumbnailSize is the side of the square thumbnails shown in listings.
	ThumbnailSize = 320

	// MaxUploadBytes caps the raw upload size.
	MaxUploadBytes = 10 << 20

	JPEGQuality = 85
)

// ErrUnsupported is returned for uploads that are not a JPEG, PNG or WebP image.
var ErrUnsupported = errors.New("unsupported image format")

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Photo is an encoded listing photo.
type Photo struct {
	Data []byte
	MIME string
}

// ProcessListingPhoto sniffs the upload, bounds its size to MaxDimension and
// re-encodes it as JPEG. The client's declared content type is ignored.
func ProcessListingPhoto(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", MaxUploadBytes)
	}

	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return encode(fit(img, MaxDimension))
}

// Thumbnail crops the centre square of a stored photo and scales it to
// ThumbnailSize.
func Thumbnail(data []byte) (*Photo, error) {
	img, err := decode(data)
	if err != nil {
		return nil, err
	}
	return encode(square(img, ThumbnailSize))
}

func decode(data []byte) (image.Image, error) {
	if detected := http.DetectContentType(data); !accepted[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding photo: %w", err)
	}
	return img, nil
}

func encode(img image.Image) (*Photo, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// fit scales img down, keeping its aspect ratio, so neither side exceeds
// maxDim. Smaller images are returned unchanged.
func fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// square crops the largest centred square from img and scales it to side.
func square(img image.Image, side int) image.Image {
	b := img.Bounds()
	edge := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-edge)/2
	y0 := b.Min.Y + (b.Dy()-edge)/2
	src := image.Rect(x0, y0, x0+edge, y0+edge)

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}
