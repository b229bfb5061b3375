package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"golang.org/x/image/draw"
)

// JPEGQuality is the compression quality for re-encoded JPEGs.
const JPEGQuality = 85

// Result is the outcome of Downscale.
type Result struct {
	Data    []byte
	MIME    string
	Resized bool
}

// IsImage reports whether data sniffs as a JPEG or PNG.
func IsImage(data []byte) bool {
	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png":
		return true
	}
	return false
}

// Downscale shrinks a JPEG or PNG so neither side exceeds maxDim, keeping
// its format. Data that is not a JPEG or PNG, already fits, or maxDim <= 0
// is returned unchanged.
func Downscale(data []byte, maxDim int) (*Result, error) {
	mime := http.DetectContentType(data)
	if maxDim <= 0 || (mime != "image/jpeg" && mime != "image/png") {
		return &Result{Data: data, MIME: mime}, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return &Result{Data: data, MIME: mime}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = scale(img, maxDim)

	var buf bytes.Buffer
	switch mime {
	case "image/png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", mime, err)
	}

	return &Result{Data: buf.Bytes(), MIME: mime, Resized: true}, nil
}

// scale resizes img with Catmull-Rom so the longer side equals maxDim.
func scale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}
	newW = max(newW, 1)
	newH = max(newH, 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
