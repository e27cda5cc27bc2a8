// Package imaging decodes uploaded listing photos and renders WebP thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// ThumbnailMaxEdge bounds the longer side of a thumbnail.
	ThumbnailMaxEdge = 480
	WebPQuality      = 70
	// ThumbnailSuffix is appended to an image key to name its thumbnail.
	ThumbnailSuffix = ".thumb.webp"
)

// ErrUnsupportedImage is returned when content cannot be decoded as an image.
var ErrUnsupportedImage = errors.New("unsupported image")

// Thumbnail decodes content and returns a WebP no larger than maxEdge on either side.
func Thumbnail(content []byte, maxEdge int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, ErrUnsupportedImage
	}
	return encodeWebP(resizeToFit(src, maxEdge, maxEdge), WebPQuality)
}

// ThumbnailKey names the thumbnail object stored next to an image.
func ThumbnailKey(key string) string {
	return key + ThumbnailSuffix
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
