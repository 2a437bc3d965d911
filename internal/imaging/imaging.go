// Package imaging holds the pixel-level helpers used by face extraction:
// decoding, cropping, resizing and channel statistics.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Decode decodes JPEG, PNG, GIF, BMP or WebP image data.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Crop copies the given region of img into a new RGBA image with origin (0, 0).
// The region is intersected with the image bounds first.
func Crop(img image.Image, region image.Rectangle) *image.RGBA {
	region = region.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(dst, dst.Bounds(), img, region.Min, draw.Src)
	return dst
}

// Resize scales an image to exactly width x height.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// EncodeJPEG encodes an image as JPEG for transfer to the embedding server.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// ChannelMeans returns the mean R, G and B values (0-255) over all pixels.
func ChannelMeans(img *image.RGBA) [3]float64 {
	var means [3]float64
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return means
	}

	var sum [3]uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		row := img.Pix[off : off+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sum[0] += uint64(row[x])
			sum[1] += uint64(row[x+1])
			sum[2] += uint64(row[x+2])
		}
	}

	for c := range means {
		means[c] = float64(sum[c]) / float64(n)
	}
	return means
}
