package imaging

import (
	"image"
	"math"
)

// EqualizeHist equalizes the luma histogram of an RGB image and keeps its chroma.
// The image is converted to YUV, the Y channel is equalized over 256 bins,
// and the result is converted back to RGB. Alpha is set to opaque.
func EqualizeHist(img *image.RGBA) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	ys := make([]uint8, w*h)
	us := make([]float64, w*h)
	vs := make([]float64, w*h)
	var hist [256]int

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			off := img.PixOffset(x, y)
			r, g, bl := float64(img.Pix[off]), float64(img.Pix[off+1]), float64(img.Pix[off+2])
			// ITU-R BT.601 luma formula.
			luma := 0.299*r + 0.587*g + 0.114*bl
			ys[i] = clamp8(luma)
			us[i] = 0.492 * (bl - luma)
			vs[i] = 0.877 * (r - luma)
			hist[ys[i]]++
			i++
		}
	}

	lut := equalizeLUT(hist, w*h)

	i = 0
	for y := range h {
		for x := range w {
			luma := float64(lut[ys[i]])
			u, v := us[i], vs[i]
			off := out.PixOffset(x, y)
			out.Pix[off] = clamp8(luma + 1.140*v)
			out.Pix[off+1] = clamp8(luma - 0.395*u - 0.581*v)
			out.Pix[off+2] = clamp8(luma + 2.032*u)
			out.Pix[off+3] = 0xff
			i++
		}
	}
	return out
}

// equalizeLUT builds the cumulative-histogram lookup table.
// The lowest populated bin maps to 0; a single-valued image maps to itself.
func equalizeLUT(hist [256]int, total int) [256]uint8 {
	var lut [256]uint8

	first := 0
	for first < 256 && hist[first] == 0 {
		first++
	}
	if first == 256 || hist[first] == total {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	scale := 255.0 / float64(total-hist[first])
	sum := 0
	for i := first + 1; i < 256; i++ {
		sum += hist[i]
		lut[i] = clamp8(float64(sum) * scale)
	}
	return lut
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
