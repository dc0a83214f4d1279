package render

import (
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/pkg/errors"
)

// JointOptions controls the layout of a rendered joint histogram.
type JointOptions struct {
	// PixelsPerBin is the side length of a histogram bin in pixels.
	PixelsPerBin int
	// Ratio is the size of the joint panel relative to a marginal panel.
	Ratio int
}

func DefaultJointOptions() JointOptions {
	return JointOptions{PixelsPerBin: 2, Ratio: 3}
}

var (
	// ColorBrewer Spectral, low to high, i.e. matplotlib's Spectral_r.
	spectralR = []color.RGBA{
		{0x5e, 0x4f, 0xa2, 0xff}, {0x32, 0x88, 0xbd, 0xff},
		{0x66, 0xc2, 0xa5, 0xff}, {0xab, 0xdd, 0xa4, 0xff},
		{0xe6, 0xf5, 0x98, 0xff}, {0xff, 0xff, 0xbf, 0xff},
		{0xfe, 0xe0, 0x8b, 0xff}, {0xfd, 0xae, 0x61, 0xff},
		{0xf4, 0x6d, 0x43, 0xff}, {0xd5, 0x3e, 0x4f, 0xff},
		{0x9e, 0x01, 0x42, 0xff},
	}

	marginalColor = color.RGBA{0x00, 0x00, 0x75, 0xff}
	white = color.RGBA{0xff, 0xff, 0xff, 0xff}
	black = color.RGBA{0x00, 0x00, 0x00, 0xff}
)

// Colormap maps t in [0, 1] onto Spectral_r. Values outside are clamped.
func Colormap(t float64) color.RGBA {
	if t <= 0 { return spectralR[0] }
	if t >= 1 { return spectralR[len(spectralR) - 1] }

	x := t * float64(len(spectralR) - 1)
	i := int(x)
	f := x - float64(i)
	a, b := spectralR[i], spectralR[i+1]
	lerp := func(u, v uint8) uint8 {
		return uint8(float64(u) + f*(float64(v) - float64(u)) + 0.5)
	}
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 0xff}
}

// JointImage draws h as a joint grid: the heatmap in the lower left, the
// marginal x histogram above it and the marginal y histogram to its right.
// Empty bins are white and the y = x diagonal is dotted.
func JointImage(h *Hist2D, opts JointOptions) (*image.RGBA, error) {
	if opts.PixelsPerBin <= 0 || opts.Ratio <= 0 {
		return nil, errors.Errorf("invalid joint options %+v", opts)
	}

	side := h.Bins * opts.PixelsPerBin
	marg := side / opts.Ratio
	img := image.NewRGBA(image.Rect(0, 0, side + marg, side + marg))
	fill(img, img.Bounds(), white)

	// Joint panel, y axis pointing up.
	level := h.PMaxLevel()
	for iy := 0; iy < h.Bins; iy++ {
		for ix := 0; ix < h.Bins; ix++ {
			c := h.At(ix, iy)
			if c == 0 { continue }
			col := Colormap(float64(c) / float64(level))
			x0 := ix * opts.PixelsPerBin
			y0 := marg + side - (iy + 1)*opts.PixelsPerBin
			fill(img, image.Rect(x0, y0,
				x0 + opts.PixelsPerBin, y0 + opts.PixelsPerBin), col)
		}
	}

	for p := 0; p < side; p++ {
		if p%10 >= 6 { continue }
		for w := -1; w <= 1; w++ {
			x, y := p + w, marg + side - 1 - p
			if x >= 0 && x < side { img.SetRGBA(x, y, black) }
		}
	}
	frame(img, image.Rect(0, marg, side, marg + side))

	// Marginals.
	hx, hy := h.Marginals()
	if max := hx.MaxCount(); max > 0 {
		for ix, c := range hx.Counts {
			height := c * (marg - 1) / max
			x0 := ix * opts.PixelsPerBin
			fill(img, image.Rect(x0, marg - height,
				x0 + opts.PixelsPerBin, marg), marginalColor)
		}
	}
	if max := hy.MaxCount(); max > 0 {
		for iy, c := range hy.Counts {
			width := c * (marg - 1) / max
			y0 := marg + side - (iy + 1)*opts.PixelsPerBin
			fill(img, image.Rect(side, y0,
				side + width, y0 + opts.PixelsPerBin), marginalColor)
		}
	}

	return img, nil
}

// WriteJointPNG renders h with JointImage and encodes it to w.
func WriteJointPNG(w io.Writer, h *Hist2D, opts JointOptions) error {
	img, err := JointImage(h, opts)
	if err != nil { return err }
	return errors.Wrap(png.Encode(w, img), "encoding histogram")
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func frame(img *image.RGBA, r image.Rectangle) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, black)
		img.SetRGBA(x, r.Max.Y - 1, black)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, black)
		img.SetRGBA(r.Max.X - 1, y, black)
	}
}
