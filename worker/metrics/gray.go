package metrics

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// DecodeError marks an image that could not be read or decoded. It is
// scoped to a single (image, algorithm) pair; callers skip the pair and
// continue.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func openImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

// grayPlane is a float64 luminance plane in [0,255].
type grayPlane struct {
	w, h int
	pix  []float64
}

func grayFrom(img image.Image) *grayPlane {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	p := &grayPlane{w: w, h: h, pix: make([]float64, w*h)}

	nrgba := imaging.Clone(img)
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			b := float64(row[x*4+2])
			p.pix[y*w+x] = 0.299*r + 0.587*g + 0.114*b
		}
	}
	return p
}

func (p *grayPlane) at(x, y int) float64 {
	if x < 0 {
		x = 0
	} else if x >= p.w {
		x = p.w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= p.h {
		y = p.h - 1
	}
	return p.pix[y*p.w+x]
}

func (p *grayPlane) mean() float64 {
	sum := 0.0
	for _, v := range p.pix {
		sum += v
	}
	return sum / float64(len(p.pix))
}

func (p *grayPlane) stdDev() float64 {
	m := p.mean()
	sum := 0.0
	for _, v := range p.pix {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(p.pix)))
}

func (p *grayPlane) minMax() (float64, float64) {
	lo, hi := p.pix[0], p.pix[0]
	for _, v := range p.pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// laplacianVariance measures sharpness as the variance of the 4-neighbor
// Laplacian response, with replicated borders.
func laplacianVariance(p *grayPlane) float64 {
	n := p.w * p.h
	if n == 0 {
		return 0
	}
	resp := make([]float64, 0, n)
	sum := 0.0
	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			v := p.at(x-1, y) + p.at(x+1, y) + p.at(x, y-1) + p.at(x, y+1) - 4*p.at(x, y)
			resp = append(resp, v)
			sum += v
		}
	}
	m := sum / float64(n)
	varSum := 0.0
	for _, v := range resp {
		d := v - m
		varSum += d * d
	}
	return varSum / float64(n)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
