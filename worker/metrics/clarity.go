package metrics

import (
	"github.com/disintegration/imaging"
)

// ClarityResult combines a Brenner focus measure with a self-referential
// SSIM contrast proxy into a 0-100 composite.
type ClarityResult struct {
	Brenner   float64 `json:"brenner"`
	SSIM      float64 `json:"ssim"`
	Composite float64 `json:"composite"`
}

const (
	brennerStep   = 3
	ssimWindow    = 7
	brennerMix    = 0.75
	ssimMix       = 0.25
	ssimBlurSigma = 1.4
)

// CompositeClarity scores a single candidate. Brenner sums squared vertical
// pixel differences over a 3px stride; SSIM compares the image to a
// Gaussian-blurred copy of itself and degrades to 0 for images with no
// dynamic range. The composite is 0.75*brenner + 0.25*ssim clipped to
// [0,100].
func CompositeClarity(candidatePath string) (ClarityResult, error) {
	img, err := openImage(candidatePath)
	if err != nil {
		return ClarityResult{}, err
	}

	gray := grayFrom(img)
	blurred := grayFrom(imaging.Blur(img, ssimBlurSigma))

	brenner := brennerGradient(gray)
	ssim := ssimContrast(gray, blurred)

	composite := brennerMix*brenner + ssimMix*ssim
	if composite < 0 {
		composite = 0
	} else if composite > 100 {
		composite = 100
	}

	return ClarityResult{
		Brenner:   brenner,
		SSIM:      ssim,
		Composite: composite,
	}, nil
}

func brennerGradient(p *grayPlane) float64 {
	if p.w == 0 || p.h == 0 {
		return 0
	}
	sum := 0.0
	for y := 0; y < p.h-brennerStep; y += brennerStep {
		for x := 0; x < p.w; x += brennerStep {
			d := p.pix[y*p.w+x] - p.pix[(y+brennerStep)*p.w+x]
			sum += d * d
		}
	}
	return sum / float64(p.w*p.h) * 100
}

// ssimContrast computes the mean local SSIM between the image and its
// blurred copy over 7x7 windows, scaled to 0-100.
func ssimContrast(img, blurred *grayPlane) float64 {
	lo, hi := img.minMax()
	dataRange := hi - lo
	if dataRange == 0 {
		return 0
	}

	if img.w < ssimWindow || img.h < ssimWindow {
		return 0
	}

	c1 := (0.01 * dataRange) * (0.01 * dataRange)
	c2 := (0.03 * dataRange) * (0.03 * dataRange)
	n := float64(ssimWindow * ssimWindow)

	sum := 0.0
	count := 0
	for oy := 0; oy+ssimWindow <= img.h; oy++ {
		for ox := 0; ox+ssimWindow <= img.w; ox++ {
			var ma, mb float64
			for y := 0; y < ssimWindow; y++ {
				for x := 0; x < ssimWindow; x++ {
					ma += img.pix[(oy+y)*img.w+ox+x]
					mb += blurred.pix[(oy+y)*blurred.w+ox+x]
				}
			}
			ma /= n
			mb /= n

			var va, vb, cov float64
			for y := 0; y < ssimWindow; y++ {
				for x := 0; x < ssimWindow; x++ {
					da := img.pix[(oy+y)*img.w+ox+x] - ma
					db := blurred.pix[(oy+y)*blurred.w+ox+x] - mb
					va += da * da
					vb += db * db
					cov += da * db
				}
			}
			va /= n - 1
			vb /= n - 1
			cov /= n - 1

			num := (2*ma*mb + c1) * (2*cov + c2)
			den := (ma*ma + mb*mb + c1) * (va + vb + c2)
			if den != 0 {
				sum += num / den
			}
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count) * 100
}
