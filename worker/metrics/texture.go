package metrics

import (
	"math"

	"github.com/disintegration/imaging"
)

// Quality grades, best first. NeedsReview covers grades C and D.
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
	GradeD = "D"
)

// TextureResult scores texture complexity, element completeness and frame
// quality for a candidate, with the weighted overall score and its grade.
type TextureResult struct {
	Texture      float64 `json:"texture"`
	Completeness float64 `json:"completeness"`
	Quality      float64 `json:"quality"`
	Overall      float64 `json:"overall"`
	Grade        string  `json:"grade"`
	NeedsReview  bool    `json:"needs_review"`
}

// neutralCompleteness is returned when the template cannot be matched
// against the candidate at any workable size.
const neutralCompleteness = 0.5

// TextureCompleteness evaluates a candidate against a template.
// Overall = 0.3*texture + 0.3*completeness + 0.4*quality; the grade ladder
// is A>=0.9, B>=0.7, C>=0.5, else D, first match wins.
func TextureCompleteness(templatePath, candidatePath string) (TextureResult, error) {
	img, err := openImage(candidatePath)
	if err != nil {
		return TextureResult{}, err
	}
	gray := grayFrom(img)

	texture := textureComplexity(gray)

	tmplImg, err := openImage(templatePath)
	if err != nil {
		return TextureResult{}, err
	}
	completeness := elementCompleteness(gray, grayFrom(imaging.Grayscale(tmplImg)))

	quality := frameQuality(gray)

	overall := 0.3*texture + 0.3*completeness + 0.4*quality

	grade := GradeD
	switch {
	case overall >= 0.9:
		grade = GradeA
	case overall >= 0.7:
		grade = GradeB
	case overall >= 0.5:
		grade = GradeC
	}

	return TextureResult{
		Texture:      texture,
		Completeness: completeness,
		Quality:      quality,
		Overall:      overall,
		Grade:        grade,
		NeedsReview:  grade == GradeC || grade == GradeD,
	}, nil
}

// textureComplexity combines histogram contrast and entropy, normalized to
// [0,1] by the theoretical maximum of the two terms.
func textureComplexity(p *grayPlane) float64 {
	var hist [256]float64
	for _, v := range p.pix {
		i := int(v)
		if i < 0 {
			i = 0
		} else if i > 255 {
			i = 255
		}
		hist[i]++
	}
	total := float64(len(p.pix))
	if total == 0 {
		return 0
	}

	contrast := 0.0
	entropy := 0.0
	for i := 0; i < 256; i++ {
		h := hist[i] / total
		v := h * float64(i)
		contrast += v * v
		if h > 0 {
			entropy -= h * math.Log2(h+1e-6)
		}
	}

	score := (contrast + entropy) / (256*256 + 256)
	return clamp01(score)
}

// elementCompleteness slides the template over the candidate and returns
// the best zero-mean normalized cross-correlation. An oversized template is
// downscaled preserving aspect ratio to at most 80%; if it still does not
// fit, or ends up under 10px a side, the neutral score is returned instead
// of failing.
func elementCompleteness(img, tmpl *grayPlane) float64 {
	if tmpl.h > img.h || tmpl.w > img.w {
		scaleH, scaleW := 1.0, 1.0
		if tmpl.h > img.h {
			scaleH = float64(img.h) / float64(tmpl.h)
		}
		if tmpl.w > img.w {
			scaleW = float64(img.w) / float64(tmpl.w)
		}
		scale := math.Min(math.Min(scaleH, scaleW), 0.8)
		tmpl = resizePlane(tmpl, int(float64(tmpl.w)*scale), int(float64(tmpl.h)*scale))
	}

	if tmpl.h > img.h || tmpl.w > img.w || tmpl.h < 10 || tmpl.w < 10 {
		return neutralCompleteness
	}

	tMean := tmpl.mean()
	tNorm := 0.0
	for _, v := range tmpl.pix {
		d := v - tMean
		tNorm += d * d
	}

	best := 0.0
	for oy := 0; oy <= img.h-tmpl.h; oy++ {
		for ox := 0; ox <= img.w-tmpl.w; ox++ {
			wSum := 0.0
			for ty := 0; ty < tmpl.h; ty++ {
				for tx := 0; tx < tmpl.w; tx++ {
					wSum += img.pix[(oy+ty)*img.w+ox+tx]
				}
			}
			wMean := wSum / float64(tmpl.w*tmpl.h)

			cross := 0.0
			wNorm := 0.0
			for ty := 0; ty < tmpl.h; ty++ {
				for tx := 0; tx < tmpl.w; tx++ {
					iv := img.pix[(oy+ty)*img.w+ox+tx] - wMean
					tv := tmpl.pix[ty*tmpl.w+tx] - tMean
					cross += iv * tv
					wNorm += iv * iv
				}
			}

			denom := math.Sqrt(tNorm * wNorm)
			if denom == 0 {
				continue
			}
			if score := cross / denom; score > best {
				best = score
			}
		}
	}
	return clamp01(best)
}

func resizePlane(p *grayPlane, w, h int) *grayPlane {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	out := &grayPlane{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		sy := float64(y) * float64(p.h) / float64(h)
		y0 := int(sy)
		fy := sy - float64(y0)
		for x := 0; x < w; x++ {
			sx := float64(x) * float64(p.w) / float64(w)
			x0 := int(sx)
			fx := sx - float64(x0)

			v00 := p.at(x0, y0)
			v10 := p.at(x0+1, y0)
			v01 := p.at(x0, y0+1)
			v11 := p.at(x0+1, y0+1)
			top := v00*(1-fx) + v10*fx
			bottom := v01*(1-fx) + v11*fx
			out.pix[y*w+x] = top*(1-fy) + bottom*fy
		}
	}
	return out
}

// frameQuality averages a clarity term (Laplacian variance over a 150
// baseline) with a noise term (gray stddev over a 30 baseline).
func frameQuality(p *grayPlane) float64 {
	clarity := clamp01(laplacianVariance(p) / 150)
	noise := clamp01(p.stdDev() / 30)
	return clamp01((clarity + noise) / 2)
}
