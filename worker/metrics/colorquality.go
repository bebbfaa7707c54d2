package metrics

import (
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// TargetWhite is the default color-match target.
var TargetWhite = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// ColorRaw carries the unnormalized measurements behind ColorResult.
type ColorRaw struct {
	AvgColorDiff float64 `json:"avg_color_diff"`
	LaplacianVar float64 `json:"laplacian_var"`
	GrayStdDev   float64 `json:"gray_stddev"`
}

// ColorResult scores a candidate on color match, sharpness and noise.
// All scores are in [0,1]; QualityScore is the 0.4/0.3/0.3 weighted mix.
type ColorResult struct {
	ColorScore     float64  `json:"color_score"`
	SharpnessScore float64  `json:"sharpness_score"`
	NoiseScore     float64  `json:"noise_score"`
	QualityScore   float64  `json:"quality_score"`
	Raw            ColorRaw `json:"raw"`
}

// ColorQuality evaluates a single candidate against a target color.
// Sharpness normalizes Laplacian variance against a baseline of 150,
// noise normalizes the gray standard deviation against 30.
func ColorQuality(candidatePath string, target color.NRGBA) (ColorResult, error) {
	img, err := openImage(candidatePath)
	if err != nil {
		return ColorResult{}, err
	}

	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	diffSum := 0.0
	for y := 0; y < h; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < w; x++ {
			diffSum += math.Abs(float64(row[x*4]) - float64(target.R))
			diffSum += math.Abs(float64(row[x*4+1]) - float64(target.G))
			diffSum += math.Abs(float64(row[x*4+2]) - float64(target.B))
		}
	}
	avgColorDiff := diffSum / float64(w*h*3)

	gray := grayFrom(img)
	lapVar := laplacianVariance(gray)
	stdDev := gray.stdDev()

	colorScore := clamp01(1 - avgColorDiff/255)
	sharpnessScore := clamp01(lapVar / 150)
	noiseScore := clamp01(stdDev / 30)
	qualityScore := clamp01(0.4*colorScore + 0.3*sharpnessScore + 0.3*noiseScore)

	return ColorResult{
		ColorScore:     colorScore,
		SharpnessScore: sharpnessScore,
		NoiseScore:     noiseScore,
		QualityScore:   qualityScore,
		Raw: ColorRaw{
			AvgColorDiff: avgColorDiff,
			LaplacianVar: lapVar,
			GrayStdDev:   stdDev,
		},
	}, nil
}
