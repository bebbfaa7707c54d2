// Package classify maps metric values to pass/fail verdicts against an
// immutable threshold configuration. The comparison operator per metric is
// fixed: distance passes on <=, score metrics pass on >= their high
// threshold, brenner and ssim pass on a strict >. Low thresholds only shift
// the qualitative label, never the verdict.
package classify

import "imageInspector/worker/metrics"

// Thresholds is the full threshold configuration for one evaluation run.
// It is constructed once and never mutated; per-run overrides build a new
// value.
type Thresholds struct {
	Distance float64 `json:"distance_threshold"`

	ColorHigh float64 `json:"color_score_threshold_high"`
	ColorLow  float64 `json:"color_score_threshold_low"`

	SharpnessHigh float64 `json:"sharpness_score_threshold_high"`
	SharpnessLow  float64 `json:"sharpness_score_threshold_low"`

	NoiseHigh float64 `json:"noise_score_threshold_high"`
	NoiseLow  float64 `json:"noise_score_threshold_low"`

	QualityHigh float64 `json:"quality_score_threshold_high"`
	QualityLow  float64 `json:"quality_score_threshold_low"`

	TextureHigh float64 `json:"texture_threshold_high"`
	TextureLow  float64 `json:"texture_threshold_low"`

	CompletenessHigh float64 `json:"completeness_threshold_high"`
	CompletenessLow  float64 `json:"completeness_threshold_low"`

	OverallHigh float64 `json:"overall_score_threshold_high"`
	OverallLow  float64 `json:"overall_score_threshold_low"`

	BrennerHigh float64 `json:"brenner_threshold_high"`
	BrennerLow  float64 `json:"brenner_threshold_low"`

	SSIMHigh float64 `json:"ssim_threshold_high"`
	SSIMLow  float64 `json:"ssim_threshold_low"`
}

// DefaultThresholds returns the stock configuration. Score thresholds sit
// on the normalized [0,1] scale; brenner and ssim keep their raw scales.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Distance:         10,
		ColorHigh:        0.6,
		ColorLow:         0.4,
		SharpnessHigh:    0.6,
		SharpnessLow:     0.4,
		NoiseHigh:        0.6,
		NoiseLow:         0.4,
		QualityHigh:      0.6,
		QualityLow:       0.4,
		TextureHigh:      0.6,
		TextureLow:       0.4,
		CompletenessHigh: 0.6,
		CompletenessLow:  0.4,
		OverallHigh:      0.6,
		OverallLow:       0.4,
		BrennerHigh:      2500,
		BrennerLow:       1000,
		SSIMHigh:         80,
		SSIMLow:          50,
	}
}

// Metric names a single classifiable measurement.
type Metric int

const (
	MetricDistance Metric = iota
	MetricColorScore
	MetricSharpnessScore
	MetricNoiseScore
	MetricQualityScore
	MetricTexture
	MetricCompleteness
	MetricOverall
	MetricBrenner
	MetricSSIM
)

func (m Metric) String() string {
	switch m {
	case MetricDistance:
		return "distance"
	case MetricColorScore:
		return "color_score"
	case MetricSharpnessScore:
		return "sharpness_score"
	case MetricNoiseScore:
		return "noise_score"
	case MetricQualityScore:
		return "quality_score"
	case MetricTexture:
		return "texture"
	case MetricCompleteness:
		return "completeness"
	case MetricOverall:
		return "overall"
	case MetricBrenner:
		return "brenner"
	case MetricSSIM:
		return "ssim"
	default:
		return "unknown"
	}
}

// Qualitative labels.
const (
	LabelHigh      = "high"
	LabelMedium    = "medium"
	LabelLow       = "low"
	LabelSimilar   = "similar"
	LabelDifferent = "different"
)

// Verdict is the classification outcome for a single metric value.
type Verdict struct {
	Label string `json:"label"`
	Pass  bool   `json:"pass"`
}

// Classify applies the fixed operator table for the metric.
func Classify(m Metric, value float64, th Thresholds) Verdict {
	switch m {
	case MetricDistance:
		if value <= th.Distance {
			return Verdict{Label: LabelSimilar, Pass: true}
		}
		return Verdict{Label: LabelDifferent, Pass: false}
	case MetricColorScore:
		return scoreVerdict(value, th.ColorHigh, th.ColorLow)
	case MetricSharpnessScore:
		return scoreVerdict(value, th.SharpnessHigh, th.SharpnessLow)
	case MetricNoiseScore:
		return scoreVerdict(value, th.NoiseHigh, th.NoiseLow)
	case MetricQualityScore:
		return scoreVerdict(value, th.QualityHigh, th.QualityLow)
	case MetricTexture:
		return scoreVerdict(value, th.TextureHigh, th.TextureLow)
	case MetricCompleteness:
		return scoreVerdict(value, th.CompletenessHigh, th.CompletenessLow)
	case MetricOverall:
		return scoreVerdict(value, th.OverallHigh, th.OverallLow)
	case MetricBrenner:
		return strictVerdict(value, th.BrennerHigh, th.BrennerLow)
	case MetricSSIM:
		return strictVerdict(value, th.SSIMHigh, th.SSIMLow)
	default:
		return Verdict{Label: LabelLow, Pass: false}
	}
}

// scoreVerdict passes on >= high; the low bound separates low from medium.
func scoreVerdict(value, high, low float64) Verdict {
	switch {
	case value >= high:
		return Verdict{Label: LabelHigh, Pass: true}
	case value < low:
		return Verdict{Label: LabelLow, Pass: false}
	default:
		return Verdict{Label: LabelMedium, Pass: false}
	}
}

// strictVerdict passes on a strict > high.
func strictVerdict(value, high, low float64) Verdict {
	switch {
	case value > high:
		return Verdict{Label: LabelHigh, Pass: true}
	case value < low:
		return Verdict{Label: LabelLow, Pass: false}
	default:
		return Verdict{Label: LabelMedium, Pass: false}
	}
}

// ClassifyGrade handles the discrete grade ladder: only grade A fully
// passes, grades C and D need review.
func ClassifyGrade(grade string) Verdict {
	switch grade {
	case metrics.GradeA:
		return Verdict{Label: LabelHigh, Pass: true}
	case metrics.GradeB:
		return Verdict{Label: LabelMedium, Pass: false}
	default:
		return Verdict{Label: LabelLow, Pass: false}
	}
}

// Passes is the per-algorithm pass rule used by report summaries.
func Passes(result metrics.Result, th Thresholds) bool {
	switch r := result.(type) {
	case metrics.HashResult:
		return float64(r.Distance) <= th.Distance
	case metrics.ColorResult:
		return Classify(MetricColorScore, r.ColorScore, th).Pass &&
			Classify(MetricSharpnessScore, r.SharpnessScore, th).Pass &&
			Classify(MetricNoiseScore, r.NoiseScore, th).Pass &&
			Classify(MetricQualityScore, r.QualityScore, th).Pass
	case metrics.TextureResult:
		return ClassifyGrade(r.Grade).Pass
	case metrics.ClarityResult:
		return Classify(MetricBrenner, r.Brenner, th).Pass &&
			Classify(MetricSSIM, r.SSIM, th).Pass
	default:
		return false
	}
}
