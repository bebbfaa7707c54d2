// Package report turns evaluation result sets into structured pass/fail
// reports: a per-algorithm summary plus per-metric detail rows. The output
// is a data model; rendering lives in html.go and downstream consumers.
package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"imageInspector/worker/classify"
	"imageInspector/worker/evaluate"
	"imageInspector/worker/metrics"
)

// detailRowCount is the number of detail rows each algorithm contributes
// per image, exposed for layout grouping (rowspans).
var detailRowCount = map[metrics.Algorithm]int{
	metrics.AlgorithmHashSimilarity:      1,
	metrics.AlgorithmColorQuality:        3,
	metrics.AlgorithmTextureCompleteness: 3,
	metrics.AlgorithmCompositeClarity:    2,
}

type SummaryRow struct {
	Algorithm metrics.Algorithm `json:"algorithm"`
	Name      string            `json:"name"`
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
}

type DetailRow struct {
	Image     string            `json:"image"`
	Algorithm metrics.Algorithm `json:"algorithm"`
	Metric    string            `json:"metric"`
	Value     float64           `json:"value"`
	Raw       float64           `json:"raw"`
	Label     string            `json:"label"`
	Pass      bool              `json:"pass"`
}

type Report struct {
	TaskID           string                    `json:"task_id"`
	Title            string                    `json:"title"`
	Kind             string                    `json:"kind"`
	GeneratedAt      time.Time                 `json:"generated_at"`
	Algorithms       []metrics.Algorithm       `json:"algorithms"`
	Summary          []SummaryRow              `json:"summary"`
	GrandTotal       SummaryRow                `json:"grand_total"`
	Details          []DetailRow               `json:"details"`
	RowSpan          map[metrics.Algorithm]int `json:"row_span"`
	TemplateFallback bool                      `json:"template_fallback,omitempty"`
}

var reportTitles = map[metrics.Algorithm]string{
	metrics.AlgorithmHashSimilarity:      "Image Similarity",
	metrics.AlgorithmColorQuality:        "Image Quality",
	metrics.AlgorithmTextureCompleteness: "Image Texture",
	metrics.AlgorithmCompositeClarity:    "Image Clarity",
}

// Title names a report for an algorithm combination. The full set gets the
// combined inspection title; partial sets join the individual names.
func Title(algorithms []metrics.Algorithm) string {
	if len(algorithms) == len(detailRowCount) {
		return "Composite Quality Inspection"
	}
	names := make([]string, 0, len(algorithms))
	for _, a := range algorithms {
		names = append(names, reportTitles[a])
	}
	return strings.Join(names, "+")
}

// Kind is the stable identity of an algorithm combination, used for the
// per-task report uniqueness constraint.
func Kind(algorithms []metrics.Algorithm) string {
	digits := make([]string, 0, len(algorithms))
	for _, a := range algorithms {
		digits = append(digits, strconv.Itoa(int(a)))
	}
	sort.Strings(digits)
	return strings.Join(digits, "")
}

// Aggregate builds a report over the given algorithms from the result set.
// Images appear in discovery order, algorithms in ascending id order, and
// metrics in each extractor's declared field order. The grand total counts
// distinct images, not image-algorithm pairs.
func Aggregate(taskID string, rs *evaluate.ResultSet, algorithms []metrics.Algorithm, th classify.Thresholds) *Report {
	sorted := make([]metrics.Algorithm, 0, len(algorithms))
	for _, a := range algorithms {
		if rs.Results[a] != nil {
			sorted = append(sorted, a)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	r := &Report{
		TaskID:           taskID,
		Title:            Title(sorted),
		Kind:             Kind(sorted),
		GeneratedAt:      time.Now(),
		Algorithms:       sorted,
		RowSpan:          make(map[metrics.Algorithm]int, len(sorted)),
		TemplateFallback: rs.TemplateFallback,
	}

	distinct := make(map[string]bool)
	for _, alg := range sorted {
		r.RowSpan[alg] = detailRowCount[alg]

		row := SummaryRow{Algorithm: alg, Name: alg.String()}
		for _, image := range rs.Images {
			result, ok := rs.Results[alg][image]
			if !ok {
				continue
			}
			row.Total++
			distinct[image] = true
			if classify.Passes(result, th) {
				row.Passed++
			} else {
				row.Failed++
			}
		}
		r.Summary = append(r.Summary, row)
		r.GrandTotal.Passed += row.Passed
		r.GrandTotal.Failed += row.Failed
	}
	r.GrandTotal.Name = "Total"
	r.GrandTotal.Total = len(distinct)

	for _, image := range rs.Images {
		for _, alg := range sorted {
			result, ok := rs.Results[alg][image]
			if !ok {
				continue
			}
			r.Details = append(r.Details, detailRows(image, result, th)...)
		}
	}

	return r
}

// detailRows expands one metric result into its per-metric rows.
func detailRows(image string, result metrics.Result, th classify.Thresholds) []DetailRow {
	switch m := result.(type) {
	case metrics.HashResult:
		v := classify.Classify(classify.MetricDistance, float64(m.Distance), th)
		return []DetailRow{
			{Image: image, Algorithm: m.Algorithm(), Metric: classify.MetricDistance.String(),
				Value: float64(m.Distance), Raw: float64(m.Distance), Label: v.Label, Pass: v.Pass},
		}
	case metrics.ColorResult:
		cv := classify.Classify(classify.MetricColorScore, m.ColorScore, th)
		sv := classify.Classify(classify.MetricSharpnessScore, m.SharpnessScore, th)
		nv := classify.Classify(classify.MetricNoiseScore, m.NoiseScore, th)
		return []DetailRow{
			{Image: image, Algorithm: m.Algorithm(), Metric: classify.MetricColorScore.String(),
				Value: m.ColorScore, Raw: m.Raw.AvgColorDiff, Label: cv.Label, Pass: cv.Pass},
			{Image: image, Algorithm: m.Algorithm(), Metric: classify.MetricSharpnessScore.String(),
				Value: m.SharpnessScore, Raw: m.Raw.LaplacianVar, Label: sv.Label, Pass: sv.Pass},
			{Image: image, Algorithm: m.Algorithm(), Metric: classify.MetricNoiseScore.String(),
				Value: m.NoiseScore, Raw: m.Raw.GrayStdDev, Label: nv.Label, Pass: nv.Pass},
		}
	case metrics.TextureResult:
		tv := classify.Classify(classify.MetricTexture, m.Texture, th)
		cv := classify.Classify(classify.MetricCompleteness, m.Completeness, th)
		qv := classify.Classify(classify.MetricQualityScore, m.Quality, th)
		return []DetailRow{
			{Image: image, Algorithm: m.Algorithm(), Metric: classify.MetricTexture.String(),
				Value: m.Texture, Raw: m.Texture, Label: tv.Label, Pass: tv.Pass},
			{Image: image, Algorithm: m.Algorithm(), Metric: classify.MetricCompleteness.String(),
				Value: m.Completeness, Raw: m.Completeness, Label: cv.Label, Pass: cv.Pass},
			{Image: image, Algorithm: m.Algorithm(), Metric: classify.MetricQualityScore.String(),
				Value: m.Quality, Raw: m.Quality, Label: qv.Label, Pass: qv.Pass},
		}
	case metrics.ClarityResult:
		bv := classify.Classify(classify.MetricBrenner, m.Brenner, th)
		sv := classify.Classify(classify.MetricSSIM, m.SSIM, th)
		return []DetailRow{
			{Image: image, Algorithm: m.Algorithm(), Metric: classify.MetricBrenner.String(),
				Value: m.Brenner, Raw: m.Brenner, Label: bv.Label, Pass: bv.Pass},
			{Image: image, Algorithm: m.Algorithm(), Metric: classify.MetricSSIM.String(),
				Value: m.SSIM, Raw: m.SSIM, Label: sv.Label, Pass: sv.Pass},
		}
	default:
		return nil
	}
}
