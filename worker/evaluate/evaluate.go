// Package evaluate runs the selected scoring algorithms over a candidate
// image set, isolating per-image failures so a partially corrupt batch
// still produces a best-effort result set.
package evaluate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"imageInspector/worker/classify"
	"imageInspector/worker/metrics"
)

// ErrNoUsableInput means there was nothing to evaluate: zero candidate
// images, or every requested algorithm had to be skipped.
var ErrNoUsableInput = errors.New("no usable input for evaluation")

// Input describes one evaluation run. CandidatePaths are consumed in the
// order given; results preserve that order.
type Input struct {
	// TemplatePath, when set, is used directly. Otherwise TemplateDir is
	// scanned for the first jpg/png, falling back to the first candidate.
	TemplatePath   string
	TemplateDir    string
	CandidatePaths []string
	Algorithms     []metrics.Algorithm
}

// ResultSet is keyed by algorithm, then candidate image name.
type ResultSet struct {
	Template         string
	TemplateFallback bool
	Images           []string
	Requested        []metrics.Algorithm
	Succeeded        map[metrics.Algorithm]bool
	Results          map[metrics.Algorithm]map[string]metrics.Result
}

// SucceededAlgorithms returns the algorithms that produced at least one
// result, in ascending id order.
func (rs *ResultSet) SucceededAlgorithms() []metrics.Algorithm {
	var out []metrics.Algorithm
	for _, a := range rs.Requested {
		if rs.Succeeded[a] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type Evaluator struct {
	thresholds classify.Thresholds
	hashSize   int
	logger     *zap.Logger
}

func NewEvaluator(thresholds classify.Thresholds, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
		hashSize:   metrics.DefaultHashSize,
		logger:     logger,
	}
}

// Run evaluates every candidate with every requested algorithm. A failure
// on a single (image, algorithm) pair is logged and that pair is omitted;
// algorithms requiring a template are skipped entirely when none can be
// resolved. Run fails only when nothing at all could be evaluated.
func (e *Evaluator) Run(input Input) (*ResultSet, error) {
	if len(input.CandidatePaths) == 0 {
		return nil, fmt.Errorf("%w: no candidate images", ErrNoUsableInput)
	}

	template, fallback := e.resolveTemplate(input)

	rs := &ResultSet{
		Template:         template,
		TemplateFallback: fallback,
		Requested:        input.Algorithms,
		Succeeded:        make(map[metrics.Algorithm]bool),
		Results:          make(map[metrics.Algorithm]map[string]metrics.Result),
	}
	for _, path := range input.CandidatePaths {
		rs.Images = append(rs.Images, filepath.Base(path))
	}

	algorithms := make([]metrics.Algorithm, len(input.Algorithms))
	copy(algorithms, input.Algorithms)
	sort.Slice(algorithms, func(i, j int) bool { return algorithms[i] < algorithms[j] })

	for _, alg := range algorithms {
		if alg.NeedsTemplate() && template == "" {
			e.logger.Warn("Skipping algorithm, no template available",
				zap.Stringer("algorithm", alg),
			)
			continue
		}

		perImage := make(map[string]metrics.Result)
		for _, path := range input.CandidatePaths {
			result, err := e.score(alg, template, path)
			if err != nil {
				e.logger.Warn("Scoring failed, skipping image for algorithm",
					zap.Stringer("algorithm", alg),
					zap.String("image", path),
					zap.Error(err),
				)
				continue
			}
			perImage[filepath.Base(path)] = result
		}

		if len(perImage) > 0 {
			rs.Results[alg] = perImage
			rs.Succeeded[alg] = true
		}
	}

	if len(rs.Results) == 0 {
		return nil, fmt.Errorf("%w: all algorithms were skipped or failed", ErrNoUsableInput)
	}
	return rs, nil
}

func (e *Evaluator) score(alg metrics.Algorithm, template, candidate string) (metrics.Result, error) {
	switch alg {
	case metrics.AlgorithmHashSimilarity:
		return metrics.HashSimilarity(template, candidate, e.hashSize, int(e.thresholds.Distance))
	case metrics.AlgorithmColorQuality:
		return metrics.ColorQuality(candidate, metrics.TargetWhite)
	case metrics.AlgorithmTextureCompleteness:
		return metrics.TextureCompleteness(template, candidate)
	case metrics.AlgorithmCompositeClarity:
		return metrics.CompositeClarity(candidate)
	default:
		return nil, fmt.Errorf("unknown algorithm %d", alg)
	}
}

// resolveTemplate picks the template image: an explicit path wins, then the
// first jpg/png in the template directory, then the first candidate image
// with the fallback flag raised. Empty means no template is resolvable.
func (e *Evaluator) resolveTemplate(input Input) (string, bool) {
	if input.TemplatePath != "" {
		return input.TemplatePath, false
	}

	if input.TemplateDir != "" {
		if path := firstImageIn(input.TemplateDir); path != "" {
			return path, false
		}
	}

	if len(input.CandidatePaths) > 0 {
		e.logger.Warn("No template found, falling back to first candidate image",
			zap.String("template", input.CandidatePaths[0]),
		)
		return input.CandidatePaths[0], true
	}
	return "", false
}

func firstImageIn(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
				return filepath.Join(dir, entry.Name())
			}
		}
	}
	return ""
}
