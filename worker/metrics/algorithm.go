package metrics

import (
	"fmt"
	"sort"
	"strings"
)

// Algorithm identifies one of the four scoring algorithms. The numeric
// values match the ids used in task submissions.
type Algorithm int

const (
	AlgorithmHashSimilarity      Algorithm = 1
	AlgorithmColorQuality        Algorithm = 2
	AlgorithmTextureCompleteness Algorithm = 3
	AlgorithmCompositeClarity    Algorithm = 4
)

var allAlgorithms = []Algorithm{
	AlgorithmHashSimilarity,
	AlgorithmColorQuality,
	AlgorithmTextureCompleteness,
	AlgorithmCompositeClarity,
}

func (a Algorithm) String() string {
	switch a {
	case AlgorithmHashSimilarity:
		return "HashSimilarity"
	case AlgorithmColorQuality:
		return "ColorQuality"
	case AlgorithmTextureCompleteness:
		return "TextureCompleteness"
	case AlgorithmCompositeClarity:
		return "CompositeClarity"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// NeedsTemplate reports whether the algorithm compares candidates
// against a template image.
func (a Algorithm) NeedsTemplate() bool {
	return a == AlgorithmHashSimilarity || a == AlgorithmTextureCompleteness
}

// ParseAlgorithms expands a selection string into a sorted, de-duplicated
// algorithm set. Accepted forms: digit strings like "13" or "24", the
// literal "all", and the legacy shorthand "5" which both mean all four.
func ParseAlgorithms(s string) ([]Algorithm, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, fmt.Errorf("empty algorithm selection")
	}
	if s == "all" || s == "5" {
		out := make([]Algorithm, len(allAlgorithms))
		copy(out, allAlgorithms)
		return out, nil
	}

	seen := make(map[Algorithm]bool)
	var out []Algorithm
	for _, c := range s {
		switch c {
		case '1', '2', '3', '4':
			a := Algorithm(c - '0')
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		default:
			return nil, fmt.Errorf("invalid algorithm selection %q", s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Result is the tagged union of per-algorithm metric structs.
type Result interface {
	Algorithm() Algorithm
}

func (HashResult) Algorithm() Algorithm    { return AlgorithmHashSimilarity }
func (ColorResult) Algorithm() Algorithm   { return AlgorithmColorQuality }
func (TextureResult) Algorithm() Algorithm { return AlgorithmTextureCompleteness }
func (ClarityResult) Algorithm() Algorithm { return AlgorithmCompositeClarity }
