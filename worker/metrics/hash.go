package metrics

import (
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// DefaultHashSize is the perceptual hash resolution. A 32x32 hash holds
// 1024 bits.
const DefaultHashSize = 32

// HashResult holds the perceptual-hash comparison of a candidate against
// the template.
type HashResult struct {
	Distance int  `json:"distance"`
	Similar  bool `json:"similar"`
}

// HashSimilarity computes perceptual hashes of both images at the given
// resolution and returns their Hamming distance. Similar is true when the
// distance is within the threshold (inclusive).
func HashSimilarity(templatePath, candidatePath string, hashSize int, threshold int) (HashResult, error) {
	if hashSize <= 0 {
		hashSize = DefaultHashSize
	}

	th, err := perceptualHash(templatePath, hashSize)
	if err != nil {
		return HashResult{}, err
	}
	ch, err := perceptualHash(candidatePath, hashSize)
	if err != nil {
		return HashResult{}, err
	}

	distance := 0
	for i := range th {
		if th[i] != ch[i] {
			distance++
		}
	}

	return HashResult{
		Distance: distance,
		Similar:  distance <= threshold,
	}, nil
}

// perceptualHash implements pHash: downscale to 4x the hash size, take the
// 2-D DCT, keep the low-frequency hashSize x hashSize block and threshold
// each coefficient against the block median.
func perceptualHash(path string, hashSize int) ([]bool, error) {
	img, err := openImage(path)
	if err != nil {
		return nil, err
	}

	size := hashSize * 4
	small := imaging.Resize(imaging.Grayscale(img), size, size, imaging.Lanczos)
	plane := grayFrom(small)

	coeffs := dct2d(plane.pix, size)

	low := make([]float64, 0, hashSize*hashSize)
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			low = append(low, coeffs[y*size+x])
		}
	}

	med := median(low)
	bits := make([]bool, len(low))
	for i, v := range low {
		bits[i] = v > med
	}
	return bits, nil
}

// dct2d applies a separable DCT-II to an n x n plane, rows then columns.
func dct2d(pix []float64, n int) []float64 {
	cos := make([]float64, n*n)
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			cos[k*n+i] = math.Cos(math.Pi * float64(k) * (2*float64(i) + 1) / (2 * float64(n)))
		}
	}

	tmp := make([]float64, n*n)
	for y := 0; y < n; y++ {
		for k := 0; k < n; k++ {
			sum := 0.0
			for x := 0; x < n; x++ {
				sum += pix[y*n+x] * cos[k*n+x]
			}
			tmp[y*n+k] = sum
		}
	}

	out := make([]float64, n*n)
	for x := 0; x < n; x++ {
		for k := 0; k < n; k++ {
			sum := 0.0
			for y := 0; y < n; y++ {
				sum += tmp[y*n+x] * cos[k*n+y]
			}
			out[k*n+x] = sum
		}
	}
	return out
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
