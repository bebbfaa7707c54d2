package evaluate

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"imageInspector/worker/classify"
	"imageInspector/worker/metrics"
)

func createTestImage(t *testing.T, width, height int, path string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test image: %v", err)
	}
	defer file.Close()

	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
}

func allAlgorithms(t *testing.T) []metrics.Algorithm {
	t.Helper()
	algs, err := metrics.ParseAlgorithms("all")
	if err != nil {
		t.Fatalf("ParseAlgorithms failed: %v", err)
	}
	return algs
}

func TestEvaluator_Run_AllAlgorithms(t *testing.T) {
	tmpDir := t.TempDir()
	templatePath := filepath.Join(tmpDir, "template.jpg")
	first := filepath.Join(tmpDir, "first.jpg")
	second := filepath.Join(tmpDir, "second.jpg")
	createTestImage(t, 64, 64, templatePath)
	createTestImage(t, 64, 64, first)
	createTestImage(t, 96, 64, second)

	e := NewEvaluator(classify.DefaultThresholds(), zaptest.NewLogger(t))

	rs, err := e.Run(Input{
		TemplatePath:   templatePath,
		CandidatePaths: []string{first, second},
		Algorithms:     allAlgorithms(t),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if rs.TemplateFallback {
		t.Error("Explicit template should not set the fallback flag")
	}
	if len(rs.Images) != 2 || rs.Images[0] != "first.jpg" || rs.Images[1] != "second.jpg" {
		t.Errorf("Images order not preserved: %v", rs.Images)
	}

	for _, alg := range allAlgorithms(t) {
		perImage, ok := rs.Results[alg]
		if !ok {
			t.Errorf("Missing results for %s", alg)
			continue
		}
		if len(perImage) != 2 {
			t.Errorf("Expected 2 results for %s, got %d", alg, len(perImage))
		}
		if !rs.Succeeded[alg] {
			t.Errorf("Algorithm %s should be marked succeeded", alg)
		}
	}

	if got := len(rs.SucceededAlgorithms()); got != 4 {
		t.Errorf("Expected 4 succeeded algorithms, got %d", got)
	}
}

func TestEvaluator_Run_TemplateFromDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	templateDir := filepath.Join(tmpDir, "templates")
	if err := os.MkdirAll(templateDir, 0o755); err != nil {
		t.Fatalf("Failed to create template dir: %v", err)
	}
	templatePath := filepath.Join(templateDir, "ref.jpg")
	candidate := filepath.Join(tmpDir, "candidate.jpg")
	createTestImage(t, 64, 64, templatePath)
	createTestImage(t, 64, 64, candidate)

	e := NewEvaluator(classify.DefaultThresholds(), zaptest.NewLogger(t))

	rs, err := e.Run(Input{
		TemplateDir:    templateDir,
		CandidatePaths: []string{candidate},
		Algorithms:     []metrics.Algorithm{metrics.AlgorithmHashSimilarity},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if rs.Template != templatePath {
		t.Errorf("Expected template %s, got %s", templatePath, rs.Template)
	}
	if rs.TemplateFallback {
		t.Error("Directory-resolved template should not set the fallback flag")
	}
}

func TestEvaluator_Run_FallsBackToFirstCandidate(t *testing.T) {
	tmpDir := t.TempDir()
	first := filepath.Join(tmpDir, "first.jpg")
	second := filepath.Join(tmpDir, "second.jpg")
	createTestImage(t, 64, 64, first)
	createTestImage(t, 64, 64, second)

	e := NewEvaluator(classify.DefaultThresholds(), zaptest.NewLogger(t))

	rs, err := e.Run(Input{
		CandidatePaths: []string{first, second},
		Algorithms:     []metrics.Algorithm{metrics.AlgorithmHashSimilarity},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !rs.TemplateFallback {
		t.Error("Expected fallback flag when no template is provided")
	}
	if rs.Template != first {
		t.Errorf("Expected template %s, got %s", first, rs.Template)
	}

	// The first candidate is compared against itself.
	result, ok := rs.Results[metrics.AlgorithmHashSimilarity]["first.jpg"].(metrics.HashResult)
	if !ok {
		t.Fatal("Missing hash result for first candidate")
	}
	if result.Distance != 0 {
		t.Errorf("Expected distance 0 against the fallback template, got %d", result.Distance)
	}
}

func TestEvaluator_Run_CorruptImageIsIsolated(t *testing.T) {
	tmpDir := t.TempDir()
	good := filepath.Join(tmpDir, "good.jpg")
	bad := filepath.Join(tmpDir, "bad.jpg")
	createTestImage(t, 64, 64, good)
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	e := NewEvaluator(classify.DefaultThresholds(), zaptest.NewLogger(t))

	rs, err := e.Run(Input{
		CandidatePaths: []string{good, bad},
		Algorithms:     []metrics.Algorithm{metrics.AlgorithmColorQuality, metrics.AlgorithmCompositeClarity},
	})
	if err != nil {
		t.Fatalf("Run should tolerate a corrupt candidate: %v", err)
	}

	for _, alg := range []metrics.Algorithm{metrics.AlgorithmColorQuality, metrics.AlgorithmCompositeClarity} {
		if _, ok := rs.Results[alg]["good.jpg"]; !ok {
			t.Errorf("Expected result for good.jpg under %s", alg)
		}
		if _, ok := rs.Results[alg]["bad.jpg"]; ok {
			t.Errorf("Corrupt image should have no result under %s", alg)
		}
	}
}

func TestEvaluator_Run_NoCandidates(t *testing.T) {
	e := NewEvaluator(classify.DefaultThresholds(), zaptest.NewLogger(t))

	_, err := e.Run(Input{Algorithms: allAlgorithms(t)})
	if !errors.Is(err, ErrNoUsableInput) {
		t.Fatalf("Expected ErrNoUsableInput, got %v", err)
	}
}

func TestEvaluator_Run_AllCandidatesCorrupt(t *testing.T) {
	tmpDir := t.TempDir()
	bad := filepath.Join(tmpDir, "bad.jpg")
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	e := NewEvaluator(classify.DefaultThresholds(), zaptest.NewLogger(t))

	_, err := e.Run(Input{
		CandidatePaths: []string{bad},
		Algorithms:     []metrics.Algorithm{metrics.AlgorithmColorQuality},
	})
	if !errors.Is(err, ErrNoUsableInput) {
		t.Fatalf("Expected ErrNoUsableInput, got %v", err)
	}
}
