package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestHashSimilarity_IdenticalImages(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "image.jpg")
	createGradientImage(t, 128, 96, path)

	result, err := HashSimilarity(path, path, DefaultHashSize, 10)
	if err != nil {
		t.Fatalf("HashSimilarity failed: %v", err)
	}

	if result.Distance != 0 {
		t.Errorf("Expected distance 0 for identical images, got %d", result.Distance)
	}
	if !result.Similar {
		t.Error("Identical images should be similar")
	}
}

func TestHashSimilarity_DifferentImages(t *testing.T) {
	tmpDir := t.TempDir()
	templatePath := filepath.Join(tmpDir, "template.jpg")
	candidatePath := filepath.Join(tmpDir, "candidate.png")
	createGradientImage(t, 128, 96, templatePath)
	createCheckerImage(t, 128, 96, 8, candidatePath)

	result, err := HashSimilarity(templatePath, candidatePath, DefaultHashSize, 10)
	if err != nil {
		t.Fatalf("HashSimilarity failed: %v", err)
	}

	if result.Distance == 0 {
		t.Error("Expected nonzero distance for structurally different images")
	}
}

func TestHashSimilarity_ThresholdInclusive(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "image.jpg")
	createGradientImage(t, 64, 64, path)

	result, err := HashSimilarity(path, path, DefaultHashSize, 0)
	if err != nil {
		t.Fatalf("HashSimilarity failed: %v", err)
	}

	if !result.Similar {
		t.Error("Distance equal to the threshold should count as similar")
	}
}

func TestHashSimilarity_DefaultHashSize(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "image.jpg")
	createGradientImage(t, 64, 64, path)

	result, err := HashSimilarity(path, path, 0, 10)
	if err != nil {
		t.Fatalf("HashSimilarity failed: %v", err)
	}
	if result.Distance != 0 {
		t.Errorf("Expected distance 0, got %d", result.Distance)
	}
}

func TestHashSimilarity_CorruptImage(t *testing.T) {
	tmpDir := t.TempDir()
	goodPath := filepath.Join(tmpDir, "good.jpg")
	badPath := filepath.Join(tmpDir, "bad.jpg")
	createGradientImage(t, 64, 64, goodPath)

	if err := os.WriteFile(badPath, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	_, err := HashSimilarity(goodPath, badPath, DefaultHashSize, 10)
	if err == nil {
		t.Fatal("Expected error for corrupt candidate, got nil")
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %T: %v", err, err)
	}
	if decodeErr.Path != badPath {
		t.Errorf("Expected error path %s, got %s", badPath, decodeErr.Path)
	}
}
