package service

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"imageInspector/worker/cache"
	"imageInspector/worker/classify"
	"imageInspector/worker/kafka"
	"imageInspector/worker/repository"
)

type statusUpdate struct {
	status   string
	progress float64
	reason   string
}

type mockRepo struct {
	updates      []statusUpdate
	reports      []*repository.ReportRecord
	saveErr      error
	updateStatus func(taskID, status string) error
}

func (m *mockRepo) UpdateTaskStatus(ctx context.Context, taskID string, status string, progress float64, message string) error {
	m.updates = append(m.updates, statusUpdate{status: status, progress: progress, reason: message})
	if m.updateStatus != nil {
		return m.updateStatus(taskID, status)
	}
	return nil
}

func (m *mockRepo) SaveReport(ctx context.Context, rec *repository.ReportRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.reports = append(m.reports, rec)
	return nil
}

func (m *mockRepo) ReportExists(ctx context.Context, taskID string) (bool, error) {
	return len(m.reports) > 0, nil
}

type mockCache struct {
	records []cache.StatusRecord
}

func (m *mockCache) Set(ctx context.Context, taskID string, rec cache.StatusRecord) error {
	m.records = append(m.records, rec)
	return nil
}

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

func TestProcessor_Process_Success(t *testing.T) {
	tmpDir := t.TempDir()
	first := filepath.Join(tmpDir, "first.jpg")
	second := filepath.Join(tmpDir, "second.jpg")
	createTestImage(t, 64, 64, first)
	createTestImage(t, 64, 64, second)

	repo := &mockRepo{}
	statusCache := &mockCache{}
	p := NewProcessor(repo, statusCache, classify.DefaultThresholds(), filepath.Join(tmpDir, "reports"), zaptest.NewLogger(t))

	err := p.Process(context.Background(), &kafka.TaskMessage{
		TaskID:     "task-1",
		Algorithms: "24",
		ImagePaths: []string{first, second},
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(repo.updates) != 2 {
		t.Fatalf("Expected 2 status updates, got %d", len(repo.updates))
	}
	if repo.updates[0].status != StatusProcessing || repo.updates[0].progress != 10 {
		t.Errorf("Expected processing/10 first, got %+v", repo.updates[0])
	}
	if repo.updates[1].status != StatusCompleted || repo.updates[1].progress != 100 {
		t.Errorf("Expected completed/100 last, got %+v", repo.updates[1])
	}
	if repo.updates[1].reason != "" {
		t.Errorf("Completed update must not carry a failure reason, got %q", repo.updates[1].reason)
	}

	// Two single-algorithm reports plus the combined one.
	if len(repo.reports) != 3 {
		t.Fatalf("Expected 3 report records, got %d", len(repo.reports))
	}
	kinds := map[string]bool{}
	for _, rec := range repo.reports {
		kinds[rec.Kind] = true
	}
	for _, want := range []string{"2", "4", "24"} {
		if !kinds[want] {
			t.Errorf("Missing report kind %s, got %v", want, kinds)
		}
	}

	if len(statusCache.records) != 2 {
		t.Fatalf("Expected 2 cache writes, got %d", len(statusCache.records))
	}
	if statusCache.records[1].Status != StatusCompleted {
		t.Errorf("Expected completed in cache, got %s", statusCache.records[1].Status)
	}
}

func TestProcessor_Process_SingleAlgorithmNoCombinedReport(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "image.jpg")
	createTestImage(t, 64, 64, path)

	repo := &mockRepo{}
	p := NewProcessor(repo, &mockCache{}, classify.DefaultThresholds(), filepath.Join(tmpDir, "reports"), zaptest.NewLogger(t))

	err := p.Process(context.Background(), &kafka.TaskMessage{
		TaskID:     "task-1",
		Algorithms: "2",
		ImagePaths: []string{path},
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(repo.reports) != 1 {
		t.Fatalf("Expected exactly 1 report record, got %d", len(repo.reports))
	}
	if repo.reports[0].Kind != "2" {
		t.Errorf("Expected kind 2, got %s", repo.reports[0].Kind)
	}
}

func TestProcessor_Process_InvalidAlgorithms(t *testing.T) {
	repo := &mockRepo{}
	statusCache := &mockCache{}
	p := NewProcessor(repo, statusCache, classify.DefaultThresholds(), t.TempDir(), zaptest.NewLogger(t))

	err := p.Process(context.Background(), &kafka.TaskMessage{
		TaskID:     "task-1",
		Algorithms: "9",
		ImagePaths: []string{"/some/image.jpg"},
	})
	if err == nil {
		t.Fatal("Expected error for invalid algorithm selection")
	}

	if len(repo.updates) != 1 {
		t.Fatalf("Expected 1 status update, got %d", len(repo.updates))
	}
	if repo.updates[0].status != StatusFailed || repo.updates[0].progress != 0 {
		t.Errorf("Expected failed/0, got %+v", repo.updates[0])
	}
	if repo.updates[0].reason == "" {
		t.Error("Failed update should carry the failure reason")
	}
}

func TestProcessor_Process_NoUsableImages(t *testing.T) {
	repo := &mockRepo{}
	p := NewProcessor(repo, &mockCache{}, classify.DefaultThresholds(), t.TempDir(), zaptest.NewLogger(t))

	err := p.Process(context.Background(), &kafka.TaskMessage{
		TaskID:     "task-1",
		Algorithms: "all",
		ImagePaths: nil,
	})
	if err == nil {
		t.Fatal("Expected error for empty image batch")
	}

	last := repo.updates[len(repo.updates)-1]
	if last.status != StatusFailed {
		t.Errorf("Expected terminal status failed, got %s", last.status)
	}
	if last.reason != "no usable images for evaluation" {
		t.Errorf("Unexpected failure reason: %q", last.reason)
	}
}

func TestProcessor_Process_ReportSaveErrorDoesNotFailTask(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "image.jpg")
	createTestImage(t, 64, 64, path)

	repo := &mockRepo{saveErr: context.DeadlineExceeded}
	p := NewProcessor(repo, &mockCache{}, classify.DefaultThresholds(), filepath.Join(tmpDir, "reports"), zaptest.NewLogger(t))

	err := p.Process(context.Background(), &kafka.TaskMessage{
		TaskID:     "task-1",
		Algorithms: "4",
		ImagePaths: []string{path},
	})
	if err != nil {
		t.Fatalf("Report persistence errors must not fail the task: %v", err)
	}

	last := repo.updates[len(repo.updates)-1]
	if last.status != StatusCompleted {
		t.Errorf("Expected completed despite save error, got %s", last.status)
	}
}
