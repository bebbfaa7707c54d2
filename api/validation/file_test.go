package validation

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
)

func formFile(t *testing.T, filename string, content []byte) (*multipart.FileHeader, multipart.File) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Failed to write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	file, header, err := req.FormFile("file")
	if err != nil {
		t.Fatalf("Failed to read form file back: %v", err)
	}
	return header, file
}

func withMagic(magic []byte, size int) []byte {
	content := make([]byte, size)
	copy(content, magic)
	return content
}

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    FileType
		wantErr bool
	}{
		{name: "png", content: withMagic([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, 64), want: FileTypePNG},
		{name: "jpeg", content: withMagic([]byte{0xFF, 0xD8, 0xFF, 0xE0}, 64), want: FileTypeJPEG},
		{name: "gif", content: withMagic([]byte{0x47, 0x49, 0x46, 0x38}, 64), want: FileTypeGIF},
		{name: "unknown", content: []byte("plain text"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, file := formFile(t, "file.bin", tt.content)
			defer file.Close()

			got, err := DetectFileType(file)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFileType) {
					t.Fatalf("Expected ErrInvalidFileType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFileType failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFileType = %s, want %s", got, tt.want)
			}

			// The reader must be rewound for the subsequent save.
			data, err := io.ReadAll(file)
			if err != nil {
				t.Fatalf("Failed to read after detection: %v", err)
			}
			if len(data) != len(tt.content) {
				t.Errorf("Expected file rewound to start, read %d of %d bytes", len(data), len(tt.content))
			}
		})
	}
}

func TestValidateImage(t *testing.T) {
	jpegContent := withMagic([]byte{0xFF, 0xD8, 0xFF, 0xE0}, 64)

	t.Run("valid jpeg", func(t *testing.T) {
		header, file := formFile(t, "photo.jpg", jpegContent)
		defer file.Close()
		if err := ValidateImage(header, file); err != nil {
			t.Errorf("Expected valid image, got %v", err)
		}
	})

	t.Run("extension mismatch", func(t *testing.T) {
		header, file := formFile(t, "photo.png", jpegContent)
		defer file.Close()
		if err := ValidateImage(header, file); !errors.Is(err, ErrExtensionMismatch) {
			t.Errorf("Expected ErrExtensionMismatch, got %v", err)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		header, file := formFile(t, "document.pdf", jpegContent)
		defer file.Close()
		if err := ValidateImage(header, file); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("garbage content", func(t *testing.T) {
		header, file := formFile(t, "photo.jpg", []byte("not an image"))
		defer file.Close()
		if err := ValidateImage(header, file); !errors.Is(err, ErrInvalidFileType) {
			t.Errorf("Expected ErrInvalidFileType, got %v", err)
		}
	})
}
