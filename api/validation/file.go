package validation

import (
	"bytes"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

type FileType string

const (
	FileTypePNG  FileType = "png"
	FileTypeJPEG FileType = "jpeg"
	FileTypeGIF  FileType = "gif"
)

const maxUploadSize = 100 * 1024 * 1024

var magicBytes = map[FileType][]byte{
	FileTypePNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FileTypeJPEG: {0xFF, 0xD8, 0xFF},
	FileTypeGIF:  {0x47, 0x49, 0x46, 0x38},
}

var extensionTypes = map[string]FileType{
	".png":  FileTypePNG,
	".jpg":  FileTypeJPEG,
	".jpeg": FileTypeJPEG,
	".gif":  FileTypeGIF,
}

func DetectFileType(file multipart.File) (FileType, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	for fileType, signature := range magicBytes {
		if bytes.HasPrefix(buffer[:n], signature) {
			return fileType, nil
		}
	}

	return "", ErrInvalidFileType
}

// ValidateImage checks size, content signature and that the extension agrees
// with what the bytes actually are. Content wins over extension: a .png that
// starts with JPEG magic is rejected.
func ValidateImage(header *multipart.FileHeader, file multipart.File) error {
	if header.Size > maxUploadSize {
		return ErrFileTooLarge
	}

	detected, err := DetectFileType(file)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	expected, ok := extensionTypes[ext]
	if !ok {
		return ErrUnsupportedFormat
	}
	if expected != detected {
		return ErrExtensionMismatch
	}

	return nil
}
