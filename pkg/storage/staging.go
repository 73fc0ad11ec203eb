package storage

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"elib/internal/util"
	"github.com/gabriel-vasile/mimetype"
)

// ErrFileTooLarge is returned when a multipart file exceeds the staging limit.
var ErrFileTooLarge = errors.New("file too large")

// StagedFile is an upload written to the local staging area.
type StagedFile struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// Staging writes multipart uploads to a local directory before transfer.
type Staging struct {
	dir      string
	maxBytes int64
}

// NewStaging prepares the staging directory.
func NewStaging(dir string, maxBytes int64) (*Staging, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "elib-uploads")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Staging{dir: dir, maxBytes: maxBytes}, nil
}

// Dir returns the staging directory.
func (s *Staging) Dir() string {
	return s.dir
}

// Stage copies the multipart file to disk.
func (s *Staging) Stage(fh *multipart.FileHeader) (StagedFile, error) {
	if s.maxBytes > 0 && fh.Size > s.maxBytes {
		return StagedFile{}, ErrFileTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return StagedFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	return s.write(src, fh.Filename, fh.Header.Get("Content-Type"))
}

func (s *Staging) write(src io.Reader, filename, contentType string) (StagedFile, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	ext := strings.ToLower(filepath.Ext(name))
	path := filepath.Join(s.dir, util.NewID()+ext)

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return StagedFile{}, fmt.Errorf("create staged file: %w", err)
	}
	reader := src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	n, copyErr := io.Copy(dst, reader)
	closeErr := dst.Close()
	if copyErr == nil && s.maxBytes > 0 && n > s.maxBytes {
		copyErr = ErrFileTooLarge
	}
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = RemoveStaged(path)
		if errors.Is(copyErr, ErrFileTooLarge) {
			return StagedFile{}, copyErr
		}
		return StagedFile{}, fmt.Errorf("write staged file: %w", copyErr)
	}

	contentType = normalizeContentType(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		if detected, err := mimetype.DetectFile(path); err == nil {
			contentType = normalizeContentType(detected.String())
		}
	}
	return StagedFile{Path: path, Filename: name, ContentType: contentType, Size: n}, nil
}

// RemoveStaged deletes a staged file. A missing file is not an error.
func RemoveStaged(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func normalizeContentType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(v)
	}
	return mediaType
}
