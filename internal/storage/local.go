package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	ErrFileTooLarge   = errors.New("file too large")
	ErrFileNotAllowed = errors.New("file type not allowed")
)

const PublicPrefix = "/uploads"

var (
	allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	allowedMimeTypes  = map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true}
	unsafeChars       = regexp.MustCompile(`[^\w\-.]`)
)

// LocalImageStore keeps catalog images on local disk under Dir and hands out
// paths relative to the public /uploads prefix.
type LocalImageStore struct {
	Dir     string
	MaxSize int64
	now     func() time.Time
}

func NewLocalImageStore(dir string, maxSize int64) *LocalImageStore {
	return &LocalImageStore{Dir: dir, MaxSize: maxSize, now: time.Now}
}

// Save validates and writes the upload into Dir/<kind>/ and returns its public path.
func (s *LocalImageStore) Save(fh *multipart.FileHeader, kind string) (string, error) {
	if s.MaxSize > 0 && fh.Size > s.MaxSize {
		return "", ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return "", ErrFileNotAllowed
	}
	mimeType := strings.ToLower(strings.TrimSpace(strings.Split(fh.Header.Get("Content-Type"), ";")[0]))
	if !allowedMimeTypes[mimeType] {
		return "", ErrFileNotAllowed
	}

	dir := filepath.Join(s.Dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%d_%s", s.now().UnixNano(), unsafeChars.ReplaceAllString(filepath.Base(fh.Filename), "_"))
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := writeFile(filepath.Join(dir, name), src); err != nil {
		return "", err
	}
	return PublicPrefix + "/" + kind + "/" + name, nil
}

// writeFile copies src into path. A failed copy leaves no file behind.
func writeFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	_, err = io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Remove deletes a file previously returned by Save. Empty or foreign paths
// are ignored.
func (s *LocalImageStore) Remove(publicPath string) error {
	if !strings.HasPrefix(publicPath, PublicPrefix+"/") {
		return nil
	}
	rel := strings.TrimPrefix(publicPath, PublicPrefix+"/")
	full := filepath.Join(s.Dir, filepath.FromSlash(rel))
	if !strings.HasPrefix(full, filepath.Clean(s.Dir)+string(os.PathSeparator)) {
		return nil
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
