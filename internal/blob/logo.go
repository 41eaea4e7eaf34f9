package blob

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shopstack/backend/internal/store"
)

const PublicPrefix = "/logos/"

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// LogoStore keeps one logo file per shop in a directory and serves it under
// PublicPrefix. Uploading again replaces the previous file.
type LogoStore struct {
	dir        string
	publicBase string
	maxBytes   int64
}

func NewLogoStore(dir string, publicBaseURL string, maxBytes int64) (*LogoStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("logo directory required")
	}
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logo directory: %w", err)
	}
	return &LogoStore{
		dir:        dir,
		publicBase: strings.TrimRight(publicBaseURL, "/"),
		maxBytes:   maxBytes,
	}, nil
}

func (s *LogoStore) MaxBytes() int64 {
	return s.maxBytes
}

// Put writes data as the logo for key and returns its public URL. The URL
// carries a version query so clients refetch after a replacement.
func (s *LogoStore) Put(_ context.Context, key string, data []byte) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("%w: invalid logo key", store.ErrInvalidInput)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty logo file", store.ErrInvalidInput)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: logo exceeds %d bytes", store.ErrInvalidInput, s.maxBytes)
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported logo type %s", store.ErrInvalidInput, contentType)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}

	name := key + ext
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	for _, other := range allowedImageTypes {
		if other != ext {
			_ = os.Remove(filepath.Join(s.dir, key+other))
		}
	}

	return fmt.Sprintf("%s%s%s?v=%d", s.publicBase, PublicPrefix, name, time.Now().UnixNano()), nil
}

// Delete removes every logo file stored for key.
func (s *LogoStore) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return nil
	}
	for _, ext := range allowedImageTypes {
		if err := os.Remove(filepath.Join(s.dir, key+ext)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Handler serves stored logos by file name only. Directory listings, temp
// uploads and anything that is not a logo file answer 404.
func (s *LogoStore) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.dir))
	return http.StripPrefix(PublicPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isLogoFile(r.URL.Path) {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}

func isLogoFile(name string) bool {
	ext := filepath.Ext(name)
	if !validKey(strings.TrimSuffix(name, ext)) {
		return false
	}
	for _, allowed := range allowedImageTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, ".") {
		return false
	}
	for _, r := range key {
		if !(r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
