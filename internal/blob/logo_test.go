package blob

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shopstack/backend/internal/store"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	gifBytes = append([]byte("GIF89a"), make([]byte, 32)...)
)

func TestPutStoresLogoAndReplacesPreviousFormat(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLogoStore(dir, "http://localhost:8080/", 1024)
	if err != nil {
		t.Fatalf("new logo store: %v", err)
	}
	ctx := context.Background()

	url, err := s.Put(ctx, "shop-1", pngBytes)
	if err != nil {
		t.Fatalf("put png: %v", err)
	}
	if !strings.HasPrefix(url, "http://localhost:8080/logos/shop-1.png?v=") {
		t.Fatalf("unexpected url %q", url)
	}

	if _, err := s.Put(ctx, "shop-1", gifBytes); err != nil {
		t.Fatalf("put gif: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "shop-1.png")); !os.IsNotExist(err) {
		t.Fatalf("expected previous png removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "shop-1.gif")); err != nil {
		t.Fatalf("expected gif stored: %v", err)
	}
}

func TestPutRejectsUnsupportedAndOversizedFiles(t *testing.T) {
	s, err := NewLogoStore(t.TempDir(), "", 16)
	if err != nil {
		t.Fatalf("new logo store: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Put(ctx, "shop-1", []byte("plain text")); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for text, got %v", err)
	}
	if _, err := s.Put(ctx, "shop-1", pngBytes); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for oversized file, got %v", err)
	}
	if _, err := s.Put(ctx, "../escape", []byte("GIF89a")); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad key, got %v", err)
	}
}

func TestHandlerServesStoredLogo(t *testing.T) {
	s, err := NewLogoStore(t.TempDir(), "", 1024)
	if err != nil {
		t.Fatalf("new logo store: %v", err)
	}
	if _, err := s.Put(context.Background(), "shop-9", pngBytes); err != nil {
		t.Fatalf("put: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/logos/shop-9.png", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("expected image/png, got %q", got)
	}
}

func TestHandlerHidesDirectoryAndTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLogoStore(dir, "", 1024)
	if err != nil {
		t.Fatalf("new logo store: %v", err)
	}
	if _, err := s.Put(context.Background(), "shop-9", pngBytes); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".upload-123"), pngBytes, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	for _, path := range []string{"/logos/", "/logos/.upload-123", "/logos/notes.txt", "/logos/sub/shop-9.png"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "shop-9") {
			t.Fatalf("%s: response leaks stored file names", path)
		}
	}
}
