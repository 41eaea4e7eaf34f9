package logging

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestAccessLogLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "debug", "json")
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	handler := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" {
		t.Fatalf("expected warn level for 404, got %v", entry["level"])
	}
	if entry["path"] != "/missing" || entry["status"] != float64(404) {
		t.Fatalf("unexpected log fields %v", entry)
	}
}

func TestSetupFallsBackToInfoOnBadLevel(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "shouting", "json")

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", zerolog.GlobalLevel())
	}
}
