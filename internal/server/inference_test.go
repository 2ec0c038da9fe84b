package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"moodflix-capture/internal/infrastructure/transport"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := NewLogStore(filepath.Join(t.TempDir(), "logs.csv"))
	if err != nil {
		t.Fatalf("NewLogStore: %v", err)
	}
	ih := NewInferenceHandler(nopLogger{})
	lh := NewLogHandler(store, nopLogger{})

	r := gin.New()
	r.POST("/inference", ih.Infer)
	r.POST("/inference/log", lh.Append)
	r.GET("/inference/log", lh.List)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestInferBare(t *testing.T) {
	r := testRouter(t)
	w := postJSON(t, r, "/inference", map[string]interface{}{
		"environment": map[string]string{"city": "Seoul"},
		"images":      []string{"ZnJhbWU="},
		"audio":       "",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	var resp struct {
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Recommendations) != recommendationCount {
		t.Errorf("got %d recommendations, want %d", len(resp.Recommendations), recommendationCount)
	}
}

func TestInferEnveloped(t *testing.T) {
	r := testRouter(t)
	w := postJSON(t, r, "/inference", map[string]interface{}{
		"protocol":     transport.ProtocolName,
		"version":      transport.ProtocolVersion,
		"sender":       transport.SenderClient,
		"message_type": transport.MessageTypeInference,
		"payload": map[string]interface{}{
			"environment": map[string]string{"city": "Seoul"},
			"images":      []string{"ZnJhbWU="},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	var env transport.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Protocol != transport.ProtocolName || env.Sender != transport.SenderServer {
		t.Errorf("envelope = %+v", env)
	}
}

func TestInferRejectsUnknownProtocol(t *testing.T) {
	r := testRouter(t)
	w := postJSON(t, r, "/inference", map[string]interface{}{
		"protocol":     "XYZ",
		"message_type": transport.MessageTypeInference,
		"payload":      map[string]interface{}{"images": []string{"x"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Unsupported protocol")) {
		t.Errorf("body = %s", w.Body)
	}
}

func TestInferRejectsMissingImages(t *testing.T) {
	r := testRouter(t)
	w := postJSON(t, r, "/inference", map[string]interface{}{
		"environment": map[string]string{"city": "Seoul"},
		"images":      []string{},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPickConcurrent(t *testing.T) {
	ih := NewInferenceHandler(nopLogger{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if titles := ih.pick(); len(titles) != recommendationCount {
					t.Errorf("pick returned %d titles", len(titles))
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestInferRotatesCatalog(t *testing.T) {
	ih := NewInferenceHandler(nopLogger{})
	first := ih.pick()
	second := ih.pick()
	if len(first) != recommendationCount || len(second) != recommendationCount {
		t.Fatalf("pick sizes = %d/%d", len(first), len(second))
	}
	if first[0] == second[0] {
		t.Errorf("consecutive picks start with the same title %q", first[0])
	}
}

func TestLogAppendAndList(t *testing.T) {
	r := testRouter(t)

	w := postJSON(t, r, "/inference/log", map[string]interface{}{
		"clientSentAt": "2024-05-10T12:00:00Z",
		"env": map[string]interface{}{
			"city":         "Seoul",
			"weather_desc": "Clear",
			"weekday":      "Friday",
		},
		"movieTitle": "Interstellar",
		"mood":       "happy",
		"tone":       "bright",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("append status = %d, body = %s", w.Code, w.Body)
	}

	req := httptest.NewRequest(http.MethodGet, "/inference/log?limit=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var entries []transport.LogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.MovieTitle != "Interstellar" || e.City != "Seoul" || e.Mood != "happy" {
		t.Errorf("entry = %+v", e)
	}
}

func TestLogAppendRequiresTitle(t *testing.T) {
	r := testRouter(t)
	w := postJSON(t, r, "/inference/log", map[string]interface{}{
		"env": map[string]string{"city": "Seoul"},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestLogListEmpty(t *testing.T) {
	r := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/inference/log", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []transport.LogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries from an empty store", len(entries))
	}
}
