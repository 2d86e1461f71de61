package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/knoguchi/rag/internal/config"
)

func newTestHandlers() *handlers {
	return &handlers{
		deps: Deps{
			Config: &config.Config{
				OllamaURL:            "http://localhost:11434",
				OllamaEmbeddingModel: "nomic-embed-text",
				OllamaLLMModel:       "llama3.2",
				DefaultTopK:          4,
			},
		},
		logger: discardLogger(),
	}
}

func TestHealth_ReportsEvalDisabledWhenEvaluatorNil(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); !strings.Contains(got, `"eval_enabled":false`) {
		t.Errorf("expected eval_enabled false in body, got %s", got)
	}
}

func TestSettings_ReturnsConfigValues(t *testing.T) {
	h := newTestHandlers()

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	h.settings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); !strings.Contains(got, `"default_top_k":4`) {
		t.Errorf("expected default_top_k in body, got %s", got)
	}
}
