package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
)

type fakePromptsService struct {
	rows []models.PredefinedPrompt
	err  error
}

func (f *fakePromptsService) ListActive(context.Context) ([]models.PredefinedPrompt, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func TestPromptsListsActive(t *testing.T) {
	rows := []models.PredefinedPrompt{
		{ID: uuid.New(), Title: "Santa caught on camera", PromptText: "night-vision footage", DisplayOrder: 1},
		{ID: uuid.New(), Title: "Elf in the kitchen", PromptText: "cookie jar raid", DisplayOrder: 3},
	}
	handler := Prompts(&fakePromptsService{rows: rows}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var envelope struct {
		Data []promptView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(envelope.Data) != 2 {
		t.Fatalf("expected two prompts, got %d", len(envelope.Data))
	}
	if envelope.Data[0].Title != "Santa caught on camera" || envelope.Data[0].DisplayOrder != 1 {
		t.Fatalf("unexpected first prompt: %+v", envelope.Data[0])
	}
}

func TestPromptsEmptyCatalogIsOK(t *testing.T) {
	handler := Prompts(&fakePromptsService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data []promptView `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if envelope.Data == nil || len(envelope.Data) != 0 {
		t.Fatalf("expected empty list, got %v", envelope.Data)
	}
}

func TestPromptsSurfacesServiceError(t *testing.T) {
	svc := &fakePromptsService{err: pkgerrors.New(pkgerrors.CodeInternal, "listing prompts")}
	handler := Prompts(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
