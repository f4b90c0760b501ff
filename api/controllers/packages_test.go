package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cctvmagic/videomagic-backend/internal/catalog"
)

func TestPackagesReturnsCatalog(t *testing.T) {
	handler := Packages()

	req := httptest.NewRequest(http.MethodGet, "/api/packages", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var envelope struct {
		Data []catalog.CreditPackage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(envelope.Data) != 4 {
		t.Fatalf("expected four packages, got %d", len(envelope.Data))
	}
	if envelope.Data[0].ID != "starter-pack" || envelope.Data[0].Credits != 6 {
		t.Fatalf("unexpected first package: %+v", envelope.Data[0])
	}
}
