package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/cctvmagic/videomagic-backend/pkg/config"
	"github.com/cctvmagic/videomagic-backend/pkg/sora"
)

const soraTestSecret = "whsec_sora_test"

type fakeSoraWebhookService struct {
	calls  int
	bodies [][]byte
	err    error
}

func (f *fakeSoraWebhookService) HandleBody(ctx context.Context, body []byte) error {
	f.calls++
	f.bodies = append(f.bodies, body)
	return f.err
}

func soraTestConfig() config.SoraConfig {
	return config.SoraConfig{WebhookSecret: soraTestSecret}
}

func signedSoraRequest(body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/video-complete", bytes.NewReader(body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req.Header.Set(sora.TimestampHeader, ts)
	req.Header.Set(sora.SignatureHeader, "v1,"+sora.ComputeSignature(soraTestSecret, ts, body))
	return req
}

func TestSoraWebhookAcceptsSignedPayload(t *testing.T) {
	service := &fakeSoraWebhookService{}
	handler := SoraWebhook(service, soraTestConfig(), nil)

	body := []byte(`{"type":"video.completed","data":{"id":"video_123"}}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedSoraRequest(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
	if string(service.bodies[0]) != string(body) {
		t.Fatalf("body altered before reaching the service")
	}
}

func TestSoraWebhookRejectsBadSignature(t *testing.T) {
	service := &fakeSoraWebhookService{}
	handler := SoraWebhook(service, soraTestConfig(), nil)

	body := []byte(`{"type":"video.completed","data":{"id":"video_123"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/video-complete", bytes.NewReader(body))
	req.Header.Set(sora.TimestampHeader, strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set(sora.SignatureHeader, "v1,deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service must not run on a bad signature")
	}
}

func TestSoraWebhookRejectsStaleTimestamp(t *testing.T) {
	service := &fakeSoraWebhookService{}
	handler := SoraWebhook(service, soraTestConfig(), nil)

	body := []byte(`{"type":"video.completed","data":{"id":"video_123"}}`)
	ts := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/video-complete", bytes.NewReader(body))
	req.Header.Set(sora.TimestampHeader, ts)
	req.Header.Set(sora.SignatureHeader, "v1,"+sora.ComputeSignature(soraTestSecret, ts, body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("service must not run on a stale timestamp")
	}
}

func TestSoraWebhookSkipVerifyForLocalReplay(t *testing.T) {
	service := &fakeSoraWebhookService{}
	cfg := soraTestConfig()
	cfg.SkipWebhookVerify = true
	handler := SoraWebhook(service, cfg, nil)

	body := []byte(`{"type":"video.failed","data":{"id":"video_123"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/webhook/video-complete", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}
}

func TestSoraWebhookSurfacesServiceError(t *testing.T) {
	service := &fakeSoraWebhookService{err: fmt.Errorf("db unavailable")}
	handler := SoraWebhook(service, soraTestConfig(), nil)

	body := []byte(`{"type":"video.completed","data":{"id":"video_123"}}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedSoraRequest(body))

	if rec.Code == http.StatusOK {
		t.Fatalf("expected failure status, got 200")
	}
}
