package sora

import (
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"type":"video.completed","data":{"id":"video_abc"}}`)
	now := time.Unix(1_760_000_000, 0)
	timestamp := strconv.FormatInt(now.Unix(), 10)
	signature := ComputeSignature(secret, timestamp, body)

	if err := VerifySignature(secret, body, signature, timestamp, now); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := VerifySignature(secret, body, "v1,"+signature, timestamp, now); err != nil {
		t.Fatalf("prefixed signature rejected: %v", err)
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"type":"video.completed","data":{"id":"video_abc"}}`)
	now := time.Unix(1_760_000_000, 0)
	timestamp := strconv.FormatInt(now.Unix(), 10)
	signature := ComputeSignature(secret, timestamp, body)

	tampered := []byte(`{"type":"video.completed","data":{"id":"video_xyz"}}`)
	if err := VerifySignature(secret, tampered, signature, timestamp, now); err != ErrInvalidSignature {
		t.Fatalf("tampered body should fail with ErrInvalidSignature, got %v", err)
	}

	if err := VerifySignature("other_secret", body, signature, timestamp, now); err != ErrInvalidSignature {
		t.Fatalf("wrong secret should fail with ErrInvalidSignature, got %v", err)
	}

	if err := VerifySignature(secret, body, "", timestamp, now); err != ErrMissingSignature {
		t.Fatalf("missing signature should fail with ErrMissingSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{}`)
	now := time.Unix(1_760_000_000, 0)

	old := now.Add(-6 * time.Minute)
	oldTS := strconv.FormatInt(old.Unix(), 10)
	signature := ComputeSignature(secret, oldTS, body)
	if err := VerifySignature(secret, body, signature, oldTS, now); err != ErrTimestampTooOld {
		t.Fatalf("stale timestamp should fail even with valid signature, got %v", err)
	}

	future := now.Add(6 * time.Minute)
	futureTS := strconv.FormatInt(future.Unix(), 10)
	signature = ComputeSignature(secret, futureTS, body)
	if err := VerifySignature(secret, body, signature, futureTS, now); err != ErrTimestampTooOld {
		t.Fatalf("future timestamp should fail, got %v", err)
	}

	if err := VerifySignature(secret, body, "deadbeef", "not-a-number", now); err != ErrMalformedTimstamp {
		t.Fatalf("malformed timestamp should fail, got %v", err)
	}
}

func TestVerificationWarningFlagsDegradedModes(t *testing.T) {
	if msg, degraded := VerificationWarning(true, "whsec_test"); !degraded || !strings.Contains(msg, "disabled") {
		t.Fatalf("skip flag must warn, got (%q, %v)", msg, degraded)
	}
	if msg, degraded := VerificationWarning(false, ""); !degraded || !strings.Contains(msg, "secret is empty") {
		t.Fatalf("empty secret must warn, got (%q, %v)", msg, degraded)
	}
	if msg, degraded := VerificationWarning(false, "whsec_test"); degraded {
		t.Fatalf("configured secret must not warn, got %q", msg)
	}
}
