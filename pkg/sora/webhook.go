package sora

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SignatureHeader and TimestampHeader carry the inbound webhook proof.
	SignatureHeader = "webhook-signature"
	TimestampHeader = "webhook-timestamp"

	// signatureTolerance bounds replay exposure.
	signatureTolerance = 5 * time.Minute
)

var (
	ErrMissingSignature  = errors.New("missing webhook signature")
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrTimestampTooOld   = errors.New("webhook timestamp outside tolerance")
	ErrMalformedTimstamp = errors.New("malformed webhook timestamp")
)

// VerificationWarning reports whether webhook verification is running in a
// degraded state worth flagging at startup, and what to say about it.
func VerificationWarning(skipVerify bool, secret string) (string, bool) {
	if skipVerify {
		return "sora webhook signature verification is disabled", true
	}
	if secret == "" {
		return "sora webhook secret is empty, inbound provider webhooks will be rejected", true
	}
	return "", false
}

// VerifySignature checks the HMAC-SHA256 of "{timestamp}.{body}" against the
// supplied signature in constant time and rejects stale timestamps. The
// signature header may carry a "v1," or "v1=" prefix.
func VerifySignature(secret string, body []byte, signature, timestamp string, now time.Time) error {
	if secret == "" {
		return errors.New("webhook secret is required")
	}
	if signature == "" {
		return ErrMissingSignature
	}
	if timestamp == "" {
		return ErrMalformedTimstamp
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrMalformedTimstamp
	}
	sent := time.Unix(ts, 0)
	skew := now.Sub(sent)
	if skew < 0 {
		skew = -skew
	}
	if skew > signatureTolerance {
		return ErrTimestampTooOld
	}

	expected := computeSignature(secret, timestamp, body)
	provided := normalizeSignature(signature)

	if !hmac.Equal([]byte(expected), []byte(provided)) {
		return ErrInvalidSignature
	}
	return nil
}

// ComputeSignature returns the hex HMAC for a timestamp/body pair. Exposed
// for signing test payloads and outbound verification tooling.
func ComputeSignature(secret, timestamp string, body []byte) string {
	return computeSignature(secret, timestamp, body)
}

func computeSignature(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.", timestamp)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func normalizeSignature(signature string) string {
	s := strings.TrimSpace(signature)
	s = strings.TrimPrefix(s, "v1,")
	s = strings.TrimPrefix(s, "v1=")
	return strings.ToLower(s)
}
