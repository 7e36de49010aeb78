package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("v0:%s:", timestamp)))
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func newTestVerifier(t *testing.T, secret string, now time.Time) *Verifier {
	v := NewVerifier(secret, zaptest.NewLogger(t))
	v.now = func() time.Time { return now }
	return v
}

func TestVerifier_AcceptsFreshValidSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, "secret123", now)

	body := []byte("token=abc&command=%2Fcreate-channel")
	timestamp := strconv.FormatInt(now.Unix(), 10)

	if !v.Verify(timestamp, body, sign("secret123", timestamp, body)) {
		t.Error("Fresh request with valid signature should be accepted")
	}
}

func TestVerifier_RejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, "secret123", now)

	body := []byte("payload")
	// 301 seconds in the past: outside the replay window even though the
	// signature itself is correct
	timestamp := strconv.FormatInt(now.Unix()-301, 10)

	if v.Verify(timestamp, body, sign("secret123", timestamp, body)) {
		t.Error("Request older than the replay window should be rejected")
	}
}

func TestVerifier_RejectsFutureTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, "secret123", now)

	body := []byte("payload")
	timestamp := strconv.FormatInt(now.Unix()+301, 10)

	if v.Verify(timestamp, body, sign("secret123", timestamp, body)) {
		t.Error("Request timestamped beyond the replay window should be rejected")
	}
}

func TestVerifier_RejectsTamperedSignature(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, "secret123", now)

	body := []byte("payload")
	timestamp := strconv.FormatInt(now.Unix(), 10)

	valid := sign("secret123", timestamp, body)

	// Flip a single bit in the last hex digit
	tampered := []byte(valid)
	tampered[len(tampered)-1] ^= 0x01

	if v.Verify(timestamp, body, string(tampered)) {
		t.Error("Mutated signature should be rejected")
	}
}

func TestVerifier_RejectsMissingOrBadTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, "secret123", now)

	body := []byte("payload")

	if v.Verify("", body, sign("secret123", "", body)) {
		t.Error("Missing timestamp should be rejected")
	}
	if v.Verify("not-a-number", body, "v0=deadbeef") {
		t.Error("Unparseable timestamp should be rejected")
	}
}

func TestVerifier_NoSecretAcceptsEverything(t *testing.T) {
	now := time.Unix(1700000000, 0)
	v := newTestVerifier(t, "", now)

	if !v.Verify("", []byte("anything"), "") {
		t.Error("Verifier without a signing secret should accept every request")
	}
}
