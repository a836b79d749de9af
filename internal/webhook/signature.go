// Package webhook provides the inbound webhook handlers: the Telegram
// update dispatcher and the generic signed-webhook channel.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// replayWindow is how far a webhook timestamp may drift from the current
// time before the request is rejected as a possible replay.
const replayWindow = 300 * time.Second

// VerifySignature checks an HMAC-SHA256 webhook signature. The signature
// header carries comma-separated key=value pairs; the v1 entry holds the
// hex digest of "{timestamp}.{body}" keyed by the shared secret. Timestamps
// outside the replay window are rejected regardless of the digest.
func VerifySignature(body []byte, timestamp, signature, secret string) bool {
	sig := extractSignature(signature)
	if sig == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	drift := time.Since(time.Unix(ts, 0))
	if drift > replayWindow || drift < -replayWindow {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sig))
}

// extractSignature returns the hex digest for the v1 scheme, or empty.
func extractSignature(header string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "v1=") {
			return strings.TrimPrefix(part, "v1=")
		}
	}
	return ""
}
