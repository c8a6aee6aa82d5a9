package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Sign computes the delivery signature over "<unix timestamp>.<payload>".
// Binding the timestamp lets receivers reject replayed deliveries.
func Sign(secret string, timestamp time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature and that the timestamp is within tolerance of now
func Verify(secret string, timestamp time.Time, payload []byte, signature string, now time.Time, tolerance time.Duration) bool {
	if tolerance > 0 {
		skew := now.Sub(timestamp)
		if skew < -tolerance || skew > tolerance {
			return false
		}
	}
	expected := Sign(secret, timestamp, payload)
	return hmac.Equal([]byte(signature), []byte(expected))
}
