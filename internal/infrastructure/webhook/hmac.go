package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"
)

const (
	SignatureHeader = "X-Signature"
	EventIDHeader   = "X-Event-Id"
	EventTypeHeader = "X-Event-Type"
)

type HMACSignature struct {
	Secret string
}

func NewHMACSignature(secret string) *HMACSignature {
	return &HMACSignature{Secret: secret}
}

// GenerateSignature returns the hex HMAC-SHA256 of body keyed with the subscriber secret
func (h *HMACSignature) GenerateSignature(body []byte) string {
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is valid for body
func (h *HMACSignature) Verify(body []byte, signature string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	expected, _ := hex.DecodeString(h.GenerateSignature(body))
	return hmac.Equal(expected, provided)
}

// SignRequest sets the signature, event and date headers on an outbound webhook request
func (h *HMACSignature) SignRequest(req *http.Request, body []byte, eventID, eventType string) {
	req.Header.Set(SignatureHeader, h.GenerateSignature(body))
	req.Header.Set(EventIDHeader, eventID)
	req.Header.Set(EventTypeHeader, eventType)
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
}
