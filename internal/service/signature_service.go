package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HMACSignatureService implements ports.SignatureService with HMAC-SHA256
// over "<unix>.<payload>", hex encoded.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

func (s *HMACSignatureService) mac(secret string, unix int64, payload []byte) []byte {
	m := hmac.New(sha256.New, []byte(secret))
	m.Write(strconv.AppendInt(nil, unix, 10))
	m.Write([]byte{'.'})
	m.Write(payload)
	return m.Sum(nil)
}

// Sign returns the lowercase hex signature of payload at unix.
func (s *HMACSignatureService) Sign(secret string, unix int64, payload []byte) string {
	return hex.EncodeToString(s.mac(secret, unix, payload))
}

// VerifyAny compares every candidate in constant time. Candidates that are
// not valid hex never match.
func (s *HMACSignatureService) VerifyAny(secret string, unix int64, payload []byte, candidates []string) bool {
	if secret == "" {
		return false
	}
	expected := s.mac(secret, unix, payload)
	for _, candidate := range candidates {
		got, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return true
		}
	}
	return false
}
