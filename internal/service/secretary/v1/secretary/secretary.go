// Package secretary provides methods for sealing callback tokens.
package secretary

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"github.com/businas/qwallet-bot/internal/config"
	secretaryService "github.com/businas/qwallet-bot/internal/service/secretary/v1"
	"github.com/google/uuid"
)

const (
	outcomeByteApprove = 0x01
	outcomeByteReject  = 0x02
)

// Secretary defines object structure and its attributes.
type Secretary struct {
	aesgcm cipher.AEAD
	nonce  []byte
}

// NewSecretaryService initializes a secretary service with ciphering functionality.
func NewSecretaryService(c *config.SecretConfig) (*Secretary, error) {
	key := sha256.Sum256([]byte(c.SecretKey))
	aesblock, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(aesblock)
	if err != nil {
		return nil, err
	}
	nonce := key[len(key)-aesgcm.NonceSize():]
	return &Secretary{
		aesgcm: aesgcm,
		nonce:  nonce,
	}, nil
}

// EncodeCallback seals an outcome and a withdrawal request identifier into a
// token. The payload is one outcome byte plus the 16 raw UUID bytes, base64url
// encoded: the result stays under Telegram's 64-byte callback data limit.
func (s *Secretary) EncodeCallback(outcome string, requestID string) (string, error) {
	requestUUID, err := uuid.Parse(requestID)
	if err != nil {
		return "", err
	}
	var outcomeByte byte
	switch outcome {
	case secretaryService.OutcomeApprove:
		outcomeByte = outcomeByteApprove
	case secretaryService.OutcomeReject:
		outcomeByte = outcomeByteReject
	default:
		return "", errors.New("unknown callback outcome")
	}
	payload := append([]byte{outcomeByte}, requestUUID[:]...)
	encoded := s.aesgcm.Seal(nil, s.nonce, payload, nil)
	return base64.RawURLEncoding.EncodeToString(encoded), nil
}

// DecodeCallback opens a sealed token and returns the outcome and the
// withdrawal request identifier. Tampered tokens fail authentication.
func (s *Secretary) DecodeCallback(token string) (string, string, error) {
	msgBytes, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", err
	}
	payload, err := s.aesgcm.Open(nil, s.nonce, msgBytes, nil)
	if err != nil {
		return "", "", err
	}
	if len(payload) != 17 {
		return "", "", errors.New("malformed callback payload")
	}
	var outcome string
	switch payload[0] {
	case outcomeByteApprove:
		outcome = secretaryService.OutcomeApprove
	case outcomeByteReject:
		outcome = secretaryService.OutcomeReject
	default:
		return "", "", errors.New("unknown callback outcome")
	}
	requestUUID, err := uuid.FromBytes(payload[1:])
	if err != nil {
		return "", "", err
	}
	return outcome, requestUUID.String(), nil
}
