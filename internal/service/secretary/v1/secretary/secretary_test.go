package secretary

import (
	"testing"

	"github.com/businas/qwallet-bot/internal/config"
	secretaryService "github.com/businas/qwallet-bot/internal/service/secretary/v1"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSecretary(t *testing.T) *Secretary {
	t.Helper()
	s, err := NewSecretaryService(&config.SecretConfig{SecretKey: "jds__63h3_7ds"})
	require.NoError(t, err)
	return s
}

func TestCallbackRoundTrip(t *testing.T) {
	s := newTestSecretary(t)
	requestID := uuid.New().String()
	for _, outcome := range []string{secretaryService.OutcomeApprove, secretaryService.OutcomeReject} {
		token, err := s.EncodeCallback(outcome, requestID)
		require.NoError(t, err)
		decodedOutcome, decodedRequestID, err := s.DecodeCallback(token)
		require.NoError(t, err)
		assert.Equal(t, outcome, decodedOutcome)
		assert.Equal(t, requestID, decodedRequestID)
	}
}

func TestTokenFitsCallbackDataLimit(t *testing.T) {
	s := newTestSecretary(t)
	token, err := s.EncodeCallback(secretaryService.OutcomeApprove, uuid.New().String())
	require.NoError(t, err)
	// Telegram rejects callback data longer than 64 bytes
	assert.LessOrEqual(t, len(token), 64)
}

func TestEncodeCallbackRejectsBadInput(t *testing.T) {
	s := newTestSecretary(t)
	_, err := s.EncodeCallback(secretaryService.OutcomeApprove, "not-a-uuid")
	assert.Error(t, err)
	_, err = s.EncodeCallback("shrug", uuid.New().String())
	assert.Error(t, err)
}

func TestDecodeCallbackRejectsTamperedToken(t *testing.T) {
	s := newTestSecretary(t)
	token, err := s.EncodeCallback(secretaryService.OutcomeReject, uuid.New().String())
	require.NoError(t, err)

	tampered := []byte(token)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}
	_, _, err = s.DecodeCallback(string(tampered))
	assert.Error(t, err)

	_, _, err = s.DecodeCallback("")
	assert.Error(t, err)
}

func TestDecodeCallbackRejectsForeignKey(t *testing.T) {
	s := newTestSecretary(t)
	other, err := NewSecretaryService(&config.SecretConfig{SecretKey: "a_different_key"})
	require.NoError(t, err)

	token, err := s.EncodeCallback(secretaryService.OutcomeApprove, uuid.New().String())
	require.NoError(t, err)
	_, _, err = other.DecodeCallback(token)
	assert.Error(t, err)
}
