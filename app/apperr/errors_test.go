package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsFindsWrappedTypes(t *testing.T) {
	base := errors.New("connection reset")
	err := fmt.Errorf("failed to generate transcript: %w", &UpstreamError{Service: "gemini", Status: 503, Err: base})

	assert.True(t, As[*UpstreamError](err))
	assert.False(t, As[*StorageError](err))
	assert.ErrorIs(t, err, base)
}

func TestUpstreamErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *UpstreamError
		want string
	}{
		{"status only", &UpstreamError{Service: "elevenlabs", Status: 401}, "elevenlabs request failed with status 401"},
		{"with detail", &UpstreamError{Service: "elevenlabs", Status: 400, Detail: "quota exceeded"}, "elevenlabs request failed with status 400: quota exceeded"},
		{"no status", &UpstreamError{Service: "gemini", Detail: "empty response"}, "gemini request failed: empty response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Expected %q, got: %q", tt.want, got)
			}
		})
	}
}

func TestPersistenceNil(t *testing.T) {
	assert.NoError(t, Persistence("update article", nil))

	err := Persistence("update article", errors.New("disk full"))
	assert.True(t, As[*PersistenceError](err))
	assert.Equal(t, "failed to update article: disk full", err.Error())
}

func TestMissingKeyError(t *testing.T) {
	err := error(&MissingKeyError{Key: "ElevenLabs"})
	assert.Equal(t, "ElevenLabs API key is not configured", err.Error())
	assert.True(t, As[*MissingKeyError](err))
}
