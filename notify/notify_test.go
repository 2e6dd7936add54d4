package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberinferno/tictactoe3d/logger"
)

func TestNotifier_GameDecided(t *testing.T) {
	var received struct {
		Content string `json:"content"`
	}
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		err := json.NewDecoder(r.Body).Decode(&received)
		require.NoError(t, err)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, logger.NewNop())
	require.True(t, n.Enabled())

	n.GameDecided(1, 9)

	assert.Equal(t, 1, requests)
	assert.Equal(t, "3D tic-tac-toe: player 1 wins after 9 moves", received.Content)
}

func TestNotifier_disabled_without_webhook(t *testing.T) {
	n := NewNotifier("", nil)

	assert.False(t, n.Enabled())
	assert.NotPanics(t, func() {
		n.GameDecided(0, 7)
	})
}

func TestNotifier_tolerates_rejected_delivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewNotifier(server.URL, logger.NewNop())

	assert.NotPanics(t, func() {
		n.GameDecided(0, 7)
	})
}
