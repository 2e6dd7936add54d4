// Package notify posts game announcements to a Discord-compatible webhook.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cyberinferno/tictactoe3d/logger"
)

// DefaultTimeout bounds one webhook request.
const DefaultTimeout = 5 * time.Second

// Notifier announces game results to a webhook URL. A Notifier built with an
// empty URL is disabled and all methods become no-ops.
type Notifier struct {
	webhook string
	client  *http.Client
	logger  logger.Logger
}

// NewNotifier creates a Notifier for the given webhook URL.
//
// Parameters:
//   - webhook: The webhook URL to POST to; empty disables the notifier
//   - log: Logger for delivery failures
//
// Returns:
//   - A pointer to the new Notifier
func NewNotifier(webhook string, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNop()
	}

	return &Notifier{
		webhook: webhook,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  log,
	}
}

// Enabled reports whether the notifier has a webhook URL to deliver to.
func (n *Notifier) Enabled() bool {
	return n.webhook != ""
}

// GameDecided announces a finished game. Delivery failures are logged and
// otherwise ignored; the game outcome does not depend on the webhook.
//
// Parameters:
//   - winner: The winning player slot
//   - moves: Total moves committed when the game was decided
func (n *Notifier) GameDecided(winner int, moves int) {
	if !n.Enabled() {
		return
	}

	n.post(fmt.Sprintf("3D tic-tac-toe: player %d wins after %d moves", winner, moves))
}

// post sends one message to the webhook as a Discord-style content payload.
func (n *Notifier) post(content string) {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		n.logger.Error("webhook payload encode failed", logger.Field{Key: "error", Value: err})
		return
	}

	req, err := http.NewRequest(http.MethodPost, n.webhook, bytes.NewBuffer(body))
	if err != nil {
		n.logger.Error("webhook request build failed", logger.Field{Key: "error", Value: err})
		return
	}

	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed", logger.Field{Key: "error", Value: err})
		return
	}

	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		n.logger.Warn("webhook delivery rejected",
			logger.Field{Key: "status", Value: resp.StatusCode})
	}
}
