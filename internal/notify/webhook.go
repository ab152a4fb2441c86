// Package notify provides the push transports notifications fan out to.
// Delivery is fire-and-forget: the stored notification row is the source of
// truth and a lost push is recovered by the client fetching its inbox.
package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"shift_planner_backend/internal/models"
	"shift_planner_backend/pkg/utils"

	"github.com/google/uuid"
)

// WebhookPusher POSTs each notification to a configured endpoint, typically a
// realtime gateway that forwards it to the recipient's open clients.
type WebhookPusher struct {
	url  string
	http *http.Client
}

// NewWebhookPusher creates a pusher for the given webhook URL.
func NewWebhookPusher(url string, timeout time.Duration) *WebhookPusher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookPusher{url: url, http: &http.Client{Timeout: timeout}}
}

type webhookPayload struct {
	RecipientID  uuid.UUID           `json:"recipient_id"`
	Notification models.Notification `json:"notification"`
}

// Push delivers one notification. Errors are logged and swallowed.
func (p *WebhookPusher) Push(recipientID uuid.UUID, notification models.Notification) {
	body, err := json.Marshal(webhookPayload{RecipientID: recipientID, Notification: notification})
	if err != nil {
		utils.LogError(err, "failed to encode notification push")
		return
	}

	resp, err := p.http.Post(p.url, "application/json", bytes.NewReader(body))
	if err != nil {
		utils.LogError(err, "notification push failed")
		return
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		utils.LogDebug("notification push rejected", map[string]interface{}{
			"status": resp.StatusCode, "recipient_id": recipientID.String(),
		})
	}
}

// LogPusher is the fallback transport when no webhook is configured. It only
// records the delivery attempt.
type LogPusher struct{}

// Push logs the notification instead of delivering it.
func (LogPusher) Push(recipientID uuid.UUID, notification models.Notification) {
	utils.LogDebug("notification push skipped, no transport configured", map[string]interface{}{
		"recipient_id": recipientID.String(), "notification_id": notification.ID.String(),
	})
}
