package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"practice-hub/models"
)

// Notifier tells an external system (CRM) that a badge was earned. Best-effort only.
type Notifier interface {
	NotifyBadgeEarned(ctx context.Context, userID string, badge models.Badge) error
}

type NoopNotifier struct{}

func (NoopNotifier) NotifyBadgeEarned(context.Context, string, models.Badge) error { return nil }

// CRMWebhookNotifier posts badge events to a CRM webhook (e.g. a FluentCRM tag automation)
type CRMWebhookNotifier struct {
	URL    string
	Token  string
	Client *http.Client
}

func NewCRMWebhookNotifier(url, token string) *CRMWebhookNotifier {
	return &CRMWebhookNotifier{
		URL:   url,
		Token: token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type badgeEarnedEvent struct {
	Event      string    `json:"event"`
	UserID     string    `json:"user_id"`
	BadgeKey   string    `json:"badge_key"`
	BadgeName  string    `json:"badge_name"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (n *CRMWebhookNotifier) NotifyBadgeEarned(ctx context.Context, userID string, badge models.Badge) error {
	event := badge.NotifyEvent
	if event == "" {
		event = "badge_earned"
	}
	body, err := json.Marshal(badgeEarnedEvent{
		Event:      event,
		UserID:     userID,
		BadgeKey:   badge.BadgeKey,
		BadgeName:  badge.Name,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("crm webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("crm webhook returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}
