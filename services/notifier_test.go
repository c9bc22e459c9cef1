package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"practice-hub/models"
)

func TestCRMWebhookNotifierPostsEvent(t *testing.T) {
	var (
		got  badgeEarnedEvent
		auth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewCRMWebhookNotifier(srv.URL, "crm-token")
	badge := models.Badge{BadgeKey: "week_warrior", Name: "Week Warrior", NotifyEvent: "streak_7"}
	if err := n.NotifyBadgeEarned(context.Background(), "u1", badge); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if auth != "Bearer crm-token" {
		t.Fatalf("Authorization = %q", auth)
	}
	if got.Event != "streak_7" || got.UserID != "u1" || got.BadgeKey != "week_warrior" || got.OccurredAt.IsZero() {
		t.Fatalf("event = %+v", got)
	}
}

func TestCRMWebhookNotifierDefaultsEventAndReportsFailures(t *testing.T) {
	var event string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body badgeEarnedEvent
		_ = json.NewDecoder(r.Body).Decode(&body)
		event = body.Event
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewCRMWebhookNotifier(srv.URL, "")
	if err := n.NotifyBadgeEarned(context.Background(), "u1", models.Badge{BadgeKey: "x"}); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
	if event != "badge_earned" {
		t.Fatalf("event = %q, want badge_earned", event)
	}
}
