package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/civibook/civibook-go/internal/civibook"
	"github.com/civibook/civibook-go/internal/testutil"
)

func TestSaveEvents_RoundTrip(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	events := []civibook.Event{
		{ID: 2, Name: "Jazz Night", Category: "Music"},
		{ID: 1, Name: "Book Fair", Category: "Education"},
	}
	if err := c.SaveEvents(ctx, events); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}

	got, err := c.Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	// Fetch order survives, not id order.
	if got[0].ID != 2 || got[1].ID != 1 {
		t.Errorf("order lost: %d, %d", got[0].ID, got[1].ID)
	}
	if got[0].Name != "Jazz Night" {
		t.Errorf("payload lost: %+v", got[0])
	}
}

func TestSaveEvents_ReplacesSnapshot(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	if err := c.SaveEvents(ctx, []civibook.Event{{ID: 1}, {ID: 2}}); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}
	if err := c.SaveEvents(ctx, []civibook.Event{{ID: 3}}); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}

	got, err := c.Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 1 || got[0].ID != 3 {
		t.Errorf("old snapshot leaked: %+v", got)
	}
}

func TestSaveNotifications_RoundTrip(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	readAt := "2025-03-01T10:00:00Z"
	notifications := []civibook.Notification{
		{ID: "n1", Data: civibook.NotificationData{Message: "Booking approved"}},
		{ID: "n2", ReadAt: &readAt},
	}
	if err := c.SaveNotifications(ctx, notifications); err != nil {
		t.Fatalf("SaveNotifications: %v", err)
	}

	got, err := c.Notifications(ctx)
	if err != nil {
		t.Fatalf("Notifications: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].Data.Message != "Booking approved" {
		t.Errorf("payload lost: %+v", got[0])
	}
	if got[1].ReadAt == nil || *got[1].ReadAt != readAt {
		t.Errorf("read timestamp lost: %+v", got[1])
	}
}

func TestEmptyCache(t *testing.T) {
	c := testutil.NewTestCache(t)

	got, err := c.Events(context.Background())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty cache, got %d events", len(got))
	}
}

func TestPurgeOlderThan(t *testing.T) {
	c := testutil.NewTestCache(t)
	ctx := context.Background()

	if err := c.SaveEvents(ctx, []civibook.Event{{ID: 1}}); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}

	// Fresh rows survive a generous cutoff.
	if err := c.PurgeOlderThan(ctx, time.Hour); err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	got, err := c.Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 1 {
		t.Fatal("fresh snapshot was purged")
	}

	// A zero cutoff purges everything fetched before now.
	time.Sleep(10 * time.Millisecond)
	if err := c.PurgeOlderThan(ctx, 0); err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	got, err = c.Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("stale snapshot survived: %+v", got)
	}
}
