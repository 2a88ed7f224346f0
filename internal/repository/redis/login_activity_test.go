package redis

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestRecordAccountIPCountsDistinct(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewLoginActivityRepository(client, "authsvc")
	ctx := context.Background()

	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.1", "10.0.0.3"}
	wants := []int{1, 2, 2, 3}

	for i, ip := range ips {
		distinct, err := repo.RecordAccountIP(ctx, "user-1", ip, time.Hour)
		if err != nil {
			t.Fatalf("record %s: %v", ip, err)
		}
		if distinct != wants[i] {
			t.Fatalf("after %s: distinct = %d, want %d", ip, distinct, wants[i])
		}
	}
}

func TestRecordAccountIPIsolatesAccounts(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewLoginActivityRepository(client, "authsvc")
	ctx := context.Background()

	if _, err := repo.RecordAccountIP(ctx, "user-1", "10.0.0.1", time.Hour); err != nil {
		t.Fatalf("record: %v", err)
	}
	distinct, err := repo.RecordAccountIP(ctx, "user-2", "10.0.0.2", time.Hour)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if distinct != 1 {
		t.Fatalf("distinct = %d, want separate set per account", distinct)
	}
}

func TestRecordUnknownEmailCountsDistinctPerIP(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewLoginActivityRepository(client, "authsvc")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		email := fmt.Sprintf("probe%d@example.com", i)
		distinct, err := repo.RecordUnknownEmail(ctx, "203.0.113.5", email, 15*time.Minute)
		if err != nil {
			t.Fatalf("record %s: %v", email, err)
		}
		if distinct != i+1 {
			t.Fatalf("distinct = %d, want %d", distinct, i+1)
		}
	}

	// Repeating an email does not grow the set.
	distinct, err := repo.RecordUnknownEmail(ctx, "203.0.113.5", "probe0@example.com", 15*time.Minute)
	if err != nil {
		t.Fatalf("record repeat: %v", err)
	}
	if distinct != 5 {
		t.Fatalf("distinct = %d after repeat, want 5", distinct)
	}
}

func TestRecordActivityWindowEvaporates(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewLoginActivityRepository(client, "authsvc")
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		if _, err := repo.RecordAccountIP(ctx, "user-1", ip, time.Hour); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	mr.FastForward(time.Hour + time.Second)

	distinct, err := repo.RecordAccountIP(ctx, "user-1", "10.0.0.3", time.Hour)
	if err != nil {
		t.Fatalf("record after window: %v", err)
	}
	if distinct != 1 {
		t.Fatalf("distinct = %d after window elapsed, want 1", distinct)
	}
}

func TestRecordActivityRollingWindow(t *testing.T) {
	mr, client := newTestClient(t)
	repo := NewLoginActivityRepository(client, "authsvc")
	ctx := context.Background()

	if _, err := repo.RecordAccountIP(ctx, "user-1", "10.0.0.1", time.Hour); err != nil {
		t.Fatalf("record: %v", err)
	}

	// Activity inside the window refreshes the TTL, keeping earlier members.
	mr.FastForward(30 * time.Minute)
	if _, err := repo.RecordAccountIP(ctx, "user-1", "10.0.0.2", time.Hour); err != nil {
		t.Fatalf("record: %v", err)
	}
	mr.FastForward(45 * time.Minute)

	distinct, err := repo.RecordAccountIP(ctx, "user-1", "10.0.0.3", time.Hour)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if distinct != 3 {
		t.Fatalf("distinct = %d, want 3 with refreshed window", distinct)
	}
}

func TestRecordRejectsNonPositiveWindow(t *testing.T) {
	_, client := newTestClient(t)
	repo := NewLoginActivityRepository(client, "authsvc")

	if _, err := repo.RecordAccountIP(context.Background(), "user-1", "10.0.0.1", 0); err == nil {
		t.Fatalf("zero window accepted")
	}
}
