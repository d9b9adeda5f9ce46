package oauth

import (
	"context"
	"testing"
	"time"

	"github.com/subculture-collective/chatterchain/db"
	"github.com/subculture-collective/chatterchain/testutil"
)

func TestRefresherUpdatesExpiringToken(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Token that expires inside the refresh window.
	expiry := time.Now().Add(time.Minute).UTC()
	if err := db.UpsertOAuthToken(ctx, database, "twitch_refresh_test", "oldaccess", "oldrefresh", expiry, "chat:read"); err != nil {
		t.Fatalf("UpsertOAuthToken error: %v", err)
	}

	refreshed := make(chan struct{}, 1)
	StartRefresher(ctx, database, "twitch_refresh_test", 20*time.Millisecond, 10*time.Minute,
		func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			if refreshToken != "oldrefresh" {
				t.Errorf("refresh token = %q, want oldrefresh", refreshToken)
			}
			select {
			case refreshed <- struct{}{}:
			default:
			}
			return "newaccess", "newrefresh", time.Now().Add(4 * time.Hour).UTC(), "chat:read chat:edit", nil
		})

	select {
	case <-refreshed:
	case <-time.After(5 * time.Second):
		t.Fatalf("refresher never invoked the refresh func")
	}

	// Persisted values appear shortly after the callback fires.
	deadline := time.Now().Add(5 * time.Second)
	for {
		access, refresh, _, _, err := db.GetOAuthToken(ctx, database, "twitch_refresh_test")
		if err != nil {
			t.Fatalf("GetOAuthToken error: %v", err)
		}
		if access == "newaccess" && refresh == "newrefresh" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("token row not updated: access=%q refresh=%q", access, refresh)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
