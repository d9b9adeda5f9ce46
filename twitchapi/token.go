// Package twitchapi contains minimal helpers to interact with Twitch: the app
// access token source, Helix lookups used by the collector, and the OAuth
// code/refresh flows that manage the bot account's user token.
package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	twitchoauth "golang.org/x/oauth2/twitch"
)

// TokenSource fetches and caches a Twitch app access (client credentials) token.
// NOTE: This token CANNOT be used for IRC chat; chat requires a user (bot) OAuth
// token with chat:read/chat:edit scopes.
type TokenSource struct {
	ClientID     string
	ClientSecret string
	// TokenURL overrides the Twitch token endpoint, for tests.
	TokenURL string

	mu sync.Mutex
	ts oauth2.TokenSource
}

// Get returns a valid (fresh or cached) app access token. Refresh is handled
// by the underlying oauth2 client-credentials source.
func (ts *TokenSource) Get(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.ClientID == "" || ts.ClientSecret == "" {
		return "", errors.New("missing client id/secret for twitch app token")
	}
	if ts.ts == nil {
		tokenURL := ts.TokenURL
		if tokenURL == "" {
			tokenURL = twitchoauth.Endpoint.TokenURL
		}
		cfg := &clientcredentials.Config{
			ClientID:     ts.ClientID,
			ClientSecret: ts.ClientSecret,
			TokenURL:     tokenURL,
		}
		ts.ts = cfg.TokenSource(ctx)
	}
	tok, err := ts.ts.Token()
	if err != nil {
		return "", fmt.Errorf("twitch app token: %w", err)
	}
	return tok.AccessToken, nil
}
