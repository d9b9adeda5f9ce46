package server

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/subculture-collective/chatterchain/db"
	"github.com/subculture-collective/chatterchain/twitchapi"
)

// HandleTwitchOAuthStart redirects the operator to the Twitch consent screen
// for the bot account's chat scopes.
func (h *Handlers) HandleTwitchOAuthStart(w http.ResponseWriter, r *http.Request) {
	clientID := os.Getenv("TWITCH_CLIENT_ID")
	redirectURI := os.Getenv("TWITCH_REDIRECT_URI")
	scopes := os.Getenv("TWITCH_SCOPES")
	if scopes == "" {
		scopes = "chat:read chat:edit"
	}

	state := uuid.New().String()
	h.addOAuthState(state, time.Now().Add(10*time.Minute))

	authURL, err := twitchapi.BuildAuthorizeURL(clientID, redirectURI, scopes, state)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleTwitchOAuthCallback finishes the code grant and persists the bot user
// token for the collector, the bot, and the background refresher.
func (h *Handlers) HandleTwitchOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}
	state := r.URL.Query().Get("state")
	if state == "" || !h.consumeOAuthState(state) {
		http.Error(w, "invalid or expired state", http.StatusBadRequest)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	res, err := twitchapi.ExchangeAuthCode(r.Context(),
		os.Getenv("TWITCH_CLIENT_ID"),
		os.Getenv("TWITCH_CLIENT_SECRET"),
		code,
		os.Getenv("TWITCH_REDIRECT_URI"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	expiry := twitchapi.ComputeExpiry(res.ExpiresIn)
	scope := strings.Join(res.Scope, " ")
	if err := db.UpsertOAuthToken(r.Context(), h.db, "twitch", res.AccessToken, res.RefreshToken, expiry, scope); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     "authorized",
		"scope":      scope,
		"expires_at": expiry.UTC(),
	})
}
