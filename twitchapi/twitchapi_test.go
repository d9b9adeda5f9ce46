package twitchapi

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/subculture-collective/chatterchain/testutil"
)

func TestBuildAuthorizeURL(t *testing.T) {
	got, err := BuildAuthorizeURL("cid", "http://localhost/cb", "chat:read,chat:edit", "state123")
	if err != nil {
		t.Fatalf("BuildAuthorizeURL error: %v", err)
	}
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "cid" || q.Get("response_type") != "code" {
		t.Errorf("query = %v", q)
	}
	if q.Get("scope") != "chat:read chat:edit" {
		t.Errorf("scope = %q, want comma replaced with space", q.Get("scope"))
	}
	if q.Get("state") != "state123" {
		t.Errorf("state = %q", q.Get("state"))
	}
}

func TestBuildAuthorizeURLMissingParams(t *testing.T) {
	if _, err := BuildAuthorizeURL("", "http://localhost/cb", "", ""); err == nil {
		t.Errorf("expected error for empty client id")
	}
}

func TestComputeExpiry(t *testing.T) {
	exp := ComputeExpiry(3600)
	if d := time.Until(exp); d < 59*time.Minute || d > 61*time.Minute {
		t.Errorf("expiry %v not ~1h out", d)
	}
	exp = ComputeExpiry(0)
	if d := time.Until(exp); d < 59*time.Minute || d > 61*time.Minute {
		t.Errorf("default expiry %v not ~1h out", d)
	}
}

func TestTokenSourceGet(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("apptoken123", 3600)

	ts := &TokenSource{ClientID: "cid", ClientSecret: "secret", TokenURL: mock.URL + "/oauth2/token"}
	tok, err := ts.Get(context.Background())
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if tok != "apptoken123" {
		t.Errorf("token = %q, want apptoken123", tok)
	}

	// Second call must serve from cache without error.
	tok2, err := ts.Get(context.Background())
	if err != nil || tok2 != tok {
		t.Errorf("cached Get = %q, %v", tok2, err)
	}
}

func TestTokenSourceMissingCreds(t *testing.T) {
	ts := &TokenSource{}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Errorf("expected error with missing client id/secret")
	}
}

func TestHelixGetUserID(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("apptoken123", 3600)
	mock.MockUserResponse("42", "somechan")

	hc := &HelixClient{
		AppTokenSource: &TokenSource{ClientID: "cid", ClientSecret: "secret", TokenURL: mock.URL + "/oauth2/token"},
		ClientID:       "cid",
		BaseURL:        mock.URL + "/helix",
	}
	id, err := hc.GetUserID(context.Background(), "somechan")
	if err != nil {
		t.Fatalf("GetUserID error: %v", err)
	}
	if id != "42" {
		t.Errorf("id = %q, want 42", id)
	}
}

func TestHelixGetStreams(t *testing.T) {
	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("apptoken123", 3600)
	started := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	mock.MockStreamsResponse([]map[string]interface{}{
		{"id": "s1", "title": "playing games", "started_at": started.Format(time.RFC3339)},
	})

	hc := &HelixClient{
		AppTokenSource: &TokenSource{ClientID: "cid", ClientSecret: "secret", TokenURL: mock.URL + "/oauth2/token"},
		ClientID:       "cid",
		BaseURL:        mock.URL + "/helix",
	}
	streams, err := hc.GetStreams(context.Background(), "somechan")
	if err != nil {
		t.Fatalf("GetStreams error: %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("streams = %v, want 1", streams)
	}
	if streams[0].ID != "s1" || !streams[0].StartedAt.Equal(started) {
		t.Errorf("stream = %+v", streams[0])
	}
	if !strings.Contains(streams[0].Title, "games") {
		t.Errorf("title = %q", streams[0].Title)
	}
}
