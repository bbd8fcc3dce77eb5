package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/waaaaall/snaptrack/internal/models"
	"github.com/waaaaall/snaptrack/internal/server"
	"github.com/waaaaall/snaptrack/internal/shared"
)

// memStore is an in-memory TokenStore double.
type memStore struct {
	cred  *models.Credential
	saves int
}

func (s *memStore) Load() (*models.Credential, error) {
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *memStore) Save(cred models.Credential) error {
	s.cred = &cred
	s.saves++
	return nil
}

func (s *memStore) Clear() error {
	s.cred = nil
	return nil
}

// fakePrompter is a Prompter double returning a canned redirect result.
type fakePrompter struct {
	result *server.AuthResult
	err    error
	calls  int
}

func (p *fakePrompter) Prompt(ctx context.Context, authURL, state string) (*server.AuthResult, error) {
	p.calls++
	return p.result, p.err
}

// failRoundTripper fails the test if any network call is made.
type failRoundTripper struct {
	t *testing.T
}

func (f *failRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	f.t.Errorf("unexpected network call to %s", r.URL)
	return nil, errors.New("unexpected network call")
}

func testConfig() *shared.Config {
	cfg := shared.DefaultConfig()
	cfg.Credentials.Spotify.ClientID = "client_id"
	cfg.Credentials.Spotify.ClientSecret = "client_secret"
	cfg.Credentials.Spotify.RedirectURI = "http://127.0.0.1:3000/callback"
	cfg.Credentials.Spotify.Flow = "code"
	return cfg
}

func newTestManager(t *testing.T, tokens *memStore, prompter Prompter, client *http.Client) *Manager {
	t.Helper()
	m, err := NewManager(testConfig(), tokens, prompter, client, shared.NewLogger(nil))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m
}

func TestEnsureToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Fast Path Issues No Network Call", func(t *testing.T) {
		tokens := &memStore{cred: &models.Credential{
			AccessToken: "cached",
			ExpiresAt:   now.Add(time.Hour),
		}}
		prompter := &fakePrompter{}
		client := &http.Client{Transport: &failRoundTripper{t: t}}

		m := newTestManager(t, tokens, prompter, client)
		m.now = func() time.Time { return now }

		token, err := m.EnsureToken(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "cached" {
			t.Errorf("expected cached token, got %s", token)
		}
		if prompter.calls != 0 {
			t.Error("prompter should not run for a valid cached credential")
		}
		if tokens.saves != 0 {
			t.Error("nothing should be persisted on the fast path")
		}
	})

	t.Run("Refresh Grant", func(t *testing.T) {
		t.Run("Success Retains Prior Refresh Token", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
					t.Errorf("expected refresh_token grant, got %s", got)
				}
				if got := r.PostForm.Get("refresh_token"); got != "old_refresh" {
					t.Errorf("expected refresh token old_refresh, got %s", got)
				}
				if user, _, ok := r.BasicAuth(); !ok || user != "client_id" {
					t.Error("expected Basic auth with client id")
				}
				w.Header().Set("Content-Type", "application/json")
				// refresh responses may omit refresh_token
				w.Write([]byte(`{"access_token":"fresh","expires_in":3600}`))
			}))
			defer srv.Close()

			tokens := &memStore{cred: &models.Credential{
				AccessToken:  "stale",
				RefreshToken: "old_refresh",
				ExpiresAt:    now.Add(-time.Minute),
			}}
			prompter := &fakePrompter{}

			m := newTestManager(t, tokens, prompter, srv.Client())
			m.config.Endpoint.TokenURL = srv.URL
			m.now = func() time.Time { return now }

			token, err := m.EnsureToken(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token != "fresh" {
				t.Errorf("expected refreshed token, got %s", token)
			}
			if prompter.calls != 0 {
				t.Error("interactive flow should not run when refresh succeeds")
			}
			if tokens.cred.RefreshToken != "old_refresh" {
				t.Errorf("expected prior refresh token retained, got %s", tokens.cred.RefreshToken)
			}
			if !tokens.cred.ExpiresAt.Equal(now.Add(time.Hour)) {
				t.Errorf("unexpected expiry %v", tokens.cred.ExpiresAt)
			}
		})

		t.Run("Failure Falls Through To Interactive Flow", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.ParseForm() == nil && r.PostForm.Get("grant_type") == "refresh_token" {
					http.Error(w, "invalid_grant", http.StatusBadRequest)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"access_token":"via_code","refresh_token":"r2","expires_in":3600}`))
			}))
			defer srv.Close()

			tokens := &memStore{cred: &models.Credential{
				AccessToken:  "stale",
				RefreshToken: "dead_refresh",
				ExpiresAt:    now.Add(-time.Minute),
			}}
			prompter := &fakePrompter{result: &server.AuthResult{Kind: server.ResultCode, Code: "authcode"}}

			m := newTestManager(t, tokens, prompter, srv.Client())
			m.config.Endpoint.TokenURL = srv.URL
			m.now = func() time.Time { return now }

			token, err := m.EnsureToken(ctx)
			if err != nil {
				t.Fatalf("expected fall-through to succeed, got %v", err)
			}
			if token != "via_code" {
				t.Errorf("expected token from code exchange, got %s", token)
			}
			if prompter.calls != 1 {
				t.Errorf("expected exactly one interactive prompt, got %d", prompter.calls)
			}
		})
	})

	t.Run("Interactive Flow", func(t *testing.T) {
		t.Run("No Redirect", func(t *testing.T) {
			tokens := &memStore{}
			prompter := &fakePrompter{result: nil}

			m := newTestManager(t, tokens, prompter, http.DefaultClient)
			m.now = func() time.Time { return now }

			_, err := m.EnsureToken(ctx)
			if !errors.Is(err, shared.ErrNoRedirectURL) {
				t.Errorf("expected ErrNoRedirectURL, got %v", err)
			}
		})

		t.Run("Context Cancellation Propagates", func(t *testing.T) {
			tokens := &memStore{}
			prompter := &fakePrompter{err: context.Canceled}

			m := newTestManager(t, tokens, prompter, http.DefaultClient)
			m.now = func() time.Time { return now }

			_, err := m.EnsureToken(ctx)
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
			if errors.Is(err, shared.ErrNoRedirectURL) {
				t.Error("cancellation must not be reported as a missing redirect")
			}
		})

		t.Run("Cancelled Persists Nothing", func(t *testing.T) {
			tokens := &memStore{}
			prompter := &fakePrompter{result: &server.AuthResult{Kind: server.ResultCancelled}}

			m := newTestManager(t, tokens, prompter, http.DefaultClient)
			m.now = func() time.Time { return now }

			_, err := m.EnsureToken(ctx)
			if !errors.Is(err, shared.ErrAuthCancelled) {
				t.Errorf("expected ErrAuthCancelled, got %v", err)
			}
			if tokens.saves != 0 || tokens.cred != nil {
				t.Error("no credential should be persisted after cancellation")
			}
		})

		t.Run("Invalid Response", func(t *testing.T) {
			tokens := &memStore{}
			prompter := &fakePrompter{result: &server.AuthResult{Kind: server.ResultInvalid, Detail: "missing code"}}

			m := newTestManager(t, tokens, prompter, http.DefaultClient)

			_, err := m.EnsureToken(ctx)
			if !errors.Is(err, shared.ErrInvalidAuthResponse) {
				t.Errorf("expected ErrInvalidAuthResponse, got %v", err)
			}
		})

		t.Run("Code Exchange Non-2xx", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "invalid_client", http.StatusUnauthorized)
			}))
			defer srv.Close()

			tokens := &memStore{}
			prompter := &fakePrompter{result: &server.AuthResult{Kind: server.ResultCode, Code: "bad"}}

			m := newTestManager(t, tokens, prompter, srv.Client())
			m.config.Endpoint.TokenURL = srv.URL

			_, err := m.EnsureToken(ctx)
			if !errors.Is(err, shared.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
			if tokens.saves != 0 {
				t.Error("failed exchange must not persist a credential")
			}
		})

		t.Run("Implicit Token Without Expiry", func(t *testing.T) {
			tokens := &memStore{}
			prompter := &fakePrompter{result: &server.AuthResult{Kind: server.ResultToken, AccessToken: "tok", ExpiresIn: 0}}

			m := newTestManager(t, tokens, prompter, http.DefaultClient)

			_, err := m.EnsureToken(ctx)
			if !errors.Is(err, shared.ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})

		t.Run("Implicit Token Persists Credential", func(t *testing.T) {
			tokens := &memStore{}
			prompter := &fakePrompter{result: &server.AuthResult{Kind: server.ResultToken, AccessToken: "tok", ExpiresIn: 3600}}

			m := newTestManager(t, tokens, prompter, http.DefaultClient)
			m.now = func() time.Time { return now }

			token, err := m.EnsureToken(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if token != "tok" {
				t.Errorf("expected tok, got %s", token)
			}
			if tokens.cred == nil || !tokens.cred.ExpiresAt.Equal(now.Add(time.Hour)) {
				t.Errorf("expected persisted credential with expiry, got %+v", tokens.cred)
			}
		})
	})

	t.Run("Round Trip After Acquisition", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"acquired","refresh_token":"r1","expires_in":3600}`))
		}))
		defer srv.Close()

		tokens := &memStore{}
		prompter := &fakePrompter{result: &server.AuthResult{Kind: server.ResultCode, Code: "authcode"}}

		m := newTestManager(t, tokens, prompter, srv.Client())
		m.config.Endpoint.TokenURL = srv.URL
		m.now = func() time.Time { return now }

		first, err := m.EnsureToken(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Re-read before expiry: same token, no prompt, no network.
		m.httpClient = &http.Client{Transport: &failRoundTripper{t: t}}
		second, err := m.EnsureToken(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first != second || second != "acquired" {
			t.Errorf("expected identical access token on re-read, got %s / %s", first, second)
		}
		if prompter.calls != 1 {
			t.Errorf("expected a single interactive prompt, got %d", prompter.calls)
		}
	})
}

func TestLoopbackPrompter(t *testing.T) {
	t.Run("Cancelled Context Returns The Context Error", func(t *testing.T) {
		prompter := NewLoopbackPrompter("127.0.0.1", 0, server.FlowCode, shared.NewLogger(nil))
		prompter.OpenBrowser = func(string) error { return nil }

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := prompter.Prompt(ctx, "http://example.test/authorize", "st")
		if result != nil {
			t.Errorf("expected no result, got %+v", result)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestAuthURL(t *testing.T) {
	t.Run("Code Flow", func(t *testing.T) {
		m := newTestManager(t, &memStore{}, &fakePrompter{}, http.DefaultClient)
		u := m.AuthURL("st")
		for _, want := range []string{"response_type=code", "client_id=client_id", "state=st"} {
			if !strings.Contains(u, want) {
				t.Errorf("auth URL missing %q: %s", want, u)
			}
		}
	})

	t.Run("Token Flow", func(t *testing.T) {
		cfg := testConfig()
		cfg.Credentials.Spotify.Flow = "token"
		m, err := NewManager(cfg, &memStore{}, &fakePrompter{}, http.DefaultClient, nil)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		u := m.AuthURL("st")
		if !strings.Contains(u, "response_type=token") {
			t.Errorf("auth URL missing implicit response type: %s", u)
		}
	})
}
