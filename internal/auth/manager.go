// package auth owns the OAuth credential lifecycle: cache, refresh, and the
// interactive browser-mediated authorization flow.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/waaaaall/snaptrack/internal/models"
	"github.com/waaaaall/snaptrack/internal/server"
	"github.com/waaaaall/snaptrack/internal/shared"
	"github.com/waaaaall/snaptrack/internal/store"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes cover playlist read/modify for both public and private playlists.
var scopes = []string{
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
}

// Prompter runs the interactive, browser-mediated authorization flow and
// waits for the redirect to land on the loopback server.
//
// A nil result with a nil error means no redirect arrived at all.
type Prompter interface {
	Prompt(ctx context.Context, authURL, state string) (*server.AuthResult, error)
}

// Manager owns the single live [models.Credential].
//
// EnsureToken is the only entry point; it checks the cached credential first,
// then the refresh grant, then the interactive flow, persisting only on a
// successful acquisition.
type Manager struct {
	config     *oauth2.Config
	flow       server.Flow
	tokens     store.TokenStore
	prompter   Prompter
	httpClient *http.Client
	logger     *log.Logger
	now        func() time.Time
}

// NewManager creates a credential manager for the configured Spotify app.
func NewManager(cfg *shared.Config, tokens store.TokenStore, prompter Prompter, httpClient *http.Client, logger *log.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	flow := server.Flow(cfg.Credentials.Spotify.Flow)
	if flow == "" {
		flow = server.FlowCode
	}

	config := &oauth2.Config{
		ClientID:     cfg.Credentials.Spotify.ClientID,
		ClientSecret: cfg.Credentials.Spotify.ClientSecret,
		RedirectURL:  cfg.Credentials.Spotify.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &Manager{
		config:     config,
		flow:       flow,
		tokens:     tokens,
		prompter:   prompter,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// EnsureToken returns a usable access token.
//
// Order matters: the cached credential is checked before any network call;
// an expired credential with a refresh token is refreshed; refresh failure
// silently degrades to the interactive flow. Interactive failure is terminal
// for this invocation — it is never retried here, to avoid repeated prompts.
func (m *Manager) EnsureToken(ctx context.Context) (string, error) {
	cred, err := m.tokens.Load()
	if err != nil {
		return "", err
	}

	if cred != nil && cred.Valid(m.now()) {
		return cred.AccessToken, nil
	}

	if cred != nil && cred.RefreshToken != "" {
		refreshed, err := m.refresh(ctx, cred)
		if err == nil {
			return refreshed.AccessToken, nil
		}
		m.logger.Warn("token refresh failed, falling back to authorization", "error", err)
	}

	acquired, err := m.authorize(ctx)
	if err != nil {
		return "", err
	}

	return acquired.AccessToken, nil
}

// refresh performs the refresh-token grant and persists the result.
//
// Spotify may omit the refresh token from the response; the prior one is
// retained so the next expiry can still refresh.
func (m *Manager) refresh(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
	}

	resp, err := m.tokenRequest(ctx, form)
	if err != nil {
		return nil, err
	}

	next := models.Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}

	if err := m.tokens.Save(next); err != nil {
		return nil, err
	}

	m.logger.Info("credential refreshed", "expires_at", next.ExpiresAt)
	return &next, nil
}

// authorize runs the interactive flow for the configured grant shape.
func (m *Manager) authorize(ctx context.Context) (*models.Credential, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	result, err := m.prompter.Prompt(ctx, m.AuthURL(state), state)
	if err != nil {
		// Caller-initiated cancellation is not a redirect timeout.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrNoRedirectURL, err)
	}
	if result == nil {
		return nil, shared.ErrNoRedirectURL
	}

	switch result.Kind {
	case server.ResultCancelled:
		return nil, shared.ErrAuthCancelled

	case server.ResultInvalid:
		return nil, fmt.Errorf("%w: %s", shared.ErrInvalidAuthResponse, result.Detail)

	case server.ResultToken:
		if result.ExpiresIn <= 0 {
			return nil, fmt.Errorf("%w: %s", shared.ErrInvalidToken, result.Detail)
		}
		cred := models.Credential{
			AccessToken: result.AccessToken,
			ExpiresAt:   m.now().Add(time.Duration(result.ExpiresIn) * time.Second),
		}
		if err := m.tokens.Save(cred); err != nil {
			return nil, err
		}
		return &cred, nil

	case server.ResultCode:
		return m.exchange(ctx, result.Code)

	default:
		return nil, fmt.Errorf("%w: unknown redirect result", shared.ErrInvalidAuthResponse)
	}
}

// exchange trades an authorization code for a credential at the token endpoint.
func (m *Manager) exchange(ctx context.Context, code string) (*models.Credential, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {m.config.RedirectURL},
	}

	resp, err := m.tokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidToken, err)
	}

	cred := models.Credential{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}

	if err := m.tokens.Save(cred); err != nil {
		return nil, err
	}

	m.logger.Info("credential acquired", "expires_at", cred.ExpiresAt)
	return &cred, nil
}

// tokenResponse is the token endpoint's JSON body for both grant types.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// tokenRequest POSTs a form-encoded grant to the token endpoint with the
// client credentials in a Basic auth header.
func (m *Manager) tokenRequest(ctx context.Context, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	req.SetBasicAuth(m.config.ClientID, m.config.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}

	return &body, nil
}

// AuthURL builds the authorization URL for the configured grant shape.
func (m *Manager) AuthURL(state string) string {
	if m.flow == server.FlowToken {
		q := url.Values{
			"client_id":     {m.config.ClientID},
			"response_type": {"token"},
			"redirect_uri":  {m.config.RedirectURL},
			"scope":         {strings.Join(scopes, " ")},
			"state":         {state},
		}
		return m.config.Endpoint.AuthURL + "?" + q.Encode()
	}
	return m.config.AuthCodeURL(state)
}

// Flow returns the configured grant shape.
func (m *Manager) Flow() server.Flow {
	return m.flow
}
