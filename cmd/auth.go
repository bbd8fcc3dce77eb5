package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/waaaaall/snaptrack/internal/shared"
)

// AuthLogin acquires a Spotify credential, opening the browser when nothing
// usable is cached.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	tokenSource, err := r.ensureAuth()
	if err != nil {
		return err
	}

	if cmd.Bool("force") {
		if err := r.tokens.Clear(); err != nil {
			return fmt.Errorf("failed to discard cached credential: %w", err)
		}
		r.logger.Info("cached credential discarded")
	}

	if _, err := tokenSource.EnsureToken(ctx); err != nil {
		return err
	}

	cred, err := r.tokens.Load()
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if cred != nil {
		r.writePlain("✓ Token valid until %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
	}
	r.writePlain("\nYou can now use: snaptrack snap\n")
	return nil
}

// authStatus is the JSON shape for auth status output.
type authStatus struct {
	Authenticated bool   `json:"authenticated"`
	Refreshable   bool   `json:"refreshable"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// AuthStatus reports the cached credential's state without any network call.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")

	if err := r.openDatabase(); err != nil {
		return err
	}

	cred, err := r.tokens.Load()
	if err != nil {
		return err
	}

	status := authStatus{}
	if cred != nil {
		status.Authenticated = cred.Valid(time.Now())
		status.Refreshable = cred.RefreshToken != ""
		status.ExpiresAt = cred.ExpiresAt.Format(time.RFC3339)
	}

	if useJSON {
		return r.writeJSON(status, true)
	}

	switch {
	case cred == nil:
		r.writePlain("✗ Not authenticated (no cached credential)\n")
		r.writePlain("Run 'snaptrack auth login' to authorize.\n")
	case status.Authenticated:
		r.writePlain("✓ Authenticated\n")
		r.writePlain("Token valid until %s\n", cred.ExpiresAt.Local().Format(time.RFC1123))
	case status.Refreshable:
		r.writePlain("⚠ Token expired; it will refresh on next use\n")
	default:
		r.writePlain("✗ Token expired\n")
		r.writePlain("Run 'snaptrack auth login' to reauthorize.\n")
	}

	return nil
}

// AuthLogout discards the cached credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.openDatabase(); err != nil {
		return err
	}

	if err := r.tokens.Clear(); err != nil {
		return fmt.Errorf("%w: failed to discard credential: %v", shared.ErrAuthFailed, err)
	}

	r.writePlain("✓ Logged out\n")
	return nil
}
