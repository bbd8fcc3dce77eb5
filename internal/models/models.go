// package models defines the data model for the recognition pipeline
package models

import (
	"fmt"
	"time"
)

// Credential is the OAuth access/refresh token pair used to authenticate
// Spotify calls. Exactly one live Credential exists at a time; it is replaced
// whole by a successful authorization or refresh exchange, never patched.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the credential is usable at the given instant.
//
// Expiry is checked against the wall clock before every use, never assumed.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// Track is an identified song. At most one "current" Track exists per
// pipeline run; it is set by successful recognition and cleared on failure.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

func (t Track) String() string {
	return fmt.Sprintf("%s - %s", t.Title, t.Artist)
}

// Playlist is a Spotify playlist as returned by the listing endpoint.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
}

// Recognition is one terminal pipeline outcome, persisted as history.
type Recognition struct {
	ID         string    `json:"id"`
	Track      Track     `json:"track"`
	TrackURI   string    `json:"track_uri,omitempty"`
	PlaylistID string    `json:"playlist_id,omitempty"`
	Stage      string    `json:"stage"`
	Failure    string    `json:"failure,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
