package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authorization errors
	ErrAuthCancelled       = fmt.Errorf("authorization cancelled by user")
	ErrAuthFailed          = fmt.Errorf("authorization failed")
	ErrNoRedirectURL       = fmt.Errorf("no redirect received from authorization server")
	ErrInvalidAuthResponse = fmt.Errorf("authorization response missing expected parameter")
	ErrInvalidToken        = fmt.Errorf("token exchange returned an invalid token")

	// Pipeline errors
	ErrCaptureFailed      = fmt.Errorf("audio capture failed")
	ErrRecognitionTimeout = fmt.Errorf("recognition timed out")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrNoRecognition      = fmt.Errorf("no track recognized")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrAddToPlaylist      = fmt.Errorf("failed to add track to playlist")

	// Input validation errors
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrMissingArgument    = fmt.Errorf("missing required argument")
	ErrInvalidArgument    = fmt.Errorf("invalid argument")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
)
