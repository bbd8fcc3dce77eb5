// package server contains the loopback HTTP surface for the OAuth redirect
package server

import (
	"net/http"
)

// Handler is an [http.Handler] that knows which paths it serves.
type Handler interface {
	http.Handler
	Routes() []string
}
