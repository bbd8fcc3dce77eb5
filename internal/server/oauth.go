package server

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
)

// Flow selects which redirect shape the callback handler expects.
// A deployment supports exactly one; the handler rejects the other.
type Flow string

const (
	FlowCode  Flow = "code"  // authorization code in the redirect query
	FlowToken Flow = "token" // access token in the redirect fragment (implicit grant)
)

// ResultKind tags the outcome of one authorization redirect.
type ResultKind int

const (
	ResultCode      ResultKind = iota // authorization code received
	ResultToken                       // access token + expiry received
	ResultCancelled                   // user denied the prompt
	ResultInvalid                     // redirect arrived without the expected parameter
)

// AuthResult is the sum type delivered when the redirect lands.
//
// Code is set for [ResultCode]; AccessToken and ExpiresIn for [ResultToken].
// The absence of any redirect (timeout) is the caller's to detect — the
// handler only reports redirects that actually arrived.
type AuthResult struct {
	Kind        ResultKind
	Code        string
	AccessToken string
	ExpiresIn   int
	Detail      string
}

// CallbackHandler handles the OAuth redirect for both grant shapes.
// Implements the Handler interface for registration with a Router.
type CallbackHandler struct {
	flow        Flow
	state       string
	resultChan  chan AuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a callback handler expecting the given flow and state token.
// The state token should be cryptographically random for CSRF protection.
func NewCallbackHandler(flow Flow, state string) *CallbackHandler {
	return &CallbackHandler{
		flow:       flow,
		state:      state,
		resultChan: make(chan AuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP handles the OAuth redirect request.
//
// For the implicit grant the token lives in the URL fragment, which the
// browser never sends to the server; the first request gets a relay page
// that re-requests /callback with the fragment parameters as a query string.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// The implicit-grant relay request carries no parameters at all.
	if h.flow == FlowToken && len(q) == 0 {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, fragmentRelayPage)
		return
	}

	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	if errParam := q.Get("error"); errParam != "" {
		if errParam == "access_denied" {
			h.Send(AuthResult{Kind: ResultCancelled})
			h.respond(w, "Authorization cancelled", "You can close this window.")
			return
		}
		h.Send(AuthResult{Kind: ResultInvalid, Detail: fmt.Sprintf("%s - %s", errParam, q.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	if state := q.Get("state"); state != h.state {
		h.Send(AuthResult{Kind: ResultInvalid, Detail: "state mismatch"})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	switch h.flow {
	case FlowToken:
		token := q.Get("access_token")
		expires := q.Get("expires_in")
		if token == "" {
			h.Send(AuthResult{Kind: ResultInvalid, Detail: "missing access_token"})
			http.Error(w, "Missing access token", http.StatusBadRequest)
			return
		}

		expiresIn, err := strconv.Atoi(expires)
		if err != nil || expiresIn <= 0 {
			h.Send(AuthResult{Kind: ResultToken, AccessToken: token, ExpiresIn: 0, Detail: "missing or non-numeric expires_in"})
			http.Error(w, "Invalid expiry", http.StatusBadRequest)
			return
		}

		h.Send(AuthResult{Kind: ResultToken, AccessToken: token, ExpiresIn: expiresIn})

	default:
		code := q.Get("code")
		if code == "" {
			h.Send(AuthResult{Kind: ResultInvalid, Detail: "missing code"})
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
			return
		}
		h.Send(AuthResult{Kind: ResultCode, Code: code})
	}

	h.respond(w, "✓ Authorization Successful", "You can close this window and return to the terminal.")
}

// Send sends the redirect result through the channel (only once).
func (h *CallbackHandler) Send(result AuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving the redirect outcome.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan AuthResult {
	return h.resultChan
}

func (h *CallbackHandler) respond(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `
<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
</body>
</html>
`, title, title, body)
}

// fragmentRelayPage turns the redirect fragment into a query string so the
// loopback server can see the implicit-grant parameters.
const fragmentRelayPage = `
<!DOCTYPE html>
<html>
<head><title>Completing authorization…</title></head>
<body>
<script>
  var h = window.location.hash;
  if (h && h.length > 1) {
    window.location.replace("/callback?" + h.substring(1));
  } else {
    window.location.replace("/callback?error=invalid_response");
  }
</script>
</body>
</html>
`
