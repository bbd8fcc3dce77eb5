package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/waaaaall/snaptrack/internal/server"
	"github.com/waaaaall/snaptrack/internal/shared"
)

// DefaultAuthTimeout bounds the wait for the authorization redirect.
const DefaultAuthTimeout = 2 * time.Minute

// LoopbackPrompter implements [Prompter] with a local HTTP callback server
// and the system browser.
type LoopbackPrompter struct {
	Host        string
	Port        int
	Flow        server.Flow
	Timeout     time.Duration
	Logger      *log.Logger
	OpenBrowser func(string) error
}

// NewLoopbackPrompter creates a prompter serving the redirect at host:port.
func NewLoopbackPrompter(host string, port int, flow server.Flow, logger *log.Logger) *LoopbackPrompter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LoopbackPrompter{
		Host:        host,
		Port:        port,
		Flow:        flow,
		Timeout:     DefaultAuthTimeout,
		Logger:      logger,
		OpenBrowser: shared.OpenBrowser,
	}
}

// Prompt opens the browser at authURL and waits for exactly one redirect.
//
// Returns (nil, nil) when the wait window elapses with no redirect.
func (p *LoopbackPrompter) Prompt(ctx context.Context, authURL, state string) (*server.AuthResult, error) {
	handler := server.NewCallbackHandler(p.Flow, state)
	router := server.NewRouter()
	router.Mount(handler)

	addr := fmt.Sprintf("%s:%d", p.Host, p.Port)
	httpServer := &http.Server{Addr: addr, Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		p.Logger.Info("starting authorization callback server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			p.Logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	if err := p.OpenBrowser(authURL); err != nil {
		p.Logger.Warn("failed to open browser automatically", "error", err)
		fmt.Printf("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultAuthTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		return &result, nil
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	}
}
