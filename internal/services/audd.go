// AudD recognition API implementation of [Recognizer]
//
// https://docs.audd.io/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/waaaaall/snaptrack/internal/models"
	"github.com/waaaaall/snaptrack/internal/shared"
)

const auddEndpoint = "https://api.audd.io/"

// DefaultRecognitionTimeout bounds one recognition request.
const DefaultRecognitionTimeout = 20 * time.Second

// auddResponse is the recognition API's JSON envelope.
//
// Result is null when the service answered but matched nothing; that is a
// distinct outcome from an error.
type auddResponse struct {
	Status string `json:"status"`
	Result *struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
	} `json:"result"`
	Error *struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"error"`
}

// AudDClient implements [Recognizer] against the AudD recognition API.
type AudDClient struct {
	Endpoint   string
	apiToken   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *log.Logger
}

// NewAudDClient creates a recognition client with the given API token.
func NewAudDClient(apiToken string, timeout time.Duration, httpClient *http.Client, logger *log.Logger) *AudDClient {
	if timeout <= 0 {
		timeout = DefaultRecognitionTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AudDClient{
		Endpoint:   auddEndpoint,
		apiToken:   apiToken,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Recognize submits the clip as a multipart upload and returns the match.
//
// A request that outlives the timeout fails with ErrRecognitionTimeout; a
// successful response with a null result fails with ErrNoRecognition.
func (c *AudDClient) Recognize(ctx context.Context, clip []byte) (*models.Track, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	if err := form.WriteField("api_token", c.apiToken); err != nil {
		return nil, fmt.Errorf("failed to build recognition request: %w", err)
	}
	if err := form.WriteField("return", "spotify"); err != nil {
		return nil, fmt.Errorf("failed to build recognition request: %w", err)
	}

	part, err := form.CreateFormFile("file", "audio.webm")
	if err != nil {
		return nil, fmt.Errorf("failed to build recognition request: %w", err)
	}
	if _, err := part.Write(clip); err != nil {
		return nil, fmt.Errorf("failed to build recognition request: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build recognition request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create recognition request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	c.logger.Debug("submitting clip for recognition", "bytes", len(clip))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, shared.ErrRecognitionTimeout
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: recognition service returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var parsed auddResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// The deadline can also expire mid-body; that is still a timeout,
		// not a transport error.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, shared.ErrRecognitionTimeout
		}
		return nil, fmt.Errorf("%w: failed to decode recognition response: %v", shared.ErrAPIRequest, err)
	}

	if parsed.Status != "success" {
		detail := "unknown error"
		if parsed.Error != nil {
			detail = fmt.Sprintf("%d - %s", parsed.Error.ErrorCode, parsed.Error.ErrorMessage)
		}
		return nil, fmt.Errorf("%w: %s", shared.ErrAPIRequest, detail)
	}

	if parsed.Result == nil {
		return nil, shared.ErrNoRecognition
	}

	track := &models.Track{
		Title:  parsed.Result.Title,
		Artist: parsed.Result.Artist,
	}
	c.logger.Info("track recognized", "track", track.String())
	return track, nil
}
