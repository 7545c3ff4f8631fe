// Package detector talks to the remote vehicle and plate detection service.
// It only moves bytes: the response body is handed back undecoded so the
// caller can validate it.
package detector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	detectPath   = "/detect"
	formField    = "file"
	maxBodyBytes = 64 << 20
	maxErrorBody = 512
)

// StatusError is returned for non-2xx answers.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("detector returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("detector returned HTTP %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "detector").Logger(),
	}
}

// Detect uploads one image as multipart field "file" and returns the raw
// response body.
func (c *Client) Detect(ctx context.Context, filename string, image io.Reader) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	part, err := form.CreateFormFile(formField, filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	size, err := io.Copy(part, image)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+detectPath, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read detector response: %w", err)
	}

	c.log.Debug().
		Str("file", filename).
		Int64("upload_bytes", size).
		Int("status", resp.StatusCode).
		Int("response_bytes", len(data)).
		Dur("took", time.Since(start)).
		Msg("detector call finished")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: snippet}
	}

	return data, nil
}
