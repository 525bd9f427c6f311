package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fixmasters/master-app/internal/core/ports"
)

const defaultTimeout = 15 * time.Second

// Client is the single HTTP transport for the backend. It owns the base URL,
// injects the bearer token from the token store, and converts every non-2xx
// response into a tagged domain.APIError.
type Client struct {
	base   string
	http   *http.Client
	tokens ports.TokenStore
	log    zerolog.Logger
}

// NewClient builds the transport. An empty base URL is a fatal configuration
// error: no request can be formed without it.
func NewClient(baseURL string, tokens ports.TokenStore, log zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("api: base URL is required")
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: defaultTimeout},
		tokens: tokens,
		log:    log,
	}, nil
}

type requestOpts struct {
	// noAuth skips the Authorization header (login, public reference data).
	noAuth bool
}

// doJSON performs a JSON request. body and out may be nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}, opts requestOpts) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.send(req, out, opts)
}

// doMultipart uploads files under the given form field.
func (c *Client) doMultipart(ctx context.Context, path, field string, files []ports.EvidenceFile, out interface{}) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			return fmt.Errorf("api: build multipart: %w", err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return fmt.Errorf("api: read file %q: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("api: finish multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return c.send(req, out, requestOpts{})
}

func (c *Client) send(req *http.Request, out interface{}, opts requestOpts) error {
	if !opts.noAuth {
		token, err := c.tokens.Get(req.Context())
		if err != nil {
			c.log.Warn().Err(err).Msg("token store unreadable, sending unauthenticated")
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, payload)
	}

	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("api: decode response: %w", err)
		}
	}
	return nil
}
