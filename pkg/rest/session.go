// Package rest provides the thin HTTP session shared by the gerrit and
// github change sources: base request plumbing, credentials, an optional
// TLS-verification toggle, JSON decoding, and Link-header pagination.
package rest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Sentinel errors callers branch on.
var (
	// ErrNotFound is returned for HTTP 404 responses. A 404 on a PR listing
	// is a recoverable per-project skip, so it gets its own sentinel.
	ErrNotFound = errors.New("resource not found")

	// ErrUnexpectedStatus is returned for any other non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")
)

// Options configures a Session. At most one credential form is used: basic
// credentials when Username is set, otherwise a bearer token when set.
type Options struct {
	Username    string
	Password    string
	BearerToken string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// Timeout bounds each request. Zero selects the default.
	Timeout time.Duration

	Logger *slog.Logger

	// ObserveRequest, when non-nil, is called with the elapsed wall time of
	// every completed request.
	ObserveRequest func(ctx context.Context, elapsed time.Duration)
}

// Session is a thin wrapper over [http.Client]. It issues one request at a
// time; callers drive pagination themselves.
type Session struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// NewSession creates a session from the given options.
func NewSession(opts Options) *Session {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport

	if opts.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // explicit operator opt-in
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Session{
		client: &http.Client{Transport: transport, Timeout: timeout},
		opts:   opts,
		logger: logger,
	}
}

// Get issues a GET request and returns the raw body and response headers.
// HTTP 404 maps to ErrNotFound; other non-2xx statuses map to
// ErrUnexpectedStatus. Transport errors propagate unchanged.
func (s *Session) Get(ctx context.Context, rawURL string, query url.Values) ([]byte, http.Header, error) {
	requestURL := rawURL
	if len(query) > 0 {
		requestURL = rawURL + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request %s: %w", rawURL, err)
	}

	s.applyCredentials(req)

	startedAt := time.Now()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if s.opts.ObserveRequest != nil {
		s.opts.ObserveRequest(ctx, time.Since(startedAt))
	}

	s.logger.Debug("GET", "url", requestURL, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound {
		return nil, resp.Header, fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, resp.Header, fmt.Errorf("%w: %d on %s", ErrUnexpectedStatus, resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, fmt.Errorf("read response body %s: %w", rawURL, err)
	}

	return body, resp.Header, nil
}

// GetJSON issues a GET request and decodes the JSON body into out.
// A body that fails to decode is fatal for the current gather.
func (s *Session) GetJSON(ctx context.Context, rawURL string, query url.Values, out any) (http.Header, error) {
	body, header, err := s.Get(ctx, rawURL, query)
	if err != nil {
		return header, err
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return header, fmt.Errorf("decode response %s: %w", rawURL, err)
	}

	return header, nil
}

func (s *Session) applyCredentials(req *http.Request) {
	switch {
	case s.opts.Username != "":
		req.SetBasicAuth(s.opts.Username, s.opts.Password)
	case s.opts.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+s.opts.BearerToken)
	}
}

// NextLink extracts the rel="next" URL from an RFC 5988 Link header.
// It returns the empty string when no next page is advertised.
func NextLink(header http.Header) string {
	for _, raw := range header.Values("Link") {
		for _, part := range strings.Split(raw, ",") {
			urlPart, params, found := strings.Cut(part, ";")
			if !found {
				continue
			}

			if !strings.Contains(params, `rel="next"`) {
				continue
			}

			urlPart = strings.TrimSpace(urlPart)
			urlPart = strings.TrimPrefix(urlPart, "<")
			urlPart = strings.TrimSuffix(urlPart, ">")

			return urlPart
		}
	}

	return ""
}
