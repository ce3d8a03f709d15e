package fluvius

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// noFollowKey marks requests whose redirect response must be returned to the
// caller instead of being followed, so the Location header can be inspected.
type noFollowKey struct{}

// Response captures everything a flow step needs from an HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// FinalURL is the URL the response was ultimately served from, after any
	// followed redirects.
	FinalURL *url.URL
}

// Session is the HTTP context of a single login attempt. It carries a cookie
// jar across the flow steps and enforces a timeout on every call. A session
// must never be shared between attempts: the provider's cookies encode
// single-use transaction identifiers.
type Session struct {
	client *http.Client
}

// NewSession builds a fresh session on top of the given client. The client's
// transport is reused; jar and redirect policy are private to the session.
func NewSession(base *http.Client, timeout time.Duration) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	client := &http.Client{
		Timeout: timeout,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if req.Context().Value(noFollowKey{}) != nil {
				return http.ErrUseLastResponse
			}
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}
	if base != nil {
		client.Transport = base.Transport
	}
	return &Session{client: client}, nil
}

// Get issues a GET with the given query parameters. When follow is false a
// redirect response is returned as-is with its Location header intact.
func (s *Session) Get(ctx context.Context, rawURL string, query url.Values, follow bool) (*Response, error) {
	if !follow {
		ctx = context.WithValue(ctx, noFollowKey{}, true)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json")
	return s.do(req)
}

// PostForm issues a form-encoded POST with optional extra headers.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values, headers http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	return s.do(req)
}

func (s *Session) do(req *http.Request) (*Response, error) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		FinalURL:   resp.Request.URL,
	}, nil
}
