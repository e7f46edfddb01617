// Package client is the Go SDK for the media-authenticity detection backend.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Backend endpoints, selected by the declared media category.
const (
	ImagePath = "/analyze_image"
	VideoPath = "/analyze_video"
)

// FormField is the multipart field the backend reads the upload from.
const FormField = "file"

// RequestIDHeader carries the caller's correlation id.
const RequestIDHeader = "X-Request-ID"

// maxResponseBytes bounds the reply; base64 previews can be large.
const maxResponseBytes = 32 << 20

// ErrMalformedResponse is returned when a 2xx reply is not a JSON object.
var ErrMalformedResponse = errors.New("malformed analysis response")

// StatusError reports a non-2xx reply from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analysis backend returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("analysis backend returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to one detection backend.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
}

// Option is a functional option for configuring a Client.
type Option func(*Client) error

// WithHTTPClient sets a custom http.Client, overriding TLS and timeout options
// applied before it. Options applied after it work on a copy, so hc itself
// is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.httpClient = hc
		return nil
	}
}

// WithTimeout bounds each analysis call end to end. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("negative timeout %s", d)
		}
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
		return nil
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
// Only use this against a development backend with a self-signed cert.
func WithInsecureSkipVerify() Option {
	return func(c *Client) error {
		hc := *c.httpClient
		hc.Transport = InsecureTransport()
		c.httpClient = &hc
		return nil
	}
}

// InsecureTransport clones http.DefaultTransport with certificate
// verification disabled, keeping its proxy and dial settings.
func InsecureTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	return t
}

// WithAccessToken attaches a static bearer token to every request.
func WithAccessToken(token string) Option {
	return func(c *Client) error {
		c.accessToken = token
		return nil
	}
}

// New creates a Client for the backend at baseURL.
//
//	c, err := client.New("https://detector.example.com:8443",
//	    client.WithTimeout(2*time.Minute),
//	)
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend URL is required")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	if c.accessToken != "" {
		c.httpClient = wrapWithToken(c.httpClient, c.accessToken)
	}
	return c, nil
}

// MustNew is like New but panics on error. Useful in tests and program init.
func MustNew(baseURL string, opts ...Option) *Client {
	c, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// EndpointFor returns the backend path for a declared media type.
func EndpointFor(contentType string) string {
	if strings.HasPrefix(contentType, "video/") {
		return VideoPath
	}
	return ImagePath
}

// Analyze uploads one file and returns the backend's reply as-is.
//
// The body is streamed as a multipart form with a single part named "file"
// whose Content-Type is the declared type. A request id stored in ctx with
// ContextWithRequestID is forwarded in the X-Request-ID header.
func (c *Client) Analyze(ctx context.Context, name, contentType string, body io.Reader) (*RawResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, name, contentType, body))
	}()

	url := c.baseURL + EndpointFor(contentType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if id := RequestIDFromContext(ctx); id != "" {
		req.Header.Set(RequestIDHeader, id)
	}

	respBytes, err := c.do(req)
	pr.Close()
	if err != nil {
		return nil, err
	}

	return DecodeRawResponse(respBytes)
}

func writeForm(mw *multipart.Writer, name, contentType string, body io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FormField, escapeQuotes(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return fmt.Errorf("write form part: %w", err)
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

// do executes an HTTP request and returns the body of a 2xx reply.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// wrapWithToken returns a copy of hc whose transport adds a bearer token.
func wrapWithToken(hc *http.Client, token string) *http.Client {
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   base,
	}
	return &wrapped
}

type requestIDKey struct{}

// ContextWithRequestID stores a correlation id for Analyze to forward.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
