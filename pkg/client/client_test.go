package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmerrifield20/synthscan/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

// capturedUpload records what the stub backend received.
type capturedUpload struct {
	path        string
	filename    string
	partType    string
	content     string
	auth        string
	requestID   string
	contentType string
}

type stubBackend struct {
	mu       sync.Mutex
	uploads  []capturedUpload
	status   int
	response string
}

func (s *stubBackend) last() capturedUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.uploads) == 0 {
		return capturedUpload{}
	}
	return s.uploads[len(s.uploads)-1]
}

func stubBackendServer(t *testing.T, status int, response string) (*httptest.Server, *stubBackend) {
	t.Helper()
	stub := &stubBackend{status: status, response: response}

	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		file, header, err := r.FormFile(client.FormField)
		if err != nil {
			http.Error(w, `{"error":"missing file"}`, http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)

		stub.mu.Lock()
		stub.uploads = append(stub.uploads, capturedUpload{
			path:        r.URL.Path,
			filename:    header.Filename,
			partType:    header.Header.Get("Content-Type"),
			content:     string(data),
			auth:        r.Header.Get("Authorization"),
			requestID:   r.Header.Get(client.RequestIDHeader),
			contentType: r.Header.Get("Content-Type"),
		})
		stub.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stub.status)
		io.WriteString(w, stub.response)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(client.ImagePath, handler)
	mux.HandleFunc(client.VideoPath, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, stub
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestNew_requiresURL(t *testing.T) {
	if _, err := client.New("  "); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestNew_trimsTrailingSlash(t *testing.T) {
	c := client.MustNew("http://localhost:8443/")
	if got := c.BaseURL(); got != "http://localhost:8443" {
		t.Errorf("BaseURL() = %q", got)
	}
}

func TestNew_rejectsNegativeTimeout(t *testing.T) {
	if _, err := client.New("http://localhost", client.WithTimeout(-time.Second)); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}

func TestOptions_doNotModifyCallerClient(t *testing.T) {
	shared := &http.Client{Timeout: 7 * time.Second}
	_, err := client.New("http://localhost",
		client.WithHTTPClient(shared),
		client.WithTimeout(time.Second),
		client.WithInsecureSkipVerify(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if shared.Timeout != 7*time.Second {
		t.Errorf("caller timeout changed to %s", shared.Timeout)
	}
	if shared.Transport != nil {
		t.Errorf("caller transport replaced with %T", shared.Transport)
	}
}

func TestInsecureTransport_keepsDefaults(t *testing.T) {
	tr := client.InsecureTransport()
	if tr.Proxy == nil {
		t.Error("expected proxy from environment to be kept")
	}
	if tr.IdleConnTimeout == 0 {
		t.Error("expected default idle timeout to be kept")
	}
	if tr.TLSClientConfig == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Error("expected certificate verification to be disabled")
	}
	if tr == http.DefaultTransport {
		t.Error("expected a clone, got the shared default transport")
	}
}

func TestWithInsecureSkipVerify_selfSignedBackend(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"verdict":"REAL"}`)
	}))
	defer srv.Close()

	if _, err := client.MustNew(srv.URL).Analyze(context.Background(), "a.png", "image/png", strings.NewReader("x")); err == nil {
		t.Fatal("expected certificate error without the option")
	}

	c := client.MustNew(srv.URL, client.WithInsecureSkipVerify())
	raw, err := c.Analyze(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if raw.Verdict == nil || *raw.Verdict != "REAL" {
		t.Errorf("verdict = %v", raw.Verdict)
	}
}

func TestMustNew_panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	client.MustNew("")
}

func TestEndpointFor(t *testing.T) {
	cases := map[string]string{
		"image/png":  client.ImagePath,
		"image/jpeg": client.ImagePath,
		"video/mp4":  client.VideoPath,
		"":           client.ImagePath,
	}
	for ct, want := range cases {
		if got := client.EndpointFor(ct); got != want {
			t.Errorf("EndpointFor(%q) = %q, want %q", ct, got, want)
		}
	}
}

func TestAnalyze_image(t *testing.T) {
	srv, stub := stubBackendServer(t, http.StatusOK,
		`{"verdict":"REAL","confidence":0.12,"processed":"iVBORw0KG","details":"ok"}`)
	c := client.MustNew(srv.URL)

	ctx := client.ContextWithRequestID(context.Background(), "req-123")
	raw, err := c.Analyze(ctx, "cat.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	got := stub.last()
	if got.path != client.ImagePath {
		t.Errorf("path = %q, want %q", got.path, client.ImagePath)
	}
	if got.filename != "cat.png" {
		t.Errorf("filename = %q", got.filename)
	}
	if got.partType != "image/png" {
		t.Errorf("part Content-Type = %q", got.partType)
	}
	if got.content != "png-bytes" {
		t.Errorf("content = %q", got.content)
	}
	if got.requestID != "req-123" {
		t.Errorf("X-Request-ID = %q", got.requestID)
	}
	if !strings.HasPrefix(got.contentType, "multipart/form-data; boundary=") {
		t.Errorf("Content-Type = %q", got.contentType)
	}
	if got.auth != "" {
		t.Errorf("unexpected Authorization header %q", got.auth)
	}

	if raw.Verdict == nil || *raw.Verdict != "REAL" {
		t.Errorf("Verdict = %v", raw.Verdict)
	}
	if raw.Confidence == nil || *raw.Confidence != 0.12 {
		t.Errorf("Confidence = %v", raw.Confidence)
	}
	if raw.Processed == nil || *raw.Processed != "iVBORw0KG" {
		t.Errorf("Processed = %v", raw.Processed)
	}
	if raw.Original != nil {
		t.Errorf("Original = %v, want nil", *raw.Original)
	}
}

func TestAnalyze_videoEndpoint(t *testing.T) {
	srv, stub := stubBackendServer(t, http.StatusOK, `{"verdict":"AI-GENERATED"}`)
	c := client.MustNew(srv.URL)

	if _, err := c.Analyze(context.Background(), "clip.mp4", "video/mp4", strings.NewReader("mp4")); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := stub.last().path; got != client.VideoPath {
		t.Errorf("path = %q, want %q", got, client.VideoPath)
	}
}

func TestAnalyze_accessToken(t *testing.T) {
	srv, stub := stubBackendServer(t, http.StatusOK, `{"verdict":"REAL"}`)
	c := client.MustNew(srv.URL, client.WithAccessToken("secret-token"))

	if _, err := c.Analyze(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("x")); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := stub.last().auth; got != "Bearer secret-token" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestAnalyze_statusError(t *testing.T) {
	srv, _ := stubBackendServer(t, http.StatusInternalServerError, `{"error":"model crashed"}`)
	c := client.MustNew(srv.URL)

	_, err := c.Analyze(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	var se *client.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d", se.StatusCode)
	}
	if !strings.Contains(se.Body, "model crashed") {
		t.Errorf("Body = %q", se.Body)
	}
}

func TestAnalyze_malformedBody(t *testing.T) {
	for _, body := range []string{`not json`, `[1,2,3]`, `null`, ``} {
		srv, _ := stubBackendServer(t, http.StatusOK, body)
		c := client.MustNew(srv.URL)

		_, err := c.Analyze(context.Background(), "a.png", "image/png", strings.NewReader("x"))
		if !errors.Is(err, client.ErrMalformedResponse) {
			t.Errorf("body %q: expected ErrMalformedResponse, got %v", body, err)
		}
	}
}

func TestAnalyze_transportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := client.MustNew(url, client.WithTimeout(2*time.Second))
	_, err := c.Analyze(context.Background(), "a.png", "image/png", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected transport error")
	}
	var se *client.StatusError
	if errors.As(err, &se) {
		t.Errorf("transport failure reported as status error: %v", err)
	}
}

func TestRawResponse_lenientFields(t *testing.T) {
	var raw client.RawResponse
	body := `{"verdict":"REAL","confidence":"n/a","details":42,"explanation":null,"original":"abc","extra":{"x":1}}`
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if raw.Confidence != nil {
		t.Errorf("Confidence = %v, want nil", *raw.Confidence)
	}
	if raw.Details != nil {
		t.Errorf("Details = %q, want nil", *raw.Details)
	}
	if raw.Explanation != nil {
		t.Errorf("Explanation = %q, want nil", *raw.Explanation)
	}
	if raw.Original == nil || *raw.Original != "abc" {
		t.Errorf("Original = %v", raw.Original)
	}
	if raw.Processed != nil {
		t.Errorf("Processed = %v, want nil", *raw.Processed)
	}
}

func TestRequestIDFromContext_empty(t *testing.T) {
	if got := client.RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext = %q", got)
	}
}
