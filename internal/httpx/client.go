package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/filestorage/fsctl/internal/logging"
)

// RequestIDHeader carries the per-call identifier sent with every request.
const RequestIDHeader = "X-Request-ID"

const defaultUserAgent = "fsctl"

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used by the helper.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithHeaders assigns default headers added to every request.
func WithHeaders(h http.Header) Option {
	return func(c *Client) {
		for k, values := range h {
			for _, v := range values {
				c.headers.Add(k, v)
			}
		}
	}
}

// WithTimeout bounds every request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.timeout = d
		}
	}
}

// WithLogger routes request logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if strings.TrimSpace(ua) != "" {
			c.userAgent = ua
		}
	}
}

// Client issues single, non-retried calls against a base URL.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	headers    http.Header
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger

	rc *resty.Client
}

// NewClient creates a Client for the provided base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("httpx: base URL is required")
	}

	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpx: invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("httpx: invalid base URL %q: scheme must be http or https", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("httpx: invalid base URL %q: missing host", baseURL)
	}

	c := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{},
		headers:    make(http.Header),
		userAgent:  defaultUserAgent,
		logger:     logging.Discard(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// resty sets Timeout on the client it wraps, so wrap a copy of the caller's.
	hc := *c.httpClient
	c.rc = resty.NewWithClient(&hc).
		SetBaseURL(c.baseURL.String()).
		SetTimeout(c.timeout).
		SetHeader("User-Agent", c.userAgent).
		SetLogger(restyLogger{c.logger})
	for k, values := range c.headers {
		c.rc.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), values...)
	}
	return c, nil
}

// BaseURL returns the endpoint every request path is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// GetJSON issues a GET and returns the body, which must be valid JSON.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, header http.Header) (json.RawMessage, error) {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	resp, err := c.execute(ctx, http.MethodGet, path, false, func(r *resty.Request) {
		setHeaders(r, header)
	})
	if err != nil {
		return nil, err
	}
	return c.jsonBody(http.MethodGet, path, resp)
}

// PostJSON serializes body to JSON, POSTs it and returns the JSON response.
func (c *Client) PostJSON(ctx context.Context, path string, body any, header http.Header) (json.RawMessage, error) {
	return c.withJSON(ctx, http.MethodPost, path, body, header)
}

// DeleteJSON serializes body to JSON, sends it with DELETE and returns the JSON response.
func (c *Client) DeleteJSON(ctx context.Context, path string, body any, header http.Header) (json.RawMessage, error) {
	return c.withJSON(ctx, http.MethodDelete, path, body, header)
}

// PostFile sends a multipart/form-data POST carrying a single file field.
func (c *Client) PostFile(ctx context.Context, path, field, filename string, r io.Reader) (json.RawMessage, error) {
	if strings.TrimSpace(field) == "" {
		return nil, errors.New("httpx: multipart field name is required")
	}
	resp, err := c.execute(ctx, http.MethodPost, path, false, func(req *resty.Request) {
		req.SetFileReader(field, filename, r)
	})
	if err != nil {
		return nil, err
	}
	return c.jsonBody(http.MethodPost, path, resp)
}

func (c *Client) withJSON(ctx context.Context, method, path string, body any, header http.Header) (json.RawMessage, error) {
	payload, err := jsonMarshal(body)
	if err != nil {
		return nil, fmt.Errorf("httpx: encode request body: %w", err)
	}
	resp, err := c.execute(ctx, method, path, false, func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json")
		setHeaders(r, header)
		r.SetBody(payload)
	})
	if err != nil {
		return nil, err
	}
	return c.jsonBody(method, path, resp)
}

// execute runs one request. Status codes >= 400 are reported as HTTPError
// wrapped in a TransportError. When stream is set the body is left unread and
// the caller owns resp.RawBody() on success.
func (c *Client) execute(ctx context.Context, method, path string, stream bool, prepare func(*resty.Request)) (*resty.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if method == "" {
		return nil, errors.New("httpx: HTTP method is required")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	requestID := uuid.NewString()
	req := c.rc.R().
		SetContext(ctx).
		SetHeader(RequestIDHeader, requestID).
		SetDoNotParseResponse(stream)
	if prepare != nil {
		prepare(req)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	log := c.logger.With(
		slog.String("method", method),
		slog.String("url", c.resolve(path)),
		slog.String("request_id", requestID),
		slog.Duration("elapsed", time.Since(start)),
	)
	if err != nil {
		if stream && resp != nil {
			closeBody(resp.RawBody())
		}
		log.Debug("request failed", slog.Any("error", err))
		return nil, &TransportError{Method: method, URL: c.resolve(path), Err: err}
	}

	log.Debug("request completed", slog.Int("status", resp.StatusCode()))
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, &TransportError{Method: method, URL: c.resolve(path), Err: c.handleError(resp, stream)}
	}
	return resp, nil
}

func (c *Client) jsonBody(method, path string, resp *resty.Response) (json.RawMessage, error) {
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 || !json.Valid(body) {
		return nil, &TransportError{
			Method: method,
			URL:    c.resolve(path),
			Err:    fmt.Errorf("%w (status %d, %d bytes)", ErrInvalidJSON, resp.StatusCode(), len(body)),
		}
	}
	return append(json.RawMessage(nil), body...), nil
}

func (c *Client) handleError(resp *resty.Response, stream bool) error {
	var body []byte
	if stream {
		data, err := ReadAllAndClose(resp.RawBody())
		if err != nil {
			return fmt.Errorf("httpx: read error body: %w", err)
		}
		body = data
	} else {
		body = resp.Body()
	}
	httpErr := &HTTPError{
		StatusCode: resp.StatusCode(),
		Body:       body,
		Header:     resp.Header().Clone(),
	}
	if isJSON(resp.Header().Get("Content-Type")) {
		httpErr.JSON = decodeJSONBody(body)
	}
	return httpErr
}

func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	base := *c.baseURL
	base.Path = strings.TrimRight(base.Path, "/") + ref.Path
	base.RawPath = ""
	base.RawQuery = ref.RawQuery
	return base.String()
}

func setHeaders(r *resty.Request, h http.Header) {
	for k, values := range h {
		for _, v := range values {
			r.Header.Add(k, v)
		}
	}
}

// ReadAllAndClose drains the reader and ensures it is closed.
func ReadAllAndClose(rc io.ReadCloser) ([]byte, error) {
	defer closeBody(rc)
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func closeBody(rc io.ReadCloser) {
	if rc != nil {
		_ = rc.Close()
	}
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(contentType) == "application/json"
}

func jsonMarshal(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	data := bytes.TrimRight(buf.Bytes(), "\n")
	return data, nil
}

// restyLogger forwards resty's internal messages to slog. Request errors are
// already returned to the caller, so resty's copy is only logged at debug.
type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
