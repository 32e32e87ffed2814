package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/filestorage/fsctl/internal/fsapi"
	"github.com/filestorage/fsctl/internal/httpx"
)

const (
	routeUpload = "/upload"
	routeList   = "/list"
	routeFile   = "/file/"
	routeCount  = "/count"

	uploadField = "file"
)

// Client provides access to the file-storage service.
type Client struct {
	backend Backend
	baseURL string
}

// New constructs an HTTP-backed client.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithHTTPClient(cl), nil
}

// NewWithHTTPClient wraps an existing httpx.Client.
func NewWithHTTPClient(httpClient *httpx.Client) *Client {
	return &Client{backend: &httpBackend{client: httpClient}, baseURL: httpClient.BaseURL()}
}

// NewWithBackend allows callers to provide a custom backend (e.g., mocks).
func NewWithBackend(b Backend) *Client {
	return &Client{backend: b}
}

// Upload stores the file at filePath via a multipart POST to /upload. The
// file is sent under its base name and closed before Upload returns.
func (c *Client) Upload(ctx context.Context, filePath string) (*UploadResult, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("%w: file path is required", ErrArgument)
	}
	if err := c.check(); err != nil {
		return nil, err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("filestore: open upload file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("filestore: stat upload file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("filestore: upload file %s is a directory", filePath)
	}

	raw, err := c.backend.Upload(ctx, filepath.Base(filePath), f)
	if err != nil {
		return nil, err
	}
	rec, err := c.decodeRecord(http.MethodPost, routeUpload, raw)
	if err != nil {
		return nil, err
	}
	return &UploadResult{Record: rec, Raw: raw}, nil
}

// List returns one page of stored files. limit and page are sent as the
// limit and offset query parameters without client-side validation.
func (c *Client) List(ctx context.Context, limit, page int) (*FileListing, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	raw, err := c.backend.List(ctx, limit, page)
	if err != nil {
		return nil, err
	}
	objects, err := fsapi.DecodeObjects(raw)
	if err != nil {
		return nil, c.decodeError(http.MethodGet, routeList, err)
	}
	records := make([]Record, 0, len(objects))
	for _, obj := range objects {
		records = append(records, Record(obj))
	}
	return &FileListing{Records: records, Raw: raw, Limit: limit, Page: page}, nil
}

// Delete removes the file identified by id. The client keeps no state, so
// deleting the same id twice returns whatever the service answers.
func (c *Client) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrArgument)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	raw, err := c.backend.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	rec, err := c.decodeRecord(http.MethodDelete, filePath(id), raw)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{Record: rec, Raw: raw}, nil
}

// Get downloads the content of file id into outdir. An empty outdir means
// the working directory.
func (c *Client) Get(ctx context.Context, id, outdir string) (*DownloadOutcome, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", ErrArgument)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.backend.Download(ctx, id, outdir)
}

// Count returns the number of stored files.
func (c *Client) Count(ctx context.Context) (*CountResult, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	raw, err := c.backend.Count(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := c.decodeRecord(http.MethodGet, routeCount, raw)
	if err != nil {
		return nil, err
	}
	value, ok := rec.Get("count")
	if !ok {
		return nil, c.decodeError(http.MethodGet, routeCount, errors.New("filestore: count missing from response"))
	}
	n, err := toInt64(value)
	if err != nil {
		return nil, c.decodeError(http.MethodGet, routeCount, err)
	}
	return &CountResult{Count: n, Raw: raw}, nil
}

func (c *Client) check() error {
	if c == nil || c.backend == nil {
		return fmt.Errorf("filestore: client is nil")
	}
	return nil
}

func (c *Client) decodeRecord(method, route string, raw json.RawMessage) (Record, error) {
	fields, err := fsapi.DecodeObject(raw)
	if err != nil {
		return nil, c.decodeError(method, route, err)
	}
	return Record(fields), nil
}

func (c *Client) decodeError(method, route string, err error) error {
	return &TransportError{Method: method, URL: c.baseURL + route, Err: err}
}

func filePath(id string) string {
	return routeFile + url.PathEscape(id)
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("filestore: invalid count %q: %w", n.String(), err)
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("filestore: invalid count %q: %w", n, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("filestore: invalid count %v", v)
	}
}

// Backend performs the service calls behind Client. Implementations return
// the raw JSON bodies; Client validates and decodes them.
type Backend interface {
	Upload(ctx context.Context, filename string, data io.Reader) (json.RawMessage, error)
	List(ctx context.Context, limit, page int) (json.RawMessage, error)
	Delete(ctx context.Context, id string) (json.RawMessage, error)
	Download(ctx context.Context, id, outdir string) (*DownloadOutcome, error)
	Count(ctx context.Context) (json.RawMessage, error)
}

type httpBackend struct {
	client *httpx.Client
}

func (b *httpBackend) Upload(ctx context.Context, filename string, data io.Reader) (json.RawMessage, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("filestore: http backend not configured")
	}
	return b.client.PostFile(ctx, routeUpload, uploadField, filename, data)
}

func (b *httpBackend) List(ctx context.Context, limit, page int) (json.RawMessage, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("filestore: http backend not configured")
	}
	query := url.Values{
		"limit":  []string{strconv.Itoa(limit)},
		"offset": []string{strconv.Itoa(page)},
	}
	return b.client.GetJSON(ctx, routeList, query, nil)
}

func (b *httpBackend) Delete(ctx context.Context, id string) (json.RawMessage, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("filestore: http backend not configured")
	}
	return b.client.DeleteJSON(ctx, filePath(id), map[string]string{"id": id}, nil)
}

func (b *httpBackend) Download(ctx context.Context, id, outdir string) (*DownloadOutcome, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("filestore: http backend not configured")
	}
	saved, path, err := b.client.Download(ctx, filePath(id), outdir, nil)
	if err != nil {
		return nil, err
	}
	return &DownloadOutcome{Saved: saved, Path: path}, nil
}

func (b *httpBackend) Count(ctx context.Context) (json.RawMessage, error) {
	if b == nil || b.client == nil {
		return nil, fmt.Errorf("filestore: http backend not configured")
	}
	return b.client.GetJSON(ctx, routeCount, nil, nil)
}
