package sandbox_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filestorage/fsctl/internal/sandbox"
	"github.com/filestorage/fsctl/pkg/filestore/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newStore(t *testing.T) *mock.Mock {
	t.Helper()
	return mock.New(mock.WithClock(func() time.Time {
		return time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, name, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadListDownloadDelete(t *testing.T) {
	store := newStore(t)
	r := sandbox.NewRouter(store, sandbox.Options{})

	w := serve(r, multipartUpload(t, "notes.txt", "hello"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"name":"notes.txt","created_at":"2022-01-02T03:04:05"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/list", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":1,"name":"notes.txt","created_at":"2022-01-02T03:04:05"}]`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/file/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment;filename="notes.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, "hello", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/count", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodDelete, "/file/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"name":"notes.txt","created_at":"2022-01-02T03:04:05"}`, w.Body.String())
	assert.Zero(t, store.Len())
}

func TestListPagination(t *testing.T) {
	store := newStore(t)
	r := sandbox.NewRouter(store, sandbox.Options{})
	for _, name := range []string{"a", "b", "c"} {
		require.Equal(t, http.StatusOK, serve(r, multipartUpload(t, name, name)).Code)
	}

	names := func(target string) []string {
		t.Helper()
		w := serve(r, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, w.Code, target)
		var files []mock.File
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &files))
		out := make([]string, 0, len(files))
		for _, f := range files {
			out = append(out, f.Name)
		}
		return out
	}

	assert.Equal(t, []string{"c", "b", "a"}, names("/list"))
	assert.Equal(t, []string{"c"}, names("/list?limit=1&offset=1"))
	assert.Equal(t, []string{"b"}, names("/list?limit=1&offset=2"))
	assert.Equal(t, []string{"a"}, names("/list?limit=1&offset=3"))
	assert.Equal(t, []string{}, names("/list?limit=1&offset=4"))
	assert.Equal(t, []string{"c", "b"}, names("/list?limit=2&offset=0"))
	assert.Equal(t, []string{"c", "b"}, names("/list?limit=2&offset=-5"))
}

func TestErrorStatuses(t *testing.T) {
	r := sandbox.NewRouter(newStore(t), sandbox.Options{})

	cases := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"non-numeric id", http.MethodGet, "/file/abc", http.StatusBadRequest},
		{"missing file", http.MethodGet, "/file/99", http.StatusInternalServerError},
		{"delete missing", http.MethodDelete, "/file/99", http.StatusInternalServerError},
		{"negative limit", http.MethodGet, "/list?limit=-1", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/list?limit=x", http.StatusBadRequest},
		{"bad offset", http.MethodGet, "/list?offset=x", http.StatusBadRequest},
		{"upload without file", http.MethodPost, "/upload", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, httptest.NewRequest(tc.method, tc.target, nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestFailureInjection(t *testing.T) {
	r := sandbox.NewRouter(newStore(t), sandbox.Options{Fail: sandbox.FailConfig{Rate: 1, Code: http.StatusServiceUnavailable}})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/count", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "failure injected", w.Body.String())
}

func TestParseFailConfig(t *testing.T) {
	cfg, err := sandbox.ParseFailConfig("")
	require.NoError(t, err)
	assert.Equal(t, sandbox.FailConfig{}, cfg)

	cfg, err = sandbox.ParseFailConfig("rate=0.25, code=502")
	require.NoError(t, err)
	assert.Equal(t, sandbox.FailConfig{Rate: 0.25, Code: 502}, cfg)

	cfg, err = sandbox.ParseFailConfig("rate=0.5")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, cfg.Code)

	for _, raw := range []string{"rate", "rate=x", "rate=2", "code=abc", "speed=1"} {
		_, err := sandbox.ParseFailConfig(raw)
		assert.Error(t, err, raw)
	}
}
