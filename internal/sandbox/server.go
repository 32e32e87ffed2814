// Package sandbox serves the file-storage HTTP API from an in-memory store so
// the CLI can be exercised without a real service.
package sandbox

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/filestorage/fsctl/internal/logging"
	"github.com/filestorage/fsctl/pkg/filestore"
	"github.com/filestorage/fsctl/pkg/filestore/mock"
)

const (
	defaultLimit  = 100
	defaultOffset = 0
)

// FailConfig injects errors into a share of requests.
type FailConfig struct {
	Rate float64
	Code int
}

// Options tunes the sandbox behaviour.
type Options struct {
	Latency time.Duration
	Fail    FailConfig
	Logger  *slog.Logger
}

// NewRouter returns the gin engine serving store.
func NewRouter(store *mock.Mock, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))
	r.Use(inject(opts.Latency, opts.Fail))

	h := &handlers{store: store}
	r.POST("/upload", h.upload)
	r.GET("/list", h.list)
	r.GET("/file/:id", h.download)
	r.DELETE("/file/:id", h.remove)
	r.GET("/count", h.count)
	return r
}

// ParseFailConfig parses "rate=<float>,code=<status>".
func ParseFailConfig(raw string) (FailConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return FailConfig{}, nil
	}
	cfg := FailConfig{Code: http.StatusInternalServerError}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return FailConfig{}, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(key) {
		case "rate":
			f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return FailConfig{}, err
			}
			if f < 0 || f > 1 {
				return FailConfig{}, fmt.Errorf("fail rate %v out of range [0,1]", f)
			}
			cfg.Rate = f
		case "code":
			n, err := strconv.Atoi(strings.TrimSpace(val))
			if err != nil {
				return FailConfig{}, err
			}
			cfg.Code = n
		default:
			return FailConfig{}, fmt.Errorf("unknown fail key %q", key)
		}
	}
	return cfg, nil
}

func inject(delay time.Duration, fail FailConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-c.Request.Context().Done():
				c.AbortWithStatus(http.StatusServiceUnavailable)
				return
			}
		}
		if fail.Rate > 0 && rand.Float64() < fail.Rate {
			status := fail.Code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			c.String(status, "failure injected")
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Next()
		logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("request_id", requestID),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

type handlers struct {
	store *mock.Mock
}

func (h *handlers) upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "no file provided: %v", err)
		return
	}
	f, err := header.Open()
	if err != nil {
		c.String(http.StatusInternalServerError, "open upload: %v", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.String(http.StatusInternalServerError, "read upload: %v", err)
		return
	}
	rec, err := h.store.Add(c.Request.Context(), filepath.Base(header.Filename), data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) list(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultLimit)
	if err == nil && limit < 0 {
		err = fmt.Errorf("invalid limit %d", limit)
	}
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return
	}
	// offset is a 1-based page number; values below 1 mean the first page.
	offset, err := queryInt(c, "offset", defaultOffset)
	if err != nil {
		c.String(http.StatusBadRequest, "%s", err.Error())
		return
	}
	files, err := h.store.Files(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (h *handlers) download(c *gin.Context) {
	id, err := mock.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	rec, data, err := h.store.Open(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=%q", rec.Name))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

func (h *handlers) remove(c *gin.Context) {
	id, err := mock.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	rec, err := h.store.Remove(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handlers) count(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"count": h.store.Len()})
}

// writeError maps store errors the way the service does: bad ids are client
// errors, everything else, missing files included, is a server error.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, filestore.ErrArgument) {
		status = http.StatusBadRequest
	}
	c.String(status, "%s", err.Error())
}

func queryInt(c *gin.Context, key string, def int64) (int64, error) {
	raw, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}
