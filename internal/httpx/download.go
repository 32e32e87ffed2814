package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-resty/resty/v2"
)

// Download GETs path and stores the body under outdir using the filename from
// the Content-Disposition header. It reports saved=false with an empty path
// when the response names no usable file; I/O failures are returned as errors.
func (c *Client) Download(ctx context.Context, path, outdir string, header http.Header) (saved bool, fullPath string, err error) {
	resp, err := c.execute(ctx, http.MethodGet, path, true, func(r *resty.Request) {
		setHeaders(r, header)
	})
	if err != nil {
		return false, "", err
	}
	body := resp.RawBody()
	defer closeBody(body)

	name, ok := FilenameFromDisposition(resp.Header().Get("Content-Disposition"))
	if !ok {
		c.logger.Warn("download response carries no filename",
			"url", c.resolve(path),
			"content_disposition", resp.Header().Get("Content-Disposition"),
		)
		return false, "", nil
	}

	fullPath, err = SaveTo(outdir, name, body)
	if err != nil {
		return false, "", err
	}
	return true, fullPath, nil
}

// SaveTo writes r to <outdir>/<name>. outdir is made absolute (empty means the
// working directory) and created if missing; a failure to create it shows up
// when the file itself is created. A partially written file is removed.
func SaveTo(outdir, name string, r io.Reader) (string, error) {
	dir, err := filepath.Abs(outdir)
	if err != nil {
		return "", fmt.Errorf("httpx: resolve output directory %q: %w", outdir, err)
	}
	_ = os.MkdirAll(dir, 0o755)

	fullPath := filepath.Join(dir, name)
	f, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("httpx: create %s: %w", fullPath, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("httpx: write %s: %w", fullPath, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("httpx: close %s: %w", fullPath, err)
	}
	return fullPath, nil
}
