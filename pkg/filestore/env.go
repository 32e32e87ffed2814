package filestore

import (
	"fmt"
	"os"
	"strings"

	"github.com/filestorage/fsctl/internal/httpx"
)

const (
	// EnvAPIURL names the environment variable holding the service endpoint.
	EnvAPIURL = "FILESTORE_API_URL"
	// DefaultBaseURL is the endpoint used when none is configured.
	DefaultBaseURL = "http://localhost:8181"
)

// NewFromEnv initialises a client for the endpoint in FILESTORE_API_URL,
// falling back to DefaultBaseURL.
func NewFromEnv(opts ...httpx.Option) (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv(EnvAPIURL))
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client, err := New(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("filestore: init HTTP client: %w", err)
	}
	return client, nil
}
