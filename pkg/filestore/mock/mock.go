package mock

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/filestorage/fsctl/internal/devseed"
	"github.com/filestorage/fsctl/internal/httpx"
	"github.com/filestorage/fsctl/pkg/filestore"
)

// TimeLayout is the created_at format used by the service.
const TimeLayout = "2006-01-02T15:04:05"

// File is the record the service returns for a stored file.
type File struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type fileEntry struct {
	file File
	data []byte
}

// Mock implements an in-memory file store for tests and sandboxing. It
// satisfies filestore.Backend and also backs the sandbox HTTP server.
type Mock struct {
	mu     sync.RWMutex
	files  map[uint64]*fileEntry
	nextID uint64
	now    func() time.Time
}

// Option configures a Mock.
type Option func(*Mock)

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(m *Mock) {
		if now != nil {
			m.now = now
		}
	}
}

// New constructs an empty store.
func New(opts ...Option) *Mock {
	m := &Mock{
		files:  make(map[uint64]*fileEntry),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Seed loads files from seed entries, assigning ids in order.
func (m *Mock) Seed(entries []devseed.FileSeedEntry) error {
	for _, e := range entries {
		data, err := e.Data()
		if err != nil {
			return fmt.Errorf("mock filestore: %w", err)
		}
		created := e.CreatedAt
		if created != "" {
			if _, err := time.Parse(TimeLayout, created); err != nil {
				return fmt.Errorf("mock filestore: seed %q: invalid created_at %q", e.Name, created)
			}
		}
		if _, err := m.add(e.Name, data, created); err != nil {
			return err
		}
	}
	return nil
}

// Add stores data under name and returns the new record.
func (m *Mock) Add(ctx context.Context, name string, data []byte) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	return m.add(name, data, "")
}

func (m *Mock) add(name string, data []byte, created string) (File, error) {
	if strings.TrimSpace(name) == "" {
		return File{}, fmt.Errorf("mock filestore: filename is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if created == "" {
		created = m.now().UTC().Format(TimeLayout)
	}
	f := File{ID: m.nextID, Name: name, CreatedAt: created}
	m.nextID++
	m.files[f.ID] = &fileEntry{file: f, data: append([]byte(nil), data...)}
	return f, nil
}

// Files returns page of the stored files, limit per page, newest first
// (created_at then id, both descending). Pages are 1-based; page values
// below 1 select the first page.
func (m *Mock) Files(ctx context.Context, limit, page int64) ([]File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, fmt.Errorf("mock filestore: limit must be non-negative, got %d", limit)
	}
	index := max(page-1, 0)

	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]File, 0, len(m.files))
	for _, entry := range m.files {
		all = append(all, entry.file)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt > all[j].CreatedAt
		}
		return all[i].ID > all[j].ID
	})

	out := make([]File, 0)
	if limit == 0 || index > int64(len(all))/limit {
		return out, nil
	}
	for i := index * limit; i < int64(len(all)) && int64(len(out)) < limit; i++ {
		out = append(out, all[i])
	}
	return out, nil
}

// Open returns the record and content of file id.
func (m *Mock) Open(ctx context.Context, id uint64) (File, []byte, error) {
	if err := ctx.Err(); err != nil {
		return File{}, nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.files[id]
	if !ok {
		return File{}, nil, fmt.Errorf("%w: file %d", filestore.ErrNotFound, id)
	}
	return entry.file, append([]byte(nil), entry.data...), nil
}

// Remove deletes file id and returns its record.
func (m *Mock) Remove(ctx context.Context, id uint64) (File, error) {
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.files[id]
	if !ok {
		return File{}, fmt.Errorf("%w: file %d", filestore.ErrNotFound, id)
	}
	delete(m.files, id)
	return entry.file, nil
}

// Len returns the number of stored files.
func (m *Mock) Len() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.files))
}

// Upload implements filestore.Backend.
func (m *Mock) Upload(ctx context.Context, filename string, data io.Reader) (json.RawMessage, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("mock filestore: read payload: %w", err)
	}
	f, err := m.Add(ctx, filename, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(f)
}

// List implements filestore.Backend.
func (m *Mock) List(ctx context.Context, limit, page int) (json.RawMessage, error) {
	files, err := m.Files(ctx, int64(limit), int64(page))
	if err != nil {
		return nil, err
	}
	return json.Marshal(files)
}

// Delete implements filestore.Backend.
func (m *Mock) Delete(ctx context.Context, id string) (json.RawMessage, error) {
	n, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	f, err := m.Remove(ctx, n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(f)
}

// Download implements filestore.Backend, writing the content to outdir.
func (m *Mock) Download(ctx context.Context, id, outdir string) (*filestore.DownloadOutcome, error) {
	n, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	f, data, err := m.Open(ctx, n)
	if err != nil {
		return nil, err
	}
	path, err := httpx.SaveTo(outdir, filepath.Base(f.Name), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &filestore.DownloadOutcome{Saved: true, Path: path}, nil
}

// Count implements filestore.Backend.
func (m *Mock) Count(ctx context.Context) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]int64{"count": m.Len()})
}

// ParseID converts a path identifier into a file id.
func ParseID(id string) (uint64, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid file id %q", filestore.ErrArgument, id)
	}
	return n, nil
}
