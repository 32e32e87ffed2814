package mock_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filestorage/fsctl/internal/devseed"
	"github.com/filestorage/fsctl/pkg/filestore"
	"github.com/filestorage/fsctl/pkg/filestore/mock"
)

func fixedClock() time.Time {
	return time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
}

func TestMockAddOpenRemove(t *testing.T) {
	m := mock.New(mock.WithClock(fixedClock))
	ctx := context.Background()

	f, err := m.Add(ctx, "a.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, mock.File{ID: 1, Name: "a.txt", CreatedAt: "2021-03-04T05:06:07"}, f)

	got, data, err := m.Open(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f, got)
	assert.Equal(t, "hello", string(data))

	removed, err := m.Remove(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f, removed)

	_, err = m.Remove(ctx, f.ID)
	assert.ErrorIs(t, err, filestore.ErrNotFound)
	_, _, err = m.Open(ctx, f.ID)
	assert.ErrorIs(t, err, filestore.ErrNotFound)
	assert.Zero(t, m.Len())
}

func TestMockFilesPagination(t *testing.T) {
	m := mock.New(mock.WithClock(fixedClock))
	ctx := context.Background()
	for _, name := range []string{"1", "2", "3", "4", "5"} {
		_, err := m.Add(ctx, name+".txt", nil)
		require.NoError(t, err)
	}

	ids := func(files []mock.File) []uint64 {
		out := make([]uint64, 0, len(files))
		for _, f := range files {
			out = append(out, f.ID)
		}
		return out
	}

	cases := []struct {
		limit, page int64
		want        []uint64
	}{
		{2, 1, []uint64{5, 4}},
		{2, 2, []uint64{3, 2}},
		{2, 3, []uint64{1}},
		{2, 4, []uint64{}},
		{2, 0, []uint64{5, 4}},
		{2, -3, []uint64{5, 4}},
		{10, 1, []uint64{5, 4, 3, 2, 1}},
		{0, 1, []uint64{}},
		{1, 1 << 62, []uint64{}},
	}
	for _, tc := range cases {
		page, err := m.Files(ctx, tc.limit, tc.page)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ids(page), "limit=%d page=%d", tc.limit, tc.page)
	}

	_, err := m.Files(ctx, -1, 1)
	assert.Error(t, err)
}

func TestMockFilesOrdersByCreatedAt(t *testing.T) {
	m := mock.New()
	require.NoError(t, m.Seed([]devseed.FileSeedEntry{
		{Name: "new.txt", CreatedAt: "2024-01-01T00:00:00"},
		{Name: "old.txt", CreatedAt: "2019-01-01T00:00:00"},
		{Name: "mid.txt", CreatedAt: "2021-01-01T00:00:00"},
	}))

	files, err := m.Files(context.Background(), 10, 1)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "new.txt", files[0].Name)
	assert.Equal(t, "mid.txt", files[1].Name)
	assert.Equal(t, "old.txt", files[2].Name)
}

func TestMockSeed(t *testing.T) {
	m := mock.New()
	err := m.Seed([]devseed.FileSeedEntry{
		{Name: "seed.txt", Content: "seeded", CreatedAt: "2019-12-31T23:59:59"},
		{Name: "bin.dat", Base64: "AAE="},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.Len())

	f, data, err := m.Open(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2019-12-31T23:59:59", f.CreatedAt)
	assert.Equal(t, "seeded", string(data))

	err = m.Seed([]devseed.FileSeedEntry{{Name: "bad.txt", CreatedAt: "yesterday"}})
	assert.Error(t, err)
}

func TestMockAsBackend(t *testing.T) {
	m := mock.New(mock.WithClock(fixedClock))
	client := filestore.NewWithBackend(m)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("remember"), 0o644))

	up, err := client.Upload(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "created_at"}, up.Record.Keys())
	assert.JSONEq(t, `{"id":1,"name":"notes.txt","created_at":"2021-03-04T05:06:07"}`, string(up.Raw))

	listing, err := client.List(ctx, 100, 1)
	require.NoError(t, err)
	require.Len(t, listing.Records, 1)

	count, err := client.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count.Count)

	outdir := filepath.Join(t.TempDir(), "out")
	outcome, err := client.Get(ctx, "1", outdir)
	require.NoError(t, err)
	assert.True(t, outcome.Saved)
	assert.Equal(t, "File saved in "+filepath.Join(outdir, "notes.txt"), outcome.Message())

	del, err := client.Delete(ctx, "1")
	require.NoError(t, err)
	name, _ := del.Record.Get("name")
	assert.Equal(t, "notes.txt", name)

	_, err = client.Delete(ctx, "1")
	assert.True(t, errors.Is(err, filestore.ErrNotFound))

	_, err = client.Get(ctx, "abc", outdir)
	assert.ErrorIs(t, err, filestore.ErrArgument)
}

func TestMockContextCancelled(t *testing.T) {
	m := mock.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Upload(ctx, "x.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
	_, err = m.Count(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
