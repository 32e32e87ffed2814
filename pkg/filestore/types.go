package filestore

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/filestorage/fsctl/internal/fsapi"
	"github.com/filestorage/fsctl/internal/httpx"
)

// Field is one key/value pair of a service record.
type Field = fsapi.Field

// Record is one JSON object returned by the service, fields in response order.
type Record []Field

// Keys returns the record keys in response order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for _, f := range r {
		keys = append(keys, f.Key)
	}
	return keys
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// UploadResult describes a newly stored file.
type UploadResult struct {
	Record Record
	Raw    json.RawMessage
}

// FileListing is one page of stored files.
type FileListing struct {
	Records []Record
	Raw     json.RawMessage
	Limit   int
	Page    int
}

// DeleteResult confirms the deletion of a file.
type DeleteResult struct {
	Record Record
	Raw    json.RawMessage
}

// DownloadOutcome reports where downloaded content was written. Saved is
// false, with an empty Path, when the service named no file to write.
type DownloadOutcome struct {
	Saved bool
	Path  string
}

// Message renders the outcome for humans.
func (o *DownloadOutcome) Message() string {
	if o == nil || !o.Saved {
		return "Failed to download file"
	}
	return "File saved in " + o.Path
}

// CountResult holds the number of stored files.
type CountResult struct {
	Count int64
	Raw   json.RawMessage
}

// Record returns the count as a single-field record.
func (c *CountResult) Record() Record {
	return Record{{Key: "count", Value: json.Number(strconv.FormatInt(c.Count, 10))}}
}

// TransportError is returned for every network, HTTP status or decoding failure.
type TransportError = httpx.TransportError

var (
	// ErrArgument reports a missing or invalid argument, detected before any
	// network activity.
	ErrArgument = errors.New("filestore: invalid argument")
	// ErrNotFound indicates the requested file is missing.
	ErrNotFound = errors.New("filestore: not found")
)
