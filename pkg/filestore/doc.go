// Package filestore exposes a client for the file-storage service.
// It covers the service's REST routes: /upload, /list, /file/{id} (GET and
// DELETE) and /count. Each operation issues exactly one HTTP call; there is no
// retry, caching or client-side state between calls.
package filestore
