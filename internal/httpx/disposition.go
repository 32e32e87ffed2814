package httpx

import (
	"mime"
	"path/filepath"
	"strings"
)

const filenameAttr = "filename="

// FilenameFromDisposition extracts the target filename from a
// Content-Disposition header value. Well-formed values (RFC 6266, including
// RFC 2231 extended parameters) go through mime.ParseMediaType. Values it
// rejects fall back to the service's quoting convention: the quoted text
// following "filename=". An unquoted value runs up to the next ';'.
//
// The result is reduced to a base name so it can never escape the output
// directory. ok is false when no usable name is present.
func FilenameFromDisposition(value string) (name string, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}

	if _, params, err := mime.ParseMediaType(value); err == nil {
		if fn, found := params["filename"]; found {
			return cleanFilename(fn)
		}
	}

	idx := strings.Index(strings.ToLower(value), filenameAttr)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimSpace(value[idx+len(filenameAttr):])
	if rest == "" {
		return "", false
	}
	if q := rest[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(rest[1:], q)
		if end < 0 {
			return "", false
		}
		return cleanFilename(rest[1 : end+1])
	}
	if semi := strings.IndexByte(rest, ';'); semi >= 0 {
		rest = rest[:semi]
	}
	return cleanFilename(rest)
}

func cleanFilename(fn string) (string, bool) {
	fn = strings.TrimSpace(strings.ReplaceAll(fn, `\`, "/"))
	if fn == "" {
		return "", false
	}
	base := filepath.Base(filepath.FromSlash(fn))
	switch base {
	case ".", "..", string(filepath.Separator):
		return "", false
	}
	return base, true
}
