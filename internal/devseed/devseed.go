// Package devseed loads seed files describing the files a sandbox store
// starts with.
package devseed

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileSeedEntry describes one stored file. Exactly one of Content (text) or
// Base64 (binary) carries the payload; CreatedAt is optional.
type FileSeedEntry struct {
	Name      string `yaml:"name" json:"name"`
	Content   string `yaml:"content,omitempty" json:"content,omitempty"`
	Base64    string `yaml:"base64,omitempty" json:"base64,omitempty"`
	CreatedAt string `yaml:"created_at,omitempty" json:"created_at,omitempty"`
}

// Data returns the decoded payload of the entry.
func (e FileSeedEntry) Data() ([]byte, error) {
	if e.Base64 != "" {
		data, err := base64.StdEncoding.DecodeString(e.Base64)
		if err != nil {
			return nil, fmt.Errorf("devseed: decode base64 for %q: %w", e.Name, err)
		}
		return data, nil
	}
	return []byte(e.Content), nil
}

type fileSeed struct {
	Files []FileSeedEntry `yaml:"files"`
}

// LoadFileSeed reads a YAML (or JSON) seed file. The document is either a
// list of entries or a mapping with a "files" list.
func LoadFileSeed(path string) ([]FileSeedEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	return ParseFileSeed(raw)
}

// ParseFileSeed decodes seed entries from raw YAML or JSON.
func ParseFileSeed(raw []byte) ([]FileSeedEntry, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, fmt.Errorf("devseed: parse seed: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var entries []FileSeedEntry
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("devseed: decode seed list: %w", err)
		}
	case yaml.MappingNode:
		var doc fileSeed
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("devseed: decode seed document: %w", err)
		}
		entries = doc.Files
	default:
		return nil, fmt.Errorf("devseed: seed must be a list or a mapping with a files key")
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("devseed: entry %d is missing a name", i)
		}
		if e.Content != "" && e.Base64 != "" {
			return nil, fmt.Errorf("devseed: entry %q sets both content and base64", e.Name)
		}
	}
	return entries, nil
}
