package catalog

import (
	"encoding/json"
	"fmt"
	"os"
)

// ParseDocument decodes a catalog document from JSON.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog document: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("catalog document contains no tables")
	}
	return &doc, nil
}

// LoadDocument reads a catalog document from a JSON file.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseDocument(data)
}

// LoadSnapshot reads a catalog file and builds an immutable snapshot
// from it in one step.
func LoadSnapshot(path string) (*Snapshot, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(doc)
}
