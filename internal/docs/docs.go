// Package docs reads a user's uploaded documents from disk and aggregates
// them into a bounded excerpt for prompt inclusion.
package docs

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// DefaultMaxChars bounds the aggregated excerpt length.
const DefaultMaxChars = 5000

// FileStore keeps each user's documents under root/<user_id>/.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Save writes an uploaded document. The filename is flattened to its base so
// path segments in uploads cannot escape the user's directory.
func (s *FileStore) Save(userID, filename string, contents []byte) error {
	dir := filepath.Join(s.root, userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create documents dir: %w", err)
	}
	name := filepath.Base(filename)
	if err := os.WriteFile(filepath.Join(dir, name), contents, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Excerpt returns the concatenated text of the user's documents, each
// rendered as "name:\ncontent" and joined by blank lines, truncated to
// maxChars. No documents yields "". Unreadable files are skipped.
func (s *FileStore) Excerpt(userID string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	dir := filepath.Join(s.root, userID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		text, ok := s.readDocument(filepath.Join(dir, name))
		if !ok {
			continue
		}
		parts = append(parts, name+":\n"+text)
	}

	aggregated := strings.Join(parts, "\n\n")
	// The budget counts characters, not bytes; slicing bytes could split a
	// rune and leak invalid UTF-8 into prompts.
	if runes := []rune(aggregated); len(runes) > maxChars {
		aggregated = string(runes[:maxChars])
	}
	return aggregated
}

func (s *FileStore) readDocument(path string) (string, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", false
		}
		return strings.TrimSpace(string(data)), true
	case ".html", ".htm":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", false
		}
		article, err := readability.FromReader(bytes.NewReader(data), &url.URL{Scheme: "file", Path: path})
		if err != nil {
			return "", false
		}
		return strings.TrimSpace(article.TextContent), true
	default:
		// Other formats are stored but never surfaced in prompts.
		return "", false
	}
}
