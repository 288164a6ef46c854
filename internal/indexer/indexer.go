// Package indexer walks a project tree, splits source files into
// line-window chunks, and tokenizes them for the search backends.
package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/rankfuse/internal/bm25"
	"github.com/Aman-CERP/rankfuse/internal/config"
)

// maxFileSize skips files larger than this (generated bundles, data dumps).
const maxFileSize = 1 << 20

// languageByExt maps file extensions to language tags.
var languageByExt = map[string]string{
	".go":    "go",
	".rs":    "rust",
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".rb":    "ruby",
	".sh":    "shell",
	".sql":   "sql",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".md":    "markdown",
	".txt":   "text",
	".proto": "protobuf",
}

// Result is the output of an indexing run.
type Result struct {
	Documents []bm25.Document
	Contents  map[string]string
	Files     int
	Skipped   int
}

// Indexer chunks and tokenizes project files.
type Indexer struct {
	chunkSize int
	include   []string
	exclude   []string
}

// New creates an indexer from the index configuration.
func New(cfg config.IndexConfig) *Indexer {
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 40
	}
	return &Indexer{
		chunkSize: chunkSize,
		include:   cfg.Include,
		exclude:   cfg.Exclude,
	}
}

// IndexDir walks root and returns tokenized document chunks for every
// indexable file. Paths in the result are relative to root.
func (ix *Indexer) IndexDir(root string) (*Result, error) {
	result := &Result{Contents: make(map[string]string)}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if rel != "." && ix.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if ix.excluded(rel) || !ix.included(rel) {
			result.Skipped++
			return nil
		}

		if _, ok := languageByExt[strings.ToLower(filepath.Ext(path))]; !ok {
			result.Skipped++
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > maxFileSize {
			result.Skipped++
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			result.Skipped++
			return nil
		}
		if !utf8.Valid(data) {
			result.Skipped++
			return nil
		}

		docs, contents := ix.ChunkFile(filepath.ToSlash(rel), string(data))
		result.Documents = append(result.Documents, docs...)
		for id, content := range contents {
			result.Contents[id] = content
		}
		result.Files++
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ChunkFile splits content into fixed line windows and tokenizes each one.
// Chunk IDs are "path#index" so they stay stable across runs.
func (ix *Indexer) ChunkFile(relPath, content string) ([]bm25.Document, map[string]string) {
	lines := strings.Split(content, "\n")
	language := languageByExt[strings.ToLower(filepath.Ext(relPath))]

	var docs []bm25.Document
	contents := make(map[string]string)

	chunkIndex := 0
	for start := 0; start < len(lines); start += ix.chunkSize {
		end := start + ix.chunkSize
		if end > len(lines) {
			end = len(lines)
		}

		chunk := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		id := fmt.Sprintf("%s#%d", relPath, chunkIndex)
		docs = append(docs, bm25.Document{
			ID:         id,
			FilePath:   relPath,
			ChunkIndex: chunkIndex,
			Tokens:     bm25.TokenizeCode(chunk),
			StartLine:  start + 1,
			EndLine:    end,
			Language:   language,
		})
		contents[id] = chunk
		chunkIndex++
	}

	return docs, contents
}

// excluded reports whether rel matches any exclude entry. Entries match
// whole path segments, so "build" does not exclude "builder.go".
func (ix *Indexer) excluded(rel string) bool {
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, pattern := range ix.exclude {
		for _, seg := range segments {
			if ok, _ := filepath.Match(pattern, seg); ok {
				return true
			}
		}
	}
	return false
}

// included reports whether rel matches the include patterns. An empty
// include list admits everything.
func (ix *Indexer) included(rel string) bool {
	if len(ix.include) == 0 {
		return true
	}
	slashed := filepath.ToSlash(rel)
	for _, pattern := range ix.include {
		if ok, _ := filepath.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, filepath.Base(slashed)); ok {
			return true
		}
	}
	return false
}
