package store

import (
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// TextIndex is the in-memory bleve full-text index over file content and
// symbol names/documentation. It mirrors the relational tables: one
// document per indexed file, replaced whole on every re-index.
type TextIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// textDocument is the bleve document for one file.
type textDocument struct {
	Content  string `json:"content"`
	Symbols  string `json:"symbols"` // symbol names + documentation
	Path     string `json:"path"`
	Language string `json:"language"`
}

// NewTextIndex creates an empty in-memory text index.
func NewTextIndex() (*TextIndex, error) {
	idx, err := bleve.NewMemOnly(buildTextMapping())
	if err != nil {
		return nil, fmt.Errorf("creating text index: %w", err)
	}
	return &TextIndex{index: idx}, nil
}

func buildTextMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false // content lives in the files table
	contentField.IncludeInAll = true
	docMapping.AddFieldMappingsAt("content", contentField)

	symbolsField := bleve.NewTextFieldMapping()
	symbolsField.Store = false
	symbolsField.IncludeInAll = true
	docMapping.AddFieldMappingsAt("symbols", symbolsField)

	pathField := bleve.NewTextFieldMapping()
	pathField.Store = true
	pathField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathField)

	langField := bleve.NewKeywordFieldMapping()
	langField.Store = true
	langField.IncludeInAll = false
	docMapping.AddFieldMappingsAt("language", langField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// UpsertFileText replaces the full-text document for a file.
func (ti *TextIndex) UpsertFileText(path, content, language, symbolText string) error {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	doc := textDocument{
		Content:  content,
		Symbols:  symbolText,
		Path:     path,
		Language: language,
	}
	if err := ti.index.Index(path, doc); err != nil {
		return fmt.Errorf("indexing text of %s: %w", path, err)
	}
	return nil
}

// DeleteFileText removes a file's full-text document.
func (ti *TextIndex) DeleteFileText(path string) error {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	if err := ti.index.Delete(path); err != nil {
		return fmt.Errorf("removing text of %s: %w", path, err)
	}
	return nil
}

// Query runs a prepared bleve search request.
func (ti *TextIndex) Query(req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return ti.index.Search(req)
}

// DocumentCount returns the number of full-text documents.
func (ti *TextIndex) DocumentCount() uint64 {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	count, _ := ti.index.DocCount()
	return count
}

// Clear recreates the index empty.
func (ti *TextIndex) Clear() error {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	if err := ti.index.Close(); err != nil {
		return fmt.Errorf("closing old text index: %w", err)
	}
	fresh, err := bleve.NewMemOnly(buildTextMapping())
	if err != nil {
		return fmt.Errorf("recreating text index: %w", err)
	}
	ti.index = fresh
	return nil
}

// Close closes the underlying bleve index.
func (ti *TextIndex) Close() error {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.index.Close()
}
