// Package analyzer defines the language analyzer contract: each analyzer
// turns raw source text into a CodeStructure, a flat pre-order list of
// symbols plus imports and exports. Analyzers are black boxes to the rest
// of the system; whether one is a real parser or a lexical heuristic is
// invisible behind this contract.
package analyzer

import (
	"fmt"
	"time"
)

// SymbolKind classifies a symbol.
type SymbolKind string

const (
	KindNamespace SymbolKind = "namespace"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindStruct    SymbolKind = "struct"
	KindEnum      SymbolKind = "enum"
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindProperty  SymbolKind = "property"
	KindField     SymbolKind = "field"
	KindConstant  SymbolKind = "constant"
	KindVariable  SymbolKind = "variable"
	KindType      SymbolKind = "type"
)

// Symbol is one named, located code element extracted from a file.
//
// ParentIndex is an arena-style parent reference: the index of the parent
// symbol within the same CodeStructure.Symbols slice, or -1 for a top-level
// symbol. Because the slice is pre-order, a valid ParentIndex is always
// smaller than the symbol's own index, which lets the store resolve parents
// in a single pass without name matching.
type Symbol struct {
	Name          string
	Kind          SymbolKind
	StartLine     int // 1-based
	StartColumn   int // 1-based
	EndLine       int
	EndColumn     int
	Modifiers     []string
	Documentation string
	ParentIndex   int
}

// Import is an imported name with an optional alias, scoped to one file.
type Import struct {
	Name  string
	Alias string
}

// Export is an exported name with an optional alias, scoped to one file.
type Export struct {
	Name  string
	Alias string
}

// CodeStructure is the transient result of analyzing one file. It is never
// persisted as-is; the indexer maps it into store rows.
type CodeStructure struct {
	Language   string
	Symbols    []Symbol // pre-order: parent before children
	Imports    []Import
	Exports    []Export
	Metadata   map[string]string
	AnalyzedAt time.Time
}

// Analyzer extracts structure from source text of one language family.
type Analyzer interface {
	// Language returns the language identifier (e.g. "go", "python").
	Language() string
	// Extensions returns the file extensions this analyzer handles,
	// lowercase and without the leading dot.
	Extensions() []string
	// Analyze extracts the code structure from source. It returns an
	// *AnalysisError when the input cannot be analyzed.
	Analyze(source []byte) (*CodeStructure, error)
}

// AnalysisError reports unparseable input. It is recoverable: the indexer
// keeps the file's previous index entry untouched.
type AnalysisError struct {
	Language string
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analyzing %s source: %v", e.Language, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// Validate checks the pre-order invariant of a CodeStructure: every
// ParentIndex refers to an earlier symbol or is -1.
func (cs *CodeStructure) Validate() error {
	for i, sym := range cs.Symbols {
		if sym.ParentIndex >= i {
			return fmt.Errorf("symbol %q at index %d has forward parent index %d", sym.Name, i, sym.ParentIndex)
		}
		if sym.ParentIndex < -1 {
			return fmt.Errorf("symbol %q at index %d has invalid parent index %d", sym.Name, i, sym.ParentIndex)
		}
	}
	return nil
}
