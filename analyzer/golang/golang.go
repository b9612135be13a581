// Package golang provides a lexical analyzer for Go source files. It scans
// line by line with small regexes rather than parsing; this is good enough
// for structural indexing and keeps the analyzer dependency-free.
package golang

import (
	"regexp"
	"strings"
	"time"

	"github.com/symdex/symdex-mcp/analyzer"
)

// Analyzer extracts types, functions, methods, constants and variables
// from Go source. Methods are nested under their receiver type regardless
// of declaration order; a method seen before its type is held back and
// emitted right after the type's declaration.
type Analyzer struct{}

// New creates a Go analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Language() string { return "go" }

func (a *Analyzer) Extensions() []string { return []string{"go"} }

var (
	packageRe = regexp.MustCompile(`^package\s+(\w+)`)
	typeRe    = regexp.MustCompile(`^type\s+(\w+)(?:\[[^\]]*\])?\s+(struct|interface|\S+)`)
	funcRe    = regexp.MustCompile(`^func\s+(\w+)\s*[(\[]`)
	methodRe  = regexp.MustCompile(`^func\s+\(\s*\w*\s*\*?(\w+)(?:\[[^\]]*\])?\s*\)\s+(\w+)\s*\(`)
	constRe   = regexp.MustCompile(`^const\s+(\w+)`)
	varRe     = regexp.MustCompile(`^var\s+(\w+)`)
	importRe  = regexp.MustCompile(`^\s*(?:(\w+|\.)\s+)?"([^"]+)"`)
)

// Analyze scans Go source text. It never fails on odd syntax — unrecognized
// lines simply contribute no symbols — but rejects input that is clearly
// not Go (no package clause).
func (a *Analyzer) Analyze(source []byte) (*analyzer.CodeStructure, error) {
	lines := strings.Split(string(source), "\n")

	cs := &analyzer.CodeStructure{
		Language:   a.Language(),
		Metadata:   make(map[string]string),
		AnalyzedAt: time.Now(),
	}

	// Index of the symbol for each type name, for method nesting.
	typeIndex := make(map[string]int)
	// Methods whose receiver type has not been declared yet. A parent
	// reference must point at an earlier symbol, so these wait for their
	// type and are appended right after it.
	var pendingMethods []pendingMethod
	sawPackage := false
	inImportBlock := false
	var docBuf []string

	for i, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		// Collect doc comments immediately preceding a declaration.
		if strings.HasPrefix(trimmed, "//") {
			docBuf = append(docBuf, strings.TrimSpace(strings.TrimPrefix(trimmed, "//")))
			continue
		}
		doc := strings.Join(docBuf, " ")
		if trimmed == "" {
			docBuf = nil
			continue
		}
		docBuf = nil

		if m := packageRe.FindStringSubmatch(line); m != nil {
			sawPackage = true
			cs.Metadata["package"] = m[1]
			continue
		}

		if strings.HasPrefix(line, "import (") {
			inImportBlock = true
			continue
		}
		if inImportBlock {
			if trimmed == ")" {
				inImportBlock = false
				continue
			}
			if m := importRe.FindStringSubmatch(line); m != nil {
				cs.Imports = append(cs.Imports, analyzer.Import{Name: m[2], Alias: m[1]})
			}
			continue
		}
		if strings.HasPrefix(line, "import ") {
			if m := importRe.FindStringSubmatch(strings.TrimPrefix(line, "import ")); m != nil {
				cs.Imports = append(cs.Imports, analyzer.Import{Name: m[2], Alias: m[1]})
			}
			continue
		}

		switch {
		case methodRe.MatchString(line):
			m := methodRe.FindStringSubmatch(line)
			sym := symbolAt(m[2], analyzer.KindMethod, i, endOfBlock(lines, i), doc, -1, exportedModifiers(m[2]))
			if idx, ok := typeIndex[m[1]]; ok {
				sym.ParentIndex = idx
				cs.Symbols = append(cs.Symbols, sym)
			} else {
				pendingMethods = append(pendingMethods, pendingMethod{receiverType: m[1], sym: sym})
			}

		case funcRe.MatchString(line):
			m := funcRe.FindStringSubmatch(line)
			cs.Symbols = append(cs.Symbols, symbolAt(m[1], analyzer.KindFunction, i, endOfBlock(lines, i), doc, -1, exportedModifiers(m[1])))

		case typeRe.MatchString(line):
			m := typeRe.FindStringSubmatch(line)
			kind := analyzer.KindType
			switch m[2] {
			case "struct":
				kind = analyzer.KindStruct
			case "interface":
				kind = analyzer.KindInterface
			}
			typeIndex[m[1]] = len(cs.Symbols)
			cs.Symbols = append(cs.Symbols, symbolAt(m[1], kind, i, endOfBlock(lines, i), doc, -1, exportedModifiers(m[1])))
			if isExported(m[1]) {
				cs.Exports = append(cs.Exports, analyzer.Export{Name: m[1]})
			}
			pendingMethods = flushPendingMethods(cs, pendingMethods, m[1], typeIndex[m[1]])

		case constRe.MatchString(line):
			m := constRe.FindStringSubmatch(line)
			if m[1] != "(" {
				cs.Symbols = append(cs.Symbols, symbolAt(m[1], analyzer.KindConstant, i, i, doc, -1, exportedModifiers(m[1])))
			}

		case varRe.MatchString(line):
			m := varRe.FindStringSubmatch(line)
			if m[1] != "(" {
				cs.Symbols = append(cs.Symbols, symbolAt(m[1], analyzer.KindVariable, i, i, doc, -1, exportedModifiers(m[1])))
			}
		}
	}

	if !sawPackage {
		return nil, &analyzer.AnalysisError{Language: a.Language(), Err: errNoPackageClause}
	}

	// Methods whose receiver type never appeared in this file stay
	// top-level.
	for _, pm := range pendingMethods {
		cs.Symbols = append(cs.Symbols, pm.sym)
	}

	for _, sym := range cs.Symbols {
		if sym.Kind == analyzer.KindFunction || sym.Kind == analyzer.KindMethod {
			if isExported(sym.Name) && sym.ParentIndex == -1 {
				cs.Exports = append(cs.Exports, analyzer.Export{Name: sym.Name})
			}
		}
	}

	return cs, nil
}

// pendingMethod is a method waiting for its receiver type's declaration.
type pendingMethod struct {
	receiverType string
	sym          analyzer.Symbol
}

// flushPendingMethods appends the methods waiting on typeName, parented to
// typeIdx, and returns the methods still waiting.
func flushPendingMethods(cs *analyzer.CodeStructure, pending []pendingMethod, typeName string, typeIdx int) []pendingMethod {
	rest := pending[:0]
	for _, pm := range pending {
		if pm.receiverType == typeName {
			pm.sym.ParentIndex = typeIdx
			cs.Symbols = append(cs.Symbols, pm.sym)
		} else {
			rest = append(rest, pm)
		}
	}
	return rest
}

var errNoPackageClause = errNoPackage{}

type errNoPackage struct{}

func (errNoPackage) Error() string { return "no package clause" }

func symbolAt(name string, kind analyzer.SymbolKind, startIdx, endIdx int, doc string, parent int, mods []string) analyzer.Symbol {
	return analyzer.Symbol{
		Name:          name,
		Kind:          kind,
		StartLine:     startIdx + 1,
		StartColumn:   1,
		EndLine:       endIdx + 1,
		EndColumn:     1,
		Modifiers:     mods,
		Documentation: doc,
		ParentIndex:   parent,
	}
}

func isExported(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

func exportedModifiers(name string) []string {
	if isExported(name) {
		return []string{"exported"}
	}
	return nil
}

// endOfBlock finds the line index of the closing brace matching the first
// opening brace at or after startIdx. Falls back to startIdx for
// single-line declarations.
func endOfBlock(lines []string, startIdx int) int {
	depth := 0
	opened := false
	for i := startIdx; i < len(lines); i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return i
				}
			}
		}
		if !opened && i > startIdx {
			return startIdx
		}
	}
	return len(lines) - 1
}
