// Package typescript provides a lexical analyzer for TypeScript and
// JavaScript source files. Methods are nested under the class whose brace
// block encloses them.
package typescript

import (
	"regexp"
	"strings"
	"time"

	"github.com/symdex/symdex-mcp/analyzer"
)

// Analyzer extracts classes, interfaces, enums, functions and class
// methods from TypeScript/JavaScript source.
type Analyzer struct{}

// New creates a TypeScript/JavaScript analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Language() string { return "typescript" }

func (a *Analyzer) Extensions() []string {
	return []string{"ts", "tsx", "js", "jsx", "mjs", "cjs"}
}

var (
	classDeclRe     = regexp.MustCompile(`^\s*(export\s+)?(abstract\s+)?class\s+(\w+)`)
	interfaceRe     = regexp.MustCompile(`^\s*(export\s+)?interface\s+(\w+)`)
	enumRe          = regexp.MustCompile(`^\s*(export\s+)?(const\s+)?enum\s+(\w+)`)
	functionRe      = regexp.MustCompile(`^\s*(export\s+)?(async\s+)?function\s*\*?\s*(\w+)\s*[(<]`)
	arrowFuncRe     = regexp.MustCompile(`^\s*(export\s+)?(?:const|let|var)\s+(\w+)\s*(?::[^=]+)?=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*=>`)
	methodRe        = regexp.MustCompile(`^\s*(public\s+|private\s+|protected\s+)?(static\s+)?(async\s+)?(?:get\s+|set\s+)?(\w+)\s*\([^;]*\)\s*(?::\s*[\w<>\[\]., |&]+)?\s*\{`)
	importFromRe    = regexp.MustCompile(`^\s*import\s+(?:(\w+)|\{([^}]*)\}|\*\s+as\s+(\w+))\s+from\s+['"]([^'"]+)['"]`)
	importBareRe    = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	reservedMethods = map[string]bool{
		"if": true, "for": true, "while": true, "switch": true,
		"catch": true, "return": true, "function": true, "constructor": false,
	}
)

// openClass tracks a class/interface/enum whose body is still open.
type openClass struct {
	index int
	depth int // brace depth at which the body opened
}

// Analyze scans TypeScript/JavaScript source line by line, tracking brace
// depth to attribute methods to their enclosing class.
func (a *Analyzer) Analyze(source []byte) (*analyzer.CodeStructure, error) {
	text := string(source)
	if strings.ContainsRune(text, 0) {
		return nil, &analyzer.AnalysisError{Language: a.Language(), Err: errBinaryInput}
	}
	lines := strings.Split(text, "\n")

	cs := &analyzer.CodeStructure{
		Language:   a.Language(),
		Metadata:   make(map[string]string),
		AnalyzedAt: time.Now(),
	}

	depth := 0
	var stack []openClass

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*") {
			continue
		}

		if m := importFromRe.FindStringSubmatch(raw); m != nil {
			appendImports(cs, m)
			continue
		}
		if m := importBareRe.FindStringSubmatch(raw); m != nil {
			cs.Imports = append(cs.Imports, analyzer.Import{Name: m[1]})
			continue
		}

		exported := strings.Contains(trimmed, "export ") || strings.HasPrefix(trimmed, "export")
		inClass := len(stack) > 0

		switch {
		case classDeclRe.MatchString(raw):
			m := classDeclRe.FindStringSubmatch(raw)
			idx := pushSymbol(cs, m[3], analyzer.KindClass, i, modifiers(m[1] != "", m[2] != "", "abstract"))
			if exported {
				cs.Exports = append(cs.Exports, analyzer.Export{Name: m[3]})
			}
			stack = append(stack, openClass{index: idx, depth: depth})

		case interfaceRe.MatchString(raw):
			m := interfaceRe.FindStringSubmatch(raw)
			idx := pushSymbol(cs, m[2], analyzer.KindInterface, i, modifiers(m[1] != "", false, ""))
			if exported {
				cs.Exports = append(cs.Exports, analyzer.Export{Name: m[2]})
			}
			if strings.Contains(raw, "{") && !strings.Contains(raw, "}") {
				stack = append(stack, openClass{index: idx, depth: depth})
			}

		case enumRe.MatchString(raw):
			m := enumRe.FindStringSubmatch(raw)
			pushSymbol(cs, m[3], analyzer.KindEnum, i, modifiers(m[1] != "", false, ""))
			if exported {
				cs.Exports = append(cs.Exports, analyzer.Export{Name: m[3]})
			}

		case functionRe.MatchString(raw) && !inClass:
			m := functionRe.FindStringSubmatch(raw)
			pushSymbol(cs, m[3], analyzer.KindFunction, i, modifiers(m[1] != "", m[2] != "", "async"))
			if exported {
				cs.Exports = append(cs.Exports, analyzer.Export{Name: m[3]})
			}

		case arrowFuncRe.MatchString(raw) && !inClass:
			m := arrowFuncRe.FindStringSubmatch(raw)
			pushSymbol(cs, m[2], analyzer.KindFunction, i, modifiers(m[1] != "", false, ""))
			if exported {
				cs.Exports = append(cs.Exports, analyzer.Export{Name: m[2]})
			}

		case inClass && methodRe.MatchString(raw):
			m := methodRe.FindStringSubmatch(raw)
			name := m[4]
			if !reservedMethods[name] {
				top := stack[len(stack)-1]
				var mods []string
				if m[1] != "" {
					mods = append(mods, strings.TrimSpace(m[1]))
				}
				if m[2] != "" {
					mods = append(mods, "static")
				}
				if m[3] != "" {
					mods = append(mods, "async")
				}
				cs.Symbols = append(cs.Symbols, analyzer.Symbol{
					Name:        name,
					Kind:        analyzer.KindMethod,
					StartLine:   i + 1,
					StartColumn: 1,
					EndLine:     i + 1,
					EndColumn:   1,
					Modifiers:   mods,
					ParentIndex: top.index,
				})
			}
		}

		// Update brace depth after classifying the line, closing class
		// bodies the line dedents out of.
		for _, ch := range raw {
			switch ch {
			case '{':
				depth++
			case '}':
				depth--
				for len(stack) > 0 && depth <= stack[len(stack)-1].depth {
					cs.Symbols[stack[len(stack)-1].index].EndLine = i + 1
					stack = stack[:len(stack)-1]
				}
			}
		}
	}

	for _, open := range stack {
		cs.Symbols[open.index].EndLine = len(lines)
	}

	return cs, nil
}

var errBinaryInput = errBinary{}

type errBinary struct{}

func (errBinary) Error() string { return "input contains NUL bytes" }

func pushSymbol(cs *analyzer.CodeStructure, name string, kind analyzer.SymbolKind, lineIdx int, mods []string) int {
	idx := len(cs.Symbols)
	cs.Symbols = append(cs.Symbols, analyzer.Symbol{
		Name:        name,
		Kind:        kind,
		StartLine:   lineIdx + 1,
		StartColumn: 1,
		EndLine:     lineIdx + 1,
		EndColumn:   1,
		Modifiers:   mods,
		ParentIndex: -1,
	})
	return idx
}

func modifiers(exported, extra bool, extraName string) []string {
	var mods []string
	if exported {
		mods = append(mods, "exported")
	}
	if extra && extraName != "" {
		mods = append(mods, extraName)
	}
	return mods
}

func appendImports(cs *analyzer.CodeStructure, m []string) {
	module := m[4]
	switch {
	case m[1] != "": // default import
		cs.Imports = append(cs.Imports, analyzer.Import{Name: module, Alias: m[1]})
	case m[3] != "": // namespace import
		cs.Imports = append(cs.Imports, analyzer.Import{Name: module, Alias: m[3]})
	case m[2] != "": // named imports
		for _, name := range strings.Split(m[2], ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			alias := ""
			if parts := strings.SplitN(name, " as ", 2); len(parts) == 2 {
				name, alias = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			}
			cs.Imports = append(cs.Imports, analyzer.Import{Name: module + "#" + name, Alias: alias})
		}
	}
}
