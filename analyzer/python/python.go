// Package python provides a lexical analyzer for Python source files.
// Nesting is recovered from indentation, so classes inside classes and
// methods inside classes get correct parent references.
package python

import (
	"regexp"
	"strings"
	"time"

	"github.com/symdex/symdex-mcp/analyzer"
)

// Analyzer extracts classes, functions, methods and module constants from
// Python source.
type Analyzer struct{}

// New creates a Python analyzer.
func New() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Language() string { return "python" }

func (a *Analyzer) Extensions() []string { return []string{"py", "pyi", "pyw"} }

var (
	classRe      = regexp.MustCompile(`^(\s*)class\s+(\w+)\s*[(:\s]`)
	defRe        = regexp.MustCompile(`^(\s*)(async\s+)?def\s+(\w+)\s*\(`)
	constantRe   = regexp.MustCompile(`^([A-Z][A-Z0-9_]*)\s*=`)
	importRe     = regexp.MustCompile(`^import\s+([\w.]+)(?:\s+as\s+(\w+))?`)
	fromImportRe = regexp.MustCompile(`^from\s+([\w.]+)\s+import\s+(.+)`)
	docstringRe  = regexp.MustCompile(`^\s*(?:"""|''')(.*?)(?:"""|''')?\s*$`)
)

// openSymbol tracks a class/def whose suite is still open, for indentation
// based parent resolution.
type openSymbol struct {
	index  int
	indent int
}

// Analyze scans Python source. Tabs count as 8 columns for indentation
// comparison, matching CPython's tokenizer default.
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

	// Stack of open class/def suites, innermost last.
	var stack []openSymbol

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := indentWidth(raw)

		// Close suites that this line dedents out of.
		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			top := stack[len(stack)-1]
			cs.Symbols[top.index].EndLine = lastNonBlankBefore(lines, i) + 1
			stack = stack[:len(stack)-1]
		}

		if m := importRe.FindStringSubmatch(trimmed); m != nil && indent == 0 {
			cs.Imports = append(cs.Imports, analyzer.Import{Name: m[1], Alias: m[2]})
			continue
		}
		if m := fromImportRe.FindStringSubmatch(trimmed); m != nil && indent == 0 {
			for _, name := range strings.Split(m[2], ",") {
				name = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(name, "("), ")"))
				if name == "" {
					continue
				}
				alias := ""
				if parts := strings.SplitN(name, " as ", 2); len(parts) == 2 {
					name, alias = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
				}
				cs.Imports = append(cs.Imports, analyzer.Import{Name: m[1] + "." + name, Alias: alias})
			}
			continue
		}

		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1].index
		}

		if m := classRe.FindStringSubmatch(raw); m != nil {
			idx := len(cs.Symbols)
			cs.Symbols = append(cs.Symbols, analyzer.Symbol{
				Name:          m[2],
				Kind:          analyzer.KindClass,
				StartLine:     i + 1,
				StartColumn:   indent + 1,
				EndLine:       i + 1,
				EndColumn:     1,
				Documentation: docstringAfter(lines, i),
				ParentIndex:   parent,
			})
			if parent == -1 && !strings.HasPrefix(m[2], "_") {
				cs.Exports = append(cs.Exports, analyzer.Export{Name: m[2]})
			}
			stack = append(stack, openSymbol{index: idx, indent: indent})
			continue
		}

		if m := defRe.FindStringSubmatch(raw); m != nil {
			kind := analyzer.KindFunction
			var mods []string
			if parent >= 0 && cs.Symbols[parent].Kind == analyzer.KindClass {
				kind = analyzer.KindMethod
			}
			if m[2] != "" {
				mods = append(mods, "async")
			}
			idx := len(cs.Symbols)
			cs.Symbols = append(cs.Symbols, analyzer.Symbol{
				Name:          m[3],
				Kind:          kind,
				StartLine:     i + 1,
				StartColumn:   indent + 1,
				EndLine:       i + 1,
				EndColumn:     1,
				Modifiers:     mods,
				Documentation: docstringAfter(lines, i),
				ParentIndex:   parent,
			})
			if parent == -1 && !strings.HasPrefix(m[3], "_") {
				cs.Exports = append(cs.Exports, analyzer.Export{Name: m[3]})
			}
			stack = append(stack, openSymbol{index: idx, indent: indent})
			continue
		}

		if indent == 0 {
			if m := constantRe.FindStringSubmatch(trimmed); m != nil {
				cs.Symbols = append(cs.Symbols, analyzer.Symbol{
					Name:        m[1],
					Kind:        analyzer.KindConstant,
					StartLine:   i + 1,
					StartColumn: 1,
					EndLine:     i + 1,
					EndColumn:   1,
					ParentIndex: -1,
				})
			}
		}
	}

	// Close any suites still open at EOF.
	for _, open := range stack {
		cs.Symbols[open.index].EndLine = lastNonBlankBefore(lines, len(lines)) + 1
	}

	return cs, nil
}

var errBinaryInput = errBinary{}

type errBinary struct{}

func (errBinary) Error() string { return "input contains NUL bytes" }

func indentWidth(line string) int {
	width := 0
	for _, ch := range line {
		switch ch {
		case ' ':
			width++
		case '\t':
			width += 8
		default:
			return width
		}
	}
	return width
}

// docstringAfter returns the first line of a docstring opening right after
// a class/def header, if any.
func docstringAfter(lines []string, defIdx int) string {
	for i := defIdx + 1; i < len(lines) && i <= defIdx+2; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if m := docstringRe.FindStringSubmatch(trimmed); m != nil {
			return strings.TrimSpace(m[1])
		}
		return ""
	}
	return ""
}

func lastNonBlankBefore(lines []string, idx int) int {
	for i := idx - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return i
		}
	}
	return 0
}
