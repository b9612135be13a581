package tools

import (
	"strings"
	"testing"

	"github.com/symdex/symdex-mcp/analyzer"
	"github.com/symdex/symdex-mcp/search"
	"github.com/symdex/symdex-mcp/store"
)

func Test_FormatTextResults_Empty(t *testing.T) {
	if got := FormatTextResults(nil, 0); got != "No matches found." {
		t.Errorf("unexpected empty formatting: %q", got)
	}
}

func Test_FormatTextResults_GroupsByFile(t *testing.T) {
	results := []search.TextResult{
		{
			Path:     "src/a.go",
			Language: "go",
			Matches: []search.LineMatch{
				{LineNumber: 3, LineText: "func handleRequest() {", ContextBefore: []string{""}, ContextAfter: []string{"\tprocess()"}},
			},
		},
		{
			Path:    "src/b.go",
			Matches: []search.LineMatch{{LineNumber: 10, LineText: "// handleRequest docs"}},
		},
	}

	out := FormatTextResults(results, 2)
	if !strings.Contains(out, "Found 2 matches in 2 files") {
		t.Errorf("missing summary line: %q", out)
	}
	if !strings.Contains(out, "src/a.go") || !strings.Contains(out, "src/b.go") {
		t.Errorf("missing file headers: %q", out)
	}
	if !strings.Contains(out, "3: func handleRequest() {") {
		t.Errorf("missing numbered match line: %q", out)
	}
}

func Test_FormatSymbolResults_QualifiesNestedNames(t *testing.T) {
	symbols := []store.StoredSymbol{
		{Name: "Widget", Kind: analyzer.KindClass, FilePath: "w.ts", StartLine: 5},
		{Name: "render", Kind: analyzer.KindMethod, FilePath: "w.ts", StartLine: 8, ParentName: "Widget", Modifiers: []string{"static"}},
	}

	out := FormatSymbolResults(symbols)
	if !strings.Contains(out, "Found 2 symbols") {
		t.Errorf("missing summary: %q", out)
	}
	if !strings.Contains(out, "Widget.render") {
		t.Errorf("nested symbol not qualified by parent: %q", out)
	}
	if !strings.Contains(out, "[static]") {
		t.Errorf("modifiers missing: %q", out)
	}
}

func Test_FormatSymbolResults_DocumentationTrimmed(t *testing.T) {
	symbols := []store.StoredSymbol{
		{
			Name: "Greeter", Kind: analyzer.KindStruct, FilePath: "g.go", StartLine: 1,
			Documentation: "Greeter says hello. It also does many other things worth knowing about.",
		},
	}

	out := FormatSymbolResults(symbols)
	if !strings.Contains(out, "Greeter says hello.") {
		t.Errorf("first sentence missing: %q", out)
	}
	if strings.Contains(out, "other things worth knowing") {
		t.Errorf("documentation not trimmed to first sentence: %q", out)
	}
}

func Test_FormatSymbolResults_Empty(t *testing.T) {
	if got := FormatSymbolResults(nil); got != "No symbols matched." {
		t.Errorf("unexpected empty formatting: %q", got)
	}
}

func Test_FormatFileResults_NameOnly(t *testing.T) {
	files := []*store.WorkspaceFile{
		{Path: "src/a.go", Language: "go", Size: 2048},
	}

	verbose := FormatFileResults(files, false)
	if !strings.Contains(verbose, "2.0 KB") || !strings.Contains(verbose, "go") {
		t.Errorf("metadata missing: %q", verbose)
	}

	plain := FormatFileResults(files, true)
	if strings.Contains(plain, "KB") {
		t.Errorf("nameOnly output should omit metadata: %q", plain)
	}
	if !strings.Contains(plain, "src/a.go") {
		t.Errorf("path missing: %q", plain)
	}
}

func Test_FormatFileContent_NumbersLines(t *testing.T) {
	out := FormatFileContent("a.go", "package a\n\nvar x = 1")
	if !strings.Contains(out, "a.go (3 lines)") {
		t.Errorf("header missing: %q", out)
	}
	if !strings.Contains(out, "1│ package a") {
		t.Errorf("line numbering missing: %q", out)
	}
	if !strings.Contains(out, "3│ var x = 1") {
		t.Errorf("last line missing: %q", out)
	}
}

func Test_FormatFileSize(t *testing.T) {
	cases := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KB",
		3 * 1024 * 1024: "3.0 MB",
	}
	for size, want := range cases {
		if got := formatFileSize(size); got != want {
			t.Errorf("formatFileSize(%d) = %q, want %q", size, got, want)
		}
	}
}
