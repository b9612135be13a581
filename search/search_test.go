package search

import (
	"testing"
	"time"

	"github.com/symdex/symdex-mcp/analyzer"
	"github.com/symdex/symdex-mcp/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func indexFixture(t *testing.T, st *store.Store, path, language, content string, symbols ...analyzer.Symbol) {
	t.Helper()
	now := time.Now()
	file := &store.WorkspaceFile{
		Path:      path,
		Language:  language,
		Hash:      "hash-" + path,
		Size:      int64(len(content)),
		ModTime:   now,
		IndexedAt: now,
	}
	structure := &analyzer.CodeStructure{
		Language:   language,
		Symbols:    symbols,
		AnalyzedAt: now,
	}
	if err := st.ReplaceFileStructure(file, structure, content); err != nil {
		t.Fatal(err)
	}
}

func Test_SearchText_FindsMatchingLines(t *testing.T) {
	svc, st := newTestService(t)
	indexFixture(t, st, "handler.go", "go",
		"package web\n\nfunc handleRequest(w Writer) {\n\tprocess(w)\n}\n",
		analyzer.Symbol{Name: "handleRequest", Kind: analyzer.KindFunction, StartLine: 3, EndLine: 5, ParentIndex: -1})

	results, total, err := svc.SearchText("handleRequest", TextOptions{})
	if err != nil {
		t.Fatalf("SearchText: %v", err)
	}
	if total == 0 || len(results) != 1 {
		t.Fatalf("expected one file with matches, got %d results, %d total", len(results), total)
	}
	r := results[0]
	if r.Path != "handler.go" || r.Language != "go" {
		t.Errorf("unexpected result metadata: %+v", r)
	}
	if len(r.Matches) == 0 || r.Matches[0].LineNumber != 3 {
		t.Errorf("expected match on line 3, got %+v", r.Matches)
	}
}

func Test_SearchText_CaseInsensitiveLineMatch(t *testing.T) {
	svc, st := newTestService(t)
	indexFixture(t, st, "a.go", "go", "package a\n\nvar ServerName = \"x\"\n")

	results, _, err := svc.SearchText("servername", TextOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected case-insensitive match, got %+v", results)
	}
}

func Test_SearchText_ContextLines(t *testing.T) {
	svc, st := newTestService(t)
	indexFixture(t, st, "ctx.go", "go", "one\ntwo\nneedle here\nfour\nfive\n")

	results, _, err := svc.SearchText("needle", TextOptions{ContextLines: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(results[0].Matches) != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
	m := results[0].Matches[0]
	if len(m.ContextBefore) != 1 || m.ContextBefore[0] != "two" {
		t.Errorf("unexpected context before: %v", m.ContextBefore)
	}
	if len(m.ContextAfter) != 1 || m.ContextAfter[0] != "four" {
		t.Errorf("unexpected context after: %v", m.ContextAfter)
	}
}

func Test_SearchText_FileGlobFilter(t *testing.T) {
	svc, st := newTestService(t)
	indexFixture(t, st, "src/a.go", "go", "package a\n\nvar needle = 1\n")
	indexFixture(t, st, "lib/b.py", "python", "needle = 2\n")

	results, _, err := svc.SearchText("needle", TextOptions{FileGlob: "**/*.go"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Path != "src/a.go" {
		t.Errorf("glob filter failed: %+v", results)
	}
}

func Test_SearchText_PhraseQuery(t *testing.T) {
	svc, st := newTestService(t)
	indexFixture(t, st, "doc.go", "go", "package doc\n\n// the quick brown fox\n// quick the brown\n")

	results, _, err := svc.SearchText(`"quick brown"`, TextOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected phrase match, got %+v", results)
	}
	// Line matching uses the bare phrase, so only line 3 qualifies.
	if len(results[0].Matches) != 1 || results[0].Matches[0].LineNumber != 3 {
		t.Errorf("unexpected matches: %+v", results[0].Matches)
	}
}

func Test_SearchText_EmptyQueryRejected(t *testing.T) {
	svc, _ := newTestService(t)
	if _, _, err := svc.SearchText("   ", TextOptions{}); err == nil {
		t.Error("expected error for blank query")
	}
}

func Test_SearchText_NoMatches(t *testing.T) {
	svc, st := newTestService(t)
	indexFixture(t, st, "a.go", "go", "package a\n")

	results, total, err := svc.SearchText("nonexistentterm", TextOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 || total != 0 {
		t.Errorf("expected empty result set, got %+v", results)
	}
}

func Test_SearchSymbols_DelegatesToStoreFilter(t *testing.T) {
	svc, st := newTestService(t)
	indexFixture(t, st, "a.go", "go", "package a\n",
		analyzer.Symbol{Name: "Greeter", Kind: analyzer.KindStruct, StartLine: 1, EndLine: 2, ParentIndex: -1},
		analyzer.Symbol{Name: "Greet", Kind: analyzer.KindMethod, StartLine: 3, EndLine: 4, ParentIndex: 0})

	structs, err := svc.SearchSymbols(store.SymbolFilter{Kinds: []analyzer.SymbolKind{analyzer.KindStruct}})
	if err != nil {
		t.Fatal(err)
	}
	if len(structs) != 1 || structs[0].Name != "Greeter" {
		t.Errorf("unexpected symbols: %+v", structs)
	}

	all, err := svc.SearchSymbols(store.SymbolFilter{Name: "*"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected match-all to return both symbols, got %+v", all)
	}
}
