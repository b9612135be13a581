package indexer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/symdex/symdex-mcp/analyzer"
	"github.com/symdex/symdex-mcp/analyzer/golang"
	"github.com/symdex/symdex-mcp/analyzer/python"
	"github.com/symdex/symdex-mcp/ignore"
	"github.com/symdex/symdex-mcp/store"
	"github.com/symdex/symdex-mcp/watcher"
)

// countingAnalyzer records how often Analyze runs. One symbol per
// non-empty line, named after the line's first word. Lines reading
// "BROKEN" fail the analysis.
type countingAnalyzer struct {
	calls int
}

func (c *countingAnalyzer) Language() string     { return "mock" }
func (c *countingAnalyzer) Extensions() []string { return []string{"mock"} }

func (c *countingAnalyzer) Analyze(source []byte) (*analyzer.CodeStructure, error) {
	c.calls++
	cs := &analyzer.CodeStructure{Language: "mock", AnalyzedAt: time.Now()}
	for i, line := range strings.Split(string(source), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "BROKEN" {
			return nil, &analyzer.AnalysisError{Language: "mock", Err: errors.New("broken marker")}
		}
		cs.Symbols = append(cs.Symbols, analyzer.Symbol{
			Name:        fields[0],
			Kind:        analyzer.KindFunction,
			StartLine:   i + 1,
			EndLine:     i + 1,
			ParentIndex: -1,
		})
	}
	return cs, nil
}

type testEnv struct {
	ix       *Indexer
	store    *store.Store
	root     string
	counting *countingAnalyzer
}

func newTestEnv(t *testing.T, patterns ...string) *testEnv {
	t.Helper()
	root := t.TempDir()

	registry := analyzer.NewRegistry()
	counting := &countingAnalyzer{}
	registry.Register(counting)
	registry.Register(golang.New())
	registry.Register(python.New())

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	matcher := ignore.NewMatcher(ignore.Options{RootDir: root, Patterns: patterns})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testEnv{
		ix:       New(root, registry, st, matcher, logger),
		store:    st,
		root:     root,
		counting: counting,
	}
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func Test_Indexer_IndexFile_CommitsSymbols(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeFile(t, "a.mock", "alpha\nbeta\n")

	if err := e.ix.IndexFile(context.Background(), path); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	symbols, err := e.store.SymbolsForFile("a.mock")
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 2 || symbols[0].Name != "alpha" || symbols[1].Name != "beta" {
		t.Errorf("stored symbols do not match analysis output: %+v", symbols)
	}
}

func Test_Indexer_UnchangedContentSkipsAnalysis(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeFile(t, "a.mock", "alpha\n")
	ctx := context.Background()

	if err := e.ix.IndexFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	if err := e.ix.IndexFile(ctx, path); err != nil {
		t.Fatal(err)
	}

	if e.counting.calls != 1 {
		t.Errorf("expected exactly 1 analysis for unchanged content, got %d", e.counting.calls)
	}
}

func Test_Indexer_ChangedContentReanalyzed(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeFile(t, "a.mock", "alpha\n")
	ctx := context.Background()

	if err := e.ix.IndexFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	e.writeFile(t, "a.mock", "alpha\ngamma\n")
	if err := e.ix.IndexFile(ctx, path); err != nil {
		t.Fatal(err)
	}

	if e.counting.calls != 2 {
		t.Errorf("expected re-analysis after content change, got %d calls", e.counting.calls)
	}
	symbols, _ := e.store.SymbolsForFile("a.mock")
	if len(symbols) != 2 {
		t.Errorf("expected refreshed symbol set, got %+v", symbols)
	}
}

func Test_Indexer_AnalysisFailureKeepsPreviousEntry(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeFile(t, "a.mock", "alpha\n")
	ctx := context.Background()

	if err := e.ix.IndexFile(ctx, path); err != nil {
		t.Fatal(err)
	}

	e.writeFile(t, "a.mock", "BROKEN\n")
	err := e.ix.IndexFile(ctx, path)
	if err == nil {
		t.Fatal("expected analysis error")
	}
	var analysisErr *analyzer.AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("expected AnalysisError, got %T", err)
	}

	// The stale-but-valid entry survives.
	symbols, err := e.store.SymbolsForFile("a.mock")
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 1 || symbols[0].Name != "alpha" {
		t.Errorf("previous entry lost after failed analysis: %+v", symbols)
	}
}

func Test_Indexer_UnregisteredExtensionIgnored(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeFile(t, "notes.txt", "free text\n")

	if err := e.ix.IndexFile(context.Background(), path); err != nil {
		t.Fatalf("unregistered extension should be a no-op, got %v", err)
	}
	if f, _ := e.store.FileByPath("notes.txt"); f != nil {
		t.Error("unregistered file must not be stored")
	}
}

func Test_Indexer_BinaryContentSkipped(t *testing.T) {
	e := newTestEnv(t)
	path := filepath.Join(e.root, "blob.mock")
	if err := os.WriteFile(path, []byte{'a', 0x00, 'b'}, 0644); err != nil {
		t.Fatal(err)
	}

	if err := e.ix.IndexFile(context.Background(), path); err != nil {
		t.Fatalf("binary content should be skipped silently, got %v", err)
	}
	if e.counting.calls != 0 {
		t.Error("binary content must not reach the analyzer")
	}
}

func Test_Indexer_OversizedFileSkippedOnWatchAndScan(t *testing.T) {
	root := t.TempDir()
	registry := analyzer.NewRegistry()
	counting := &countingAnalyzer{}
	registry.Register(counting)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	matcher := ignore.NewMatcher(ignore.Options{RootDir: root, MaxFileSizeBytes: 10})
	ix := New(root, registry, st, matcher, slog.New(slog.NewTextHandler(io.Discard, nil)))

	path := filepath.Join(root, "big.mock")
	if err := os.WriteFile(path, []byte("alpha beta gamma delta epsilon zeta eta\n"), 0644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	// The watch path honors the same limit the scan path does.
	ev := watcher.FileChangeEvent{Path: path, Type: watcher.Modified, Timestamp: time.Now()}
	if err := ix.HandleChange(ctx, ev); err != nil {
		t.Fatalf("oversized file should be skipped silently, got %v", err)
	}
	if f, _ := st.FileByPath("big.mock"); f != nil {
		t.Error("watch event indexed an oversized file")
	}
	if counting.calls != 0 {
		t.Error("oversized file reached the analyzer via watch event")
	}

	if err := ix.IndexWorkspace(ctx); err != nil {
		t.Fatal(err)
	}
	if f, _ := st.FileByPath("big.mock"); f != nil {
		t.Error("scan indexed an oversized file")
	}
}

func Test_Indexer_RemoveFile(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeFile(t, "a.mock", "alpha\n")
	ctx := context.Background()

	if err := e.ix.IndexFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	if err := e.ix.RemoveFile(path); err != nil {
		t.Fatal(err)
	}

	if f, _ := e.store.FileByPath("a.mock"); f != nil {
		t.Error("file row survived removal")
	}
	symbols, _ := e.store.SymbolsForFile("a.mock")
	if len(symbols) != 0 {
		t.Errorf("symbols survived removal: %+v", symbols)
	}
}

func Test_Indexer_HandleChange_CreatedAndDeleted(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeFile(t, "a.mock", "alpha\n")
	ctx := context.Background()

	create := watcher.FileChangeEvent{Path: path, Type: watcher.Created, Timestamp: time.Now()}
	if err := e.ix.HandleChange(ctx, create); err != nil {
		t.Fatal(err)
	}
	if f, _ := e.store.FileByPath("a.mock"); f == nil {
		t.Fatal("create event did not index the file")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	del := watcher.FileChangeEvent{Path: path, Type: watcher.Deleted, Timestamp: time.Now()}
	if err := e.ix.HandleChange(ctx, del); err != nil {
		t.Fatal(err)
	}
	if f, _ := e.store.FileByPath("a.mock"); f != nil {
		t.Error("delete event did not remove the file")
	}
}

func Test_Indexer_HandleChange_RenameLeavesOneFreshRow(t *testing.T) {
	e := newTestEnv(t)
	oldPath := e.writeFile(t, "old.mock", "alpha\n")
	ctx := context.Background()

	if err := e.ix.IndexFile(ctx, oldPath); err != nil {
		t.Fatal(err)
	}

	newPath := filepath.Join(e.root, "new.mock")
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	rename := watcher.FileChangeEvent{
		Path:      newPath,
		OldPath:   oldPath,
		Type:      watcher.Renamed,
		Timestamp: time.Now(),
	}
	if err := e.ix.HandleChange(ctx, rename); err != nil {
		t.Fatal(err)
	}

	if f, _ := e.store.FileByPath("old.mock"); f != nil {
		t.Error("old path row survived rename")
	}
	if f, _ := e.store.FileByPath("new.mock"); f == nil {
		t.Error("new path row missing after rename")
	}

	stats, err := e.store.Statistics()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalFiles != 1 {
		t.Errorf("expected exactly one row after rename, got %d", stats.TotalFiles)
	}
}

func Test_Indexer_HandleChange_UnpairedRenameRemovesOldOnly(t *testing.T) {
	e := newTestEnv(t)
	oldPath := e.writeFile(t, "old.mock", "alpha\n")
	ctx := context.Background()

	if err := e.ix.IndexFile(ctx, oldPath); err != nil {
		t.Fatal(err)
	}

	rename := watcher.FileChangeEvent{OldPath: oldPath, Type: watcher.Renamed, Timestamp: time.Now()}
	if err := e.ix.HandleChange(ctx, rename); err != nil {
		t.Fatal(err)
	}
	if f, _ := e.store.FileByPath("old.mock"); f != nil {
		t.Error("old path row survived unpaired rename")
	}
}

func Test_Indexer_HandleChange_GitignoreEditReloadsRules(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	gitignorePath := filepath.Join(e.root, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("skipped.mock\n"), 0644); err != nil {
		t.Fatal(err)
	}
	edit := watcher.FileChangeEvent{Path: gitignorePath, Type: watcher.Modified, Timestamp: time.Now()}
	if err := e.ix.HandleChange(ctx, edit); err != nil {
		t.Fatal(err)
	}

	skipped := e.writeFile(t, "skipped.mock", "alpha\n")
	create := watcher.FileChangeEvent{Path: skipped, Type: watcher.Created, Timestamp: time.Now()}
	if err := e.ix.HandleChange(ctx, create); err != nil {
		t.Fatal(err)
	}
	if f, _ := e.store.FileByPath("skipped.mock"); f != nil {
		t.Error("reloaded ignore rule not applied to later events")
	}
}

func Test_Indexer_IndexWorkspace_TwoLanguages(t *testing.T) {
	e := newTestEnv(t)
	e.writeFile(t, "src/greet.go", "package src\n\n// Greeter greets.\ntype Greeter struct {\n}\n\nfunc (g *Greeter) Greet() string {\n\treturn \"\"\n}\n")
	e.writeFile(t, "lib/shape.py", "class Shape:\n    def area(self):\n        return 0\n")

	if err := e.ix.IndexWorkspace(context.Background()); err != nil {
		t.Fatal(err)
	}

	stats, err := e.store.Statistics()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalFiles != 2 {
		t.Errorf("expected 2 files, got %d", stats.TotalFiles)
	}
	if stats.TotalSymbols < 3 {
		t.Errorf("expected at least 3 symbols, got %d", stats.TotalSymbols)
	}
	if stats.LanguageDistribution["go"] != 1 || stats.LanguageDistribution["python"] != 1 {
		t.Errorf("unexpected distribution: %v", stats.LanguageDistribution)
	}
}

func Test_Indexer_IndexWorkspace_IgnorePatternExcludes(t *testing.T) {
	e := newTestEnv(t, "generated/**")
	e.writeFile(t, "kept.mock", "alpha\n")
	e.writeFile(t, "generated/skipped.mock", "beta\n")

	if err := e.ix.IndexWorkspace(context.Background()); err != nil {
		t.Fatal(err)
	}

	if f, _ := e.store.FileByPath("kept.mock"); f == nil {
		t.Error("kept.mock missing")
	}
	if f, _ := e.store.FileByPath("generated/skipped.mock"); f != nil {
		t.Error("excluded file was indexed")
	}
	if e.counting.calls != 1 {
		t.Errorf("excluded file reached the analyzer: %d calls", e.counting.calls)
	}
}

func Test_Indexer_IndexWorkspace_ContinuesPastBrokenFile(t *testing.T) {
	e := newTestEnv(t)
	e.writeFile(t, "bad.mock", "BROKEN\n")
	e.writeFile(t, "good.mock", "alpha\n")

	if err := e.ix.IndexWorkspace(context.Background()); err != nil {
		t.Fatalf("scan must survive per-file analysis failures: %v", err)
	}
	if f, _ := e.store.FileByPath("good.mock"); f == nil {
		t.Error("good.mock not indexed after broken sibling")
	}
	if f, _ := e.store.FileByPath("bad.mock"); f != nil {
		t.Error("broken file must not be stored")
	}
}

func Test_Indexer_IndexWorkspace_ProgressReported(t *testing.T) {
	e := newTestEnv(t)
	e.writeFile(t, "a.mock", "alpha\n")
	e.writeFile(t, "b.mock", "beta\n")

	var events []Progress
	e.ix.OnProgress(func(p Progress) { events = append(events, p) })

	if err := e.ix.IndexWorkspace(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(events) == 0 {
		t.Fatal("no progress events")
	}
	first, last := events[0], events[len(events)-1]
	if first.TotalFiles != 2 {
		t.Errorf("expected total of 2 announced up front, got %+v", first)
	}
	if !last.IsComplete || last.ProcessedFiles != 2 {
		t.Errorf("expected completion event, got %+v", last)
	}
}

func Test_Indexer_IndexWorkspace_Cancellation(t *testing.T) {
	e := newTestEnv(t)
	e.writeFile(t, "a.mock", "alpha\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := e.ix.IndexWorkspace(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func Test_Indexer_Reconcile_RepairsBothDirections(t *testing.T) {
	e := newTestEnv(t)
	keptPath := e.writeFile(t, "kept.mock", "alpha\n")
	stalePath := e.writeFile(t, "stale.mock", "beta\n")
	ctx := context.Background()

	if err := e.ix.IndexFile(ctx, keptPath); err != nil {
		t.Fatal(err)
	}
	if err := e.ix.IndexFile(ctx, stalePath); err != nil {
		t.Fatal(err)
	}

	// Diverge in both directions: one file vanishes, one appears.
	if err := os.Remove(stalePath); err != nil {
		t.Fatal(err)
	}
	e.writeFile(t, "fresh.mock", "gamma\n")

	result, err := e.ix.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Indexed != 1 {
		t.Errorf("expected 1 newly indexed file, got %d", result.Indexed)
	}
	if result.Removed != 1 {
		t.Errorf("expected 1 removed row, got %d", result.Removed)
	}

	if f, _ := e.store.FileByPath("fresh.mock"); f == nil {
		t.Error("fresh.mock missing after reconcile")
	}
	if f, _ := e.store.FileByPath("stale.mock"); f != nil {
		t.Error("stale.mock row survived reconcile")
	}
}

func Test_Indexer_Reconcile_NoChangesIsFree(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeFile(t, "a.mock", "alpha\n")
	ctx := context.Background()

	if err := e.ix.IndexFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	callsBefore := e.counting.calls

	result, err := e.ix.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Indexed != 0 || result.Removed != 0 {
		t.Errorf("expected in-sync reconcile, got %+v", result)
	}
	if e.counting.calls != callsBefore {
		t.Error("unchanged file reached the analyzer during reconcile")
	}
}

func Test_Indexer_Watch_ConsumesUntilStreamCloses(t *testing.T) {
	e := newTestEnv(t)
	path := e.writeFile(t, "a.mock", "alpha\n")

	events := make(chan watcher.FileChangeEvent, 1)
	events <- watcher.FileChangeEvent{Path: path, Type: watcher.Created, Timestamp: time.Now()}
	close(events)

	done := make(chan struct{})
	go func() {
		e.ix.Watch(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after stream close")
	}

	if f, _ := e.store.FileByPath("a.mock"); f == nil {
		t.Error("event consumed but file not indexed")
	}
	if e.ix.State() != StateIdle {
		t.Errorf("expected idle state after Watch returns, got %s", e.ix.State())
	}
}
