package linker

import (
	"debug/elf"
	"strings"
	"testing"
)

func TestRecordUndefinedDiagBucketsBySymbol(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("foo")
	isecA := &InputSection{File: &ObjectFile{InputFile: InputFile{File: &File{Name: "a.o"}}}}
	isecB := &InputSection{File: &ObjectFile{InputFile: InputFile{File: &File{Name: "b.o"}}}}

	RecordUndefinedDiag(ctx, sym, isecA, 0x10)
	RecordUndefinedDiag(ctx, sym, isecB, 0x20)

	if len(ctx.UndefinedDiags) != 1 {
		t.Fatalf("expected one bucket for repeated references to the same symbol, got %d", len(ctx.UndefinedDiags))
	}
	if len(ctx.UndefinedDiags[0].Locations) != 2 {
		t.Fatalf("expected both references recorded, got %d", len(ctx.UndefinedDiags[0].Locations))
	}
}

func TestRecordUndefinedDiagSkipsPPCBugSections(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("_GLOBAL_OFFSET_TABLE_")
	sym.InputSection = &InputSection{Name: ".got2"}

	RecordUndefinedDiag(ctx, sym, sym.InputSection, 0)

	if len(ctx.UndefinedDiags) != 0 {
		t.Error("a reference from .got2/.toc must never generate a diagnostic")
	}
}

func TestRecordUndefinedDiagIgnoreAllSkipsGlobals(t *testing.T) {
	ctx := newTestContext()
	ctx.Config.UnresolvedSymbols = UnresolvedIgnoreAll
	sym := NewSymbol("global_undef")
	sym.Binding = uint8(elf.STB_GLOBAL)

	RecordUndefinedDiag(ctx, sym, nil, 0)

	if len(ctx.UndefinedDiags) != 0 {
		t.Error("-unresolved-symbols=ignore-all must suppress non-local undefined diagnostics")
	}
}

func TestReportUndefinedSymbolsCountsErrorsAndWarnings(t *testing.T) {
	ctx := newTestContext()
	RecordUndefinedDiag(ctx, NewSymbol("err_sym"), nil, 0)

	ctx.Config.UnresolvedSymbols = UnresolvedWarn
	RecordUndefinedDiag(ctx, NewSymbol("warn_sym"), nil, 0)

	lines := ReportUndefinedSymbols(ctx)
	if len(lines) != 2 {
		t.Fatalf("expected one rendered line per bucket, got %d", len(lines))
	}
	if ctx.NumErrors != 1 || ctx.NumWarnings != 1 {
		t.Errorf("expected 1 error + 1 warning, got %d errors, %d warnings", ctx.NumErrors, ctx.NumWarnings)
	}
	if !strings.Contains(lines[0], "error") {
		t.Errorf("first diagnostic should render as an error: %q", lines[0])
	}
	if !strings.Contains(lines[1], "warning") {
		t.Errorf("second diagnostic should render as a warning: %q", lines[1])
	}
}

func TestRenderDiagOverflowsPastMaxLocations(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("busy")
	diag := UndefinedDiag{Sym: sym}
	for i := 0; i < maxLocationsShown+2; i++ {
		diag.Locations = append(diag.Locations, UndefinedLoc{Offset: uint64(i)})
	}

	out := renderDiag(ctx, diag, false)
	if !strings.Contains(out, "referenced 2 more times") {
		t.Errorf("expected an overflow count for the two locations past the cap, got: %s", out)
	}
}

func TestSuggestSpellingFindsSingleEditCandidate(t *testing.T) {
	ctx := newTestContext()
	defined := NewSymbol("do_something")
	defined.File = NewObjectFile(&File{Name: "defs.o"}, true)
	ctx.SymbolMap["do_something"] = defined

	hint := suggestSpelling(ctx, "do_somethign")
	if hint != "do_something" {
		t.Errorf("expected suggestSpelling to find the transposed name, got %q", hint)
	}
}

func TestSuggestSpellingCaseInsensitiveFallback(t *testing.T) {
	ctx := newTestContext()
	defined := NewSymbol("MyFunction")
	defined.File = NewObjectFile(&File{Name: "defs.o"}, true)
	ctx.SymbolMap["MyFunction"] = defined

	hint := suggestSpelling(ctx, "myfunction")
	if hint != "MyFunction" {
		t.Errorf("expected a case-insensitive fallback match, got %q", hint)
	}
}

func TestCxxExternCHintRoundTrips(t *testing.T) {
	mangled, ok := cxxExternCHint("foo")
	if !ok || mangled != "_Z3foov" {
		t.Errorf("cxxExternCHint(foo) = %q, %v, want _Z3foov, true", mangled, ok)
	}

	demangled, ok := cxxExternCHint("_Z3foov")
	if !ok || demangled != "foo" {
		t.Errorf("cxxExternCHint(_Z3foov) = %q, %v, want foo, true", demangled, ok)
	}
}
