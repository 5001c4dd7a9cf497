package linker

import "testing"

// newIFuncContext gives scanIFunc tests a Context with .got already
// allocated, matching the ordering CreateSyntheticSections guarantees
// in production before ScanRelocations ever runs.
func newIFuncContext() *Context {
	ctx := newTestContext()
	ctx.In.Got = NewGotSection()
	return ctx
}

func TestGotPltSectionAddIsIdempotentForIgot(t *testing.T) {
	g := NewGotPltSection(true)
	sym := NewSymbol("resolver")

	first := g.Add(sym)
	second := g.Add(sym)

	if first != second {
		t.Errorf("calling Add twice on the same symbol returned different offsets: %d, %d", first, second)
	}
	if len(g.Syms) != 1 {
		t.Fatalf("expected exactly one IGOT.PLT slot, got %d", len(g.Syms))
	}
}

func TestScanIFuncDirectThenGotproducesOneIgotEntryAndOneIrelative(t *testing.T) {
	ctx := newIFuncContext()
	sym := NewSymbol("resolver")
	sym.Type = uint8(0x0a) // STT_GNU_IFUNC

	// Scenario 4: a direct call first, then a GOTPCREL to the same ifunc.
	scanIFunc(ctx, sym, RPltPc)
	scanIFunc(ctx, sym, RGotPc)

	if ctx.In.Iplt == nil || len(ctx.In.Iplt.Syms) != 1 {
		t.Fatal("expected exactly one Iplt entry")
	}
	if ctx.In.IgotPlt == nil || len(ctx.In.IgotPlt.Syms) != 1 {
		t.Fatal("expected exactly one IGOT.PLT entry, not one per relocation")
	}
	if ctx.In.RelaDyn == nil || len(ctx.In.RelaDyn.Entries) != 1 {
		t.Fatal("expected exactly one IRELATIVE record, not one per relocation")
	}
	if !sym.GotInIgot {
		t.Error("the GOT-generating reference must be redirected through IGOT.PLT")
	}
	if sym.CanonicalSymbol {
		t.Error("no direct reference arrived after the GOT reference, so the PLT entry must not be canonicalised yet")
	}
}

func TestScanIFuncCanonicalisesAfterLaterDirectReference(t *testing.T) {
	ctx := newIFuncContext()
	sym := NewSymbol("resolver")
	sym.Type = uint8(0x0a)

	scanIFunc(ctx, sym, RPltPc) // initial direct call: Iplt + IGOT.PLT
	scanIFunc(ctx, sym, RGotPc) // GOT-generating ref: routed through IGOT.PLT

	scanIFunc(ctx, sym, RAbs) // later direct, non-GOT, non-PLT reference

	if !sym.CanonicalSymbol || !sym.NeedsPltAddr {
		t.Error("a later direct reference must flip the ifunc's PLT entry to canonical")
	}
	if sym.GotInIgot {
		t.Error("canonicalising must clear the IGOT.PLT redirect")
	}
	if !sym.InGot {
		t.Error("canonicalising a previously GOT-redirected ifunc must materialise a real GOT entry")
	}
	if ctx.In.IgotPlt == nil || len(ctx.In.IgotPlt.Syms) != 1 {
		t.Error("canonicalising must not allocate a second IGOT.PLT entry")
	}
}
