package linker

import "testing"

func TestGotSectionAddGotSymbolIsIdempotent(t *testing.T) {
	g := NewGotSection()
	sym := NewSymbol("x")

	g.AddGotSymbol(sym)
	firstOffset := sym.GotOffset
	firstSize := g.Shdr.Size

	g.AddGotSymbol(sym)
	if sym.GotOffset != firstOffset || g.Shdr.Size != firstSize {
		t.Error("adding the same symbol twice must not grow the GOT or move its slot")
	}
	if len(g.GotSyms) != 1 {
		t.Errorf("expected exactly one GOT slot recorded, got %d", len(g.GotSyms))
	}
}

func TestGotSectionTlsGdReservesTwoSlots(t *testing.T) {
	g := NewGotSection()
	sym := NewSymbol("tls_gd")
	g.AddTlsGdSymbol(sym)

	if g.Shdr.Size != 2*gotEntrySize {
		t.Errorf("a TLS-GD access needs a module-index + offset pair, got size %d", g.Shdr.Size)
	}
}

func TestGotSectionAddTlsLdOffsetIsSharedAcrossCallers(t *testing.T) {
	g := NewGotSection()
	off1 := g.AddTlsLdOffset()
	off2 := g.AddTlsLdOffset()

	if off1 != off2 {
		t.Error("every Local-Dynamic access in the link must share the same module-index/offset pair")
	}
	if g.Shdr.Size != 2*gotEntrySize {
		t.Errorf("the shared LD pair must only be reserved once, got size %d", g.Shdr.Size)
	}
}

func TestPltSectionAddAllocatesGotPltSlotAndRelaPlt(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("callee")

	ctx.EnsurePlt().Add(ctx, sym)

	if !sym.InPlt {
		t.Error("Add must mark the symbol as placed in .plt")
	}
	if ctx.In.GotPlt == nil || len(ctx.In.GotPlt.Syms) != 1 {
		t.Fatal("adding a lazy-binding PLT stub must also reserve a .got.plt slot")
	}
	if ctx.In.RelaPlt == nil || len(ctx.In.RelaPlt.Entries) != 1 {
		t.Fatal("adding a lazy-binding PLT stub must record its JUMP_SLOT relocation")
	}
	if RelType(ctx.In.RelaPlt.Entries[0].Type) != ctx.Target.PltRel() {
		t.Errorf("expected the JUMP_SLOT record to use Target.PltRel(), got %d", ctx.In.RelaPlt.Entries[0].Type)
	}
}

func TestPltSectionAddIsIdempotentPerSymbol(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("callee")

	ctx.EnsurePlt().Add(ctx, sym)
	ctx.EnsurePlt().Add(ctx, sym)

	if len(ctx.In.Plt.Syms) != 1 {
		t.Errorf("adding the same symbol twice must not create a second PLT stub, got %d", len(ctx.In.Plt.Syms))
	}
	if len(ctx.In.RelaPlt.Entries) != 1 {
		t.Errorf("adding the same symbol twice must not record a second JUMP_SLOT, got %d", len(ctx.In.RelaPlt.Entries))
	}
}

func TestPltSectionIpltDoesNotTouchGotPltOrRelaPlt(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("resolver")

	ctx.EnsureIplt().Add(ctx, sym)

	if !sym.InIplt {
		t.Error("Add on an Iplt section must mark the symbol InIplt")
	}
	if ctx.In.GotPlt != nil {
		t.Error("an ifunc's .iplt stub must not allocate the lazy-binding .got.plt table")
	}
	if ctx.In.RelaPlt != nil {
		t.Error("an ifunc's .iplt stub is recorded via .rela.dyn/IRELATIVE, not .rela.plt")
	}
}

func TestEnsurePltAllocatesOnce(t *testing.T) {
	ctx := newTestContext()
	p1 := ctx.EnsurePlt()
	p2 := ctx.EnsurePlt()
	if p1 != p2 {
		t.Error("EnsurePlt must return the same *PltSection on repeated calls")
	}
	found := 0
	for _, c := range ctx.Chunks {
		if c == Chunker(p1) || c == Chunker(ctx.In.GotPlt) {
			found++
		}
	}
	if found != 2 {
		t.Errorf("EnsurePlt must push exactly .plt and .got.plt once each, found %d", found)
	}
}
