package linker

import "testing"

func TestApplyCopyRelocationReservesBssAndRecordsCopyRel(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("dso_var")
	sym.Size = 8
	sym.P2Align = 3

	ApplyCopyRelocation(ctx, sym)

	if ctx.In.Bss == nil || len(ctx.In.Bss.Syms) != 1 {
		t.Fatal("a copy relocation must reserve a .bss slot")
	}
	if sym.CopyRelSection != ctx.In.Bss {
		t.Error("the symbol must be redirected to point at its .bss slot")
	}
	if ctx.In.RelaDyn == nil || len(ctx.In.RelaDyn.Entries) != 1 {
		t.Fatal("a copy relocation must record exactly one COPY dynamic relocation")
	}
	if RelType(ctx.In.RelaDyn.Entries[0].Type) != ctx.Target.CopyRel() {
		t.Errorf("expected the recorded relocation to use Target.CopyRel(), got %d", ctx.In.RelaDyn.Entries[0].Type)
	}
}

func TestApplyCopyRelocationReadOnlySegmentUsesBssRelRo(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("dso_const")
	sym.Size = 4
	sym.P2Align = 2
	sym.ReadOnlySegment = true

	ApplyCopyRelocation(ctx, sym)

	if ctx.In.BssRelRo == nil || len(ctx.In.BssRelRo.Syms) != 1 {
		t.Fatal("a read-only-segment DSO symbol must be promoted into .bss.rel.ro, not .bss")
	}
	if ctx.In.Bss != nil {
		t.Error(".bss must stay unallocated when only a relro copy relocation was requested")
	}
}

func TestApplyCanonicalPltMarksSymbol(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("dso_func")

	ApplyCanonicalPlt(ctx, sym)

	if !sym.NeedsPltAddr || !sym.CanonicalSymbol {
		t.Error("a canonical PLT symbol must be flagged NeedsPltAddr and CanonicalSymbol")
	}
	if ctx.In.Plt == nil || len(ctx.In.Plt.Syms) != 1 {
		t.Error("ApplyCanonicalPlt must reserve a .plt stub")
	}
}
