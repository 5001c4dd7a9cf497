package linker

import "github.com/tanisaro/relscan/internal/utils"

// This file is C7, the copy-relocation / canonical-PLT builder: what
// happens when a non-shared output directly references a Shared
// symbol (spec.md §4.7, scenario 2).

// ApplyCopyRelocation reserves space for a DSO-defined data symbol in
// .bss or .bss.rel.ro, promotes every alias the DSO exports at the
// same address alongside it, and records the one COPY dynamic
// relocation that asks the loader to materialise the DSO's initial
// bytes there at load time.
func ApplyCopyRelocation(ctx *Context, sym *Symbol) {
	if sym.Size == 0 {
		utils.Fatal(sym.Name + ": cannot create a copy relocation for a zero-size symbol")
	}
	if sym.P2Align == 0 && sym.Size > 1 {
		utils.Fatal(sym.Name + ": cannot create a copy relocation for a zero-alignment symbol")
	}

	bss := ctx.EnsureBss(sym.ReadOnlySegment)

	aliases := []*Symbol{sym}
	if sym.Shared != nil {
		for _, alias := range sym.Shared.AliasesAtValue(ctx, sym.Value) {
			if alias != sym {
				aliases = append(aliases, alias)
			}
		}
	}

	bss.Add(sym, sym.Size, sym.P2Align)
	for _, alias := range aliases[1:] {
		alias.InputSection = nil
		alias.SectionFragment = nil
		alias.CopyRelSection = bss
		alias.Value = sym.Value
		alias.Shared = nil
		alias.File = sym.File
	}

	ctx.EnsureRelaDyn().Add(Rela{
		Offset: bss.Shdr.Addr + sym.Value,
		Type:   uint32(ctx.Target.CopyRel()),
		Sym:    uint32(sym.SymIdx),
	})
}

// ApplyCanonicalPlt gives a DSO-defined *function* symbol a canonical
// PLT entry: every reference to it, from this executable or from
// another DSO loaded alongside it, must resolve to the same address,
// so the function symbol itself is redefined to point into the PLT
// rather than staying Shared.
func ApplyCanonicalPlt(ctx *Context, sym *Symbol) {
	ctx.EnsurePlt().Add(ctx, sym)
	sym.NeedsPltAddr = true
	sym.CanonicalSymbol = true
}
