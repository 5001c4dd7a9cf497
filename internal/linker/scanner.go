package linker

import (
	"debug/elf"
	"sort"
)

// This file is C8, the per-relocation scanner: the pass that walks
// every input section's relocation records, classifies each one with
// C1/C4/C5, grows whatever C6/C7 synthetic state it needs, and leaves
// a Relocation record behind for the final byte-writing pass.

// ScanRelocations runs C8 over every live input section of every live
// object file, then drains the per-symbol NeedsX flags the scan
// accumulated into concrete GOT/PLT allocations.
func ScanRelocations(ctx *Context) {
	for _, file := range ctx.Objs {
		if !file.IsAlive {
			continue
		}
		for _, isec := range file.InputSections {
			if isec == nil || !isec.IsAlive || len(isec.Rels) == 0 {
				continue
			}
			scanSection(ctx, file, isec)
		}
	}

	for _, file := range ctx.Objs {
		for _, sym := range file.Symbols {
			if sym == nil || sym.Flags == 0 {
				continue
			}
			drainFlags(ctx, sym)
			sym.Flags = 0
		}
	}
}

func drainFlags(ctx *Context, sym *Symbol) {
	if sym.Flags&NeedsGot != 0 {
		ctx.In.Got.AddGotSymbol(sym)
	}
	if sym.Flags&NeedsGotTp != 0 {
		ctx.In.Got.AddGotTpSymbol(sym)
	}
	if sym.Flags&NeedsPlt != 0 {
		ctx.EnsurePlt().Add(ctx, sym)
	}
	if sym.Flags&NeedsCopyRel != 0 {
		ApplyCopyRelocation(ctx, sym)
	}
	if sym.Flags&NeedsCanonicalPlt != 0 {
		ApplyCanonicalPlt(ctx, sym)
	}
	if sym.Flags&NeedsCapTable != 0 {
		ctx.EnsureCapTable().Add(sym)
	}
}

func scanSection(ctx *Context, file *ObjectFile, isec *InputSection) {
	isec.ResetOffsetCursor()

	for i := 0; i < len(isec.Rels); i++ {
		rel := &isec.Rels[i]
		relType := RelType(rel.Type)

		symIdx := int(rel.Sym)
		if symIdx >= len(file.Symbols) || file.Symbols[symIdx] == nil {
			continue
		}
		sym := file.Symbols[symIdx]

		offset, alive := isec.TranslateOffset(uint32(rel.Offset))
		if !alive {
			continue
		}

		discarded := sym.InputSection != nil && !sym.InputSection.IsAlive
		if (sym.IsUndefined() && !sym.IsUndefWeak()) || discarded {
			RecordUndefinedDiag(ctx, sym, isec, rel.Offset)
			if ctx.Config.UnresolvedSymbols == UnresolvedError {
				continue
			}
		}

		var loc []byte
		if int(offset) >= 0 && int(offset) < len(isec.Contents) {
			loc = isec.Contents[offset:]
		}

		expr := ctx.Target.GetRelExpr(relType, sym, loc)
		if expr == RNone {
			continue
		}

		addend := ComputeAddend(ctx.Target, true, isec.Rels, i, loc)

		preemptible := sym.IsPreemptible(ctx)

		// Non-preemptible relaxation: a PLT indirection nobody needs
		// collapses back to a direct reference.
		if !preemptible && !sym.IsIFunc() && needsPlt(expr) {
			expr = fromPlt(expr)
		}
		if expr == RGotPc && !isAbsoluteValue(sym) {
			expr = ctx.Target.AdjustGotPcExpr(relType, addend, loc)
		}

		if isTLSExpr(expr) || (sym.IsTLS() && (expr == RGotPc || expr == RGot)) {
			outcome := HandleTLS(ctx, ctx.Target, relType, sym, expr, preemptible)
			expr = outcome.Expr
			if outcome.Consumed > 1 {
				i += outcome.Consumed - 1
			}
		} else if sym.IsIFunc() && !preemptible {
			scanIFunc(ctx, sym, expr)
		} else {
			if needsPlt(expr) {
				sym.Flags |= NeedsPlt
			}
			if needsGot(expr) {
				sym.Flags |= NeedsGot
			}
			if needsCapTable(expr) {
				sym.Flags |= NeedsCapTable
			}
		}

		rec := Relocation{
			Offset: offset1(offset),
			Type:   relType,
			Sym:    sym,
			Addend: addend,
			Expr:   expr,
		}
		processRelocAux(ctx, isec, rec, preemptible)
	}

	if ctx.Args.Emulation == MachineTypeRISCV64 {
		sortRelocationsByOffset(isec)
	}
}

func offset1(off int64) uint64 {
	if off < 0 {
		return 0
	}
	return uint64(off)
}

func isTLSExpr(e RelExpr) bool {
	return needsTlsGd(e) || needsTlsLd(e) || needsTlsDesc(e) ||
		e == RDTPOff || e == RTPOff
}

func scanIFunc(ctx *Context, sym *Symbol, expr RelExpr) {
	if !sym.InIplt {
		ctx.EnsureIplt().Add(ctx, sym)
		ctx.In.IgotPlt.Add(sym)
		ctx.EnsureRelaDyn().Add(Rela{
			Offset: ctx.In.IgotPlt.Shdr.Addr + uint64(sym.IgotPltIdx),
			Type:   uint32(ctx.Target.IRelativeRel()),
		})
	}

	switch {
	case needsGot(expr):
		// IRELATIVE relocations are always applied eagerly, so a
		// GOT-generating reference can read straight out of IGOT.PLT
		// instead of getting its own .got slot.
		sym.GotInIgot = true
	case !needsPlt(expr):
		// A direct, non-GOT, non-PLT reference needs a fixed value for
		// an ifunc that otherwise has none: canonicalise, same as a
		// preemptible Shared function's canonical PLT entry.
		ApplyCanonicalPlt(ctx, sym)
		if sym.GotInIgot {
			// The earlier GOT-generating reference pointed at IGOT.PLT;
			// now that the symbol has a fixed PLT address, give it a
			// real GOT entry instead and drop the IGOT.PLT redirect.
			sym.GotInIgot = false
			ctx.In.Got.AddGotSymbol(sym)
		}
	}
}

// sortRelocationsByOffset restores offset order after RISC-V's
// relaxation-driven record consumption may have visited entries
// out of the order they will be applied in.
func sortRelocationsByOffset(isec *InputSection) {
	sort.SliceStable(isec.Relocations, func(i, j int) bool {
		return isec.Relocations[i].Offset < isec.Relocations[j].Offset
	})
}

// processRelocAux is the tail of C8's per-relocation loop (spec.md
// §4.8.l): decide whether the record can be resolved now or needs a
// dynamic relocation, and append it to the section's residual list.
func processRelocAux(ctx *Context, isec *InputSection, rec Relocation, preemptible bool) {
	isec.Relocations = append(isec.Relocations, rec)

	if IsStaticLinkTimeConstant(ctx, rec.Expr, rec.Type, rec.Sym, isec, rec.Offset) {
		return
	}
	if rec.Sym.IsUndefWeak() && !ctx.Config.Shared {
		return
	}

	writable := isec.ShFlags&uint64(elf.SHF_WRITE) != 0

	switch {
	case rec.Sym.IsShared() && rec.Sym.IsObject():
		if !ctx.Config.ZCopyreloc {
			ctx.Error("%s: definition requires a copy relocation, disallowed by -z nocopyreloc", rec.Sym.Name)
			return
		}
		rec.Sym.Flags |= NeedsCopyRel
	case rec.Sym.IsShared() && rec.Sym.IsFunc():
		if !ctx.Config.Shared {
			rec.Sym.Flags |= NeedsCanonicalPlt
		}
	case writable:
		if rec.Expr == RGot || (!preemptible && rec.Type == ctx.Target.SymbolicRel()) {
			ctx.EnsureRelaDyn().Add(Rela{
				Offset: 0, // left 0: no later pass rewrites this record's offset
				Type:   uint32(ctx.Target.RelativeRel()),
			})
		} else {
			ctx.EnsureRelaDyn().Add(Rela{
				Offset: 0,
				Type:   uint32(ctx.Target.SymbolicRel()),
				Sym:    uint32(rec.Sym.SymIdx),
				Addend: rec.Addend,
			})
		}
	default:
		// A dynamic relocation against a non-writable section: a text
		// relocation. -z text refuses it outright; otherwise it is
		// recorded like any other symbolic dynamic relocation and the
		// segment loses its read-only guarantee at load time.
		if ctx.Config.ZText {
			ctx.Error("%s: relocation in read-only section requires a text relocation, disallowed by -z text", rec.Sym.Name)
			return
		}
		ctx.EnsureRelaDyn().Add(Rela{
			Offset: 0,
			Type:   uint32(ctx.Target.SymbolicRel()),
			Sym:    uint32(rec.Sym.SymIdx),
			Addend: rec.Addend,
		})
	}
}
