package linker

// This file is C4, link-time-constant classification: deciding whether
// a relocation's final value can be written once, during this link, or
// whether it must be deferred to the dynamic loader via a dynamic
// relocation record (spec.md §4.4's isStaticLinkTimeConstant).

// alwaysConstant expressions compute the same way regardless of PIC
// mode or symbol preemptibility: an offset into a GOT the linker
// itself owns, or a TLS/descriptor expression whose dynamic-relocation
// handling is already folded into C5.
var maskAlwaysConstant = maskOf(
	RDTPOff, RGotOff, RCapTableIdx, RTlsDescCall, RTlsDescPc,
)

// isAbsoluteValue reports whether a symbol's defined value does not
// depend on where its containing section ends up — an absolute symbol,
// or one defined in a TLS section (whose final value is PC/link-base
// independent once the TP offset is applied).
func isAbsoluteValue(sym *Symbol) bool {
	if sym.IsUndefined() {
		return true
	}
	if sym.IsTLS() {
		return true
	}
	return sym.InputSection == nil && sym.SectionFragment == nil && sym.CopyRelSection == nil
}

// IsStaticLinkTimeConstant decides whether relOff's relocation can be
// resolved once, here, by writing sym's final value directly into the
// section, or whether a dynamic relocation record must carry the work
// to load time.
func IsStaticLinkTimeConstant(ctx *Context, e RelExpr, relType RelType, sym *Symbol, isec *InputSection, relOff uint64) bool {
	if maskAlwaysConstant.has(e) {
		return true
	}

	// A GOT/PLT/TLSDESC slot's own contents are always filled in by a
	// dynamic relocation unless the whole file is loaded at a fixed,
	// known address, or only the slot's low page bits are consumed.
	if e == RGot || e == RPlt || e == RTlsDesc {
		return ctx.Target.UsesOnlyLowPageBits(relType) || (!ctx.Config.Shared && !ctx.Config.Pie)
	}

	if sym.IsPreemptible(ctx) {
		return false
	}
	if !ctx.Config.Shared && !ctx.Config.Pie {
		return true
	}

	if e == RSize {
		return true
	}

	absVal := isAbsoluteValue(sym)
	relE := isRelExpr(e)
	switch {
	case absVal && !relE:
		return true
	case !absVal && relE:
		return true
	case !absVal && !relE:
		return ctx.Target.UsesOnlyLowPageBits(relType)
	}

	// absVal && relE: an absolute symbol referenced PC-relative. Only
	// legitimate for an undefined-weak symbol (resolves to 0, and
	// callers guard the call with a null check) — everything else is a
	// real error the diagnostics pipeline (C9) should have already
	// caught upstream via the undefined-symbol scan.
	return sym.IsUndefWeak()
}
