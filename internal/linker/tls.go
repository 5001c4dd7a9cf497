package linker

// This file is C5, the TLS relocation handler: given an abstract TLS
// RelExpr, it decides which of the four access models (GD, LD, IE, LE)
// actually gets emitted, performing the GD→IE, GD→LE, LD→LE and
// IE→LE relaxations spec.md §4.5 describes when the output and target
// allow it, and grows whatever GOT state the chosen model needs.
//
// MIPS is out of scope: relscan carries no MIPS target, so the
// "MIPS never relaxes" branch has nothing to route to and is omitted.

// toExecRelax reports whether a dynamic TLS access may be rewritten
// into a cheaper static one: never in a -shared output, and never on
// RISC-V, whose target does not permit TLS relaxation (ARM and
// Hexagon, which do not permit it either, have no Target in relscan).
func toExecRelax(ctx *Context) bool {
	if _, isRISCV := ctx.Target.(*RISCV64Target); isRISCV {
		return false
	}
	return !ctx.Config.Shared
}

// TLSOutcome is what HandleTLS decided to do with one TLS relocation:
// the (possibly rewritten) expression to record, and how many
// relocation records it consumed (GetTlsGdRelaxSkip for a relaxed
// GD/LD access, 1 for everything else).
type TLSOutcome struct {
	Expr     RelExpr
	Consumed int
}

// HandleTLS is C5's single entry point, called by the scanner (C8)
// whenever GetRelExpr returns a TLS-flavoured expression.
func HandleTLS(ctx *Context, target Target, relType RelType, sym *Symbol, expr RelExpr, preemptible bool) TLSOutcome {
	relax := toExecRelax(ctx)

	switch {
	case needsTlsDesc(expr):
		return handleTlsDesc(ctx, sym, expr, preemptible)

	case needsTlsLd(expr):
		return handleTlsLd(ctx, target, relType, expr, relax)

	case needsTlsGd(expr):
		return handleTlsGd(ctx, target, relType, sym, expr, relax, preemptible)

	case expr == RGotPc || expr == RGot:
		if relax && !preemptible && !ctx.Config.Shared {
			// GOT-IE → LE: the symbol's TP offset is now known
			// statically, no GOT slot is needed at all.
			return TLSOutcome{Expr: RTPOff, Consumed: 1}
		}
		ctx.In.Got.AddGotTpSymbol(sym)
		return TLSOutcome{Expr: expr, Consumed: 1}

	default:
		return TLSOutcome{Expr: expr, Consumed: 1}
	}
}

func handleTlsDesc(ctx *Context, sym *Symbol, expr RelExpr, preemptible bool) TLSOutcome {
	if expr == RTlsDescCall {
		// The call instruction itself never touches the GOT; it is
		// recorded as a residual so the target can NOP it out if the
		// descriptor call turns out to be unreachable.
		return TLSOutcome{Expr: expr, Consumed: 1}
	}
	ctx.In.Got.AddTlsDescSymbol(sym)
	if ctx.Config.Shared {
		ctx.EnsureRelaDyn().Add(Rela{
			Offset: ctx.In.Got.Shdr.Addr + uint64(sym.TlsDescOffset),
			Type:   uint32(ctx.Target.TlsDescRel()),
		})
	}
	return TLSOutcome{Expr: expr, Consumed: 1}
}

func handleTlsLd(ctx *Context, target Target, relType RelType, expr RelExpr, relax bool) TLSOutcome {
	if relax {
		le := target.AdjustTlsExpr(relType, RTPOff)
		return TLSOutcome{Expr: le, Consumed: target.GetTlsGdRelaxSkip(relType)}
	}

	off := ctx.In.Got.AddTlsLdOffset()
	if !ctx.Config.Shared {
		// The module index of the executable itself is always 1; no
		// dynamic relocation needed to fill it in.
		_ = off
	} else {
		ctx.EnsureRelaDyn().Add(Rela{
			Offset: ctx.In.Got.Shdr.Addr + uint64(off),
			Type:   uint32(ctx.Target.TlsModuleIndexRel()),
		})
	}
	return TLSOutcome{Expr: expr, Consumed: 1}
}

func handleTlsGd(ctx *Context, target Target, relType RelType, sym *Symbol, expr RelExpr, relax, preemptible bool) TLSOutcome {
	if !relax {
		ctx.In.Got.AddTlsGdSymbol(sym)
		if preemptible {
			ctx.EnsureRelaDyn().Add(Rela{
				Offset: ctx.In.Got.Shdr.Addr + uint64(sym.TlsGdOffset),
				Type:   uint32(ctx.Target.TlsModuleIndexRel()),
				Sym:    uint32(sym.SymIdx),
			})
			ctx.EnsureRelaDyn().Add(Rela{
				Offset: ctx.In.Got.Shdr.Addr + uint64(sym.TlsGdOffset) + 8,
				Type:   uint32(ctx.Target.TlsOffsetRel()),
				Sym:    uint32(sym.SymIdx),
			})
		} else if ctx.Config.Shared {
			ctx.EnsureRelaDyn().Add(Rela{
				Offset: ctx.In.Got.Shdr.Addr + uint64(sym.TlsGdOffset),
				Type:   uint32(ctx.Target.TlsModuleIndexRel()),
			})
		}
		return TLSOutcome{Expr: expr, Consumed: 1}
	}

	if preemptible {
		ctx.In.Got.AddGotTpSymbol(sym)
		ie := target.AdjustTlsExpr(relType, RGotPc)
		return TLSOutcome{Expr: ie, Consumed: target.GetTlsGdRelaxSkip(relType)}
	}

	le := target.AdjustTlsExpr(relType, RTPOff)
	return TLSOutcome{Expr: le, Consumed: target.GetTlsGdRelaxSkip(relType)}
}
