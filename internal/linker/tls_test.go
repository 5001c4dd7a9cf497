package linker

import "testing"

// newTLSContext gives every TLS test a Context with .got already
// allocated the way CreateSyntheticSections does before scanning ever
// starts, matching production ordering.
func newTLSContext(shared bool) *Context {
	ctx := newTestContext()
	ctx.Config.Shared = shared
	ctx.In.Got = NewGotSection()
	return ctx
}

func TestHandleTLSGotIERelaxesToExecInStaticExe(t *testing.T) {
	ctx := newTLSContext(false)
	sym := NewSymbol("tls_ie")

	outcome := HandleTLS(ctx, ctx.Target, RelType(0), sym, RGotPc, false)
	if outcome.Expr != RTPOff {
		t.Errorf("expected GOT-IE to relax to RTPOff in a static executable, got %v", outcome.Expr)
	}
	if sym.InGotTp {
		t.Error("a relaxed IE access must not consume a GOT slot")
	}
}

func TestHandleTLSGotIEStaysDynamicWhenShared(t *testing.T) {
	ctx := newTLSContext(true)
	sym := NewSymbol("tls_ie")

	outcome := HandleTLS(ctx, ctx.Target, RelType(0), sym, RGotPc, false)
	if outcome.Expr != RGotPc {
		t.Errorf("a shared object must keep the GOT-indirected IE access, got %v", outcome.Expr)
	}
	if !sym.InGotTp {
		t.Error("an unrelaxed IE access must reserve a GOT(tp) slot")
	}
}

func TestHandleTLSGdNonPreemptibleRelaxesToLE(t *testing.T) {
	ctx := newTLSContext(false)
	sym := NewSymbol("tls_gd")

	outcome := HandleTLS(ctx, ctx.Target, RelType(0), sym, RTlsGd, false)
	if outcome.Expr != RTPOff {
		t.Errorf("a non-preemptible GD access in a static exe must relax to LE, got %v", outcome.Expr)
	}
	if sym.InTlsGd {
		t.Error("a fully relaxed GD access must not reserve a TLS-GD GOT slot")
	}
}

func TestHandleTLSGdPreemptibleRelaxesToIE(t *testing.T) {
	ctx := newTLSContext(false)
	sym := NewSymbol("tls_gd_preempt")

	outcome := HandleTLS(ctx, ctx.Target, RelType(0), sym, RTlsGd, true)
	if outcome.Expr != RGotPc {
		t.Errorf("a preemptible GD access must relax to IE, not LE, got %v", outcome.Expr)
	}
	if !sym.InGotTp {
		t.Error("relaxing GD to IE must reserve a GOT(tp) slot")
	}
}

func TestHandleTLSGdSharedNeverRelaxes(t *testing.T) {
	ctx := newTLSContext(true)
	sym := NewSymbol("tls_gd_shared")

	outcome := HandleTLS(ctx, ctx.Target, RelType(0), sym, RTlsGd, false)
	if outcome.Expr != RTlsGd {
		t.Errorf("a shared object must keep the full GD sequence, got %v", outcome.Expr)
	}
	if !sym.InTlsGd {
		t.Error("an unrelaxed GD access must reserve a TLS-GD GOT slot")
	}
	if ctx.In.RelaDyn == nil || len(ctx.In.RelaDyn.Entries) != 1 {
		t.Error("a shared, non-preemptible GD access needs exactly one module-index dynamic relocation")
	}
}

func TestHandleTLSDescCallNeverTouchesGot(t *testing.T) {
	ctx := newTLSContext(false)
	sym := NewSymbol("tls_desc")

	outcome := HandleTLS(ctx, ctx.Target, RelType(0), sym, RTlsDescCall, false)
	if outcome.Expr != RTlsDescCall {
		t.Errorf("the descriptor call site itself must pass through unchanged, got %v", outcome.Expr)
	}
	if sym.InTlsDesc {
		t.Error("RTlsDescCall must not allocate a descriptor GOT slot")
	}
}

func TestHandleTLSDescAllocatesGotSlot(t *testing.T) {
	ctx := newTLSContext(false)
	sym := NewSymbol("tls_desc")

	outcome := HandleTLS(ctx, ctx.Target, RelType(0), sym, RTlsDesc, false)
	if outcome.Expr != RTlsDesc {
		t.Errorf("expected RTlsDesc to pass through, got %v", outcome.Expr)
	}
	if !sym.InTlsDesc {
		t.Error("RTlsDesc must reserve a descriptor GOT slot")
	}
	if ctx.In.RelaDyn != nil {
		t.Error("a static executable's TLSDESC slot needs no dynamic relocation")
	}
}
