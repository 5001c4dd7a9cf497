package linker

import (
	"debug/elf"
	"testing"
)

func newTestContext() *Context {
	ctx := NewContext()
	ctx.Target = NewAMD64Target()
	return ctx
}

func TestIsAbsoluteValue(t *testing.T) {
	undef := NewSymbol("undef")
	if !isAbsoluteValue(undef) {
		t.Error("an undefined symbol must be absolute")
	}

	tls := NewSymbol("tls_var")
	tls.Type = uint8(elf.STT_TLS)
	tls.InputSection = &InputSection{}
	if !isAbsoluteValue(tls) {
		t.Error("a TLS symbol must be absolute regardless of its section")
	}

	regular := NewSymbol("regular")
	regular.File = NewObjectFile(&File{Name: "regular.o"}, true)
	regular.InputSection = &InputSection{}
	if isAbsoluteValue(regular) {
		t.Error("a symbol defined in a real input section is not absolute")
	}

	abs := NewSymbol("abs")
	if !isAbsoluteValue(abs) {
		t.Error("a symbol with no section/fragment/copy-rel backing is absolute")
	}
}

func TestIsStaticLinkTimeConstantAlwaysConstant(t *testing.T) {
	ctx := newTestContext()
	sym := NewSymbol("x")
	if !IsStaticLinkTimeConstant(ctx, RDTPOff, RelType(0), sym, nil, 0) {
		t.Error("RDTPOff must always be static link-time constant")
	}
	if !IsStaticLinkTimeConstant(ctx, RCapTableIdx, RelType(0), sym, nil, 0) {
		t.Error("RCapTableIdx must always be static link-time constant")
	}
}

func TestIsStaticLinkTimeConstantNonSharedNonPie(t *testing.T) {
	ctx := newTestContext() // Shared=false, Pie=false
	sym := NewSymbol("localdef")
	sym.Binding = uint8(elf.STB_LOCAL)
	sym.InputSection = &InputSection{}

	if !IsStaticLinkTimeConstant(ctx, RAbs, RelType(0), sym, nil, 0) {
		t.Error("a non-preemptible symbol in a plain executable resolves statically")
	}
}

func TestIsStaticLinkTimeConstantPreemptibleInPie(t *testing.T) {
	ctx := newTestContext()
	ctx.Config.Pie = true

	sym := NewSymbol("preemptible")
	sym.Binding = uint8(elf.STB_GLOBAL)
	sym.Visibility = uint8(elf.STV_DEFAULT)
	sym.InputSection = &InputSection{}

	if IsStaticLinkTimeConstant(ctx, RAbs, RelType(0), sym, nil, 0) {
		t.Error("a preemptible symbol's absolute value must defer to the loader in a PIE")
	}
}

func TestIsStaticLinkTimeConstantGotSlotNeedsSharedOrPie(t *testing.T) {
	ctx := newTestContext() // static executable
	sym := NewSymbol("x")

	if !IsStaticLinkTimeConstant(ctx, RGot, RelType(0), sym, nil, 0) {
		t.Error("a GOT slot in a fixed-address executable is link-time constant")
	}

	ctx.Config.Pie = true
	if IsStaticLinkTimeConstant(ctx, RGot, RelType(0), sym, nil, 0) {
		t.Error("a GOT slot in a PIE needs a dynamic relocation")
	}
}
