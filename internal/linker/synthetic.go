package linker

import (
	"debug/elf"

	"github.com/tanisaro/relscan/internal/utils"
)

// This file is C6, the synthetic-section effector: every section that
// does not come from an input object but is conjured up because some
// relocation needed it (GOT slots, PLT stubs, the two RELA tables that
// carry dynamic relocations, and the .bss areas a copy relocation
// promotes a DSO symbol into). The GOT, PLT, .igot.plt and capability-
// table Add methods are idempotent per symbol: the scanner may visit
// the same relocation's symbol more than once across several input
// sections, and must not hand out two slots for it. GotPltSection.Add
// on .got.plt, BssSection.Add and RelaDynSection.Add append on every
// call.

const gotEntrySize = 8

// GotSection backs every ordinary GOT-indirected access: regular
// object addresses, TLS Initial-Exec offsets and TLS-GD/LD module
// index + offset pairs. A MIPS-style GOT would additionally need a
// per-object local/global split; relscan's MIPS target (if ever added)
// would reuse this same section with a different GetEntries ordering.
type GotSection struct {
	Chunk
	GotSyms    []*Symbol
	GotTpSyms  []*Symbol
	TlsGdSyms  []*Symbol
	TlsDescSyms []*Symbol
	tlsLdOff   int32 // -1 until AddTlsLdOffset is called once
}

func NewGotSection() *GotSection {
	g := &GotSection{Chunk: NewChunk(), tlsLdOff: -1}
	g.Name = ".got"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	return g
}

func (g *GotSection) AddGotSymbol(sym *Symbol) {
	if sym.InGot {
		return
	}
	sym.InGot = true
	sym.GotOffset = int32(g.Shdr.Size)
	g.Shdr.Size += gotEntrySize
	g.GotSyms = append(g.GotSyms, sym)
}

func (g *GotSection) AddGotTpSymbol(sym *Symbol) {
	if sym.InGotTp {
		return
	}
	sym.InGotTp = true
	sym.GotTpOffset = int32(g.Shdr.Size)
	g.Shdr.Size += gotEntrySize
	g.GotTpSyms = append(g.GotTpSyms, sym)
}

func (g *GotSection) AddTlsGdSymbol(sym *Symbol) {
	if sym.InTlsGd {
		return
	}
	sym.InTlsGd = true
	sym.TlsGdOffset = int32(g.Shdr.Size)
	g.Shdr.Size += 2 * gotEntrySize // module index + offset
	g.TlsGdSyms = append(g.TlsGdSyms, sym)
}

func (g *GotSection) AddTlsDescSymbol(sym *Symbol) {
	if sym.InTlsDesc {
		return
	}
	sym.InTlsDesc = true
	sym.TlsDescOffset = int32(g.Shdr.Size)
	g.Shdr.Size += 2 * gotEntrySize
	g.TlsDescSyms = append(g.TlsDescSyms, sym)
}

// AddTlsLdOffset reserves the one shared module-index/offset pair
// every Local-Dynamic access in the link shares (spec.md §4.5).
func (g *GotSection) AddTlsLdOffset() int32 {
	if g.tlsLdOff < 0 {
		g.tlsLdOff = int32(g.Shdr.Size)
		g.Shdr.Size += 2 * gotEntrySize
	}
	return g.tlsLdOff
}

func (g *GotSection) UpdateShdr(ctx *Context) {
	if g.Shdr.Size == 0 {
		g.Shdr.Size = gotEntrySize
	}
}

func (g *GotSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[g.Shdr.Offset : g.Shdr.Offset+g.Shdr.Size]
	for i := range buf {
		buf[i] = 0
	}
	for _, sym := range g.GotSyms {
		utils.Write[uint64](buf[sym.GotOffset:], sym.GetAddr(ctx))
	}
	for _, sym := range g.GotTpSyms {
		utils.Write[uint64](buf[sym.GotTpOffset:], sym.GetAddr(ctx)-ctx.TpAddr)
	}
	for _, sym := range g.TlsGdSyms {
		// Module index 1 + TP-relative offset: relscan links a single
		// static executable's worth of TLS, so every GD/LD access
		// belongs to module 1.
		utils.Write[uint64](buf[sym.TlsGdOffset:], 1)
		utils.Write[uint64](buf[sym.TlsGdOffset+gotEntrySize:], sym.GetAddr(ctx)-ctx.TpAddr)
	}
}

// GotPltSection backs the lazy-binding PLT's per-symbol pointer slots
// (.got.plt) and doubles, with IsIgot set, as the non-lazy IGOT.PLT
// table an IRELATIVE-resolved ifunc's canonical PLT stub indirects
// through.
type GotPltSection struct {
	Chunk
	IsIgot bool
	Syms   []*Symbol
}

func NewGotPltSection(isIgot bool) *GotPltSection {
	g := &GotPltSection{Chunk: NewChunk(), IsIgot: isIgot}
	if isIgot {
		g.Name = ".igot.plt"
	} else {
		g.Name = ".got.plt"
	}
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	if !isIgot {
		g.Shdr.Size = 3 * gotEntrySize // reserved dynamic-linker slots
	}
	return g
}

func (g *GotPltSection) Add(sym *Symbol) int32 {
	if g.IsIgot && sym.InIgotPlt {
		return sym.IgotPltIdx
	}
	idx := int32(g.Shdr.Size)
	g.Shdr.Size += gotEntrySize
	g.Syms = append(g.Syms, sym)
	if g.IsIgot {
		sym.IgotPltIdx = idx
		sym.InIgotPlt = true
	}
	return idx
}

func (g *GotPltSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[g.Shdr.Offset : g.Shdr.Offset+g.Shdr.Size]
	start := 0
	if !g.IsIgot {
		start = 3 * gotEntrySize
	}
	for i := range buf[:start] {
		buf[i] = 0
	}
	off := uint64(start)
	for range g.Syms {
		// Before the dynamic linker runs, every lazy slot points back
		// at the PLT header, which pushes the relocation index and
		// jumps to the resolver.
		utils.Write[uint64](buf[off:], ctx.Target.PltHeaderSize())
		off += gotEntrySize
	}
}

// PltSection backs either the lazy-binding .plt (its header stub plus
// one entry per NeedsPlt symbol, each jumping through .got.plt) or, if
// IsIplt, the .iplt table of IRELATIVE stubs an ifunc resolves into,
// jumping through .igot.plt instead.
type PltSection struct {
	Chunk
	IsIplt bool
	Syms   []*Symbol
}

func NewPltSection(isIplt bool) *PltSection {
	p := &PltSection{Chunk: NewChunk(), IsIplt: isIplt}
	if isIplt {
		p.Name = ".iplt"
	} else {
		p.Name = ".plt"
	}
	p.Shdr.Type = uint32(elf.SHT_PROGBITS)
	p.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	p.Shdr.AddrAlign = 16
	return p
}

func (p *PltSection) Add(ctx *Context, sym *Symbol) {
	if p.IsIplt {
		if sym.InIplt {
			return
		}
		sym.InIplt = true
		sym.IpltIdx = int32(len(p.Syms))
		p.Syms = append(p.Syms, sym)
		return
	}
	if sym.InPlt {
		return
	}
	sym.InPlt = true
	sym.PltIdx = int32(len(p.Syms))
	p.Syms = append(p.Syms, sym)

	// Every lazy-binding stub gets its own .got.plt pointer slot and a
	// JUMP_SLOT record that asks the dynamic linker to patch that slot
	// the first time the stub is actually called. ctx.In.GotPlt always
	// exists here: EnsurePlt allocates .plt and .got.plt together.
	ctx.In.GotPlt.Add(sym)
	ctx.EnsureRelaPlt().Add(Rela{
		Offset: 0, // left 0: no later pass rewrites this record's offset
		Type:   uint32(ctx.Target.PltRel()),
		Sym:    uint32(sym.SymIdx),
	})
}

func (p *PltSection) UpdateShdr(ctx *Context) {
	if p.IsIplt {
		p.Shdr.Size = uint64(len(p.Syms)) * ctx.Target.IpltEntrySize()
		return
	}
	n := uint64(len(p.Syms))
	if n == 0 {
		p.Shdr.Size = 0
		return
	}
	p.Shdr.Size = ctx.Target.PltHeaderSize() + n*ctx.Target.PltEntrySize()
}

// CapTableSection is the CHERI capability-table analogue of the GOT:
// one capability-sized, capability-tagged slot per referenced symbol,
// used by a pure-capability CHERI target in place of ordinary GOT
// entries (spec.md's domain-stack expansion). relscan allocates it
// (through EnsureCapTable) only when a scanned relocation's expression
// is RCapTableIdx; otherwise it is left nil.
type CapTableSection struct {
	Chunk
	Syms []*Symbol
}

func NewCapTableSection() *CapTableSection {
	c := &CapTableSection{Chunk: NewChunk()}
	c.Name = ".cap_table"
	c.Shdr.Type = uint32(elf.SHT_PROGBITS)
	c.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	c.Shdr.AddrAlign = 16 // capability size on a 64-bit pure-capability ABI
	return c
}

func (c *CapTableSection) Add(sym *Symbol) {
	if sym.InCapTable {
		return
	}
	sym.InCapTable = true
	sym.CapTableIdx = int32(len(c.Syms))
	c.Shdr.Size += 16
	c.Syms = append(c.Syms, sym)
}

// RelaDynSection is a generic Rela-record table: used both as .rela.dyn
// (R_*_RELATIVE / R_*_GLOB_DAT / copy relocations applied at load time)
// and, with a different name, as .rela.plt (the lazy-binding stubs'
// R_*_JUMP_SLOT records).
type RelaDynSection struct {
	Chunk
	Entries []Rela
}

func NewRelaDynSection(name string) *RelaDynSection {
	r := &RelaDynSection{Chunk: NewChunk()}
	r.Name = name
	r.Shdr.Type = uint32(elf.SHT_RELA)
	r.Shdr.Flags = uint64(elf.SHF_ALLOC)
	r.Shdr.EntSize = uint64(RelaSize)
	r.Shdr.AddrAlign = 8
	return r
}

func (r *RelaDynSection) Add(rel Rela) {
	r.Entries = append(r.Entries, rel)
	r.Shdr.Size = uint64(len(r.Entries)) * uint64(RelaSize)
}

func (r *RelaDynSection) CopyBuf(ctx *Context) {
	base := ctx.Buf[r.Shdr.Offset:]
	for i, rel := range r.Entries {
		utils.Write[Rela](base[i*int(RelaSize):], rel)
	}
}

// BssSection backs a copy relocation's destination storage: ordinary
// .bss for a symbol whose DSO definition lives in a writable segment,
// .bss.rel.ro (read-only after relocation) when Symbol.ReadOnlySegment
// says the DSO kept it read-only.
type BssSection struct {
	Chunk
	Syms []*Symbol
}

func NewBssSection(relro bool) *BssSection {
	b := &BssSection{Chunk: NewChunk()}
	if relro {
		b.Name = ".bss.rel.ro"
	} else {
		b.Name = ".bss"
	}
	b.Shdr.Type = uint32(elf.SHT_NOBITS)
	b.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	b.Shdr.AddrAlign = 16
	return b
}

func (b *BssSection) Add(sym *Symbol, size uint64, p2align uint8) {
	align := uint64(1) << p2align
	offset := utils.AlignTo(b.Shdr.Size, align)
	sym.InputSection = nil
	sym.SectionFragment = nil
	sym.CopyRelSection = b
	sym.Value = offset
	b.Shdr.Size = offset + size
	if b.Shdr.AddrAlign < align {
		b.Shdr.AddrAlign = align
	}
	b.Syms = append(b.Syms, sym)
}
