package linker

import "debug/elf"

// Relocation is a decoded, analysed entry of C8's per-relocation scan
// (spec.md §3): it carries not just what was on disk (Rela, Sym) but
// what the scanner derived from it, so later passes (synthetic-section
// sizing, thunk creation, the final apply pass) never need to re-derive
// the same RelExpr twice.
type Relocation struct {
	Offset uint64
	Type   RelType
	Sym    *Symbol
	Addend int64

	Expr RelExpr

	// NeedsThunk is set by C10's CreateThunks when this call/branch site
	// turned out to be out of range and got redirected through a thunk.
	NeedsThunk  bool
	ThunkTarget *Thunk
}

// InputSection is one allocated section of one input object file.
// relscan does not implement section garbage collection (spec.md
// Non-goals), so every InputSection that survives comdat resolution
// (IsAlive) is kept and assigned to exactly one OutputSection.
type InputSection struct {
	File *ObjectFile

	Name    string
	Shndx   uint32
	ShSize  uint64
	ShFlags uint64
	ShType  uint32
	EntSize uint64
	P2Align uint8

	IsAlive bool

	Contents []byte
	Rels     []Rela

	Relocations []Relocation

	OutputSection *OutputSection
	Offset        uint32 // byte offset within OutputSection

	// EhPieces is non-nil only for a .eh_frame section; see ehframe.go.
	EhPieces []EhPiece
	ehCursor int

	// Comdat diagnostics (spec.md §6 scenario/edge case: "defined in
	// discarded section"). Set when this section lost a COMDAT group
	// election to PrevailingFile's copy of the same group.
	DiscardedSignature string
	PrevailingFile      *ObjectFile
}

func NewInputSection(ctx *Context, file *ObjectFile, shndx uint32, shdr *Shdr, name string) *InputSection {
	isec := &InputSection{
		File:    file,
		Name:    name,
		Shndx:   shndx,
		ShSize:  shdr.Size,
		ShFlags: shdr.Flags,
		ShType:  shdr.Type,
		EntSize: shdr.EntSize,
		P2Align: p2AlignFromShdr(shdr),
		IsAlive: true,
	}
	if shdr.Type != uint32(elf.SHT_NOBITS) {
		isec.Contents = file.GetBytesFromIdx(int64(shndx))
	}
	if name == ".eh_frame" && len(isec.Contents) > 0 {
		isec.EhPieces = buildEhFramePieces(isec.Contents)
	}
	if shdr.Flags&uint64(elf.SHF_ALLOC) != 0 {
		isec.OutputSection = GetOutputSection(ctx, name, uint64(shdr.Type), shdr.Flags)
	}
	return isec
}

func p2AlignFromShdr(shdr *Shdr) uint8 {
	align := shdr.AddrAlign
	if align == 0 {
		return 0
	}
	var p2 uint8
	for align > 1 {
		align >>= 1
		p2++
	}
	return p2
}

func (i *InputSection) GetAddr() uint64 {
	if i.OutputSection == nil {
		return 0
	}
	return i.OutputSection.Shdr.Addr + uint64(i.Offset)
}

// Discard marks the section dead for a COMDAT loss, recording the
// prevailing file+group signature C9's diagnostics pipeline reports.
func (i *InputSection) Discard(signature string, prevailing *ObjectFile) {
	i.IsAlive = false
	i.DiscardedSignature = signature
	i.PrevailingFile = prevailing
}
