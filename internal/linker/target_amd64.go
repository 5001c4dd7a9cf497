package linker

import "debug/elf"

// AMD64Target implements Target for the x86-64 System V psABI.
// x86-64 has no branch-range limit worth modelling (a near CALL/JMP
// covers the entire 48-bit canonical address space in practice), so
// NeedsThunk always reports false and no thunk-section spacing is
// pre-seeded; C10 is exercised instead by the ARM64/RISC-V targets.
type AMD64Target struct{}

func NewAMD64Target() *AMD64Target { return &AMD64Target{} }

func (t *AMD64Target) Name() string { return "elf_x86_64" }

func (t *AMD64Target) GetRelExpr(relType RelType, sym *Symbol, loc []byte) RelExpr {
	switch elf.R_X86_64(relType) {
	case elf.R_X86_64_64, elf.R_X86_64_32, elf.R_X86_64_32S, elf.R_X86_64_16, elf.R_X86_64_8:
		return RAbs
	case elf.R_X86_64_PC32, elf.R_X86_64_PC64, elf.R_X86_64_PC16, elf.R_X86_64_PC8:
		return RPc
	case elf.R_X86_64_PLT32:
		return RPltPc
	case elf.R_X86_64_GOT32, elf.R_X86_64_GOT64:
		return RGotOff
	case elf.R_X86_64_GOTPCREL, elf.R_X86_64_GOTPCRELX, elf.R_X86_64_REX_GOTPCRELX:
		return RGotPc
	case elf.R_X86_64_SIZE32, elf.R_X86_64_SIZE64:
		return RSize
	case elf.R_X86_64_TPOFF32, elf.R_X86_64_TPOFF64:
		return RTPOff
	case elf.R_X86_64_DTPOFF32, elf.R_X86_64_DTPOFF64:
		return RDTPOff
	case elf.R_X86_64_TLSGD:
		return RTlsGdPc
	case elf.R_X86_64_TLSLD:
		return RTlsLdPc
	case elf.R_X86_64_GOTTPOFF:
		return RGotPc
	case elf.R_X86_64_GOTPC32_TLSDESC:
		return RTlsDescPc
	case elf.R_X86_64_TLSDESC_CALL:
		return RTlsDescCall
	case elf.R_X86_64_IRELATIVE:
		return RIrelativeRel
	case elf.R_X86_64_NONE:
		return RNone
	default:
		return RAbs
	}
}

func (t *AMD64Target) GetDynRel(relType RelType) RelType { return RelType(elf.R_X86_64_64) }

func (t *AMD64Target) AdjustTlsExpr(relType RelType, expr RelExpr) RelExpr { return expr }

func (t *AMD64Target) AdjustGotPcExpr(relType RelType, addend int64, loc []byte) RelExpr {
	return RGotPc
}

func (t *AMD64Target) GetTlsGdRelaxSkip(relType RelType) int {
	switch elf.R_X86_64(relType) {
	case elf.R_X86_64_TLSGD, elf.R_X86_64_TLSLD:
		return 2 // the GD/LD call sequence's companion PLT32 record
	default:
		return 1
	}
}

func (t *AMD64Target) GetImplicitAddend(loc []byte, relType RelType) int64 {
	return 0 // x86-64 objects are always RELA; never called in practice.
}

func (t *AMD64Target) UsesOnlyLowPageBits(relType RelType) bool { return false }

func (t *AMD64Target) InBranchRange(relType RelType, src, dst uint64) bool { return true }

func (t *AMD64Target) NeedsThunk(expr RelExpr, relType RelType, file *ObjectFile, src uint64, sym *Symbol, addend int64) bool {
	return false
}

func (t *AMD64Target) GetThunkSectionSpacing() uint64 { return 0 }

func (t *AMD64Target) SymbolicRel() RelType        { return RelType(elf.R_X86_64_64) }
func (t *AMD64Target) RelativeRel() RelType        { return RelType(elf.R_X86_64_RELATIVE) }
func (t *AMD64Target) PltRel() RelType             { return RelType(elf.R_X86_64_JMP_SLOT) }
func (t *AMD64Target) GotRel() RelType             { return RelType(elf.R_X86_64_GLOB_DAT) }
func (t *AMD64Target) TlsGotRel() RelType          { return RelType(elf.R_X86_64_TPOFF64) }
func (t *AMD64Target) TlsModuleIndexRel() RelType  { return RelType(elf.R_X86_64_DTPMOD64) }
func (t *AMD64Target) TlsOffsetRel() RelType       { return RelType(elf.R_X86_64_DTPOFF64) }
func (t *AMD64Target) TlsDescRel() RelType         { return RelType(elf.R_X86_64_TLSDESC) }
func (t *AMD64Target) IRelativeRel() RelType       { return RelType(elf.R_X86_64_IRELATIVE) }
func (t *AMD64Target) CopyRel() RelType            { return RelType(elf.R_X86_64_COPY) }

func (t *AMD64Target) IpltEntrySize() uint64 { return 16 }
func (t *AMD64Target) PltHeaderSize() uint64 { return 16 }
func (t *AMD64Target) PltEntrySize() uint64  { return 16 }
