package linker

import "debug/elf"

// ARM64Target implements Target for the AArch64 psABI. Unlike AMD64,
// AArch64's B/BL immediate is a signed 26-bit word offset: a ±128MiB
// range from the instruction, so C10's thunk machinery is genuinely
// load-bearing here once a call site and its destination end up in
// different ends of a large binary.
type ARM64Target struct{}

func NewARM64Target() *ARM64Target { return &ARM64Target{} }

func (t *ARM64Target) Name() string { return "aarch64elf" }

func (t *ARM64Target) GetRelExpr(relType RelType, sym *Symbol, loc []byte) RelExpr {
	switch elf.R_AARCH64(relType) {
	case elf.R_AARCH64_ABS64, elf.R_AARCH64_ABS32, elf.R_AARCH64_ABS16:
		return RAbs
	case elf.R_AARCH64_PREL64, elf.R_AARCH64_PREL32, elf.R_AARCH64_PREL16:
		return RPc
	case elf.R_AARCH64_CALL26, elf.R_AARCH64_JUMP26:
		return RPltPc
	case elf.R_AARCH64_ADR_PREL_PG_HI21, elf.R_AARCH64_ADR_PREL_PG_HI21_NC,
		elf.R_AARCH64_ADD_ABS_LO12_NC, elf.R_AARCH64_LDST8_ABS_LO12_NC,
		elf.R_AARCH64_LDST16_ABS_LO12_NC, elf.R_AARCH64_LDST32_ABS_LO12_NC,
		elf.R_AARCH64_LDST64_ABS_LO12_NC:
		return RAbs
	case elf.R_AARCH64_ADR_GOT_PAGE, elf.R_AARCH64_LD64_GOT_LO12_NC:
		return RGotPc
	case elf.R_AARCH64_LD_PREL_LO19:
		return RGotPc
	case elf.R_AARCH64_TSTBR14, elf.R_AARCH64_CONDBR19:
		return RPc
	case elf.R_AARCH64_TLSLE_MOVW_TPREL_G0, elf.R_AARCH64_TLSLE_MOVW_TPREL_G1,
		elf.R_AARCH64_TLSLE_ADD_TPREL_HI12, elf.R_AARCH64_TLSLE_ADD_TPREL_LO12_NC:
		return RTPOff
	case elf.R_AARCH64_TLSIE_ADR_GOTTPREL_PAGE21, elf.R_AARCH64_TLSIE_LD64_GOTTPREL_LO12_NC,
		elf.R_AARCH64_TLSIE_LD_GOTTPREL_PREL19:
		return RGotPc
	case elf.R_AARCH64_TLSGD_ADR_PAGE21, elf.R_AARCH64_TLSGD_ADD_LO12_NC:
		return RTlsGdPc
	case elf.R_AARCH64_TLSDESC_ADR_PAGE21, elf.R_AARCH64_TLSDESC_LD64_LO12_NC,
		elf.R_AARCH64_TLSDESC_ADD_LO12_NC:
		return RTlsDescPc
	case elf.R_AARCH64_TLSDESC_CALL:
		return RTlsDescCall
	case elf.R_AARCH64_IRELATIVE:
		return RIrelativeRel
	case elf.R_AARCH64_NONE, elf.R_AARCH64_NULL:
		return RNone
	default:
		return RAbs
	}
}

func (t *ARM64Target) GetDynRel(relType RelType) RelType { return RelType(elf.R_AARCH64_ABS64) }

func (t *ARM64Target) AdjustTlsExpr(relType RelType, expr RelExpr) RelExpr { return expr }

func (t *ARM64Target) AdjustGotPcExpr(relType RelType, addend int64, loc []byte) RelExpr {
	return RGotPc
}

func (t *ARM64Target) GetTlsGdRelaxSkip(relType RelType) int { return 1 }

func (t *ARM64Target) GetImplicitAddend(loc []byte, relType RelType) int64 {
	return 0 // AArch64 objects are always RELA.
}

func (t *ARM64Target) UsesOnlyLowPageBits(relType RelType) bool {
	switch elf.R_AARCH64(relType) {
	case elf.R_AARCH64_ADD_ABS_LO12_NC, elf.R_AARCH64_LDST8_ABS_LO12_NC,
		elf.R_AARCH64_LDST16_ABS_LO12_NC, elf.R_AARCH64_LDST32_ABS_LO12_NC,
		elf.R_AARCH64_LDST64_ABS_LO12_NC:
		return true
	default:
		return false
	}
}

// branchRange26 is the ±window a 26-bit word-aligned signed immediate
// encodes: 26 bits of word offset, i.e. 28 bits of byte offset, split
// evenly around the instruction.
const branchRange26 = 1 << 27

func (t *ARM64Target) InBranchRange(relType RelType, src, dst uint64) bool {
	switch elf.R_AARCH64(relType) {
	case elf.R_AARCH64_CALL26, elf.R_AARCH64_JUMP26:
		diff := int64(dst) - int64(src)
		return diff >= -branchRange26 && diff < branchRange26
	default:
		return true
	}
}

func (t *ARM64Target) NeedsThunk(expr RelExpr, relType RelType, file *ObjectFile, src uint64, sym *Symbol, addend int64) bool {
	switch elf.R_AARCH64(relType) {
	case elf.R_AARCH64_CALL26, elf.R_AARCH64_JUMP26:
		return true
	default:
		return false
	}
}

// GetThunkSectionSpacing pre-seeds one thunk section roughly every
// 96MiB of executable input, leaving headroom under the 128MiB branch
// limit for whatever lands between two pre-seeded sections.
func (t *ARM64Target) GetThunkSectionSpacing() uint64 { return 96 << 20 }

func (t *ARM64Target) SymbolicRel() RelType       { return RelType(elf.R_AARCH64_ABS64) }
func (t *ARM64Target) RelativeRel() RelType       { return RelType(elf.R_AARCH64_RELATIVE) }
func (t *ARM64Target) PltRel() RelType            { return RelType(elf.R_AARCH64_JUMP_SLOT) }
func (t *ARM64Target) GotRel() RelType            { return RelType(elf.R_AARCH64_GLOB_DAT) }
func (t *ARM64Target) TlsGotRel() RelType         { return RelType(elf.R_AARCH64_TLS_TPREL64) }
func (t *ARM64Target) TlsModuleIndexRel() RelType { return RelType(elf.R_AARCH64_TLS_DTPMOD64) }
func (t *ARM64Target) TlsOffsetRel() RelType      { return RelType(elf.R_AARCH64_TLS_DTPREL64) }
func (t *ARM64Target) TlsDescRel() RelType        { return RelType(elf.R_AARCH64_TLSDESC) }
func (t *ARM64Target) IRelativeRel() RelType      { return RelType(elf.R_AARCH64_IRELATIVE) }
func (t *ARM64Target) CopyRel() RelType           { return RelType(elf.R_AARCH64_COPY) }

func (t *ARM64Target) IpltEntrySize() uint64 { return 16 }
func (t *ARM64Target) PltHeaderSize() uint64 { return 32 }
func (t *ARM64Target) PltEntrySize() uint64  { return 16 }
