package linker

import "debug/elf"

// riscvIRelative is R_RISCV_IRELATIVE, which Go's debug/elf does not
// enumerate (it predates the package's RISC-V relocation table); the
// psABI fixes its value at 58.
const riscvIRelative = RelType(58)

// RISCV64Target implements Target for RISC-V's LP64 ABI — the
// architecture the original linker this one is descended from
// targeted natively. JAL's 21-bit signed immediate gives a ±1MiB reach
// and BRANCH's 13-bit one only ±4KiB, so thunks are common in anything
// beyond a small binary.
type RISCV64Target struct{}

func NewRISCV64Target() *RISCV64Target { return &RISCV64Target{} }

func (t *RISCV64Target) Name() string { return "elf64-littleriscv" }

func (t *RISCV64Target) GetRelExpr(relType RelType, sym *Symbol, loc []byte) RelExpr {
	switch elf.R_RISCV(relType) {
	case elf.R_RISCV_32, elf.R_RISCV_64, elf.R_RISCV_HI20, elf.R_RISCV_LO12_I, elf.R_RISCV_LO12_S:
		return RAbs
	case elf.R_RISCV_BRANCH, elf.R_RISCV_JAL, elf.R_RISCV_RVC_BRANCH, elf.R_RISCV_RVC_JUMP,
		elf.R_RISCV_PCREL_HI20, elf.R_RISCV_PCREL_LO12_I, elf.R_RISCV_PCREL_LO12_S,
		elf.R_RISCV_32_PCREL:
		return RPc
	case elf.R_RISCV_CALL, elf.R_RISCV_CALL_PLT:
		return RPltPc
	case elf.R_RISCV_GOT_HI20:
		return RGotPc
	case elf.R_RISCV_TLS_GOT_HI20:
		return RGotPc
	case elf.R_RISCV_TLS_GD_HI20:
		return RTlsGdPc
	case elf.R_RISCV_TPREL_HI20, elf.R_RISCV_TPREL_LO12_I, elf.R_RISCV_TPREL_LO12_S, elf.R_RISCV_TPREL_ADD:
		return RTPOff
	case elf.R_RISCV_TLS_DTPREL32, elf.R_RISCV_TLS_DTPREL64:
		return RDTPOff
	case elf.R_RISCV_ADD8, elf.R_RISCV_ADD16, elf.R_RISCV_ADD32, elf.R_RISCV_ADD64,
		elf.R_RISCV_SUB8, elf.R_RISCV_SUB16, elf.R_RISCV_SUB32, elf.R_RISCV_SUB64,
		elf.R_RISCV_SET6, elf.R_RISCV_SET8, elf.R_RISCV_SET16, elf.R_RISCV_SET32, elf.R_RISCV_SUB6:
		return RAbs // section-arithmetic records; always link-time constant
	case elf.R_RISCV_ALIGN, elf.R_RISCV_RELAX, elf.R_RISCV_NONE:
		return RNone
	default:
		return RAbs
	}
}

func (t *RISCV64Target) GetDynRel(relType RelType) RelType { return RelType(elf.R_RISCV_64) }

func (t *RISCV64Target) AdjustTlsExpr(relType RelType, expr RelExpr) RelExpr { return expr }

func (t *RISCV64Target) AdjustGotPcExpr(relType RelType, addend int64, loc []byte) RelExpr {
	return RGotPc
}

// GetTlsGdRelaxSkip reports 1: unlike x86-64's inline call-sequence
// markers, RISC-V's GD access spans an AUIPC/ADDI pair each carrying
// its own independent relocation record, so nothing gets skipped.
func (t *RISCV64Target) GetTlsGdRelaxSkip(relType RelType) int { return 1 }

func (t *RISCV64Target) GetImplicitAddend(loc []byte, relType RelType) int64 {
	return 0 // RISC-V objects are always RELA.
}

func (t *RISCV64Target) UsesOnlyLowPageBits(relType RelType) bool {
	switch elf.R_RISCV(relType) {
	case elf.R_RISCV_LO12_I, elf.R_RISCV_LO12_S, elf.R_RISCV_PCREL_LO12_I, elf.R_RISCV_PCREL_LO12_S:
		return true
	default:
		return false
	}
}

const (
	riscvJalRange    = 1 << 20 // JAL: 21-bit signed immediate, ±1MiB
	riscvBranchRange = 1 << 12 // BRANCH: 13-bit signed immediate, ±4KiB
)

func (t *RISCV64Target) InBranchRange(relType RelType, src, dst uint64) bool {
	diff := int64(dst) - int64(src)
	switch elf.R_RISCV(relType) {
	case elf.R_RISCV_CALL, elf.R_RISCV_CALL_PLT, elf.R_RISCV_JAL:
		return diff >= -riscvJalRange && diff < riscvJalRange
	case elf.R_RISCV_BRANCH:
		return diff >= -riscvBranchRange && diff < riscvBranchRange
	default:
		return true
	}
}

func (t *RISCV64Target) NeedsThunk(expr RelExpr, relType RelType, file *ObjectFile, src uint64, sym *Symbol, addend int64) bool {
	switch elf.R_RISCV(relType) {
	case elf.R_RISCV_CALL, elf.R_RISCV_CALL_PLT, elf.R_RISCV_JAL:
		return true
	default:
		return false
	}
}

// GetThunkSectionSpacing pre-seeds a thunk section every 768KiB of
// executable input, well inside JAL's ±1MiB reach, so a branch that
// drifts past one island can usually still fall within the next.
func (t *RISCV64Target) GetThunkSectionSpacing() uint64 { return 768 * 1024 }

func (t *RISCV64Target) SymbolicRel() RelType       { return RelType(elf.R_RISCV_64) }
func (t *RISCV64Target) RelativeRel() RelType       { return RelType(elf.R_RISCV_RELATIVE) }
func (t *RISCV64Target) PltRel() RelType            { return RelType(elf.R_RISCV_JUMP_SLOT) }
func (t *RISCV64Target) GotRel() RelType            { return RelType(elf.R_RISCV_64) }
func (t *RISCV64Target) TlsGotRel() RelType         { return RelType(elf.R_RISCV_TLS_TPREL64) }
func (t *RISCV64Target) TlsModuleIndexRel() RelType { return RelType(elf.R_RISCV_TLS_DTPMOD64) }
func (t *RISCV64Target) TlsOffsetRel() RelType      { return RelType(elf.R_RISCV_TLS_DTPREL64) }
func (t *RISCV64Target) TlsDescRel() RelType        { return RelType(elf.R_RISCV_TLS_DTPMOD64) } // no TLSDESC on this target; never consulted
func (t *RISCV64Target) IRelativeRel() RelType      { return riscvIRelative }
func (t *RISCV64Target) CopyRel() RelType           { return RelType(elf.R_RISCV_COPY) }

func (t *RISCV64Target) IpltEntrySize() uint64 { return 16 }
func (t *RISCV64Target) PltHeaderSize() uint64 { return 32 }
func (t *RISCV64Target) PltEntrySize() uint64  { return 16 }
