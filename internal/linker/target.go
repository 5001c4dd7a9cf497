package linker

// Target is the machine-specific policy object every RelExpr and
// synthetic-section decision eventually consults. relscan links one
// Target per build; which one is chosen by -m or inferred
// from the first recognisable input file (see cmd/relscan).
type Target interface {
	// GetRelExpr classifies a raw relocation type, in the context of
	// the symbol it targets and (for instruction-encoded addends) the
	// bytes at the relocation site, into the RelExpr algebra (C1).
	GetRelExpr(relType RelType, sym *Symbol, loc []byte) RelExpr

	// GetDynRel maps a static relocation type to the dynamic
	// relocation type used when a symbolic reference can't be resolved
	// at link time.
	GetDynRel(relType RelType) RelType

	// AdjustTlsExpr rewrites a TLS expression once relaxation decides
	// which access model to downgrade to (C5).
	AdjustTlsExpr(relType RelType, expr RelExpr) RelExpr

	// AdjustGotPcExpr lets a target special-case a GOT-PC-relative
	// reference to a non-absolute symbol (e.g. relaxing it away
	// entirely when the reference turns out to be link-time constant).
	AdjustGotPcExpr(relType RelType, addend int64, loc []byte) RelExpr

	// GetTlsGdRelaxSkip reports how many consecutive relocation records
	// one GD/LD access sequence consists of, so the scanner can skip
	// past the ones already consumed.
	GetTlsGdRelaxSkip(relType RelType) int

	// GetImplicitAddend decodes the addend encoded directly in the
	// relocated bytes, for a REL-style (implicit-addend) relocation.
	GetImplicitAddend(loc []byte, relType RelType) int64

	// UsesOnlyLowPageBits reports whether relType only ever consumes
	// the low, page-offset bits of its operand, making it link-time
	// constant even against a preemptible symbol in PIC mode.
	UsesOnlyLowPageBits(relType RelType) bool

	// InBranchRange reports whether dst is directly reachable from a
	// branch/call instruction at src.
	InBranchRange(relType RelType, src, dst uint64) bool

	// NeedsThunk reports whether a call/branch relocation at src needs
	// (or might need, pending a branch-range check) a thunk at all —
	// most relocation types never do.
	NeedsThunk(expr RelExpr, relType RelType, file *ObjectFile, src uint64, sym *Symbol, addend int64) bool

	// GetThunkSectionSpacing returns the maximum byte span a thunk
	// section's clients may sit within, or 0 if the target never
	// pre-seeds thunk sections ahead of the first out-of-range branch.
	GetThunkSectionSpacing() uint64

	Name() string

	SymbolicRel() RelType
	RelativeRel() RelType
	PltRel() RelType
	GotRel() RelType
	TlsGotRel() RelType
	TlsModuleIndexRel() RelType
	TlsOffsetRel() RelType
	TlsDescRel() RelType
	IRelativeRel() RelType
	CopyRel() RelType

	IpltEntrySize() uint64
	PltHeaderSize() uint64
	PltEntrySize() uint64
}

// NewTargetForMachine picks the Target implementation matching mt, the
// same switch machineToElf runs in reverse for the output Ehdr.
func NewTargetForMachine(mt MachineType) Target {
	switch mt {
	case MachineTypeAMD64:
		return NewAMD64Target()
	case MachineTypeARM64:
		return NewARM64Target()
	case MachineTypeRISCV64:
		return NewRISCV64Target()
	default:
		return nil
	}
}
