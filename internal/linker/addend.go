package linker

// This file is C2, addend computation. Every target relscan ships
// (amd64, arm64, riscv64) only ever emits SHT_RELA input, so the
// common case is simply reading Rela.Addend off the wire; the REL
// (implicit, in-place) path and its MIPS HI/LO pairing quirk are kept
// general enough that a REL-only target could plug into the same
// entry point without changing the scanner.

// ComputeAddend derives the addend C8 should use for one relocation
// record. isRela distinguishes an explicit-addend relocation section
// (.rela.*) from an implicit one (.rel.*); idx is rel's position
// within recs, needed for the MIPS HI/LO lookahead.
func ComputeAddend(target Target, isRela bool, recs []Rela, idx int, loc []byte) int64 {
	rel := &recs[idx]

	if isRela {
		return rel.Addend
	}

	addend := target.GetImplicitAddend(loc, RelType(rel.Type))

	if pair, ok := mipsPairedType(RelType(rel.Type)); ok {
		for j := idx + 1; j < len(recs); j++ {
			if recs[j].Sym == rel.Sym && RelType(recs[j].Type) == pair {
				addend += target.GetImplicitAddend(loc, pair)
				break
			}
		}
	}

	return addend
}

// mipsPairedType reports the HI16/LO16-style partner of a MIPS
// relocation type that splits a 32-bit addend across two records
// (spec.md §4.2). relscan carries no MIPS target today, so this table
// is empty and the lookup always misses; it is the extension point a
// future MIPS backend would populate.
func mipsPairedType(t RelType) (RelType, bool) {
	pairs := map[RelType]RelType{}
	p, ok := pairs[t]
	return p, ok
}
