package linker

import "sort"

// MergeableSection is the split view of an SHF_MERGE input section:
// each of its identical-content pieces becomes (or reuses) a
// SectionFragment in the owning MergedSection.
type MergeableSection struct {
	Parent      *MergedSection
	P2Align     uint8
	Strs        []string
	FragOffsets []uint32
	Fragments   []*SectionFragment
}

// GetFragment finds which fragment a raw input-section offset falls
// into (used when a relocation targets an SHF_MERGE section directly
// rather than through a symbol already resolved to a SectionFragment).
func (m *MergeableSection) GetFragment(offset uint32) (*SectionFragment, uint32) {
	pos := sort.Search(len(m.FragOffsets), func(i int) bool {
		return offset < m.FragOffsets[i]
	})
	if pos == 0 {
		return nil, 0
	}
	idx := pos - 1
	return m.Fragments[idx], offset - m.FragOffsets[idx]
}
