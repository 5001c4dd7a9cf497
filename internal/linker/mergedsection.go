package linker

import (
	"debug/elf"
	"sort"

	"github.com/tanisaro/relscan/internal/utils"
)

// MergedSection is the output-side counterpart of every SHF_MERGE
// input section sharing a name/type/flags triple: its Map interns each
// distinct byte string into one SectionFragment.
type MergedSection struct {
	Chunk
	Map map[string]*SectionFragment
}

func NewMergedSection(name string, flags uint64, typ uint32) *MergedSection {
	m := &MergedSection{
		Chunk: NewChunk(),
		Map:   make(map[string]*SectionFragment),
	}
	m.Name = name
	m.Shdr.Flags = flags
	m.Shdr.Type = typ
	return m
}

func GetMergedSectionInstance(ctx *Context, name string, typ uint32, flags uint64) *MergedSection {
	name = GetOutputName(name, flags)
	flags = flags &^ uint64(elf.SHF_GROUP) &^ uint64(elf.SHF_MERGE) &^
		uint64(elf.SHF_STRINGS) &^ uint64(elf.SHF_COMPRESSED)

	for _, osec := range ctx.MergedSections {
		if name == osec.Name && flags == osec.Shdr.Flags && typ == uint32(osec.Shdr.Type) {
			return osec
		}
	}

	osec := NewMergedSection(name, flags, typ)
	ctx.MergedSections = append(ctx.MergedSections, osec)
	return osec
}

func (m *MergedSection) Insert(key string, p2align uint32) *SectionFragment {
	frag, ok := m.Map[key]
	if !ok {
		frag = NewSectionFragment(m)
		m.Map[key] = frag
	}
	if frag.P2Align < p2align {
		frag.P2Align = p2align
	}
	return frag
}

func (m *MergedSection) AssignOffsets() {
	type entry struct {
		key string
		val *SectionFragment
	}
	var fragments []entry
	for key, frag := range m.Map {
		fragments = append(fragments, entry{key, frag})
	}

	sort.SliceStable(fragments, func(i, j int) bool {
		x, y := fragments[i], fragments[j]
		if x.val.P2Align != y.val.P2Align {
			return x.val.P2Align < y.val.P2Align
		}
		if len(x.key) != len(y.key) {
			return len(x.key) < len(y.key)
		}
		return x.key < y.key
	})

	offset := uint64(0)
	p2align := uint64(0)
	for _, e := range fragments {
		offset = utils.AlignTo(offset, 1<<e.val.P2Align)
		e.val.Offset = uint32(offset)
		e.val.IsAlive = true
		offset += uint64(len(e.key))
		if p2align < uint64(e.val.P2Align) {
			p2align = uint64(e.val.P2Align)
		}
	}

	m.Shdr.Size = utils.AlignTo(offset, 1<<p2align)
	m.Shdr.AddrAlign = 1 << p2align
}

func (m *MergedSection) CopyBuf(ctx *Context) {
	buf := ctx.Buf[m.Shdr.Offset:]
	for key, frag := range m.Map {
		copy(buf[frag.Offset:], key)
	}
}
