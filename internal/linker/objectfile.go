package linker

import (
	"bytes"
	"debug/elf"

	"github.com/tanisaro/relscan/internal/utils"
)

// ObjectFile is one regular relocatable input (".o", including archive
// members pulled into the link). Lazy resolution for archive members
// follows the teacher's model: an ObjectFile starts with IsAlive false
// unless it came straight from the command line, and MarkLiveObjects
// flips it (and transitively pulls in whatever it references) the
// moment something undefined resolves to one of its symbols.
type ObjectFile struct {
	InputFile

	InputSections []*InputSection

	// MergeableSections mirrors InputSections index-for-index: non-nil
	// where the corresponding section carries SHF_MERGE, at which point
	// the InputSection itself is retired (IsAlive cleared) in favour of
	// its split-out SectionFragments.
	MergeableSections []*MergeableSection

	symtabSec    *Shdr
	comdatLosers []comdatLoss
}

func NewObjectFile(file *File, alive bool) *ObjectFile {
	return &ObjectFile{
		InputFile: InputFile{File: file, IsAlive: alive, Priority: 1},
	}
}

func (o *ObjectFile) Parse(ctx *Context) {
	alive, priority := o.IsAlive, o.Priority
	o.InputFile = NewInputFile(o.File)
	o.IsAlive = alive
	o.Priority = priority
	o.initSymtab()
	o.initSections(ctx)
	o.initSymbols(ctx)
	o.initMergeableSections(ctx)
}

func (o *ObjectFile) initSymtab() {
	o.symtabSec = o.FindSection(uint32(elf.SHT_SYMTAB))
	if o.symtabSec == nil {
		return
	}
	o.FillUpElfSyms(o.symtabSec)
	o.SymbolStrtab = o.GetBytesFromIdx(int64(o.symtabSec.Link))
	o.FirstGlobal = int(o.symtabSec.Info)
}

// initSections builds one InputSection per SHF_ALLOC section, resolving
// COMDAT group conflicts along the way (spec.md §6's "defined in
// discarded section" diagnostic is only reachable because a loser
// section here is kept around, marked dead, rather than dropped).
func (o *ObjectFile) initSections(ctx *Context) {
	o.InputSections = make([]*InputSection, len(o.ElfSections))

	discarded := make(map[uint32]bool)
	for shndx := range o.ElfSections {
		shdr := &o.ElfSections[shndx]
		if shdr.Type != uint32(elf.SHT_GROUP) {
			continue
		}
		o.resolveComdatGroup(ctx, uint32(shndx), shdr, discarded)
	}

	for shndx := range o.ElfSections {
		shdr := &o.ElfSections[shndx]
		if shdr.Flags&uint64(elf.SHF_ALLOC) == 0 {
			continue
		}
		if shdr.Type == uint32(elf.SHT_GROUP) || shdr.Type == uint32(elf.SHT_SYMTAB) ||
			shdr.Type == uint32(elf.SHT_STRTAB) || shdr.Type == uint32(elf.SHT_RELA) {
			continue
		}
		name := ElfGetName(o.ShStrtab, shdr.Name)
		isec := NewInputSection(ctx, o, uint32(shndx), shdr, name)
		if discarded[uint32(shndx)] {
			sig, owner := o.comdatLoserInfo(uint32(shndx))
			isec.Discard(sig, owner)
		}
		o.InputSections[shndx] = isec
	}

	for shndx := range o.ElfSections {
		shdr := &o.ElfSections[shndx]
		if shdr.Type != uint32(elf.SHT_RELA) {
			continue
		}
		target := shdr.Info
		if int(target) >= len(o.InputSections) || o.InputSections[target] == nil {
			continue
		}
		bs := o.GetBytesFromIdx(int64(shndx))
		o.InputSections[target].Rels = utils.ReadSlice[Rela](bs, RelaSize)
	}
}

type comdatWinner struct {
	file      *ObjectFile
	signature string
}

func (o *ObjectFile) resolveComdatGroup(ctx *Context, shndx uint32, shdr *Shdr, discarded map[uint32]bool) {
	if o.symtabSec == nil || int(shdr.Info) >= len(o.ElfSyms) {
		return
	}
	sigSym := &o.ElfSyms[shdr.Info]
	signature := ElfGetName(o.SymbolStrtab, sigSym.Name)

	words := utils.ReadSlice[uint32](o.GetBytesFromIdx(int64(shndx)), 4)
	if len(words) == 0 || words[0]&1 == 0 { // not GRP_COMDAT
		return
	}
	members := words[1:]

	winner, ok := ctx.ComdatGroups[signature]
	if !ok {
		ctx.ComdatGroups[signature] = &comdatWinner{file: o, signature: signature}
		return
	}
	if winner.file == o {
		return
	}
	for _, m := range members {
		discarded[m] = true
	}
	o.comdatLosers = append(o.comdatLosers, comdatLoss{signature: signature, owner: winner.file, members: members})
}

type comdatLoss struct {
	signature string
	owner     *ObjectFile
	members   []uint32
}

func (o *ObjectFile) comdatLoserInfo(shndx uint32) (string, *ObjectFile) {
	for _, loss := range o.comdatLosers {
		for _, m := range loss.members {
			if m == shndx {
				return loss.signature, loss.owner
			}
		}
	}
	return "", nil
}

func (o *ObjectFile) initSymbols(ctx *Context) {
	if o.symtabSec == nil {
		return
	}

	o.LocalSymbols = make([]Symbol, o.FirstGlobal)
	for i := 1; i < o.FirstGlobal; i++ {
		esym := &o.ElfSyms[i]
		sym := &o.LocalSymbols[i]
		sym.Name = ElfGetName(o.SymbolStrtab, esym.Name)
		sym.File = o
		sym.Value = esym.Val
		sym.Size = esym.Size
		sym.SymIdx = i
		sym.Binding = esym.Bind()
		sym.Visibility = esym.Visibility()
		sym.Type = esym.Type()
		sym.PltIdx = -1
		sym.IpltIdx = -1
		sym.IgotPltIdx = -1
		sym.CapTableIdx = -1
		sym.discardedSecIdx = -1
		if esym.IsDefined() && !esym.IsAbs() && !esym.IsCommon() && int(esym.Shndx) < len(o.InputSections) {
			sym.SetInputSection(o.InputSections[esym.Shndx])
		}
	}

	o.Symbols = make([]*Symbol, len(o.ElfSyms))
	for i := o.FirstGlobal; i < len(o.ElfSyms); i++ {
		name := ElfGetName(o.SymbolStrtab, o.ElfSyms[i].Name)
		o.Symbols[i] = GetSymbolByName(ctx, name)
	}
}

// ResolveSymbols applies first-definition-wins across global symbols,
// preferring the lowest Priority (regular objects beat archive members
// beat DSOs) and, among equal priorities, the first file visited.
func (o *ObjectFile) ResolveSymbols(ctx *Context) {
	for i := o.FirstGlobal; i < len(o.ElfSyms); i++ {
		esym := &o.ElfSyms[i]
		if esym.IsUndef() {
			continue
		}
		sym := o.Symbols[i]

		if sym.Kind() == SymDefined && sym.File.Priority <= o.Priority {
			continue
		}

		sym.File = o
		sym.Shared = nil
		sym.Value = esym.Val
		sym.Size = esym.Size
		sym.SymIdx = i
		sym.Binding = esym.Bind()
		sym.Visibility = esym.Visibility()
		sym.Type = esym.Type()
		if esym.IsAbs() || esym.IsCommon() {
			sym.InputSection = nil
		} else if int(esym.Shndx) < len(o.InputSections) {
			sym.SetInputSection(o.InputSections[esym.Shndx])
		}
	}
}

// MarkLiveObjects transitively pulls in every not-yet-alive archive
// member that defines a symbol some live object references undefined,
// invoking feed for each newly live file so the driver can re-scan it.
func MarkLiveObjects(ctx *Context, feed func(*ObjectFile)) {
	// A symbol referenced undefined by any live object but whose only
	// definition sits in a Lazy (not-yet-live) archive member promotes
	// that member to alive, then repeats until a fixed point.
	changed := true
	for changed {
		changed = false
		for _, o := range ctx.Objs {
			if !o.IsAlive {
				continue
			}
			for i := o.FirstGlobal; i < len(o.ElfSyms); i++ {
				sym := o.Symbols[i]
				if sym == nil || !o.ElfSyms[i].IsUndef() {
					continue
				}
				if sym.Kind() == SymLazy && !sym.File.IsAlive {
					sym.File.IsAlive = true
					sym.File.Priority = o.Priority
					sym.File.ResolveSymbols(ctx)
					feed(sym.File)
					changed = true
				}
			}
		}
	}
}

// initMergeableSections splits every alive SHF_MERGE section into its
// constituent pieces up front; RegisterSectionPieces (called once every
// object contributing to a given merged name is parsed) then interns
// each piece into its MergedSection and retargets any symbol defined
// inside the section at a SectionFragment instead.
func (o *ObjectFile) initMergeableSections(ctx *Context) {
	o.MergeableSections = make([]*MergeableSection, len(o.InputSections))
	for i, isec := range o.InputSections {
		if isec == nil || !isec.IsAlive || isec.ShFlags&uint64(elf.SHF_MERGE) == 0 {
			continue
		}
		o.MergeableSections[i] = splitMergeableSection(ctx, isec)
		isec.IsAlive = false
	}
}

func findEntryBoundary(data []byte, entSize uint64) int {
	if entSize == 1 {
		return bytes.IndexByte(data, 0)
	}
	for i := uint64(0); i+entSize <= uint64(len(data)); i += entSize {
		if utils.AllZeros(data[i : i+entSize]) {
			return int(i)
		}
	}
	return -1
}

func splitMergeableSection(ctx *Context, isec *InputSection) *MergeableSection {
	m := &MergeableSection{P2Align: isec.P2Align}
	m.Parent = GetMergedSectionInstance(ctx, isec.Name, isec.ShType, isec.ShFlags)

	entSize := isec.EntSize
	data := isec.Contents
	offset := uint32(0)

	if isec.ShFlags&uint64(elf.SHF_STRINGS) != 0 {
		for len(data) > 0 {
			end := findEntryBoundary(data, entSize)
			if end == -1 {
				utils.Fatal("mergeable string section is not null terminated")
			}
			sz := uint64(end) + entSize
			m.Strs = append(m.Strs, string(data[:sz]))
			m.FragOffsets = append(m.FragOffsets, offset)
			data = data[sz:]
			offset += uint32(sz)
		}
		return m
	}

	if entSize == 0 || uint64(len(data))%entSize != 0 {
		utils.Fatal("mergeable section size is not a multiple of its entry size")
	}
	for len(data) > 0 {
		m.Strs = append(m.Strs, string(data[:entSize]))
		m.FragOffsets = append(m.FragOffsets, offset)
		data = data[entSize:]
		offset += uint32(entSize)
	}
	return m
}

// symbolAt returns the Symbol backing ElfSyms index i, whether it is a
// local (owned outright by this file) or global (interned in the
// context-wide symbol table) one.
func (o *ObjectFile) symbolAt(i int) *Symbol {
	if i < o.FirstGlobal {
		if i <= 0 || i >= len(o.LocalSymbols) {
			return nil
		}
		return &o.LocalSymbols[i]
	}
	if i >= len(o.Symbols) {
		return nil
	}
	return o.Symbols[i]
}

// RegisterSectionPieces interns every split-out piece into its
// MergedSection and retargets symbols defined inside a mergeable
// section onto the resulting SectionFragment.
func (o *ObjectFile) RegisterSectionPieces() {
	for _, m := range o.MergeableSections {
		if m == nil {
			continue
		}
		m.Fragments = make([]*SectionFragment, 0, len(m.Strs))
		for _, s := range m.Strs {
			m.Fragments = append(m.Fragments, m.Parent.Insert(s, uint32(m.P2Align)))
		}
	}

	for i := 1; i < len(o.ElfSyms); i++ {
		esym := &o.ElfSyms[i]
		if esym.IsAbs() || esym.IsUndef() || esym.IsCommon() {
			continue
		}
		if int(esym.Shndx) >= len(o.MergeableSections) {
			continue
		}
		m := o.MergeableSections[esym.Shndx]
		if m == nil {
			continue
		}
		sym := o.symbolAt(i)
		if sym == nil {
			continue
		}
		frag, fragOffset := m.GetFragment(uint32(esym.Val))
		if frag == nil {
			utils.Fatal("bad symbol value into a mergeable section")
		}
		sym.SetSectionFragment(frag)
		sym.Value = uint64(fragOffset)
	}
}

// ClearSymbols resets every global symbol this (now dead) file claimed,
// so a later live definition is free to take it over uncontested.
func (o *ObjectFile) ClearSymbols() {
	for i := o.FirstGlobal; i < len(o.Symbols); i++ {
		if sym := o.Symbols[i]; sym != nil && sym.File == o {
			sym.Clear()
		}
	}
}
