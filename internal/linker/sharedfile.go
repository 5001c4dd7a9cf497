package linker

import (
	"debug/elf"
)

// SharedFile represents one ET_DYN input (a ".so"): the collaborator
// spec.md's copy-relocation / canonical-PLT builder (C7) needs in order
// to exercise the "direct reference to a Shared symbol" scenario
// (spec.md §8 scenario 2). Only what C7 and the classifier need is
// parsed: exported dynamic symbols, and which PT_LOAD segment (if any)
// backs each one, to decide .bss versus .bss.rel.ro.
type SharedFile struct {
	InputFile
	SoName string
}

func NewSharedFile(file *File) *SharedFile {
	return &SharedFile{InputFile: NewInputFile(file)}
}

func CreateSharedFile(ctx *Context, file *File) *SharedFile {
	so := NewSharedFile(file)
	so.IsAlive = true
	so.Priority = 1 << 30
	so.Parse(ctx)
	return so
}

func (so *SharedFile) Parse(ctx *Context) {
	so.SoName = so.File.Name

	dynsymSec := so.FindSection(uint32(elf.SHT_DYNSYM))
	if dynsymSec == nil {
		return
	}
	so.FillUpElfSyms(dynsymSec)
	so.SymbolStrtab = so.GetBytesFromIdx(int64(dynsymSec.Link))
	so.FirstGlobal = int(dynsymSec.Info)

	for i := so.FirstGlobal; i < len(so.ElfSyms); i++ {
		esym := &so.ElfSyms[i]
		if esym.IsUndef() || esym.Name == 0 {
			continue
		}

		name := ElfGetName(so.SymbolStrtab, esym.Name)
		sym := GetSymbolByName(ctx, name)
		if sym.Kind() != SymUndefined && sym.Kind() != SymShared {
			// A regular object already defines this name; DSOs never
			// override a real definition.
			continue
		}
		if sym.Kind() == SymShared && sym.Shared.Priority < so.Priority {
			continue
		}

		sym.Shared = so
		sym.File = nil
		sym.Value = esym.Val
		sym.Size = esym.Size
		sym.SymIdx = i
		sym.Binding = esym.Bind()
		sym.Visibility = esym.Visibility()
		sym.Type = esym.Type()
		sym.P2Align = 3
		sym.ReadOnlySegment = so.sectionIsReadOnly(esym.Shndx)
	}
}

func (so *SharedFile) sectionIsReadOnly(shndx uint16) bool {
	if int(shndx) >= len(so.ElfSections) {
		return false
	}
	addr := so.ElfSections[shndx].Addr
	for _, ph := range so.Phdrs {
		if ph.Type != uint32(elf.PT_LOAD) {
			continue
		}
		if addr >= ph.VAddr && addr < ph.VAddr+ph.MemSize {
			return ph.Flags&uint32(elf.PF_W) == 0
		}
	}
	return false
}

// AliasesAtValue returns every Shared symbol this DSO exports at value
// v — spec.md §4.7/§8's "copy-reloc alias closure" invariant requires
// promoting all of them together.
func (so *SharedFile) AliasesAtValue(ctx *Context, v uint64) []*Symbol {
	var out []*Symbol
	for i := so.FirstGlobal; i < len(so.ElfSyms); i++ {
		esym := &so.ElfSyms[i]
		if esym.IsUndef() || esym.Val != v {
			continue
		}
		name := ElfGetName(so.SymbolStrtab, esym.Name)
		if sym, ok := ctx.SymbolMap[name]; ok && sym.Shared == so {
			out = append(out, sym)
		}
	}
	return out
}
