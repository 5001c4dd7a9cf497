package linker

import (
	"debug/elf"

	"github.com/tanisaro/relscan/internal/utils"
)

// InputFile is the common header shared by ObjectFile and SharedFile:
// the raw ELF section-header table and its string table, parsed once
// up front so both kinds of input can share GetBytesFromShdr etc.
type InputFile struct {
	File        *File
	ElfSections []Shdr
	ShStrtab    []byte
	Phdrs       []Phdr

	ElfSyms      []Sym
	FirstGlobal  int
	SymbolStrtab []byte

	IsAlive bool

	Symbols      []*Symbol
	LocalSymbols []Symbol

	// Priority orders first-definition-wins resolution: lower wins.
	// Regular command-line objects get 1, archive members keep the
	// order they were read in, DSOs sort last.
	Priority int
}

func NewInputFile(file *File) InputFile {
	f := InputFile{File: file}

	if len(file.Contents) < EhdrSize {
		utils.Fatal(file.Name + ": file too small")
	}
	if !CheckMagic(file.Contents) {
		utils.Fatal(file.Name + ": not an ELF file")
	}

	ehdr := utils.Read[Ehdr](file.Contents)

	if ehdr.PhOff != 0 && ehdr.PhNum != 0 {
		phContents := file.Contents[ehdr.PhOff:]
		f.Phdrs = utils.ReadSlice[Phdr](phContents, PhdrSize)[:ehdr.PhNum]
	}

	contents := file.Contents[ehdr.ShOff:]
	shdr := utils.Read[Shdr](contents)

	numSections := int64(ehdr.ShNum)
	if numSections == 0 {
		numSections = int64(shdr.Size)
	}

	f.ElfSections = []Shdr{shdr}
	for numSections > 1 {
		contents = contents[ShdrSize:]
		f.ElfSections = append(f.ElfSections, utils.Read[Shdr](contents))
		numSections--
	}

	shstrndx := int64(ehdr.ShStrndx)
	if ehdr.ShStrndx == uint16(elf.SHN_XINDEX) {
		shstrndx = int64(shdr.Link)
	}
	f.ShStrtab = f.GetBytesFromIdx(shstrndx)
	return f
}

func (f *InputFile) GetBytesFromShdr(s *Shdr) []byte {
	end := s.Offset + s.Size
	if uint64(len(f.File.Contents)) < end {
		utils.Fatal(f.File.Name + ": section out of range")
	}
	return f.File.Contents[s.Offset:end]
}

func (f *InputFile) GetBytesFromIdx(idx int64) []byte {
	return f.GetBytesFromShdr(&f.ElfSections[idx])
}

func (f *InputFile) FillUpElfSyms(s *Shdr) {
	bs := f.GetBytesFromShdr(s)
	f.ElfSyms = utils.ReadSlice[Sym](bs, SymSize)
}

func (f *InputFile) FindSection(ty uint32) *Shdr {
	for i := range f.ElfSections {
		if f.ElfSections[i].Type == ty {
			return &f.ElfSections[i]
		}
	}
	return nil
}

func (f *InputFile) GetEhdr() Ehdr {
	return utils.Read[Ehdr](f.File.Contents)
}
