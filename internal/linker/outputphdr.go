package linker

import (
	"debug/elf"

	"github.com/tanisaro/relscan/internal/utils"
)

// OutputPhdr is the ELF program header table chunk. It derives its
// contents from ctx.Chunks once SetOutputSectionOffsets has assigned
// every chunk an address, grouping consecutive SHF_ALLOC chunks that
// share the same writable/executable bits into one PT_LOAD, plus one
// PT_TLS spanning the .tdata/.tbss chunks if any exist.
type OutputPhdr struct {
	Chunk
	phdrs []Phdr
}

func NewOutputPhdr() *OutputPhdr {
	return &OutputPhdr{Chunk: Chunk{Shdr: Shdr{AddrAlign: 8}}}
}

func (o *OutputPhdr) UpdateShdr(ctx *Context) {
	o.phdrs = o.build(ctx)
	o.Shdr.Size = uint64(len(o.phdrs)) * uint64(PhdrSize)
}

func (o *OutputPhdr) CopyBuf(ctx *Context) {
	base := ctx.Buf[o.Shdr.Offset:]
	for i, ph := range o.phdrs {
		utils.Write[Phdr](base[i*PhdrSize:], ph)
	}
}

func (o *OutputPhdr) build(ctx *Context) []Phdr {
	var phdrs []Phdr

	phdrs = append(phdrs, Phdr{
		Type: uint32(elf.PT_PHDR), Flags: uint32(elf.PF_R),
		Offset: o.Shdr.Offset, VAddr: 0, PAddr: 0,
		FileSize: 0, MemSize: 0, Align: 8,
	})

	var cur *Phdr
	flagsOf := func(shdr *Shdr) uint32 {
		f := uint32(elf.PF_R)
		if shdr.Flags&uint64(elf.SHF_WRITE) != 0 {
			f |= uint32(elf.PF_W)
		}
		if shdr.Flags&uint64(elf.SHF_EXECINSTR) != 0 {
			f |= uint32(elf.PF_X)
		}
		return f
	}

	for _, chunk := range ctx.Chunks {
		shdr := chunk.GetShdr()
		if shdr.Flags&uint64(elf.SHF_ALLOC) == 0 {
			continue
		}
		flags := flagsOf(shdr)
		isBss := shdr.Type == uint32(elf.SHT_NOBITS) && shdr.Flags&uint64(elf.SHF_TLS) == 0

		if cur != nil && cur.Flags == flags && !isBss {
			cur.FileSize = shdr.Offset + shdr.Size - cur.Offset
			cur.MemSize = cur.FileSize
			continue
		}

		phdrs = append(phdrs, Phdr{
			Type: uint32(elf.PT_LOAD), Flags: flags,
			Offset: shdr.Offset, VAddr: shdr.Addr, PAddr: shdr.Addr,
			FileSize: shdr.Size, MemSize: shdr.Size, Align: pageSize,
		})
		cur = &phdrs[len(phdrs)-1]
		if isBss {
			cur.FileSize = 0
		}
	}

	phdrs = append(phdrs, buildTlsPhdr(ctx)...)
	return phdrs
}

func buildTlsPhdr(ctx *Context) []Phdr {
	var first, last *Shdr
	for _, chunk := range ctx.Chunks {
		shdr := chunk.GetShdr()
		if shdr.Flags&uint64(elf.SHF_TLS) == 0 {
			continue
		}
		if first == nil {
			first = shdr
		}
		last = shdr
	}
	if first == nil {
		return nil
	}

	fileSize := uint64(0)
	if last.Type != uint32(elf.SHT_NOBITS) {
		fileSize = last.Offset + last.Size - first.Offset
	}
	memSize := last.Addr + last.Size - first.Addr

	return []Phdr{{
		Type: uint32(elf.PT_TLS), Flags: uint32(elf.PF_R),
		Offset: first.Offset, VAddr: first.Addr, PAddr: first.Addr,
		FileSize: fileSize, MemSize: memSize, Align: 1 << first.AddrAlign,
	}}
}

const pageSize = 0x1000
