package linker

import (
	"debug/elf"

	"github.com/tanisaro/relscan/internal/utils"
)

// OutputEhdr is the ELF file header chunk, always first in ctx.Chunks.
type OutputEhdr struct {
	Chunk
}

func NewOutputEhdr() *OutputEhdr {
	return &OutputEhdr{Chunk{Shdr: Shdr{
		Flags:     uint64(elf.SHF_ALLOC),
		Size:      uint64(EhdrSize),
		AddrAlign: 8,
	}}}
}

func (o *OutputEhdr) CopyBuf(ctx *Context) {
	var ehdr Ehdr
	ehdr.Ident[0], ehdr.Ident[1], ehdr.Ident[2], ehdr.Ident[3] = 0x7f, 'E', 'L', 'F'
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS64)
	ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2LSB)
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT)

	if ctx.Config.Shared {
		ehdr.Type = uint16(elf.ET_DYN)
	} else if ctx.Config.Pie {
		ehdr.Type = uint16(elf.ET_DYN)
	} else {
		ehdr.Type = uint16(elf.ET_EXEC)
	}
	ehdr.Machine = machineToElf(ctx.Args.Emulation)
	ehdr.Version = uint32(elf.EV_CURRENT)
	ehdr.Entry = getEntryAddress(ctx)
	ehdr.PhOff = ctx.Phdr.Shdr.Offset
	ehdr.ShOff = ctx.Shdr.Shdr.Offset
	ehdr.EhSize = uint16(EhdrSize)
	ehdr.PhEntSize = uint16(PhdrSize)
	ehdr.PhNum = uint16(ctx.Phdr.Shdr.Size / uint64(PhdrSize))
	ehdr.ShEntSize = uint16(ShdrSize)
	ehdr.ShNum = uint16(ctx.Shdr.Shdr.Size / uint64(ShdrSize))

	utils.Write[Ehdr](ctx.Buf[o.Shdr.Offset:], ehdr)
}

func machineToElf(mt MachineType) uint16 {
	switch mt {
	case MachineTypeAMD64:
		return uint16(elf.EM_X86_64)
	case MachineTypeARM64:
		return uint16(elf.EM_AARCH64)
	case MachineTypeRISCV64:
		return uint16(elf.EM_RISCV)
	default:
		return uint16(elf.EM_NONE)
	}
}

func getEntryAddress(ctx *Context) uint64 {
	for _, osec := range ctx.OutputSections {
		if osec.Name == ".text" {
			return osec.Shdr.Addr
		}
	}
	return 0
}
