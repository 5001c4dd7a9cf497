package linker

import (
	"debug/elf"
	"math"
	"sort"

	"github.com/tanisaro/relscan/internal/utils"
)

// ResolveSymbols runs first-definition-wins global symbol resolution
// across every object on the command line, then transitively pulls in
// whatever archive members those definitions still leave undefined,
// and finally drops anything that never became reachable.
func ResolveSymbols(ctx *Context) {
	for _, file := range ctx.Objs {
		file.ResolveSymbols(ctx)
	}

	MarkLiveObjects(ctx, func(newlyAlive *ObjectFile) {
		// The object is already in ctx.Objs (added when the archive was
		// opened); nothing further to enqueue here.
		_ = newlyAlive
	})

	for _, file := range ctx.Objs {
		if !file.IsAlive {
			file.ClearSymbols()
		}
	}

	ctx.Objs = utils.RemoveIf(ctx.Objs, func(file *ObjectFile) bool {
		return !file.IsAlive
	})
}

// RegisterSectionPieces interns every object's split-out mergeable
// section pieces into their shared MergedSection.
func RegisterSectionPieces(ctx *Context) {
	for _, file := range ctx.Objs {
		file.RegisterSectionPieces()
	}
}

// ComputeMergedSectionSizes finalises every MergedSection's fragment
// offsets once no further object will register a piece into it.
func ComputeMergedSectionSizes(ctx *Context) {
	for _, m := range ctx.MergedSections {
		m.AssignOffsets()
	}
}

// CreateSyntheticSections allocates the fixed C6 chunks every output
// carries regardless of what the input asked for: the ELF/program/
// section headers and the GOT (every other synthetic chunk in
// Syntheticenvironment is allocated lazily, the first time C8's scan
// or C7's copy-relocation path actually needs it).
func CreateSyntheticSections(ctx *Context) {
	push := func(c Chunker) Chunker {
		ctx.Chunks = append(ctx.Chunks, c)
		return c
	}

	ctx.Ehdr = push(NewOutputEhdr()).(*OutputEhdr)
	ctx.Phdr = push(NewOutputPhdr()).(*OutputPhdr)
	ctx.Shdr = push(NewOutputShdr()).(*OutputShdr)
	ctx.In.Got = push(NewGotSection()).(*GotSection)
}

// BinSections assigns every live InputSection to the OutputSection its
// name+type+flags mapped to (GetOutputSection already ran in
// NewInputSection while the objects were parsed and stamped
// isec.OutputSection).
func BinSections(ctx *Context) {
	groups := make([][]*InputSection, len(ctx.OutputSections))
	for _, file := range ctx.Objs {
		for _, isec := range file.InputSections {
			if isec == nil || !isec.IsAlive || isec.OutputSection == nil {
				continue
			}
			idx := isec.OutputSection.Idx
			groups[idx] = append(groups[idx], isec)
		}
	}
	for idx, osec := range ctx.OutputSections {
		osec.Members = groups[idx]
	}
}

// CollectOutputSections gathers every chunk that will actually appear
// in the output: regular OutputSections with members, and
// MergedSections that ended up non-empty.
func CollectOutputSections(ctx *Context) []Chunker {
	var chunks []Chunker
	for _, osec := range ctx.OutputSections {
		if len(osec.Members) > 0 {
			chunks = append(chunks, osec)
		}
	}
	for _, m := range ctx.MergedSections {
		if m.Shdr.Size > 0 {
			chunks = append(chunks, m)
		}
	}
	return chunks
}

// ComputeSectionSizes lays out every OutputSection's members back to
// back, respecting each member's own alignment, and rolls the
// section's own AddrAlign up to the strictest member's.
func ComputeSectionSizes(ctx *Context) {
	for _, osec := range ctx.OutputSections {
		offset := uint64(0)
		var p2align uint8
		for _, isec := range osec.Members {
			offset = utils.AlignTo(offset, uint64(1)<<isec.P2Align)
			isec.Offset = uint32(offset)
			offset += isec.ShSize
			if isec.P2Align > p2align {
				p2align = isec.P2Align
			}
		}
		osec.Shdr.Size = offset
		osec.Shdr.AddrAlign = uint64(1) << p2align
	}
}

// SortOutputSections orders ctx.Chunks the way a working ELF loader
// expects them: Ehdr, Phdr, then allocated sections grouped read-only
// before writable, TLS before non-TLS, code before data before bss,
// non-allocated debug/symbol-table sections last, Shdr absolutely
// last.
func SortOutputSections(ctx *Context) {
	rank := func(c Chunker) int32 {
		shdr := c.GetShdr()
		if shdr.Flags&uint64(elf.SHF_ALLOC) == 0 {
			return math.MaxInt32 - 1
		}
		if c == Chunker(ctx.Shdr) {
			return math.MaxInt32
		}
		if c == Chunker(ctx.Ehdr) {
			return 0
		}
		if c == Chunker(ctx.Phdr) {
			return 1
		}
		if shdr.Type == uint32(elf.SHT_NOTE) {
			return 2
		}

		b2i := func(b bool) int32 {
			if b {
				return 1
			}
			return 0
		}
		writable := b2i(shdr.Flags&uint64(elf.SHF_WRITE) != 0)
		notExec := b2i(shdr.Flags&uint64(elf.SHF_EXECINSTR) == 0)
		notTLS := b2i(shdr.Flags&uint64(elf.SHF_TLS) == 0)
		isBss := b2i(shdr.Type == uint32(elf.SHT_NOBITS))
		return writable<<7 | notExec<<6 | notTLS<<5 | isBss<<4
	}

	sort.SliceStable(ctx.Chunks, func(i, j int) bool {
		return rank(ctx.Chunks[i]) < rank(ctx.Chunks[j])
	})
}

func isTbss(c Chunker) bool {
	shdr := c.GetShdr()
	return shdr.Type == uint32(elf.SHT_NOBITS) && shdr.Flags&uint64(elf.SHF_TLS) != 0
}

// SetOutputSectionOffsets assigns every allocated chunk a virtual
// address starting at IMAGE_BASE, then lays non-allocated chunks out
// by file offset immediately following, and returns the resulting
// file size.
func SetOutputSectionOffsets(ctx *Context) uint64 {
	addr := uint64(IMAGE_BASE)
	for _, c := range ctx.Chunks {
		if c.GetShdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
			continue
		}
		addr = utils.AlignTo(addr, c.GetShdr().AddrAlign)
		c.GetShdr().Addr = addr
		if !isTbss(c) {
			addr += c.GetShdr().Size
		}
	}

	i := 0
	first := ctx.Chunks[0]
	for {
		shdr := ctx.Chunks[i].GetShdr()
		shdr.Offset = shdr.Addr - first.GetShdr().Addr
		i++
		if i >= len(ctx.Chunks) || ctx.Chunks[i].GetShdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
			break
		}
	}

	lastShdr := ctx.Chunks[i-1].GetShdr()
	fileoff := lastShdr.Offset + lastShdr.Size
	for ; i < len(ctx.Chunks); i++ {
		shdr := ctx.Chunks[i].GetShdr()
		fileoff = utils.AlignTo(fileoff, shdr.AddrAlign)
		shdr.Offset = fileoff
		fileoff += shdr.Size
	}

	ctx.Phdr.UpdateShdr(ctx)
	return fileoff
}

// RunThunkConvergence repeatedly lays out addresses and runs C10's
// CreateThunks until a pass places no new thunk and moves nothing out
// of range — spec.md's fixed-point requirement for the thunk graph.
// maxPasses bounds pathological inputs that would otherwise oscillate
// forever (the same safety valve lld's own thunk pass carries).
func RunThunkConvergence(ctx *Context, maxPasses int) {
	tc := NewThunkCreator()
	for pass := 0; pass < maxPasses; pass++ {
		SetOutputSectionOffsets(ctx)
		if !tc.CreateThunks(ctx, pass) {
			return
		}
	}
}
