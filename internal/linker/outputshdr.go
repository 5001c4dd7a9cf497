package linker

import "github.com/tanisaro/relscan/internal/utils"

// OutputShdr is the ELF section header table chunk.
type OutputShdr struct {
	Chunk
}

func NewOutputShdr() *OutputShdr {
	o := &OutputShdr{Chunk: NewChunk()}
	o.Shdr.AddrAlign = 8
	return o
}

func (o *OutputShdr) UpdateShdr(ctx *Context) {
	n := int64(0)
	for _, chunk := range ctx.Chunks {
		if idx := chunkShndx(chunk); idx > 0 {
			n = idx
		}
	}
	o.Shdr.Size = uint64(n+1) * uint64(ShdrSize)
}

func (o *OutputShdr) CopyBuf(ctx *Context) {
	base := ctx.Buf[o.Shdr.Offset:]
	utils.Write[Shdr](base, Shdr{})

	for _, chunk := range ctx.Chunks {
		idx := chunkShndx(chunk)
		if idx <= 0 {
			continue
		}
		utils.Write[Shdr](base[idx*int64(ShdrSize):], *chunk.GetShdr())
	}
}

func chunkShndx(c Chunker) int64 {
	if s, ok := c.(interface{ GetShndx() int64 }); ok {
		return s.GetShndx()
	}
	return 0
}
