package linker

// Chunker is the common interface every piece that ends up in the
// output file implements: regular OutputSections, merged string/const
// sections, and every synthetic section (GOT, PLT, the ELF/program/
// section headers, thunk sections). Go has no base-class pointers, so
// Chunk is embedded rather than inherited from.
type Chunker interface {
	GetName() string
	GetShdr() *Shdr
	UpdateShdr(ctx *Context)
	CopyBuf(ctx *Context)
}

// Chunk holds the bookkeeping every Chunker needs: its own Shdr record
// (never directly written to an input file, but filled in and later
// serialised into the output's section header table) and the index it
// ends up at once the table is finalised.
type Chunk struct {
	Name  string
	Shdr  Shdr
	Shndx int64
}

func NewChunk() Chunk {
	return Chunk{Shdr: Shdr{AddrAlign: 1}}
}

func (c *Chunk) GetName() string  { return c.Name }
func (c *Chunk) GetShdr() *Shdr   { return &c.Shdr }
func (c *Chunk) GetShndx() int64  { return c.Shndx }

func (c *Chunk) UpdateShdr(ctx *Context) {}
func (c *Chunk) CopyBuf(ctx *Context)    {}
