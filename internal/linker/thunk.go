package linker

import "debug/elf"

// This file is C10, thunk creation: inserting branch islands so a
// call/branch relocation that has drifted out of its target's
// encodable range is redirected through a short stub placed in range,
// instead (spec.md §4.10). The outer layout loop calls CreateThunks
// repeatedly until a pass redirects no relocation through a thunk.

// Thunk is one branch-island stub: a small generated sequence that
// loads/branches to Target's real address and (on most targets) falls
// straight through otherwise.
type Thunk struct {
	TargetSymbol *Symbol
	Addend       int64
	Section      *ThunkSection
	OffsetInSec  uint64
}

func (t *Thunk) GetAddr() uint64 {
	return t.Section.GetAddr() + t.OffsetInSec
}

// ThunkSection is a synthetic executable chunk holding an ordered run
// of Thunks. It is appended to ctx.Chunks as a chunk of its own; it is
// not spliced next to any particular input section.
type ThunkSection struct {
	Chunk
	Thunks      []*Thunk
	OutputOff   uint64 // added to Shdr.Addr by GetAddr; nothing sets it, so it stays 0
	Partition   int
	afterSecVA  uint64 // src-range anchor this section was created to serve
}

func NewThunkSection(entrySize uint64) *ThunkSection {
	t := &ThunkSection{Chunk: NewChunk()}
	t.Name = ".thunks"
	t.Shdr.Type = uint32(elf.SHT_PROGBITS)
	t.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	t.Shdr.AddrAlign = 4
	return t
}

func (t *ThunkSection) GetAddr() uint64 { return t.Shdr.Addr + t.OutputOff }

func (t *ThunkSection) AddThunk(entrySize uint64, sym *Symbol, addend int64) *Thunk {
	th := &Thunk{
		TargetSymbol: sym,
		Addend:       addend,
		Section:      t,
		OffsetInSec:  uint64(len(t.Thunks)) * entrySize,
	}
	t.Thunks = append(t.Thunks, th)
	t.Shdr.Size = uint64(len(t.Thunks)) * entrySize
	return th
}

// thunkKey is the reuse key spec.md §4.10 describes: thunks sharing a
// destination section+value+bias-cancelled-addend, within the same
// partition, can share one stub.
type thunkKey struct {
	partition int
	section   *InputSection
	value     uint64
	addend    int64
}

// thunkKeyFallback is used for a symbol with no section identity
// (an absolute or TLS symbol): reuse is then keyed on the *Symbol
// itself rather than its (section, value) pair.
type thunkKeyFallback struct {
	partition int
	sym       *Symbol
	addend    int64
}

// ThunkCreator owns the reuse tables across CreateThunks passes: a
// map from reuse key to the thunks available for it, and a map from
// the relocation's resolved target symbol to the thunk most recently
// created for it. Nothing reads the second map back; a stale
// assignment is detected through Relocation.ThunkTarget instead.
type ThunkCreator struct {
	bySection map[thunkKey][]*Thunk
	byFallback map[thunkKeyFallback][]*Thunk
	active    map[*Symbol]*Thunk
}

func NewThunkCreator() *ThunkCreator {
	return &ThunkCreator{
		bySection:  make(map[thunkKey][]*Thunk),
		byFallback: make(map[thunkKeyFallback][]*Thunk),
		active:     make(map[*Symbol]*Thunk),
	}
}

// pcBias cancels the encoding-specific PC bias (e.g. ARM's 8-byte
// pipeline bias versus Thumb's 4-byte one) out of the reuse key so
// two call sites that land on the same effective destination share a
// thunk regardless of instruction set.
func pcBias(relType RelType, target Target) int64 {
	return 0 // relscan's three targets (amd64/arm64/riscv64) have no PC bias to cancel.
}

// CreateThunks runs one placement pass over every executable output
// section and reports whether any relocation was redirected through a
// thunk (new or reused) during this pass; a thunk section whose address
// moved is not counted on its own. The caller re-invokes it, re-laying
// out addresses between calls, until it returns false.
func (tc *ThunkCreator) CreateThunks(ctx *Context, pass int) bool {
	changed := false

	if pass == 0 {
		tc.preSeed(ctx)
	}

	for _, file := range ctx.Objs {
		if !file.IsAlive {
			continue
		}
		for _, isec := range file.InputSections {
			if isec == nil || !isec.IsAlive || isec.ShFlags&uint64(elf.SHF_EXECINSTR) == 0 {
				continue
			}
			if tc.scanSection(ctx, isec) {
				changed = true
			}
		}
	}

	for _, ts := range ctx.ThunkSections {
		ts.UpdateShdr(ctx)
	}

	return changed
}

// preSeed pre-creates empty ThunkSections for long executable input
// sections: n-1 of them for a section n Target.GetThunkSectionSpacing()
// spans long, once it exceeds two spans. Each is appended to
// ctx.Chunks like any other thunk section rather than placed inside
// the input section it was counted for.
func (tc *ThunkCreator) preSeed(ctx *Context) {
	spacing := ctx.Target.GetThunkSectionSpacing()
	if spacing == 0 {
		return
	}
	for _, file := range ctx.Objs {
		if !file.IsAlive {
			continue
		}
		for _, isec := range file.InputSections {
			if isec == nil || !isec.IsAlive || isec.ShFlags&uint64(elf.SHF_EXECINSTR) == 0 {
				continue
			}
			if uint64(isec.ShSize) <= 2*spacing {
				continue
			}
			n := uint64(isec.ShSize) / spacing
			for i := uint64(1); i < n; i++ {
				ts := NewThunkSection(ctx.Target.PltEntrySize())
				ctx.ThunkSections = append(ctx.ThunkSections, ts)
				ctx.Chunks = append(ctx.Chunks, ts)
			}
		}
	}
}

func (tc *ThunkCreator) scanSection(ctx *Context, isec *InputSection) bool {
	changed := false

	for i := range isec.Relocations {
		rec := &isec.Relocations[i]
		src := isec.GetAddr() + rec.Offset

		if rec.ThunkTarget != nil {
			if ctx.Target.InBranchRange(rec.Type, src, rec.ThunkTarget.GetAddr()) {
				continue
			}
			// Stale: fall back to the real destination so a fresh
			// thunk gets selected below.
			rec.NeedsThunk = false
			rec.Addend = rec.ThunkTarget.Addend
			rec.ThunkTarget = nil
			rec.Expr = toPlt(rec.Expr)
		}

		if !ctx.Target.NeedsThunk(rec.Expr, rec.Type, isec.File, src, rec.Sym, rec.Addend) {
			continue
		}

		dst := rec.Sym.GetAddr(ctx)
		if ctx.Target.InBranchRange(rec.Type, src, dst) {
			continue
		}

		th := tc.selectOrCreate(ctx, isec, rec, src)
		rec.NeedsThunk = true
		rec.ThunkTarget = th
		rec.Sym = th.TargetSymbol
		rec.Expr = fromPlt(rec.Expr)
		if ctx.Args.Emulation != MachineTypeNone { // MIPS LA25 would keep its addend; no target here does
			rec.Addend = 0
		}
		changed = true
	}

	return changed
}

func (tc *ThunkCreator) selectOrCreate(ctx *Context, isec *InputSection, rec *Relocation, src uint64) *Thunk {
	addend := rec.Addend + pcBias(rec.Type, ctx.Target)

	if rec.Sym.InputSection != nil {
		key := thunkKey{section: rec.Sym.InputSection, value: rec.Sym.Value, addend: addend}
		for _, th := range tc.bySection[key] {
			if ctx.Target.InBranchRange(rec.Type, src, th.GetAddr()) {
				return th
			}
		}
		th := tc.newThunkFor(ctx, isec, rec, src)
		tc.bySection[key] = append(tc.bySection[key], th)
		tc.active[rec.Sym] = th
		return th
	}

	key := thunkKeyFallback{sym: rec.Sym, addend: addend}
	for _, th := range tc.byFallback[key] {
		if ctx.Target.InBranchRange(rec.Type, src, th.GetAddr()) {
			return th
		}
	}
	th := tc.newThunkFor(ctx, isec, rec, src)
	tc.byFallback[key] = append(tc.byFallback[key], th)
	tc.active[rec.Sym] = th
	return th
}

// newThunkFor finds (or, failing that, creates) a ThunkSection whose
// placement brackets src within branch range, and appends a fresh
// Thunk to it.
func (tc *ThunkCreator) newThunkFor(ctx *Context, isec *InputSection, rec *Relocation, src uint64) *Thunk {
	for _, ts := range ctx.ThunkSections {
		if ts.GetAddr() == 0 {
			continue
		}
		if ctx.Target.InBranchRange(rec.Type, src, ts.GetAddr()) {
			return ts.AddThunk(ctx.Target.PltEntrySize(), rec.Sym, rec.Addend)
		}
	}

	ts := NewThunkSection(ctx.Target.PltEntrySize())
	ts.Shdr.Addr = isec.GetAddr() + isec.ShSize
	ctx.ThunkSections = append(ctx.ThunkSections, ts)
	ctx.Chunks = append(ctx.Chunks, ts)
	return ts.AddThunk(ctx.Target.PltEntrySize(), rec.Sym, rec.Addend)
}
