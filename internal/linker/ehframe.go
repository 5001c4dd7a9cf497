package linker

import "github.com/tanisaro/relscan/internal/utils"

// EhPiece is one CALL-frame record (a CIE or an FDE) inside a
// mergeable .eh_frame input section: spec.md §3/§4.3's offset
// translator operates over these rather than over raw bytes.
// OutputOff is -1 for a piece the driver has decided to drop (garbage
// collection of individual pieces is out of this core's scope per
// spec.md §1, so relscan never actually produces a dead piece, but the
// field and the "-1 means dead" contract are preserved so a future
// section-GC pass has somewhere to record it).
type EhPiece struct {
	InputOff  uint32
	Size      uint32
	OutputOff int64
}

// buildEhFramePieces splits a raw .eh_frame section into its length-
// prefixed records (each begins with a 4-byte little-endian length not
// counting the length field itself; a zero length is the section's own
// terminator and is not turned into a piece).
func buildEhFramePieces(contents []byte) []EhPiece {
	var pieces []EhPiece
	off := uint32(0)
	for off+4 <= uint32(len(contents)) {
		length := uint32(contents[off]) | uint32(contents[off+1])<<8 |
			uint32(contents[off+2])<<16 | uint32(contents[off+3])<<24
		if length == 0 {
			break
		}
		size := length + 4
		pieces = append(pieces, EhPiece{InputOff: off, Size: size, OutputOff: int64(off)})
		off += size
	}
	return pieces
}

// IsEhFrame reports whether this section carries piece-translated
// offsets rather than a flat byte range.
func (i *InputSection) IsEhFrame() bool { return i.EhPieces != nil }

// TranslateOffset maps an input-section byte offset to its
// output-section offset (spec.md §4.3). For ordinary sections it is the
// identity. For an .eh_frame section it advances an internal cursor
// over the (sorted, non-overlapping) piece list, so callers MUST
// present offsets in non-decreasing order across one scan pass;
// presenting a smaller offset than a previous call is a fatal
// invariant breach, not a recoverable error (spec.md §3 invariant).
func (i *InputSection) TranslateOffset(off uint32) (int64, bool) {
	if i.EhPieces == nil {
		return int64(off), true
	}

	for i.ehCursor < len(i.EhPieces)-1 &&
		i.EhPieces[i.ehCursor].InputOff+i.EhPieces[i.ehCursor].Size <= off {
		i.ehCursor++
	}

	p := i.EhPieces[i.ehCursor]
	utils.Assert(p.InputOff <= off)
	if p.OutputOff == -1 {
		return -1, false
	}
	return p.OutputOff + int64(off-p.InputOff), true
}

// ResetOffsetCursor rewinds the translator; scanner.go calls it before
// each fresh pass over a section's relocations.
func (i *InputSection) ResetOffsetCursor() { i.ehCursor = 0 }
