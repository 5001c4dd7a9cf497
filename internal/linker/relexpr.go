package linker

// This file is C1, the RelExpr algebra: the target-independent
// vocabulary every Target.GetRelExpr implementation translates a raw
// machine relocation type into, and every later component (addend
// computation, classification, the scanner, thunk creation) dispatches
// on instead of re-reading the raw RelType.
type RelExpr int

const (
	RNone RelExpr = iota
	RAbs            // absolute: write the symbol's final address (+ addend)
	RPc             // PC-relative: address - P
	RPlt            // through the PLT: PLT-addr - P
	RPltPc          // same, but written as a PC-relative displacement
	RGot            // GOT slot's address (+ addend), absolute
	RGotPc          // GOT slot's address relative to P
	RGotOff         // offset from the start of the GOT
	RGotRel         // address relative to the GOT's own base
	RSize           // st_size of the symbol
	RDTPOff         // TLS Local-Dynamic: offset from the module's TLS block
	RTPOff          // TLS Initial/Local-Exec: offset from the thread pointer
	RTlsGd          // TLS General-Dynamic: GOT slot holding (module,offset)
	RTlsGdPc        // same, PC-relative reference to that slot
	RTlsLd          // TLS Local-Dynamic: GOT slot holding (module,0)
	RTlsLdPc        // same, PC-relative
	RTlsDesc        // TLS Descriptor: GOT slot holding (resolver,argument)
	RTlsDescPc      // same, PC-relative
	RTlsDescCall    // the call instruction that invokes a TLSDESC resolver
	RCapTableIdx    // CHERI: index into the capability table, not the GOT
	RIrelativeRel   // IRELATIVE dynamic relocation target (ifunc resolver addr)
)

func (e RelExpr) String() string {
	names := [...]string{
		"none", "abs", "pc", "plt", "plt_pc", "got", "got_pc", "got_off",
		"got_rel", "size", "dtprel", "tprel", "tlsgd", "tlsgd_pc", "tlsld",
		"tlsld_pc", "tlsdesc", "tlsdesc_pc", "tlsdesc_call", "cap_table_idx",
		"irelative",
	}
	if int(e) < len(names) {
		return names[e]
	}
	return "unknown"
}

// mask is a 32-bit membership bitmask over RelExpr, the Go analogue of
// the original's compile-time 128-bit oneOf<...> mask: building a
// bitmask once and testing with a shift-and-AND is far cheaper than a
// chain of == comparisons once a predicate's set grows past two or
// three members.
type mask uint32

func maskOf(exprs ...RelExpr) mask {
	var m mask
	for _, e := range exprs {
		m |= 1 << uint(e)
	}
	return m
}

func (m mask) has(e RelExpr) bool { return m&(1<<uint(e)) != 0 }

var (
	maskNeedsPlt = maskOf(RPlt, RPltPc)

	maskNeedsGot = maskOf(RGot, RGotPc, RGotOff, RTlsGd, RTlsGdPc,
		RTlsLd, RTlsLdPc, RTlsDesc, RTlsDescPc)

	// maskIsRelExpr marks an expression that, after isStaticLinkTimeConstant
	// rejects a direct write, still only needs a dynamic R_*_RELATIVE
	// record rather than a full symbolic one, because resolving it does
	// not require knowing which preemptible definition won.
	maskIsRelExpr = maskOf(RPc, RGotRel, RDTPOff)

	maskNeedsTlsDesc = maskOf(RTlsDesc, RTlsDescPc, RTlsDescCall)
	maskNeedsTlsGd   = maskOf(RTlsGd, RTlsGdPc)
	maskNeedsTlsLd   = maskOf(RTlsLd, RTlsLdPc)
	maskNeedsCapTable = maskOf(RCapTableIdx)
)

func needsPlt(e RelExpr) bool      { return maskNeedsPlt.has(e) }
func needsGot(e RelExpr) bool      { return maskNeedsGot.has(e) }
func isRelExpr(e RelExpr) bool     { return maskIsRelExpr.has(e) }
func needsTlsDesc(e RelExpr) bool  { return maskNeedsTlsDesc.has(e) }
func needsTlsGd(e RelExpr) bool    { return maskNeedsTlsGd.has(e) }
func needsTlsLd(e RelExpr) bool    { return maskNeedsTlsLd.has(e) }
func needsCapTable(e RelExpr) bool { return maskNeedsCapTable.has(e) }

// toPlt rewrites a direct expression into its PLT-indirected form,
// used when a call/branch target turns out to need a PLT stub (a
// preemptible function symbol, or an ifunc that must be resolved at
// load time).
func toPlt(e RelExpr) RelExpr {
	switch e {
	case RPc:
		return RPltPc
	case RAbs:
		return RPlt
	default:
		return e
	}
}

// fromPlt undoes toPlt, used when a PLT indirection set up earlier
// turns out to be unnecessary after all (a non-preemptible symbol
// resolved locally during a later pass).
func fromPlt(e RelExpr) RelExpr {
	switch e {
	case RPltPc:
		return RPc
	case RPlt:
		return RAbs
	default:
		return e
	}
}
