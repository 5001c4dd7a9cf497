package linker

import (
	"os"

	"github.com/k0kubun/pp/v3"
)

// DebugDump renders a snapshot of ctx's link-time-visible state with
// github.com/k0kubun/pp, the same pretty-printer used elsewhere in the
// ambient stack to eyeball a Go value during development — gated
// behind --debug-dump=<stage> so a normal link never pays for it.
//
// stage is one of "got", "plt", "thunks", "symtab"; anything else is
// silently ignored, matching the teacher's own tolerant flag parsing.
func DebugDump(ctx *Context, stage string) {
	switch stage {
	case "got":
		dumpGot(ctx)
	case "plt":
		dumpPlt(ctx)
	case "thunks":
		dumpThunks(ctx)
	case "symtab":
		dumpSymtab(ctx)
	}
}

func dumpGot(ctx *Context) {
	if ctx.In.Got != nil {
		for _, sym := range ctx.In.Got.GotSyms {
			pp.Fprintln(os.Stderr, dumpGotEntry{"GOT", sym.Name, sym.GotOffset})
		}
		for _, sym := range ctx.In.Got.GotTpSyms {
			pp.Fprintln(os.Stderr, dumpGotEntry{"GOT(tp)", sym.Name, sym.GotTpOffset})
		}
	}
	if ctx.In.GotPlt != nil {
		for _, sym := range ctx.In.GotPlt.Syms {
			pp.Fprintln(os.Stderr, dumpGotEntry{"GOT.PLT", sym.Name, sym.PltIdx})
		}
	}
	if ctx.In.IgotPlt != nil {
		for _, sym := range ctx.In.IgotPlt.Syms {
			pp.Fprintln(os.Stderr, dumpGotEntry{"IGOT.PLT", sym.Name, sym.IgotPltIdx})
		}
	}
	if ctx.In.CapTable != nil {
		for _, sym := range ctx.In.CapTable.Syms {
			pp.Fprintln(os.Stderr, dumpGotEntry{"CapTable", sym.Name, sym.CapTableIdx})
		}
	}
}

func dumpPlt(ctx *Context) {
	if ctx.In.Plt != nil {
		for _, sym := range ctx.In.Plt.Syms {
			pp.Fprintln(os.Stderr, dumpGotEntry{"PLT", sym.Name, sym.PltIdx})
		}
	}
	if ctx.In.Iplt != nil {
		for _, sym := range ctx.In.Iplt.Syms {
			pp.Fprintln(os.Stderr, dumpGotEntry{"Iplt", sym.Name, sym.IpltIdx})
		}
	}
}

func dumpThunks(ctx *Context) {
	for i, ts := range ctx.ThunkSections {
		entries := make([]string, len(ts.Thunks))
		for j, th := range ts.Thunks {
			entries[j] = th.TargetSymbol.Name
		}
		pp.Fprintln(os.Stderr, dumpThunkSection{i, ts.GetAddr(), entries})
	}
}

func dumpSymtab(ctx *Context) {
	for name, sym := range ctx.SymbolMap {
		pp.Fprintln(os.Stderr, dumpSymbolEntry{name, sym.Kind().String(), sym.GetAddr(ctx), sym.Size})
	}
	for _, diag := range ctx.UndefinedDiags {
		pp.Fprintln(os.Stderr, dumpUndefined{diag.Sym.Name, len(diag.Locations), diag.IsWarning})
	}
}

type dumpGotEntry struct {
	Table string
	Name  string
	Idx   int32
}

type dumpThunkSection struct {
	Index   int
	Addr    uint64
	Targets []string
}

type dumpSymbolEntry struct {
	Name string
	Kind string
	Addr uint64
	Size uint64
}

type dumpUndefined struct {
	Name          string
	NumReferences int
	IsWarning     bool
}
