package linker

import (
	"fmt"
	"strings"

	"github.com/tanisaro/relscan/internal/utils"
)

// This file is C9, undefined-symbol diagnostics: collecting every
// reference to an unresolved symbol during C8's scan, then turning the
// survivors into readable errors once scanning finishes (spec.md
// §4.9).

// UndefinedDiag is one bucketed diagnostic: a symbol referenced but
// never defined, and every (section, offset) site that referenced it.
type UndefinedDiag struct {
	Sym       *Symbol
	Locations []UndefinedLoc
	IsWarning bool
}

type UndefinedLoc struct {
	Section *InputSection
	Offset  uint64
}

const maxLocationsShown = 3

// RecordUndefinedDiag buckets one occurrence of an undefined reference
// under its symbol; the first occurrence creates the bucket; later
// ones just add a location.
func RecordUndefinedDiag(ctx *Context, sym *Symbol, isec *InputSection, offset uint64) {
	if isPPCBugSection(sym) {
		return
	}
	if ctx.Config.UnresolvedSymbols == UnresolvedIgnoreAll && sym.Binding != 0 {
		return
	}

	for i := range ctx.UndefinedDiags {
		if ctx.UndefinedDiags[i].Sym == sym {
			ctx.UndefinedDiags[i].Locations = append(ctx.UndefinedDiags[i].Locations,
				UndefinedLoc{Section: isec, Offset: offset})
			return
		}
	}

	ctx.UndefinedDiags = append(ctx.UndefinedDiags, UndefinedDiag{
		Sym:       sym,
		Locations: []UndefinedLoc{{Section: isec, Offset: offset}},
		IsWarning: ctx.Config.UnresolvedSymbols == UnresolvedWarn,
	})
}

func isPPCBugSection(sym *Symbol) bool {
	isec := sym.InputSection
	return isec != nil && (isec.Name == ".got2" || isec.Name == ".toc")
}

// ReportUndefinedSymbols renders every bucketed diagnostic, following
// spec.md §4.9's ordering: COMDAT-discard explanations first, spelling
// suggestions only for the first two, an overflow count past three
// locations.
func ReportUndefinedSymbols(ctx *Context) []string {
	var out []string
	for i, diag := range ctx.UndefinedDiags {
		out = append(out, renderDiag(ctx, diag, i < 2))
		if diag.IsWarning {
			ctx.NumWarnings++
		} else {
			ctx.NumErrors++
		}
	}
	return out
}

func renderDiag(ctx *Context, diag UndefinedDiag, suggest bool) string {
	var b strings.Builder

	kind := "error"
	if diag.IsWarning {
		kind = "warning"
	}

	if diag.Sym.InputSection != nil && diag.Sym.InputSection.DiscardedSignature != "" {
		sig := diag.Sym.InputSection.DiscardedSignature
		owner := "another translation unit"
		if diag.Sym.InputSection.PrevailingFile != nil {
			owner = diag.Sym.InputSection.PrevailingFile.File.Name
		}
		fmt.Fprintf(&b, "%s: %s: defined in a COMDAT group ('%s') that was discarded; %s's copy prevailed",
			kind, diag.Sym.Name, sig, owner)
	} else {
		vis := "undefined"
		if diag.Sym.Visibility != 0 {
			vis = "undefined hidden"
		}
		fmt.Fprintf(&b, "%s: %s symbol: %s", kind, vis, diag.Sym.Name)
	}

	shown := diag.Locations
	overflow := 0
	if len(shown) > maxLocationsShown {
		overflow = len(shown) - maxLocationsShown
		shown = shown[:maxLocationsShown]
	}
	for _, loc := range shown {
		name := "?"
		if loc.Section != nil && loc.Section.File != nil {
			name = loc.Section.File.File.Name
		}
		fmt.Fprintf(&b, "\n>>> referenced by %s+0x%x", name, loc.Offset)
	}
	if overflow > 0 {
		fmt.Fprintf(&b, "\n>>> referenced %d more times", overflow)
	}

	if suggest {
		if hint := suggestSpelling(ctx, diag.Sym.Name); hint != "" {
			fmt.Fprintf(&b, "\n>>> did you mean: %s", hint)
		}
	}

	return b.String()
}

const identAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_"

// suggestSpelling implements spec.md §4.9.3: single-edit candidates,
// plus a C++ extern-"C" mangling hint in either direction, plus a
// case-insensitive fallback.
func suggestSpelling(ctx *Context, name string) string {
	for _, cand := range utils.EditDistance1Candidates(name, identAlphabet) {
		if isKnownDefinedName(ctx, cand) {
			return cand
		}
	}

	if mangled, ok := cxxExternCHint(name); ok && isKnownDefinedName(ctx, mangled) {
		return mangled
	}

	lower := strings.ToLower(name)
	for symName, sym := range ctx.SymbolMap {
		if symName != name && strings.ToLower(symName) == lower && !sym.IsUndefined() {
			return symName
		}
	}

	return ""
}

func isKnownDefinedName(ctx *Context, name string) bool {
	sym, ok := ctx.SymbolMap[name]
	return ok && !sym.IsUndefined()
}

// cxxExternCHint proposes the counterpart of a plausible C++-mangled
// name: strip the Itanium ABI's "_Z" prefix and its length-prefixed
// identifier down to the bare identifier, or the reverse, wrap a bare
// name as a minimal "_Z<n><name>v" candidate.
func cxxExternCHint(name string) (string, bool) {
	if strings.HasPrefix(name, "_Z") {
		rest := name[2:]
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 {
			return "", false
		}
		n := 0
		fmt.Sscanf(rest[:i], "%d", &n)
		if i+n > len(rest) {
			return "", false
		}
		return rest[i : i+n], true
	}
	return fmt.Sprintf("_Z%d%sv", len(name), name), true
}
