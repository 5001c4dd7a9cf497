package linker

import (
	"fmt"
	"os"
)

// Error records a hard link error against ctx (spec.md's "diagnostic
// sink" ambient concern) and prints it immediately; relscan keeps
// scanning after a non-fatal error so a single run can report every
// problem in the input instead of stopping at the first one.
func (ctx *Context) Error(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "relscan: error: %s\n", fmt.Sprintf(format, args...))
	ctx.NumErrors++
}

// Warn records a warning: visible to the user, never fails the link.
func (ctx *Context) Warn(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "relscan: warning: %s\n", fmt.Sprintf(format, args...))
	ctx.NumWarnings++
}

// ErrorOrWarn routes to Error or Warn depending on Config.UnresolvedSymbols,
// the switch C9's undefined-symbol handling and other lenient-by-flag
// diagnostics share.
func (ctx *Context) ErrorOrWarn(format string, args ...any) {
	if ctx.Config.UnresolvedSymbols == UnresolvedWarn {
		ctx.Warn(format, args...)
		return
	}
	ctx.Error(format, args...)
}

// FlushUndefinedDiags renders every diagnostic C9 accumulated during
// ScanRelocations and prints them, then reports whether the link
// should be considered failed.
func (ctx *Context) FlushUndefinedDiags() bool {
	for _, line := range ReportUndefinedSymbols(ctx) {
		fmt.Fprintln(os.Stderr, line)
	}
	return ctx.NumErrors == 0
}
