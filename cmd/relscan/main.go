// Command relscan drives the relocation scanner end to end: it reads a
// set of ELF object files and archives, resolves their symbols, scans
// every relocation record against the chosen machine's Target, grows
// whatever GOT/PLT/thunk state that scan needs, and writes the result.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tanisaro/relscan/internal/linker"
	"github.com/tanisaro/relscan/internal/utils"
)

var version string

// maxThunkPasses bounds C10's iterative convergence loop: each pass may
// grow a thunk section, which can push some other branch out of range,
// but in practice two or three passes settle every target relscan
// supports.
const maxThunkPasses = 10

func main() {
	ctx := linker.NewContext()
	remaining := parseArgs(ctx)

	if ctx.Args.Emulation == linker.MachineTypeNone {
		for _, filename := range remaining {
			if strings.HasPrefix(filename, "-") {
				continue
			}
			file := linker.MustNewFile(filename)
			ctx.Args.Emulation = linker.GetMachineTypeFromContents(file.Contents)
			if ctx.Args.Emulation != linker.MachineTypeNone {
				break
			}
		}
	}

	ctx.Target = linker.NewTargetForMachine(ctx.Args.Emulation)
	if ctx.Target == nil {
		utils.Fatal("unknown or unsupported emulation; pass -m or supply a recognisable input file")
	}

	linker.ReadInputFiles(ctx, remaining)
	linker.ResolveSymbols(ctx)
	linker.RegisterSectionPieces(ctx)
	linker.ComputeMergedSectionSizes(ctx)
	linker.CreateSyntheticSections(ctx)
	linker.BinSections(ctx)
	ctx.Chunks = append(ctx.Chunks, linker.CollectOutputSections(ctx)...)
	linker.ScanRelocations(ctx)

	if !ctx.FlushUndefinedDiags() {
		os.Exit(1)
	}

	linker.ComputeSectionSizes(ctx)
	linker.SortOutputSections(ctx)
	for _, chunk := range ctx.Chunks {
		chunk.UpdateShdr(ctx)
	}

	// Thunk convergence needs every chunk's address settled to know
	// which branches are out of range, and may itself grow a new thunk
	// section that shifts every address after it — hence the repeated
	// SetOutputSectionOffsets calls folded into RunThunkConvergence.
	linker.RunThunkConvergence(ctx, maxThunkPasses)
	fileSize := linker.SetOutputSectionOffsets(ctx)

	if ctx.Args.DebugDump != "" {
		linker.DebugDump(ctx, ctx.Args.DebugDump)
	}

	ctx.Buf = make([]byte, fileSize)

	out, err := os.OpenFile(ctx.Args.Output, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0777)
	utils.MustNo(err)

	for _, chunk := range ctx.Chunks {
		chunk.CopyBuf(ctx)
	}

	_, err = out.Write(ctx.Buf)
	utils.MustNo(err)
	utils.MustNo(out.Close())
}

// parseArgs follows the same two-closure style as every ld-family
// front end: readArg pulls "-o a.out", "-oa.out" or "--output=a.out"-shaped options,
// readFlag pulls bare switches, and whatever's left over (object files,
// "-lfoo" archive references) is returned as remaining.
func parseArgs(ctx *linker.Context) []string {
	args := os.Args[1:]

	dashes := func(name string) []string {
		if len(name) == 1 {
			return []string{"-" + name}
		}
		return []string{"-" + name, "--" + name}
	}

	arg := ""
	readArg := func(name string) bool {
		if len(args) == 0 {
			return false
		}
		for _, opt := range dashes(name) {
			if args[0] == opt {
				if len(args) == 1 {
					utils.Fatal(fmt.Sprintf("option -%s: argument missing", name))
				}
				arg = args[1]
				args = args[2:]
				return true
			}

			prefix := opt
			if len(name) > 1 {
				prefix += "="
			}
			if strings.HasPrefix(args[0], prefix) {
				arg = args[0][len(prefix):]
				args = args[1:]
				return true
			}
		}
		return false
	}

	readFlag := func(name string) bool {
		if len(args) == 0 {
			return false
		}
		for _, opt := range dashes(name) {
			if args[0] == opt {
				args = args[1:]
				return true
			}
		}
		return false
	}

	remaining := make([]string, 0)
	for len(args) > 0 {
		if readFlag("help") {
			fmt.Printf("usage: %s [options] file...\n", os.Args[0])
			os.Exit(0)
		}

		switch {
		case readArg("o") || readArg("output"):
			ctx.Args.Output = arg
		case readFlag("v") || readFlag("version"):
			fmt.Printf("relscan %s\n", version)
			os.Exit(0)
		case readArg("m"):
			switch arg {
			case "elf64lriscv":
				ctx.Args.Emulation = linker.MachineTypeRISCV64
			case "elf_x86_64":
				ctx.Args.Emulation = linker.MachineTypeAMD64
			case "aarch64elf", "aarch64linux":
				ctx.Args.Emulation = linker.MachineTypeARM64
			default:
				utils.Fatal(fmt.Sprintf("unknown -m argument: %s", arg))
			}
		case readFlag("shared"):
			ctx.Config.Shared = true
		case readFlag("pie"):
			ctx.Config.Pie = true
		case readFlag("static"):
			ctx.Config.Static = true
		case readArg("z"):
			applyZKeyword(ctx, arg)
		case readArg("unresolved-symbols"):
			switch arg {
			case "ignore-all":
				ctx.Config.UnresolvedSymbols = linker.UnresolvedIgnoreAll
			case "ignore-in-shared-libs", "report-all":
				ctx.Config.UnresolvedSymbols = linker.UnresolvedWarn
			default:
				ctx.Config.UnresolvedSymbols = linker.UnresolvedError
			}
		case readArg("debug-dump"):
			ctx.Args.DebugDump = arg
		case readArg("L"):
			ctx.Args.LibraryPaths = append(ctx.Args.LibraryPaths, arg)
		case readArg("l"):
			remaining = append(remaining, "-l"+arg)
		case readArg("sysroot") ||
			readArg("plugin") ||
			readArg("plugin-opt") ||
			readFlag("as-needed") ||
			readFlag("start-group") ||
			readFlag("end-group") ||
			readArg("hash-style") ||
			readArg("build-id") ||
			readFlag("s") ||
			readFlag("no-relax"):
			// Ignored: accepted for command-line compatibility with a
			// real linker invocation, nothing here changes relscan's
			// scan.
		default:
			if args[0][0] == '-' {
				utils.Fatal(fmt.Sprintf("unknown command line option: %s", args[0]))
			}
			remaining = append(remaining, args[0])
			args = args[1:]
		}
	}

	for i, path := range ctx.Args.LibraryPaths {
		ctx.Args.LibraryPaths[i] = filepath.Clean(path)
	}

	return remaining
}

// applyZKeyword maps a single "-z keyword" onto the Config fields
// (spec.md §9's ambient CLI expansion). processRelocAux consults
// ZText and ZCopyreloc; ZIfuncNoplt is recorded but nothing reads it.
func applyZKeyword(ctx *linker.Context, keyword string) {
	switch keyword {
	case "text":
		ctx.Config.ZText = true
	case "notext", "textoff":
		ctx.Config.ZText = false
	case "nocopyreloc":
		ctx.Config.ZCopyreloc = false
	case "copyreloc":
		ctx.Config.ZCopyreloc = true
	case "ifunc-noplt":
		ctx.Config.ZIfuncNoplt = true
	default:
		// Unrecognised -z keywords are accepted and ignored, the same
		// tolerance the teacher's flag parser extends to options it
		// doesn't implement.
	}
}
