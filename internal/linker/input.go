package linker

import (
	"strings"

	"github.com/tanisaro/relscan/internal/utils"
)

// ReadInputFiles walks the command line's non-option arguments,
// resolving "-lfoo" against the configured library search path and
// loading everything else directly.
func ReadInputFiles(ctx *Context, remaining []string) {
	for _, arg := range remaining {
		if name, ok := utils.RemovePrefix(arg, "-l"); ok {
			ReadFile(ctx, FindLibrary(ctx, name))
		} else {
			ReadFile(ctx, MustNewFile(arg))
		}
	}
}

func ReadFile(ctx *Context, file *File) {
	switch GetFileType(file.Contents) {
	case FileTypeObject:
		if isSharedObject(file.Contents) {
			ctx.DSOs = append(ctx.DSOs, CreateSharedFile(ctx, file))
		} else {
			ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, file, false))
		}
	case FileTypeArchive:
		for _, child := range ReadArchiveMembers(file) {
			utils.Assert(GetFileType(child.Contents) == FileTypeObject)
			ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, child, true))
		}
	default:
		utils.Fatal(file.Name + ": unknown file type")
	}
}

func isSharedObject(contents []byte) bool {
	if len(contents) < EhdrSize {
		return false
	}
	etype := uint16(contents[16]) | uint16(contents[17])<<8
	return etype == 3 // ET_DYN
}

func CreateObjectFile(ctx *Context, file *File, inLib bool) *ObjectFile {
	CheckFileCompatibility(ctx, file)
	obj := NewObjectFile(file, !inLib)
	obj.Parse(ctx)
	return obj
}

// HasObjectSuffix reports whether a bare filename argument ends in .o,
// .so or .a, without parsing the file.
func HasObjectSuffix(name string) bool {
	return strings.HasSuffix(name, ".o") || strings.HasSuffix(name, ".so") ||
		strings.HasSuffix(name, ".a")
}
