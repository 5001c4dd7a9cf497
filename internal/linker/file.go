package linker

import (
	"os"
	"path/filepath"

	"github.com/tanisaro/relscan/internal/utils"
)

// File is the raw bytes of one linker input, plus a back-pointer to the
// archive it was extracted from, if any.
type File struct {
	Name     string
	Contents []byte
	Parent   *File
}

func MustNewFile(filename string) *File {
	contents, err := os.ReadFile(filename)
	utils.MustNo(err)
	return &File{Name: filename, Contents: contents}
}

func OpenLibrary(path string) *File {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return &File{Name: path, Contents: contents}
}

func FindLibrary(ctx *Context, name string) *File {
	for _, dir := range ctx.Args.LibraryPaths {
		if f := OpenLibrary(filepath.Join(dir, "lib"+name+".a")); f != nil {
			return f
		}
		if f := OpenLibrary(filepath.Join(dir, "lib"+name+".so")); f != nil {
			return f
		}
	}
	utils.Fatal("library not found: -l" + name)
	return nil
}
