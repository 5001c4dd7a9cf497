package linker

import (
	"strconv"
	"strings"

	"github.com/tanisaro/relscan/internal/utils"
)

// ReadArchiveMembers splits a System V (GNU ar) archive into its member
// files. It understands the GNU extended-name table (a "//" member)
// but not the BSD long-name convention, matching what a RISC-V/x86-64
// Linux toolchain's ar actually emits.
func ReadArchiveMembers(file *File) []*File {
	contents := file.Contents
	utils.Assert(strings.HasPrefix(string(contents), "!<arch>\n"))
	pos := len(arMagic)

	var longNames []byte
	var members []*File

	for pos+60 <= len(contents) {
		hdr := contents[pos : pos+60]
		pos += 60

		nameField := strings.TrimRight(string(hdr[0:16]), " ")
		sizeField := strings.TrimSpace(string(hdr[48:58]))
		size, err := strconv.ParseInt(sizeField, 10, 64)
		utils.MustNo(err)

		if pos+int(size) > len(contents) {
			utils.Fatal("corrupt archive: member overruns file")
		}
		data := contents[pos : pos+int(size)]

		switch {
		case nameField == "//":
			longNames = data
		case nameField == "/" || nameField == "":
			// Symbol table / padding member; not needed for the
			// simple first-definition-wins resolution model.
		case strings.HasPrefix(nameField, "/"):
			off, err := strconv.Atoi(strings.TrimPrefix(nameField, "/"))
			if err == nil && off < len(longNames) {
				name := longNames[off:]
				if i := strings.IndexByte(string(name), '\n'); i >= 0 {
					name = name[:i]
				}
				members = append(members, &File{
					Name:     strings.TrimRight(string(name), "/"),
					Contents: data,
					Parent:   file,
				})
			}
		default:
			members = append(members, &File{
				Name:     strings.TrimRight(nameField, "/"),
				Contents: data,
				Parent:   file,
			})
		}

		// Members are padded to an even offset.
		pos += int(size)
		if size%2 != 0 {
			pos++
		}
	}

	return members
}

// CheckFileCompatibility aborts the link if file's machine type does
// not match the emulation selected on the command line (explicitly, or
// inferred from the first recognisable input).
func CheckFileCompatibility(ctx *Context, file *File) {
	mt := GetMachineTypeFromContents(file.Contents)
	if mt != ctx.Args.Emulation {
		utils.Fatal(file.Name + ": incompatible file type")
	}
}
