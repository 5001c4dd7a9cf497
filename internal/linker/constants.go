package linker

// IMAGE_BASE is the virtual address SetOutputSectionOffsets places the
// first allocated chunk at. It is used for every output kind, -shared
// and -pie outputs included.
const IMAGE_BASE = 0x10000
