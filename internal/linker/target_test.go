package linker

import (
	"debug/elf"
	"testing"
)

func TestARM64InBranchRange(t *testing.T) {
	tgt := NewARM64Target()
	call26 := RelType(elf.R_AARCH64_CALL26)

	if !tgt.InBranchRange(call26, 0, branchRange26-1) {
		t.Error("a destination just inside +128MiB must be in range")
	}
	if tgt.InBranchRange(call26, 0, branchRange26) {
		t.Error("a destination at exactly +128MiB must be out of range")
	}
	if !tgt.InBranchRange(call26, branchRange26, 0) {
		t.Error("a destination at exactly -128MiB must be in range")
	}
	if tgt.InBranchRange(call26, branchRange26+1, 0) {
		t.Error("a destination just past -128MiB must be out of range")
	}

	// A non-branch relocation type is never range-limited.
	if !tgt.InBranchRange(RelType(elf.R_AARCH64_ABS64), 0, 1<<40) {
		t.Error("ABS64 has no branch-range constraint")
	}
}

func TestARM64NeedsThunk(t *testing.T) {
	tgt := NewARM64Target()
	if !tgt.NeedsThunk(RPltPc, RelType(elf.R_AARCH64_CALL26), nil, 0, nil, 0) {
		t.Error("CALL26 must always be considered for a thunk")
	}
	if tgt.NeedsThunk(RAbs, RelType(elf.R_AARCH64_ABS64), nil, 0, nil, 0) {
		t.Error("ABS64 never needs a thunk")
	}
}

func TestRISCV64InBranchRangeDualWindow(t *testing.T) {
	tgt := NewRISCV64Target()
	jal := RelType(elf.R_RISCV_JAL)
	branch := RelType(elf.R_RISCV_BRANCH)

	if !tgt.InBranchRange(jal, 0, riscvJalRange-1) {
		t.Error("JAL just inside its ±1MiB window must be in range")
	}
	if tgt.InBranchRange(jal, 0, riscvJalRange) {
		t.Error("JAL at exactly +1MiB must be out of range")
	}

	if !tgt.InBranchRange(branch, 0, riscvBranchRange-1) {
		t.Error("BRANCH just inside its ±4KiB window must be in range")
	}
	if tgt.InBranchRange(branch, 0, riscvBranchRange) {
		t.Error("BRANCH at exactly +4KiB must be out of range")
	}

	// A JAL-range-only destination must still fail the tighter BRANCH window.
	if tgt.InBranchRange(branch, 0, riscvJalRange-1) {
		t.Error("BRANCH's window is much tighter than JAL's")
	}
}

func TestNewTargetForMachine(t *testing.T) {
	if _, ok := NewTargetForMachine(MachineTypeAMD64).(*AMD64Target); !ok {
		t.Error("expected an *AMD64Target for MachineTypeAMD64")
	}
	if _, ok := NewTargetForMachine(MachineTypeARM64).(*ARM64Target); !ok {
		t.Error("expected an *ARM64Target for MachineTypeARM64")
	}
	if _, ok := NewTargetForMachine(MachineTypeRISCV64).(*RISCV64Target); !ok {
		t.Error("expected an *RISCV64Target for MachineTypeRISCV64")
	}
	if NewTargetForMachine(MachineTypeNone) != nil {
		t.Error("expected nil for an unrecognised machine type")
	}
}
