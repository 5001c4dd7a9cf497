package linker

import "testing"

func TestComputeAddendRelaReadsExplicitAddend(t *testing.T) {
	target := NewAMD64Target()
	recs := []Rela{{Type: 0, Addend: 42}}

	got := ComputeAddend(target, true, recs, 0, nil)
	if got != 42 {
		t.Errorf("ComputeAddend(rela) = %d, want 42", got)
	}
}

func TestComputeAddendRelFallsBackToImplicit(t *testing.T) {
	target := NewAMD64Target() // GetImplicitAddend always returns 0 for amd64's RELA-only ABI
	recs := []Rela{{Type: 0, Addend: 99}}

	got := ComputeAddend(target, false, recs, 0, nil)
	if got != 0 {
		t.Errorf("ComputeAddend(rel) should ignore Rela.Addend entirely and read from loc, got %d", got)
	}
}

func TestMipsPairedTypeAlwaysMisses(t *testing.T) {
	if _, ok := mipsPairedType(RelType(5)); ok {
		t.Error("relscan carries no MIPS target; the pairing table must stay empty")
	}
}
