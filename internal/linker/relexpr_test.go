package linker

import "testing"

func TestRelExprString(t *testing.T) {
	cases := []struct {
		e    RelExpr
		want string
	}{
		{RNone, "none"},
		{RAbs, "abs"},
		{RTlsDescCall, "tlsdesc_call"},
		{RIrelativeRel, "irelative"},
		{RelExpr(999), "unknown"},
	}
	for _, c := range cases {
		if got := c.e.String(); got != c.want {
			t.Errorf("%d.String() = %q, want %q", c.e, got, c.want)
		}
	}
}

func TestMaskMembership(t *testing.T) {
	if !needsPlt(RPlt) || !needsPlt(RPltPc) {
		t.Error("RPlt/RPltPc must need a PLT slot")
	}
	if needsPlt(RAbs) || needsPlt(RGot) {
		t.Error("RAbs/RGot must not need a PLT slot")
	}
	if !needsGot(RTlsGd) || !needsGot(RTlsDesc) {
		t.Error("TLS GOT-backed expressions must report needsGot")
	}
	if needsGot(RTPOff) {
		t.Error("RTPOff resolves without a GOT slot")
	}
	if !needsTlsGd(RTlsGd) || !needsTlsGd(RTlsGdPc) || needsTlsGd(RTlsLd) {
		t.Error("needsTlsGd must only match the GD pair")
	}
	if !needsCapTable(RCapTableIdx) || needsCapTable(RGot) {
		t.Error("needsCapTable must only match RCapTableIdx")
	}
}

func TestToPltFromPltRoundTrip(t *testing.T) {
	if got := toPlt(RAbs); got != RPlt {
		t.Errorf("toPlt(RAbs) = %v, want RPlt", got)
	}
	if got := toPlt(RPc); got != RPltPc {
		t.Errorf("toPlt(RPc) = %v, want RPltPc", got)
	}
	if got := fromPlt(toPlt(RAbs)); got != RAbs {
		t.Errorf("fromPlt(toPlt(RAbs)) = %v, want RAbs", got)
	}
	if got := fromPlt(toPlt(RPc)); got != RPc {
		t.Errorf("fromPlt(toPlt(RPc)) = %v, want RPc", got)
	}
	// An expression outside the PLT pair set is left untouched by both.
	if got := toPlt(RGot); got != RGot {
		t.Errorf("toPlt(RGot) = %v, want RGot unchanged", got)
	}
	if got := fromPlt(RGot); got != RGot {
		t.Errorf("fromPlt(RGot) = %v, want RGot unchanged", got)
	}
}
