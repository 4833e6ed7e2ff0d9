package suite

import "testing"

func TestSuiteFromWireID(t *testing.T) {
	cases := []struct {
		id   uint8
		want CryptoSuite
		ok   bool
	}{
		{0x01, ClassicX25519Ed25519, true},
		{0x02, PQCMLKEM768MLDSA65, true},
		{0x03, HybridXWingMLDSA65, true},
		{0xff, 0, false},
	}
	for _, c := range cases {
		got, ok := SuiteFromWireID(c.id)
		if ok != c.ok {
			t.Fatalf("SuiteFromWireID(0x%02x) ok = %v, want %v", c.id, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("SuiteFromWireID(0x%02x) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestSuiteSignatureAlgorithm(t *testing.T) {
	if ClassicX25519Ed25519.SignatureAlgorithm() != Ed25519 {
		t.Fatalf("classical suite must mandate Ed25519")
	}
	if PQCMLKEM768MLDSA65.SignatureAlgorithm() != MLDSA65 {
		t.Fatalf("PQC suite must mandate MLDSA65")
	}
	if HybridXWingMLDSA65.SignatureAlgorithm() != MLDSA65 {
		t.Fatalf("hybrid suite must mandate MLDSA65")
	}
}

func TestSuiteTierOrdering(t *testing.T) {
	if !(TierClassical < TierPQCPreferred && TierPQCPreferred < TierHybridPreferred) {
		t.Fatalf("tier ordering must be classical < pqcPreferred < hybridPreferred")
	}
	if ClassicX25519Ed25519.Tier() != TierClassical {
		t.Fatalf("classical suite tier mismatch")
	}
	if HybridXWingMLDSA65.Tier() != TierHybridPreferred {
		t.Fatalf("hybrid suite tier mismatch")
	}
}

func TestIsPQCIsHybrid(t *testing.T) {
	if ClassicX25519Ed25519.IsPQC() || ClassicX25519Ed25519.IsHybrid() {
		t.Fatalf("classical suite must not be PQC or hybrid")
	}
	if !PQCMLKEM768MLDSA65.IsPQC() || PQCMLKEM768MLDSA65.IsHybrid() {
		t.Fatalf("PQC suite must be PQC but not hybrid")
	}
	if !HybridXWingMLDSA65.IsPQC() || !HybridXWingMLDSA65.IsHybrid() {
		t.Fatalf("hybrid suite must be both PQC and hybrid")
	}
}
