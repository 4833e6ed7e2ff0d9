package transcript

import (
	"bytes"
	"testing"
)

func TestTranscriptDeterministic(t *testing.T) {
	a := New()
	a.Write([]byte("message-a-frame"))
	a.Write([]byte("message-b-frame"))

	b := New()
	b.Write([]byte("message-a-frame"))
	b.Write([]byte("message-b-frame"))

	if a.Sum() != b.Sum() {
		t.Error("identical inputs produced different transcript hashes")
	}
}

func TestTranscriptOrderSensitive(t *testing.T) {
	a := New()
	a.Write([]byte("first"))
	a.Write([]byte("second"))

	b := New()
	b.Write([]byte("second"))
	b.Write([]byte("first"))

	if a.Sum() == b.Sum() {
		t.Error("different mix order produced the same transcript hash")
	}
}

func TestTranscriptSumIsNonDestructive(t *testing.T) {
	tr := New()
	tr.Write([]byte("message-a-frame"))
	first := tr.Sum()

	tr.Write([]byte("message-b-frame"))
	second := tr.Sum()

	if first == second {
		t.Error("mixing more bytes did not change the transcript hash")
	}

	// Sum must not reset internal state: a third Sum() with no further
	// writes must equal the second.
	third := tr.Sum()
	if second != third {
		t.Error("Sum() is not idempotent absent further writes")
	}
}

func TestDeriveKeyScheduleDeterministic(t *testing.T) {
	var th [32]byte
	copy(th[:], bytes.Repeat([]byte{0x01}, 32))
	ss := bytes.Repeat([]byte{0x02}, 32)

	a := DeriveKeySchedule(th, ss)
	b := DeriveKeySchedule(th, ss)

	if a != b {
		t.Error("DeriveKeySchedule is not deterministic")
	}
}

func TestDeriveKeyScheduleKeysAreDistinct(t *testing.T) {
	var th [32]byte
	copy(th[:], bytes.Repeat([]byte{0x03}, 32))
	ss := bytes.Repeat([]byte{0x04}, 32)

	ks := DeriveKeySchedule(th, ss)
	keys := [][32]byte{ks.TxInit, ks.TxResp, ks.FinKeyI, ks.FinKeyR}
	for i := range keys {
		for j := range keys {
			if i == j {
				continue
			}
			if keys[i] == keys[j] {
				t.Errorf("derived keys %d and %d collide", i, j)
			}
		}
	}
}

func TestKeyScheduleRolesCrossMatch(t *testing.T) {
	var th [32]byte
	copy(th[:], bytes.Repeat([]byte{0x05}, 32))
	ss := bytes.Repeat([]byte{0x06}, 32)
	ks := DeriveKeySchedule(th, ss)

	initTx, initRx := ks.Keys(RoleInitiator)
	respTx, respRx := ks.Keys(RoleResponder)

	if initTx != respRx {
		t.Error("initiator tx must equal responder rx")
	}
	if initRx != respTx {
		t.Error("initiator rx must equal responder tx")
	}
}

func TestFinishedMACRoundTrip(t *testing.T) {
	var th [32]byte
	copy(th[:], bytes.Repeat([]byte{0x07}, 32))
	ss := bytes.Repeat([]byte{0x08}, 32)
	ks := DeriveKeySchedule(th, ss)

	mac := FinishedMAC(ks.FinKey(RoleInitiator), th, RoleInitiator)
	if !VerifyFinishedMAC(ks.FinKey(RoleInitiator), th, RoleInitiator, mac) {
		t.Error("valid Finished-MAC failed verification")
	}
}

func TestFinishedMACRejectsWrongRole(t *testing.T) {
	var th [32]byte
	copy(th[:], bytes.Repeat([]byte{0x09}, 32))
	ss := bytes.Repeat([]byte{0x0A}, 32)
	ks := DeriveKeySchedule(th, ss)

	mac := FinishedMAC(ks.FinKey(RoleInitiator), th, RoleInitiator)
	if VerifyFinishedMAC(ks.FinKey(RoleInitiator), th, RoleResponder, mac) {
		t.Error("Finished-MAC verified under the wrong role octet")
	}
}

func TestFinishedMACRejectsTamperedTranscript(t *testing.T) {
	var th [32]byte
	copy(th[:], bytes.Repeat([]byte{0x0B}, 32))
	ss := bytes.Repeat([]byte{0x0C}, 32)
	ks := DeriveKeySchedule(th, ss)

	mac := FinishedMAC(ks.FinKey(RoleInitiator), th, RoleInitiator)

	var tampered [32]byte
	copy(tampered[:], th[:])
	tampered[0] ^= 0xFF

	if VerifyFinishedMAC(ks.FinKey(RoleInitiator), tampered, RoleInitiator, mac) {
		t.Error("Finished-MAC verified against a tampered transcript hash")
	}
}
