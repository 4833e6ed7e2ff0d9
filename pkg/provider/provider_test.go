package provider

import (
	"bytes"
	"errors"
	"testing"

	"github.com/skybridgecompass/handshake/pkg/suite"
)

func TestSupportedSuitesOrder(t *testing.T) {
	p := New()
	got := p.SupportedSuites()
	want := []suite.CryptoSuite{suite.ClassicX25519Ed25519, suite.PQCMLKEM768MLDSA65, suite.HybridXWingMLDSA65}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestUnsupportedSuiteLookup(t *testing.T) {
	p := New()
	if _, err := p.GenerateKEMKeypair(suite.CryptoSuite(0x7f)); !errors.Is(err, ErrUnsupportedSuite) {
		t.Fatalf("expected ErrUnsupportedSuite, got %v", err)
	}
}

func testKEMRoundTrip(t *testing.T, p *Provider, s suite.CryptoSuite) {
	t.Helper()

	initiatorKP, err := p.GenerateKEMKeypair(s)
	if err != nil {
		t.Fatalf("GenerateKEMKeypair(%v) failed: %v", s, err)
	}

	ct, ssResponder, err := p.Encapsulate(s, initiatorKP.PublicKey)
	if err != nil {
		t.Fatalf("Encapsulate(%v) failed: %v", s, err)
	}

	ssInitiator, err := p.Decapsulate(s, initiatorKP.PrivateKey, ct)
	if err != nil {
		t.Fatalf("Decapsulate(%v) failed: %v", s, err)
	}

	if !bytes.Equal(ssInitiator, ssResponder) {
		t.Fatalf("%v: shared secrets do not match", s)
	}
}

func TestKEMRoundTripAllSuites(t *testing.T) {
	p := New()
	for _, s := range p.SupportedSuites() {
		s := s
		t.Run(s.String(), func(t *testing.T) {
			testKEMRoundTrip(t, p, s)
		})
	}
}

func testSignVerifyRoundTrip(t *testing.T, p *Provider, s suite.CryptoSuite) {
	t.Helper()

	kp, err := p.GenerateSigningKeypair(s)
	if err != nil {
		t.Fatalf("GenerateSigningKeypair(%v) failed: %v", s, err)
	}

	message := []byte("handshake transcript under test")
	sig, err := p.Sign(s, NewSoftwareKeyHandle(kp.PrivateKey), message)
	if err != nil {
		t.Fatalf("Sign(%v) failed: %v", s, err)
	}

	ok, err := p.Verify(s, s.SignatureAlgorithm(), kp.PublicKey, message, sig)
	if err != nil {
		t.Fatalf("Verify(%v) failed: %v", s, err)
	}
	if !ok {
		t.Fatalf("%v: valid signature rejected", s)
	}
}

func TestSignVerifyAllSuites(t *testing.T) {
	p := New()
	for _, s := range p.SupportedSuites() {
		s := s
		t.Run(s.String(), func(t *testing.T) {
			testSignVerifyRoundTrip(t, p, s)
		})
	}
}

func TestVerifyRejectsAlgorithmMismatch(t *testing.T) {
	p := New()

	kp, err := p.GenerateSigningKeypair(suite.ClassicX25519Ed25519)
	if err != nil {
		t.Fatalf("GenerateSigningKeypair failed: %v", err)
	}
	sig, err := p.Sign(suite.ClassicX25519Ed25519, NewSoftwareKeyHandle(kp.PrivateKey), []byte("msg"))
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	_, err = p.Verify(suite.ClassicX25519Ed25519, suite.MLDSA65, kp.PublicKey, []byte("msg"), sig)
	if !errors.Is(err, ErrUnsupportedAlgorithm) {
		t.Fatalf("expected ErrUnsupportedAlgorithm, got %v", err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	p := New()
	kp, err := p.GenerateSigningKeypair(suite.PQCMLKEM768MLDSA65)
	if err != nil {
		t.Fatalf("GenerateSigningKeypair failed: %v", err)
	}
	message := []byte("msg")
	sig, err := p.Sign(suite.PQCMLKEM768MLDSA65, NewSoftwareKeyHandle(kp.PrivateKey), message)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	tampered := make([]byte, len(sig))
	copy(tampered, sig)
	tampered[0] ^= 0xFF

	ok, err := p.Verify(suite.PQCMLKEM768MLDSA65, suite.MLDSA65, kp.PublicKey, message, tampered)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Fatal("tampered signature verified as valid")
	}
}

type fakeSecureElementSigner struct {
	sig []byte
	err error
}

func (f *fakeSecureElementSigner) Sign(alg suite.SignatureAlgorithm, elementID string, message []byte) ([]byte, error) {
	return f.sig, f.err
}

func TestSignDelegatesToSecureElement(t *testing.T) {
	wantSig := []byte{0x01, 0x02, 0x03}
	p := New(WithSecureElementSigner(&fakeSecureElementSigner{sig: wantSig}))

	sig, err := p.Sign(suite.ClassicX25519Ed25519, NewSecureElementKeyHandle("se-key-1"), []byte("msg"))
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !bytes.Equal(sig, wantSig) {
		t.Fatalf("got %x, want %x", sig, wantSig)
	}
}

func TestSignWithoutSecureElementConfigured(t *testing.T) {
	p := New()
	_, err := p.Sign(suite.ClassicX25519Ed25519, NewSecureElementKeyHandle("se-key-1"), []byte("msg"))
	if !errors.Is(err, ErrSecureElementUnsupported) {
		t.Fatalf("expected ErrSecureElementUnsupported, got %v", err)
	}
}

func TestTierMatchesSuite(t *testing.T) {
	p := New()
	if p.Tier(suite.ClassicX25519Ed25519) != suite.TierClassical {
		t.Error("classical tier mismatch")
	}
	if p.Tier(suite.HybridXWingMLDSA65) != suite.TierHybridPreferred {
		t.Error("hybrid tier mismatch")
	}
}
