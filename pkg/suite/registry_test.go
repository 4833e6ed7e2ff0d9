package suite

import (
	"errors"
	"testing"
)

type fakeProvider struct {
	suites []CryptoSuite
}

func (f fakeProvider) SupportedSuites() []CryptoSuite { return f.suites }

func TestOfferedClassicOnly(t *testing.T) {
	p := fakeProvider{suites: []CryptoSuite{ClassicX25519Ed25519, PQCMLKEM768MLDSA65, HybridXWingMLDSA65}}
	offer, err := Offered(ClassicOnly, p, CryptoPolicy{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offer) != 1 || offer[0] != ClassicX25519Ed25519 {
		t.Fatalf("got %v, want [CLASSIC_X25519_ED25519]", offer)
	}
}

func TestOfferedHybridPreferredOrdering(t *testing.T) {
	p := fakeProvider{suites: []CryptoSuite{ClassicX25519Ed25519, PQCMLKEM768MLDSA65, HybridXWingMLDSA65}}
	policy := CryptoPolicy{AdvertiseHybrid: true}
	offer, err := Offered(HybridPreferred, p, policy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := OfferedSuites{HybridXWingMLDSA65, PQCMLKEM768MLDSA65, ClassicX25519Ed25519}
	if len(offer) != len(want) {
		t.Fatalf("got %v, want %v", offer, want)
	}
	for i := range want {
		if offer[i] != want[i] {
			t.Fatalf("got %v, want %v", offer, want)
		}
	}
}

func TestOfferedHybridPreferredWithoutAdvertise(t *testing.T) {
	p := fakeProvider{suites: []CryptoSuite{ClassicX25519Ed25519, PQCMLKEM768MLDSA65, HybridXWingMLDSA65}}
	offer, err := Offered(HybridPreferred, p, CryptoPolicy{AdvertiseHybrid: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if offer.Contains(HybridXWingMLDSA65) {
		t.Fatalf("hybrid suite must be excluded when advertiseHybrid is false")
	}
}

func TestOfferedEmptyWhenTierTooHigh(t *testing.T) {
	p := fakeProvider{suites: []CryptoSuite{ClassicX25519Ed25519}}
	_, err := Offered(ClassicOnly, p, CryptoPolicy{MinimumSecurityTier: TierHybridPreferred})
	if !errors.Is(err, ErrEmptyOfferedSuites) {
		t.Fatalf("expected ErrEmptyOfferedSuites, got %v", err)
	}
}

func TestChooseSuiteFirstMutualWins(t *testing.T) {
	p := fakeProvider{suites: []CryptoSuite{ClassicX25519Ed25519, PQCMLKEM768MLDSA65}}
	offered := OfferedSuites{PQCMLKEM768MLDSA65, ClassicX25519Ed25519}
	chosen, err := ChooseSuite(offered, p, CryptoPolicy{}, HandshakePolicy{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chosen != PQCMLKEM768MLDSA65 {
		t.Fatalf("got %v, want PQC (first in initiator order)", chosen)
	}
}

func TestChooseSuiteNoMutuallyAcceptable(t *testing.T) {
	p := fakeProvider{suites: []CryptoSuite{ClassicX25519Ed25519}}
	offered := OfferedSuites{PQCMLKEM768MLDSA65}
	_, err := ChooseSuite(offered, p, CryptoPolicy{}, HandshakePolicy{})
	if !errors.Is(err, ErrNoMutuallyAcceptableSuite) {
		t.Fatalf("expected ErrNoMutuallyAcceptableSuite, got %v", err)
	}
}

func TestChooseSuiteRequireHybridIfAvailable(t *testing.T) {
	p := fakeProvider{suites: []CryptoSuite{ClassicX25519Ed25519, HybridXWingMLDSA65}}
	offered := OfferedSuites{ClassicX25519Ed25519, HybridXWingMLDSA65}
	policy := CryptoPolicy{AllowExperimentalHybrid: true, RequireHybridIfAvailable: true}
	chosen, err := ChooseSuite(offered, p, policy, HandshakePolicy{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chosen != HybridXWingMLDSA65 {
		t.Fatalf("got %v, want hybrid suite forced by policy", chosen)
	}
}

func TestChooseSuiteStrictPQCRejectsClassicalOnlyOffer(t *testing.T) {
	p := fakeProvider{suites: []CryptoSuite{ClassicX25519Ed25519, PQCMLKEM768MLDSA65}}
	offered := OfferedSuites{ClassicX25519Ed25519}
	_, err := ChooseSuite(offered, p, CryptoPolicy{}, HandshakePolicy{StrictPQC: true})
	if !errors.Is(err, ErrNoMutuallyAcceptableSuite) {
		t.Fatalf("expected ErrNoMutuallyAcceptableSuite, got %v", err)
	}
}

func TestChooseSuiteHybridRejectedWithoutExperimentalFlag(t *testing.T) {
	p := fakeProvider{suites: []CryptoSuite{HybridXWingMLDSA65, PQCMLKEM768MLDSA65}}
	offered := OfferedSuites{HybridXWingMLDSA65, PQCMLKEM768MLDSA65}
	chosen, err := ChooseSuite(offered, p, CryptoPolicy{AllowExperimentalHybrid: false}, HandshakePolicy{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chosen != PQCMLKEM768MLDSA65 {
		t.Fatalf("got %v, want PQC suite (hybrid filtered out)", chosen)
	}
}
