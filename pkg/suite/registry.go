package suite

import (
	"errors"
)

// Strategy tags the negotiation posture an initiator builds its offer from.
type Strategy string

const (
	ClassicOnly      Strategy = "classicOnly"
	PQCOnly          Strategy = "pqcOnly"
	HybridPreferred  Strategy = "hybridPreferred"
)

// Capability is the subset of the provider contract the registry needs:
// which suites a concrete provider can actually perform.
type Capability interface {
	SupportedSuites() []CryptoSuite
}

var (
	// ErrEmptyOfferedSuites is returned when the constructed offer would be
	// empty.
	ErrEmptyOfferedSuites = errors.New("empty offered suites")
	// ErrNoMutuallyAcceptableSuite is returned when policy filtering on the
	// responder side empties the intersection.
	ErrNoMutuallyAcceptableSuite = errors.New("no mutually acceptable suite")
	// ErrPolicyViolation is returned when a chosen suite cannot satisfy the
	// active HandshakePolicy.
	ErrPolicyViolation = errors.New("policy violation")
)

// Offered returns the ordered, deduplicated, non-empty offer for a strategy
// and a provider's capability set. Pure: no I/O, no time.
func Offered(strategy Strategy, provider Capability, policy CryptoPolicy) (OfferedSuites, error) {
	supported := provider.SupportedSuites()

	var ordered []CryptoSuite
	switch strategy {
	case ClassicOnly:
		ordered = filterSuites(supported, func(s CryptoSuite) bool { return s == ClassicX25519Ed25519 })
	case PQCOnly:
		ordered = filterSuites(supported, func(s CryptoSuite) bool { return s == PQCMLKEM768MLDSA65 })
	case HybridPreferred:
		hybrid := filterSuites(supported, func(s CryptoSuite) bool { return s.IsHybrid() })
		if !policy.AdvertiseHybrid {
			hybrid = nil
		}
		pqc := filterSuites(supported, func(s CryptoSuite) bool { return s.IsPQC() && !s.IsHybrid() })
		classical := filterSuites(supported, func(s CryptoSuite) bool { return !s.IsPQC() })
		ordered = append(ordered, hybrid...)
		ordered = append(ordered, pqc...)
		ordered = append(ordered, classical...)
	default:
		ordered = nil
	}

	ordered = filterSuites(ordered, func(s CryptoSuite) bool {
		return s.Tier() >= policy.MinimumSecurityTier
	})

	offer := dedupe(ordered)
	if len(offer) == 0 {
		return nil, ErrEmptyOfferedSuites
	}
	return offer, nil
}

// ChooseSuite implements the responder-side suite choice of spec.md §4.1.A:
// intersect offered with locally supported suites preserving initiator
// order, filter by policy, then pick the first remaining suite.
func ChooseSuite(offered OfferedSuites, provider Capability, policy CryptoPolicy, hsPolicy HandshakePolicy) (CryptoSuite, error) {
	supported := make(map[CryptoSuite]bool)
	for _, s := range provider.SupportedSuites() {
		supported[s] = true
	}

	candidates := make([]CryptoSuite, 0, len(offered))
	for _, s := range offered {
		if supported[s] {
			candidates = append(candidates, s)
		}
	}

	candidates = filterSuites(candidates, func(s CryptoSuite) bool {
		return s.Tier() >= policy.MinimumSecurityTier
	})

	if !policy.AllowExperimentalHybrid {
		candidates = filterSuites(candidates, func(s CryptoSuite) bool { return !s.IsHybrid() })
	}

	if policy.RequireHybridIfAvailable {
		hybridOnly := filterSuites(candidates, func(s CryptoSuite) bool { return s.IsHybrid() })
		if len(hybridOnly) > 0 {
			candidates = hybridOnly
		}
	}

	if hsPolicy.StrictPQC {
		candidates = filterSuites(candidates, func(s CryptoSuite) bool { return s.IsPQC() })
	}

	if len(candidates) == 0 {
		return 0, ErrNoMutuallyAcceptableSuite
	}

	// candidates is already in initiator-preference order with no duplicate
	// suites, so the first entry is also the wire-id tie-break winner.
	chosen := candidates[0]
	if hsPolicy.StrictPQC && !chosen.IsPQC() {
		return 0, ErrPolicyViolation
	}
	return chosen, nil
}

func filterSuites(in []CryptoSuite, keep func(CryptoSuite) bool) []CryptoSuite {
	out := make([]CryptoSuite, 0, len(in))
	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
