// Package suite defines the cryptographic suite tags, signature algorithm
// tags, and policy types negotiated during a handshake.
package suite

import "fmt"

// CryptoSuite identifies a bundle of (KEM, signature algorithm) by a single
// wire byte.
type CryptoSuite uint8

const (
	// ClassicX25519Ed25519 reshapes X25519 DH as a KEM and signs with Ed25519.
	ClassicX25519Ed25519 CryptoSuite = 0x01
	// PQCMLKEM768MLDSA65 is the post-quantum-only suite.
	PQCMLKEM768MLDSA65 CryptoSuite = 0x02
	// HybridXWingMLDSA65 composes X25519 and ML-KEM-768 into a single shared
	// secret and signs with ML-DSA-65.
	HybridXWingMLDSA65 CryptoSuite = 0x03
)

// SecurityTier orders suites for policy comparisons only.
type SecurityTier int

const (
	TierClassical SecurityTier = iota
	TierPQCPreferred
	TierHybridPreferred
)

func (t SecurityTier) String() string {
	switch t {
	case TierClassical:
		return "classical"
	case TierPQCPreferred:
		return "pqcPreferred"
	case TierHybridPreferred:
		return "hybridPreferred"
	default:
		return "unknown"
	}
}

// WireID returns the suite's fixed on-wire byte.
func (s CryptoSuite) WireID() uint8 {
	return uint8(s)
}

// IsPQC reports whether the suite's KEM is post-quantum (PQC-only or hybrid).
func (s CryptoSuite) IsPQC() bool {
	return s == PQCMLKEM768MLDSA65 || s == HybridXWingMLDSA65
}

// IsHybrid reports whether the suite combines classical and PQC KEMs.
func (s CryptoSuite) IsHybrid() bool {
	return s == HybridXWingMLDSA65
}

// Tier returns the suite's security tier for policy comparisons.
func (s CryptoSuite) Tier() SecurityTier {
	switch s {
	case ClassicX25519Ed25519:
		return TierClassical
	case PQCMLKEM768MLDSA65:
		return TierPQCPreferred
	case HybridXWingMLDSA65:
		return TierHybridPreferred
	default:
		return TierClassical
	}
}

// SignatureAlgorithm returns the signature algorithm mandated for this suite.
func (s CryptoSuite) SignatureAlgorithm() SignatureAlgorithm {
	switch s {
	case ClassicX25519Ed25519:
		return Ed25519
	case PQCMLKEM768MLDSA65, HybridXWingMLDSA65:
		return MLDSA65
	default:
		return Ed25519
	}
}

func (s CryptoSuite) String() string {
	switch s {
	case ClassicX25519Ed25519:
		return "CLASSIC_X25519_ED25519"
	case PQCMLKEM768MLDSA65:
		return "PQC_MLKEM768_MLDSA65"
	case HybridXWingMLDSA65:
		return "HYBRID_XWING_MLDSA65"
	default:
		return fmt.Sprintf("CryptoSuite(0x%02x)", uint8(s))
	}
}

// SuiteFromWireID looks up a CryptoSuite by its wire byte. Returns false if
// the byte names no known suite.
func SuiteFromWireID(id uint8) (CryptoSuite, bool) {
	switch CryptoSuite(id) {
	case ClassicX25519Ed25519:
		return ClassicX25519Ed25519, true
	case PQCMLKEM768MLDSA65:
		return PQCMLKEM768MLDSA65, true
	case HybridXWingMLDSA65:
		return HybridXWingMLDSA65, true
	default:
		return 0, false
	}
}

// SignatureAlgorithm identifies a signature scheme by a single wire byte.
type SignatureAlgorithm uint8

const (
	Ed25519 SignatureAlgorithm = 0x01
	MLDSA65 SignatureAlgorithm = 0x02
)

func (a SignatureAlgorithm) WireID() uint8 {
	return uint8(a)
}

func (a SignatureAlgorithm) String() string {
	switch a {
	case Ed25519:
		return "Ed25519"
	case MLDSA65:
		return "MLDSA65"
	default:
		return fmt.Sprintf("SignatureAlgorithm(0x%02x)", uint8(a))
	}
}

// SignatureAlgorithmFromWireID looks up a SignatureAlgorithm by its wire byte.
func SignatureAlgorithmFromWireID(id uint8) (SignatureAlgorithm, bool) {
	switch SignatureAlgorithm(id) {
	case Ed25519:
		return Ed25519, true
	case MLDSA65:
		return MLDSA65, true
	default:
		return 0, false
	}
}

// MaxSignatureSize bounds the largest signature any supported algorithm
// produces; used to size parse buffers defensively.
const MaxSignatureSize = 3309 // ML-DSA-65 signature length

// MaxPublicKeySize bounds the largest identity public key any supported
// algorithm produces.
const MaxPublicKeySize = 1952 // ML-DSA-65 public key length

// CryptoPolicy governs which suites an initiator offers and a responder
// accepts.
type CryptoPolicy struct {
	MinimumSecurityTier       SecurityTier
	AllowExperimentalHybrid   bool
	AdvertiseHybrid           bool
	RequireHybridIfAvailable  bool
}

// HandshakePolicy governs cross-cutting acceptance rules independent of
// suite selection.
type HandshakePolicy struct {
	StrictPQC bool
}

// OfferedSuites is an ordered, deduplicated, non-empty sequence of
// CryptoSuite; order conveys initiator preference.
type OfferedSuites []CryptoSuite

// Contains reports whether s appears in the offered list.
func (o OfferedSuites) Contains(s CryptoSuite) bool {
	for _, c := range o {
		if c == s {
			return true
		}
	}
	return false
}

// dedupe preserves the first occurrence of each suite, in order.
func dedupe(in []CryptoSuite) OfferedSuites {
	seen := make(map[CryptoSuite]bool, len(in))
	out := make(OfferedSuites, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
