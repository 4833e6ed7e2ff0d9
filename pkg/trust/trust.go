// Package trust defines the read-only trust provider contract the
// handshake driver consults before deriving session keys: fingerprint
// pins, pinned KEM public keys, and an optional secure-enclave key pin.
package trust

import "github.com/skybridgecompass/handshake/pkg/suite"

// Provider is the capability set spec.md §4.5 exposes to the driver. All
// three methods are read-only: the driver never mutates trust state and
// never persists anything itself.
type Provider interface {
	// TrustedFingerprint returns the pinned SHA-256 fingerprint of a peer's
	// identity public key, if one is configured.
	TrustedFingerprint(deviceID string) (fingerprint [32]byte, ok bool)
	// TrustedKEMPublicKeys returns the pinned KEM public key per suite for a
	// peer. A suite absent from the map has no pin configured.
	TrustedKEMPublicKeys(deviceID string) map[suite.CryptoSuite][]byte
	// TrustedSecureEnclavePublicKey returns the pinned secure-enclave public
	// key for a peer, if one is configured.
	TrustedSecureEnclavePublicKey(deviceID string) (publicKey []byte, ok bool)
}
