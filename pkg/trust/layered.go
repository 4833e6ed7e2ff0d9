package trust

import "github.com/skybridgecompass/handshake/pkg/suite"

// Layered composes a fast cache Provider in front of a durable Provider.
// Every lookup tries cache first and only falls through to durable on a
// miss; it never writes back, so cache population is the caller's job
// (typically whatever loads pins from durable storage at startup).
type Layered struct {
	cache   Provider
	durable Provider
}

func NewLayered(cache, durable Provider) *Layered {
	return &Layered{cache: cache, durable: durable}
}

func (l *Layered) TrustedFingerprint(deviceID string) ([32]byte, bool) {
	if fp, ok := l.cache.TrustedFingerprint(deviceID); ok {
		return fp, true
	}
	return l.durable.TrustedFingerprint(deviceID)
}

func (l *Layered) TrustedKEMPublicKeys(deviceID string) map[suite.CryptoSuite][]byte {
	if keys := l.cache.TrustedKEMPublicKeys(deviceID); len(keys) > 0 {
		return keys
	}
	return l.durable.TrustedKEMPublicKeys(deviceID)
}

func (l *Layered) TrustedSecureEnclavePublicKey(deviceID string) ([]byte, bool) {
	if pk, ok := l.cache.TrustedSecureEnclavePublicKey(deviceID); ok {
		return pk, true
	}
	return l.durable.TrustedSecureEnclavePublicKey(deviceID)
}
