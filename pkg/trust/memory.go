package trust

import (
	"sync"

	"github.com/skybridgecompass/handshake/pkg/suite"
)

// InMemory is the default Provider: pins live in process memory only and
// are lost on restart. Suitable for tests and for deployments that load
// pins from a config file at startup.
type InMemory struct {
	mu          sync.RWMutex
	fingerprint map[string][32]byte
	kemKeys     map[string]map[suite.CryptoSuite][]byte
	enclaveKey  map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{
		fingerprint: make(map[string][32]byte),
		kemKeys:     make(map[string]map[suite.CryptoSuite][]byte),
		enclaveKey:  make(map[string][]byte),
	}
}

// PinFingerprint pins deviceID's identity fingerprint for future handshakes.
func (m *InMemory) PinFingerprint(deviceID string, fingerprint [32]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fingerprint[deviceID] = fingerprint
}

// PinKEMPublicKey pins deviceID's KEM public key under a specific suite.
func (m *InMemory) PinKEMPublicKey(deviceID string, s suite.CryptoSuite, publicKey []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDevice, ok := m.kemKeys[deviceID]
	if !ok {
		byDevice = make(map[suite.CryptoSuite][]byte)
		m.kemKeys[deviceID] = byDevice
	}
	pinned := make([]byte, len(publicKey))
	copy(pinned, publicKey)
	byDevice[s] = pinned
}

// PinSecureEnclavePublicKey pins deviceID's secure-enclave public key.
func (m *InMemory) PinSecureEnclavePublicKey(deviceID string, publicKey []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pinned := make([]byte, len(publicKey))
	copy(pinned, publicKey)
	m.enclaveKey[deviceID] = pinned
}

// Unpin removes every pin held for deviceID.
func (m *InMemory) Unpin(deviceID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fingerprint, deviceID)
	delete(m.kemKeys, deviceID)
	delete(m.enclaveKey, deviceID)
}

func (m *InMemory) TrustedFingerprint(deviceID string) ([32]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fp, ok := m.fingerprint[deviceID]
	return fp, ok
}

func (m *InMemory) TrustedKEMPublicKeys(deviceID string) map[suite.CryptoSuite][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byDevice, ok := m.kemKeys[deviceID]
	if !ok {
		return nil
	}
	out := make(map[suite.CryptoSuite][]byte, len(byDevice))
	for s, pk := range byDevice {
		cp := make([]byte, len(pk))
		copy(cp, pk)
		out[s] = cp
	}
	return out
}

func (m *InMemory) TrustedSecureEnclavePublicKey(deviceID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pk, ok := m.enclaveKey[deviceID]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(pk))
	copy(out, pk)
	return out, true
}
