// Package hybrid composes a classical and a post-quantum KEM into one
// shared secret, giving a handshake forward secrecy against a classical
// break and an independent post-quantum break at once.
package hybrid

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/skybridgecompass/handshake/pkg/crypto/classical"
	"github.com/skybridgecompass/handshake/pkg/crypto/mlkem"
)

const (
	// KDFSalt is the HKDF salt combining the classical and PQC KEM outputs.
	KDFSalt = "skybridge-hybrid-kex-v1"
	// KDFInfo is the HKDF info parameter for the combine step.
	KDFInfo = "SkyBridge-Hybrid-KEM-v1"
	// SharedSecretSize is the combined KEM output size.
	SharedSecretSize = 32
)

var (
	// ErrInvalidCiphertext indicates the ciphertext format is invalid
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrKeyGenerationFailed indicates key generation failed
	ErrKeyGenerationFailed = errors.New("key generation failed")
	// ErrEncapsulationFailed indicates encapsulation failed
	ErrEncapsulationFailed = errors.New("encapsulation failed")
	// ErrDecapsulationFailed indicates decapsulation failed
	ErrDecapsulationFailed = errors.New("decapsulation failed")
)

// Keypair holds the ephemeral KEM material for one side of a hybrid
// encapsulation: an ML-KEM-768 keypair and an X25519 keypair. It carries no
// signing material; identity signatures are handled by the provider layer.
type Keypair struct {
	MLKEMPublicKey  []byte // 1184 bytes
	MLKEMPrivateKey []byte // 2400 bytes

	X25519PublicKey  []byte // 32 bytes
	X25519PrivateKey []byte // 32 bytes
}

// GenerateKeypair creates a new hybrid KEM keypair combining ML-KEM-768 and
// X25519.
func GenerateKeypair() (*Keypair, error) {
	mlkemKP, err := mlkem.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("%w: ML-KEM generation failed: %v", ErrKeyGenerationFailed, err)
	}

	x25519KP, err := classical.GenerateX25519Keypair()
	if err != nil {
		return nil, fmt.Errorf("%w: X25519 generation failed: %v", ErrKeyGenerationFailed, err)
	}

	return &Keypair{
		MLKEMPublicKey:   mlkemKP.PublicKey,
		MLKEMPrivateKey:  mlkemKP.PrivateKey,
		X25519PublicKey:  x25519KP.PublicKey,
		X25519PrivateKey: x25519KP.PrivateKey,
	}, nil
}

// Encapsulate performs hybrid encapsulation against a peer's public key.
// Returns ciphertext (ML-KEM-768 ciphertext || ephemeral X25519 public key)
// and the combined 32-byte shared secret.
func Encapsulate(publicKey *Keypair) (ciphertext []byte, sharedSecret []byte, err error) {
	if publicKey == nil {
		return nil, nil, fmt.Errorf("%w: public key cannot be nil", ErrEncapsulationFailed)
	}

	kemCT, kemSecret, err := mlkem.Encapsulate(publicKey.MLKEMPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ML-KEM encapsulation failed: %v", ErrEncapsulationFailed, err)
	}

	ephemeralKP, err := classical.GenerateX25519Keypair()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ephemeral X25519 generation failed: %v", ErrEncapsulationFailed, err)
	}

	ecdhSecret, err := classical.X25519Exchange(ephemeralKP.PrivateKey, publicKey.X25519PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: X25519 exchange failed: %v", ErrEncapsulationFailed, err)
	}

	combined, err := deriveSharedSecret(ecdhSecret, kemSecret, kemCT, publicKey.MLKEMPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: HKDF derivation failed: %v", ErrEncapsulationFailed, err)
	}

	combinedCT := make([]byte, len(kemCT)+len(ephemeralKP.PublicKey))
	copy(combinedCT, kemCT)
	copy(combinedCT[len(kemCT):], ephemeralKP.PublicKey)

	return combinedCT, combined, nil
}

// Decapsulate performs hybrid decapsulation using the local private key and
// the peer's ciphertext.
func Decapsulate(ciphertext []byte, privateKey *Keypair) (sharedSecret []byte, err error) {
	if privateKey == nil {
		return nil, fmt.Errorf("%w: private key cannot be nil", ErrDecapsulationFailed)
	}

	expectedSize := mlkem.Scheme().CiphertextSize() + 32
	if len(ciphertext) != expectedSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidCiphertext, expectedSize, len(ciphertext))
	}

	kemCTSize := mlkem.Scheme().CiphertextSize()
	kemCT := ciphertext[:kemCTSize]
	ecdhEphemeralPub := ciphertext[kemCTSize:]

	kemSecret, err := mlkem.Decapsulate(kemCT, privateKey.MLKEMPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: ML-KEM decapsulation failed: %v", ErrDecapsulationFailed, err)
	}

	ecdhSecret, err := classical.X25519Exchange(privateKey.X25519PrivateKey, ecdhEphemeralPub)
	if err != nil {
		return nil, fmt.Errorf("%w: X25519 exchange failed: %v", ErrDecapsulationFailed, err)
	}

	combined, err := deriveSharedSecret(ecdhSecret, kemSecret, kemCT, privateKey.MLKEMPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: HKDF derivation failed: %v", ErrDecapsulationFailed, err)
	}

	return combined, nil
}

// deriveSharedSecret combines the classical and PQC KEM outputs as
// ss = KDF(ss_classical || ss_pqc || ct_pqc || pk_pqc), binding the
// combiner to the exact PQC ciphertext and public key exchanged so neither
// side of the hybrid can be silently substituted.
func deriveSharedSecret(ssClassical, ssPQC, ctPQC, pkPQC []byte) ([]byte, error) {
	ikm := make([]byte, 0, len(ssClassical)+len(ssPQC)+len(ctPQC)+len(pkPQC))
	ikm = append(ikm, ssClassical...)
	ikm = append(ikm, ssPQC...)
	ikm = append(ikm, ctPQC...)
	ikm = append(ikm, pkPQC...)

	kdf := hkdf.New(sha256.New, ikm, []byte(KDFSalt), []byte(KDFInfo))

	sharedSecret := make([]byte, SharedSecretSize)
	if _, err := io.ReadFull(kdf, sharedSecret); err != nil {
		return nil, fmt.Errorf("HKDF extraction failed: %w", err)
	}

	return sharedSecret, nil
}
