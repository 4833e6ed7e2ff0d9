package mlkem

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

var (
	// ErrInvalidCiphertext indicates the ciphertext or public key format is invalid
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrKeyGenerationFailed indicates key generation failed
	ErrKeyGenerationFailed = errors.New("key generation failed")
	// ErrDecapsulationFailed indicates decapsulation operation failed
	ErrDecapsulationFailed = errors.New("decapsulation failed")
)

// MLKEMKeypair represents an ML-KEM-768 keypair.
type MLKEMKeypair struct {
	PublicKey  []byte // 1184 bytes
	PrivateKey []byte // 2400 bytes
}

// GenerateKeypair generates a new ML-KEM-768 keypair using NIST FIPS 203.
func GenerateKeypair() (*MLKEMKeypair, error) {
	pk, sk, err := mlkem768.GenerateKeyPair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}

	pkBytes := make([]byte, mlkem768.PublicKeySize)
	pk.Pack(pkBytes)

	skBytes := make([]byte, mlkem768.PrivateKeySize)
	sk.Pack(skBytes)

	return &MLKEMKeypair{
		PublicKey:  pkBytes,
		PrivateKey: skBytes,
	}, nil
}

// Encapsulate performs ML-KEM-768 encapsulation with the given public key.
// Returns ciphertext (1088 bytes) and shared secret (32 bytes). IND-CCA2
// secure against quantum adversaries per NIST FIPS 203.
func Encapsulate(publicKey []byte) (ciphertext []byte, sharedSecret []byte, err error) {
	if len(publicKey) != mlkem768.PublicKeySize {
		return nil, nil, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrInvalidCiphertext, mlkem768.PublicKeySize, len(publicKey))
	}

	var pk mlkem768.PublicKey
	if err := pk.Unpack(publicKey); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to unpack public key: %v", ErrInvalidCiphertext, err)
	}

	ct := make([]byte, mlkem768.CiphertextSize)
	ss := make([]byte, mlkem768.SharedKeySize)
	pk.EncapsulateTo(ct, ss, nil)

	return ct, ss, nil
}

// Decapsulate performs ML-KEM-768 decapsulation with the given private key.
// Returns the 32-byte shared secret.
func Decapsulate(ciphertext []byte, privateKey []byte) (sharedSecret []byte, err error) {
	if len(privateKey) != mlkem768.PrivateKeySize {
		return nil, fmt.Errorf("%w: invalid private key size: expected %d bytes, got %d",
			ErrDecapsulationFailed, mlkem768.PrivateKeySize, len(privateKey))
	}

	if len(ciphertext) != mlkem768.CiphertextSize {
		return nil, fmt.Errorf("%w: invalid ciphertext size: expected %d bytes, got %d",
			ErrInvalidCiphertext, mlkem768.CiphertextSize, len(ciphertext))
	}

	var sk mlkem768.PrivateKey
	if err := sk.Unpack(privateKey); err != nil {
		return nil, fmt.Errorf("%w: failed to unpack private key: %v", ErrDecapsulationFailed, err)
	}

	ss := make([]byte, mlkem768.SharedKeySize)
	sk.DecapsulateTo(ss, ciphertext)

	return ss, nil
}

// Scheme returns the ML-KEM-768 KEM scheme, useful for accessing size
// constants and algorithm metadata through the generic kem.Scheme interface.
func Scheme() kem.Scheme {
	return mlkem768.Scheme()
}
