// Package mldsa implements ML-DSA-65 digital signatures using the NIST
// FIPS 204 standard. ML-DSA provides post-quantum EUF-CMA security against
// quantum adversaries.
package mldsa

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

// Key and signature sizes for ML-DSA-65, read off the scheme at init time
// rather than hardcoded so a circl upgrade can't silently desync them.
var (
	PublicKeySize  = mldsa65.Scheme().PublicKeySize()  // 1952 bytes
	PrivateKeySize = mldsa65.Scheme().PrivateKeySize() // 4032 bytes
	SignatureSize  = mldsa65.Scheme().SignatureSize()  // 3309 bytes
)

// MLDSAKeypair represents an ML-DSA-65 keypair.
type MLDSAKeypair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// Error types
var (
	ErrKeyGenerationFailed = errors.New("ML-DSA keypair generation failed")
	ErrSigningFailed       = errors.New("ML-DSA signing failed")
	ErrInvalidPublicKey    = errors.New("invalid ML-DSA public key")
	ErrInvalidPrivateKey   = errors.New("invalid ML-DSA private key")
	ErrInvalidSignature    = errors.New("invalid ML-DSA signature")
)

// GenerateKeypair generates a new ML-DSA-65 keypair.
func GenerateKeypair() (*MLDSAKeypair, error) {
	scheme := mldsa65.Scheme()
	publicKey, privateKey, err := scheme.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}

	pubKeyBytes, err := publicKey.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal public key: %v", ErrKeyGenerationFailed, err)
	}

	privKeyBytes, err := privateKey.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal private key: %v", ErrKeyGenerationFailed, err)
	}

	return &MLDSAKeypair{
		PublicKey:  pubKeyBytes,
		PrivateKey: privKeyBytes,
	}, nil
}

// Sign creates an ML-DSA-65 signature over message.
func Sign(message []byte, privateKey []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPrivateKey, PrivateKeySize, len(privateKey))
	}

	scheme := mldsa65.Scheme()
	privKey, err := scheme.UnmarshalBinaryPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	signature := scheme.Sign(privKey, message, nil)
	if len(signature) != SignatureSize {
		return nil, fmt.Errorf("%w: unexpected signature size %d", ErrSigningFailed, len(signature))
	}

	return signature, nil
}

// Verify verifies an ML-DSA-65 signature over message.
func Verify(message []byte, signature []byte, publicKey []byte) bool {
	if len(publicKey) != PublicKeySize {
		return false
	}
	if len(signature) != SignatureSize {
		return false
	}

	scheme := mldsa65.Scheme()
	pubKey, err := scheme.UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return false
	}

	return scheme.Verify(pubKey, message, signature, nil)
}

// Scheme returns the ML-DSA-65 scheme for validation and size metadata.
func Scheme() sign.Scheme {
	return mldsa65.Scheme()
}
