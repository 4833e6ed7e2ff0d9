package provider

import (
	"fmt"

	"github.com/skybridgecompass/handshake/pkg/crypto/classical"
	"github.com/skybridgecompass/handshake/pkg/suite"
)

// classicalImpl reshapes X25519 ECDH as a KEM: encapsulate generates a fresh
// ephemeral X25519 keypair, does the DH against the peer's static public key,
// and ships its own ephemeral public key as the "ciphertext". Signing is
// Ed25519.
type classicalImpl struct{}

func newClassicalImpl() *classicalImpl { return &classicalImpl{} }

func (c *classicalImpl) suite() suite.CryptoSuite { return suite.ClassicX25519Ed25519 }

func (c *classicalImpl) generateKEMKeypair() (*KEMKeypair, error) {
	kp, err := classical.GenerateX25519Keypair()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}
	return &KEMKeypair{
		Suite:      suite.ClassicX25519Ed25519,
		PublicKey:  kp.PublicKey,
		PrivateKey: kp.PrivateKey,
	}, nil
}

func (c *classicalImpl) encapsulate(peerPublicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	ephemeral, err := classical.GenerateX25519Keypair()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}

	ss, err := classical.X25519Exchange(ephemeral.PrivateKey, peerPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}

	return ephemeral.PublicKey, ss, nil
}

func (c *classicalImpl) decapsulate(privateKey, ciphertext []byte) (sharedSecret []byte, err error) {
	ss, err := classical.X25519Exchange(privateKey, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}
	return ss, nil
}

func (c *classicalImpl) generateSigningKeypair() (*SigningKeypair, error) {
	kp, err := classical.GenerateEd25519Keypair()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignOperationFailed, err)
	}
	return &SigningKeypair{
		Algorithm:  suite.Ed25519,
		PublicKey:  kp.PublicKey,
		PrivateKey: kp.PrivateKey,
	}, nil
}

func (c *classicalImpl) sign(privateKey, message []byte) ([]byte, error) {
	sig, err := classical.Ed25519Sign(message, privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignOperationFailed, err)
	}
	return sig, nil
}

func (c *classicalImpl) verify(publicKey, message, signature []byte) bool {
	return classical.Ed25519Verify(message, signature, publicKey)
}
