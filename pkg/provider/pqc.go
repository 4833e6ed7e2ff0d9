package provider

import (
	"fmt"

	"github.com/skybridgecompass/handshake/pkg/crypto/mldsa"
	"github.com/skybridgecompass/handshake/pkg/crypto/mlkem"
	"github.com/skybridgecompass/handshake/pkg/suite"
)

// pqcImpl is the post-quantum-only suite: ML-KEM-768 for the KEM, ML-DSA-65
// for signatures.
type pqcImpl struct{}

func newPQCImpl() *pqcImpl { return &pqcImpl{} }

func (c *pqcImpl) suite() suite.CryptoSuite { return suite.PQCMLKEM768MLDSA65 }

func (c *pqcImpl) generateKEMKeypair() (*KEMKeypair, error) {
	kp, err := mlkem.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}
	return &KEMKeypair{
		Suite:      suite.PQCMLKEM768MLDSA65,
		PublicKey:  kp.PublicKey,
		PrivateKey: kp.PrivateKey,
	}, nil
}

func (c *pqcImpl) encapsulate(peerPublicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	ct, ss, err := mlkem.Encapsulate(peerPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}
	return ct, ss, nil
}

func (c *pqcImpl) decapsulate(privateKey, ciphertext []byte) (sharedSecret []byte, err error) {
	ss, err := mlkem.Decapsulate(ciphertext, privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}
	return ss, nil
}

func (c *pqcImpl) generateSigningKeypair() (*SigningKeypair, error) {
	kp, err := mldsa.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignOperationFailed, err)
	}
	return &SigningKeypair{
		Algorithm:  suite.MLDSA65,
		PublicKey:  kp.PublicKey,
		PrivateKey: kp.PrivateKey,
	}, nil
}

func (c *pqcImpl) sign(privateKey, message []byte) ([]byte, error) {
	sig, err := mldsa.Sign(message, privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignOperationFailed, err)
	}
	return sig, nil
}

func (c *pqcImpl) verify(publicKey, message, signature []byte) bool {
	return mldsa.Verify(message, signature, publicKey)
}
