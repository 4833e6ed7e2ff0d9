package provider

import (
	"fmt"

	"github.com/skybridgecompass/handshake/pkg/crypto/hybrid"
	"github.com/skybridgecompass/handshake/pkg/crypto/mldsa"
	"github.com/skybridgecompass/handshake/pkg/crypto/mlkem"
	"github.com/skybridgecompass/handshake/pkg/suite"
)

// hybridImpl composes X25519 and ML-KEM-768 into one shared secret (see
// pkg/crypto/hybrid) and signs with ML-DSA-65. KEM keypairs are serialized
// as mlkemPublicKey||x25519PublicKey (and the private-key equivalent) so the
// wire codec and HandshakeSession can treat them as opaque byte strings like
// every other suite's keypair.
type hybridImpl struct{}

func newHybridImpl() *hybridImpl { return &hybridImpl{} }

func (h *hybridImpl) suite() suite.CryptoSuite { return suite.HybridXWingMLDSA65 }

func (h *hybridImpl) generateKEMKeypair() (*KEMKeypair, error) {
	kp, err := hybrid.GenerateKeypair()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}

	return &KEMKeypair{
		Suite:      suite.HybridXWingMLDSA65,
		PublicKey:  packHybridPublicKey(kp),
		PrivateKey: packHybridPrivateKey(kp),
	}, nil
}

func (h *hybridImpl) encapsulate(peerPublicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	peer, err := unpackHybridPublicKey(peerPublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}

	ct, ss, err := hybrid.Encapsulate(peer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}
	return ct, ss, nil
}

func (h *hybridImpl) decapsulate(privateKey, ciphertext []byte) (sharedSecret []byte, err error) {
	local, err := unpackHybridPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}

	ss, err := hybrid.Decapsulate(ciphertext, local)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKEMOperationFailed, err)
	}
	return ss, nil
}

func (h *hybridImpl) generateSigningKeypair() (*SigningKeypair, error) {
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

func (h *hybridImpl) sign(privateKey, message []byte) ([]byte, error) {
	sig, err := mldsa.Sign(message, privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignOperationFailed, err)
	}
	return sig, nil
}

func (h *hybridImpl) verify(publicKey, message, signature []byte) bool {
	return mldsa.Verify(message, signature, publicKey)
}

func packHybridPublicKey(kp *hybrid.Keypair) []byte {
	out := make([]byte, 0, len(kp.MLKEMPublicKey)+len(kp.X25519PublicKey))
	out = append(out, kp.MLKEMPublicKey...)
	out = append(out, kp.X25519PublicKey...)
	return out
}

// packHybridPrivateKey also carries the ML-KEM public key alongside the two
// private halves: the hybrid combiner needs pk_pqc to compute its shared
// secret even on the decapsulating side (see pkg/crypto/hybrid.Decapsulate).
func packHybridPrivateKey(kp *hybrid.Keypair) []byte {
	out := make([]byte, 0, len(kp.MLKEMPrivateKey)+len(kp.X25519PrivateKey)+len(kp.MLKEMPublicKey))
	out = append(out, kp.MLKEMPrivateKey...)
	out = append(out, kp.X25519PrivateKey...)
	out = append(out, kp.MLKEMPublicKey...)
	return out
}

func unpackHybridPublicKey(b []byte) (*hybrid.Keypair, error) {
	mlkemPKSize := mlkem.Scheme().PublicKeySize()
	if len(b) != mlkemPKSize+32 {
		return nil, fmt.Errorf("hybrid public key: expected %d bytes, got %d", mlkemPKSize+32, len(b))
	}
	return &hybrid.Keypair{
		MLKEMPublicKey:  b[:mlkemPKSize],
		X25519PublicKey: b[mlkemPKSize:],
	}, nil
}

func unpackHybridPrivateKey(b []byte) (*hybrid.Keypair, error) {
	mlkemSKSize := mlkem.Scheme().PrivateKeySize()
	mlkemPKSize := mlkem.Scheme().PublicKeySize()
	want := mlkemSKSize + 32 + mlkemPKSize
	if len(b) != want {
		return nil, fmt.Errorf("hybrid private key: expected %d bytes, got %d", want, len(b))
	}
	return &hybrid.Keypair{
		MLKEMPrivateKey:  b[:mlkemSKSize],
		X25519PrivateKey: b[mlkemSKSize : mlkemSKSize+32],
		MLKEMPublicKey:   b[mlkemSKSize+32:],
	}, nil
}
