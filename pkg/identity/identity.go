// Package identity encodes the on-wire identity public key blob carried in
// MessageA and MessageB: a signature algorithm tag, the protocol public key
// under that algorithm, and an optional secure-enclave public key.
package identity

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/skybridgecompass/handshake/pkg/suite"
)

var (
	ErrTruncated          = errors.New("identity blob truncated")
	ErrUnknownAlgorithm   = errors.New("identity blob names unknown signature algorithm")
	ErrProtocolKeyTooLong = errors.New("protocol public key exceeds maximum size")
)

// PublicKeys is the decoded form of spec.md's IdentityPublicKeys: the
// protocol signing key used to cover sigA/sigB, plus an optional
// secure-enclave key the trust provider may pin against.
type PublicKeys struct {
	ProtocolAlgorithm      suite.SignatureAlgorithm
	ProtocolPublicKey      []byte
	SecureEnclavePublicKey []byte // nil if the peer presents none
}

// Encode serializes ik as:
// algTag(1) || protocolKeyLen(2BE) || protocolKey || hasEnclave(1) || [enclaveKeyLen(2BE) || enclaveKey]
func Encode(ik PublicKeys) ([]byte, error) {
	if len(ik.ProtocolPublicKey) > suite.MaxPublicKeySize {
		return nil, fmt.Errorf("%w: %d bytes", ErrProtocolKeyTooLong, len(ik.ProtocolPublicKey))
	}

	out := make([]byte, 0, 1+2+len(ik.ProtocolPublicKey)+1+2+len(ik.SecureEnclavePublicKey))
	out = append(out, ik.ProtocolAlgorithm.WireID())
	out = appendLenPrefixed(out, ik.ProtocolPublicKey)

	if ik.SecureEnclavePublicKey == nil {
		out = append(out, 0)
		return out, nil
	}
	out = append(out, 1)
	out = appendLenPrefixed(out, ik.SecureEnclavePublicKey)
	return out, nil
}

// Decode is Encode's inverse.
func Decode(b []byte) (PublicKeys, error) {
	if len(b) < 1 {
		return PublicKeys{}, ErrTruncated
	}
	alg, ok := suite.SignatureAlgorithmFromWireID(b[0])
	if !ok {
		return PublicKeys{}, fmt.Errorf("%w: 0x%02x", ErrUnknownAlgorithm, b[0])
	}

	protocolKey, rest, err := readLenPrefixed(b[1:])
	if err != nil {
		return PublicKeys{}, err
	}

	if len(rest) < 1 {
		return PublicKeys{}, ErrTruncated
	}
	hasEnclave := rest[0]
	rest = rest[1:]

	ik := PublicKeys{ProtocolAlgorithm: alg, ProtocolPublicKey: protocolKey}
	if hasEnclave == 0 {
		return ik, nil
	}

	enclaveKey, _, err := readLenPrefixed(rest)
	if err != nil {
		return PublicKeys{}, err
	}
	ik.SecureEnclavePublicKey = enclaveKey
	return ik, nil
}

// Fingerprint returns SHA-256(ProtocolPublicKey), the value pinned by a
// trust provider's trustedFingerprint.
func Fingerprint(ik PublicKeys) [32]byte {
	return sha256.Sum256(ik.ProtocolPublicKey)
}

func appendLenPrefixed(out []byte, b []byte) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(b)))
	out = append(out, lenBuf[:]...)
	return append(out, b...)
}

func readLenPrefixed(b []byte) (value []byte, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, ErrTruncated
	}
	n := int(binary.BigEndian.Uint16(b[:2]))
	b = b[2:]
	if len(b) < n {
		return nil, nil, ErrTruncated
	}
	return b[:n], b[n:], nil
}
