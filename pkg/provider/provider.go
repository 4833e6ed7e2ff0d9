// Package provider implements the cryptographic suite provider contract:
// KEM keypair generation, encapsulation, and signing/verification for each
// CryptoSuite, dispatched through a single composite Provider so the
// handshake driver never has to know which concrete suite it is talking to.
package provider

import (
	"errors"
	"fmt"

	"github.com/skybridgecompass/handshake/pkg/suite"
)

var (
	// ErrUnsupportedSuite is returned when an operation is asked to perform
	// under a CryptoSuite this provider does not implement.
	ErrUnsupportedSuite = errors.New("unsupported crypto suite")
	// ErrUnsupportedAlgorithm is returned for a SignatureAlgorithm this
	// provider does not implement.
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")
	// ErrSecureElementUnsupported is returned when a SigningKeyHandle names a
	// secure-element key but no SecureElementSigner was configured.
	ErrSecureElementUnsupported = errors.New("secure element signing not configured")
	// ErrKEMOperationFailed wraps any failure from an underlying KEM
	// implementation.
	ErrKEMOperationFailed = errors.New("KEM operation failed")
	// ErrSignOperationFailed wraps any failure from an underlying signature
	// implementation.
	ErrSignOperationFailed = errors.New("sign operation failed")
)

// KEMKeypair is an ephemeral keypair generated for one handshake's KEM
// exchange under a specific suite.
type KEMKeypair struct {
	Suite      suite.CryptoSuite
	PublicKey  []byte
	PrivateKey []byte
}

// SigningKeypair is a long-term identity keypair for a signature algorithm.
type SigningKeypair struct {
	Algorithm  suite.SignatureAlgorithm
	PublicKey  []byte
	PrivateKey []byte
}

// SigningKeyHandleKind tags which variant of SigningKeyHandle is populated.
type SigningKeyHandleKind int

const (
	// SoftwareKeyHandle carries the raw private key bytes in process memory.
	SoftwareKeyHandle SigningKeyHandleKind = iota
	// SecureElementKeyHandle names a key that never leaves a secure element;
	// signing is delegated to a host-supplied SecureElementSigner.
	SecureElementKeyHandle
)

// SigningKeyHandle is the sum type spec.md uses to let a signing key live
// either in process memory or behind a secure element, without leaking that
// distinction into the handshake protocol surface.
type SigningKeyHandle struct {
	Kind          SigningKeyHandleKind
	SoftwareBytes []byte
	ElementID     string
}

// NewSoftwareKeyHandle wraps raw private key bytes.
func NewSoftwareKeyHandle(key []byte) SigningKeyHandle {
	return SigningKeyHandle{Kind: SoftwareKeyHandle, SoftwareBytes: key}
}

// NewSecureElementKeyHandle names an opaque key held by a secure element.
func NewSecureElementKeyHandle(elementID string) SigningKeyHandle {
	return SigningKeyHandle{Kind: SecureElementKeyHandle, ElementID: elementID}
}

// SecureElementSigner is implemented by a host that can sign on behalf of a
// key it never exposes as bytes. A host without secure element support
// simply never configures one; callers then get ErrSecureElementUnsupported.
type SecureElementSigner interface {
	Sign(alg suite.SignatureAlgorithm, elementID string, message []byte) ([]byte, error)
}

// suiteImpl is the per-suite capability a concrete provider (classical, PQC,
// hybrid) implements. Provider dispatches to one of these based on the
// CryptoSuite or SignatureAlgorithm named in each call.
type suiteImpl interface {
	suite() suite.CryptoSuite
	generateKEMKeypair() (*KEMKeypair, error)
	encapsulate(peerPublicKey []byte) (ciphertext, sharedSecret []byte, err error)
	decapsulate(privateKey, ciphertext []byte) (sharedSecret []byte, err error)
	generateSigningKeypair() (*SigningKeypair, error)
	sign(privateKey, message []byte) (signature []byte, err error)
	verify(publicKey, message, signature []byte) bool
}

// Provider implements spec.md §4.3's provider abstraction by dispatching to
// one suiteImpl per supported CryptoSuite.
type Provider struct {
	impls  map[suite.CryptoSuite]suiteImpl
	order  []suite.CryptoSuite
	signer SecureElementSigner
}

// Option configures a Provider at construction time.
type Option func(*Provider)

// WithSecureElementSigner wires a host-supplied secure element signer into
// the provider. Without one, SigningKeyHandle values of kind
// SecureElementKeyHandle cannot be used.
func WithSecureElementSigner(signer SecureElementSigner) Option {
	return func(p *Provider) { p.signer = signer }
}

// New builds a Provider supporting the classical, PQC, and hybrid suites.
// The returned Provider's SupportedSuites preserves this preference order:
// classical, PQC, hybrid.
func New(opts ...Option) *Provider {
	p := &Provider{
		impls: make(map[suite.CryptoSuite]suiteImpl, 3),
	}
	for _, impl := range []suiteImpl{newClassicalImpl(), newPQCImpl(), newHybridImpl()} {
		p.impls[impl.suite()] = impl
		p.order = append(p.order, impl.suite())
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SupportedSuites satisfies suite.Capability.
func (p *Provider) SupportedSuites() []suite.CryptoSuite {
	out := make([]suite.CryptoSuite, len(p.order))
	copy(out, p.order)
	return out
}

func (p *Provider) lookup(s suite.CryptoSuite) (suiteImpl, error) {
	impl, ok := p.impls[s]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedSuite, s)
	}
	return impl, nil
}

// GenerateKEMKeypair generates an ephemeral KEM keypair for s.
func (p *Provider) GenerateKEMKeypair(s suite.CryptoSuite) (*KEMKeypair, error) {
	impl, err := p.lookup(s)
	if err != nil {
		return nil, err
	}
	return impl.generateKEMKeypair()
}

// Encapsulate performs suite s's KEM encapsulation against peerPublicKey.
func (p *Provider) Encapsulate(s suite.CryptoSuite, peerPublicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	impl, err := p.lookup(s)
	if err != nil {
		return nil, nil, err
	}
	return impl.encapsulate(peerPublicKey)
}

// Decapsulate performs suite s's KEM decapsulation of ciphertext.
func (p *Provider) Decapsulate(s suite.CryptoSuite, privateKey, ciphertext []byte) (sharedSecret []byte, err error) {
	impl, err := p.lookup(s)
	if err != nil {
		return nil, err
	}
	return impl.decapsulate(privateKey, ciphertext)
}

// GenerateSigningKeypair generates a long-term signing keypair for the
// signature algorithm mandated by s.
func (p *Provider) GenerateSigningKeypair(s suite.CryptoSuite) (*SigningKeypair, error) {
	impl, err := p.lookup(s)
	if err != nil {
		return nil, err
	}
	return impl.generateSigningKeypair()
}

// Sign signs message under the suite's mandated signature algorithm using
// the key named by handle.
func (p *Provider) Sign(s suite.CryptoSuite, handle SigningKeyHandle, message []byte) ([]byte, error) {
	impl, err := p.lookup(s)
	if err != nil {
		return nil, err
	}

	switch handle.Kind {
	case SoftwareKeyHandle:
		return impl.sign(handle.SoftwareBytes, message)
	case SecureElementKeyHandle:
		if p.signer == nil {
			return nil, ErrSecureElementUnsupported
		}
		return p.signer.Sign(s.SignatureAlgorithm(), handle.ElementID, message)
	default:
		return nil, fmt.Errorf("%w: unknown signing key handle kind", ErrSignOperationFailed)
	}
}

// Verify verifies signature over message under the suite's mandated
// signature algorithm, also checking that algAsClaimed matches what the
// suite mandates (spec.md §4.1.E: verifiers must reject algorithm
// mismatches before touching key material).
func (p *Provider) Verify(s suite.CryptoSuite, algAsClaimed suite.SignatureAlgorithm, publicKey, message, signature []byte) (bool, error) {
	if algAsClaimed != s.SignatureAlgorithm() {
		return false, fmt.Errorf("%w: suite %v mandates %v, message claimed %v",
			ErrUnsupportedAlgorithm, s, s.SignatureAlgorithm(), algAsClaimed)
	}
	impl, err := p.lookup(s)
	if err != nil {
		return false, err
	}
	return impl.verify(publicKey, message, signature), nil
}

// Tier returns the security tier of s, delegating to suite.CryptoSuite
// directly since tier is a pure function of the suite tag, not of the
// concrete provider implementation.
func (p *Provider) Tier(s suite.CryptoSuite) suite.SecurityTier {
	return s.Tier()
}
