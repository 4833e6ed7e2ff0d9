// Package handshake implements the per-peer handshake driver: the state
// machine that exchanges MessageA/B/C, negotiates a crypto suite, enforces
// trust pins, and derives session keys.
package handshake

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/skybridgecompass/handshake/pkg/identity"
	"github.com/skybridgecompass/handshake/pkg/logging"
	"github.com/skybridgecompass/handshake/pkg/provider"
	"github.com/skybridgecompass/handshake/pkg/suite"
	"github.com/skybridgecompass/handshake/pkg/transcript"
	"github.com/skybridgecompass/handshake/pkg/trust"
	"github.com/skybridgecompass/handshake/pkg/wire"
)

// Transport is the capability spec.md §6 requires of whatever carries wire
// frames between peers: message-oriented, reliable, in-order delivery.
type Transport interface {
	Send(ctx context.Context, peer string, data []byte) error
	SetOnReceive(handler func(peer string, data []byte))
}

// Config wires a Driver to one identity, one policy set, and one transport.
type Config struct {
	Provider        *provider.Provider
	Trust           trust.Provider
	CryptoPolicy    suite.CryptoPolicy
	HandshakePolicy suite.HandshakePolicy
	Strategy        suite.Strategy
	Identity        identity.PublicKeys
	SigningKey      provider.SigningKeyHandle
	// PeerID is this node's own opaque peer identifier, as the remote side
	// addresses it. sigA binds the peerIdEncoded field to the responder's
	// view of who it is, so this must match what every initiator dials.
	PeerID          string
	Timeout         time.Duration
	Transport       Transport
	Logger          *logging.Logger
	// OnComplete, if set, is called for both roles whenever a session
	// reaches Completed or a terminal failure. initiateHandshake's caller
	// already gets the result through its return value; this is the only
	// way a responder-side completion (or failure) is observable.
	OnComplete func(peer string, keys SessionKeys, err error)
}

// Driver runs one handshake at a time per peer, for both roles.
type Driver struct {
	cfg    Config
	logger *logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
	keysOut  map[string]SessionKeys
	metrics  map[string]*Metrics
}

// New builds a Driver and, if a Transport is configured, registers itself as
// that transport's receive handler.
func New(cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		l, _ := logging.NewLogger("handshake", logging.INFO, "")
		logger = l
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &Driver{
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*session),
		keysOut:  make(map[string]SessionKeys),
		metrics:  make(map[string]*Metrics),
	}
	if cfg.Transport != nil {
		cfg.Transport.SetOnReceive(d.HandleMessage)
	}
	return d
}

func randomNonce() ([32]byte, error) {
	var n [32]byte
	if _, err := rand.Read(n[:]); err != nil {
		return n, err
	}
	return n, nil
}

func offeredWireIDs(offered suite.OfferedSuites) []uint8 {
	out := make([]uint8, len(offered))
	for i, s := range offered {
		out[i] = s.WireID()
	}
	return out
}

// InitiateHandshake drives a fresh handshake to peer as the initiator. It
// suspends until the session completes, times out, or ctx is cancelled.
func (d *Driver) InitiateHandshake(ctx context.Context, peer string) (SessionKeys, error) {
	sess, err := d.reserveSession(peer, RoleInitiator)
	if err != nil {
		return SessionKeys{}, err
	}

	if err := d.sendMessageA(ctx, sess); err != nil {
		d.failSession(sess, err)
		return SessionKeys{}, err
	}

	timer := time.NewTimer(time.Until(sess.deadline))
	defer timer.Stop()

	select {
	case res := <-sess.done:
		return res.keys, res.err
	case <-timer.C:
		err := newError(KindTimedOut, peer, nil)
		d.failSessionAs(sess, err, TimedOut)
		return SessionKeys{}, err
	case <-ctx.Done():
		err := newError(KindCancelled, peer, ctx.Err())
		d.failSessionAs(sess, err, Failed)
		return SessionKeys{}, err
	}
}

// reserveSession enforces "at most one session per peer" and registers a
// fresh non-terminal session before any crypto work begins.
func (d *Driver) reserveSession(peer string, role Role) (*session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.sessions[peer]; ok && !existing.state.terminal() {
		return nil, newError(KindSessionAlreadyInProgress, peer, nil)
	}

	now := time.Now()
	sess := &session{
		peer:      peer,
		role:      role,
		state:     Idle,
		startedAt: now,
		deadline:  now.Add(d.cfg.Timeout),
		done:      make(chan result, 1),
	}
	d.sessions[peer] = sess
	return sess, nil
}

func (d *Driver) sendMessageA(ctx context.Context, sess *session) error {
	offered, err := suite.Offered(d.cfg.Strategy, d.cfg.Provider, d.cfg.CryptoPolicy)
	if err != nil {
		return newError(KindEmptyOfferedSuites, sess.peer, err)
	}
	if d.cfg.HandshakePolicy.StrictPQC {
		pqcOnly := offered[:0:0]
		for _, s := range offered {
			if s.IsPQC() {
				pqcOnly = append(pqcOnly, s)
			}
		}
		if len(pqcOnly) == 0 {
			return newError(KindEmptyOfferedSuites, sess.peer, suite.ErrEmptyOfferedSuites)
		}
		offered = pqcOnly
	}
	topSuite := offered[0]

	kemKeypair, err := d.cfg.Provider.GenerateKEMKeypair(topSuite)
	if err != nil {
		return newError(KindKEMFailure, sess.peer, err)
	}

	nonce, err := randomNonce()
	if err != nil {
		return newError(KindKEMFailure, sess.peer, fmt.Errorf("generating nonce: %w", err))
	}

	identityBytes, err := identity.Encode(d.cfg.Identity)
	if err != nil {
		return newError(KindMalformedMessage, sess.peer, err)
	}

	offeredIDs := offeredWireIDs(offered)
	coverage := sigACoverage(offeredIDs, kemKeypair.PublicKey, identityBytes, nonce[:], sess.peer)
	sigA, err := d.cfg.Provider.Sign(topSuite, d.cfg.SigningKey, coverage)
	if err != nil {
		return newError(KindSignatureInvalid, sess.peer, err)
	}

	msgA := &wire.MessageA{
		OfferedSuites:       offeredIDs,
		InitiatorKEMPk:      kemKeypair.PublicKey,
		InitiatorIdentityPk: identityBytes,
		SigA:                sigA,
	}
	msgA.InitiatorNonce = nonce

	payload := msgA.Encode()
	frame, err := wire.EncodeFrame(wire.MsgTypeA, payload)
	if err != nil {
		return mapWireError(sess.peer, err)
	}

	sess.offered = offered
	sess.ephemeralKEM = kemKeypair
	sess.initiatorNonce = nonce
	sess.transcript = transcript.New()
	sess.transcript.Write(frame)
	sess.messageABytes = len(frame)
	sess.messageASendTime = time.Now()
	sess.state = AwaitingMessageB
	sess.lastActivity = time.Now()

	if err := d.cfg.Transport.Send(ctx, sess.peer, frame); err != nil {
		return newError(KindTransportFailure, sess.peer, err)
	}
	return nil
}

// HandleMessage is the Transport's onReceive callback; it never blocks. A
// Transport not wired through New can still call this directly.
func (d *Driver) HandleMessage(peer string, data []byte) {
	header, payload, err := wire.DecodeFrame(data)
	if err != nil {
		d.onFrameError(peer, mapWireError(peer, err))
		return
	}

	switch header.MsgType {
	case wire.MsgTypeA:
		d.handleMessageA(peer, data, payload)
	case wire.MsgTypeB:
		d.handleMessageB(peer, data, payload)
	case wire.MsgTypeC:
		d.handleMessageC(peer, payload)
	default:
		d.onFrameError(peer, newError(KindMalformedMessage, peer, fmt.Errorf("unknown message type 0x%02x", header.MsgType)))
	}
}

// onFrameError fails whatever session exists for peer, if any; a frame that
// doesn't even parse and names no session in progress is simply dropped,
// per spec.md §5's "no queuing, no reordering" — there is nothing to fail.
func (d *Driver) onFrameError(peer string, err error) {
	d.mu.Lock()
	sess, ok := d.sessions[peer]
	d.mu.Unlock()
	if !ok || sess.state.terminal() {
		d.logger.Warn("dropping frame for peer with no active session", logging.Fields{"peer": peer, "err": err.Error()})
		return
	}
	d.failSession(sess, err)
}

func mapWireError(peer string, err error) *Error {
	switch {
	case errors.Is(err, wire.ErrUnsupportedVersion):
		return newError(KindUnsupportedVersion, peer, err)
	case errors.Is(err, wire.ErrMessageTooLarge):
		return newError(KindMessageTooLarge, peer, err)
	default:
		return newError(KindMalformedMessage, peer, err)
	}
}

// handleMessageA runs the responder side of spec.md §4.1's Idle transition.
func (d *Driver) handleMessageA(peer string, frame, payload []byte) {
	sess, err := d.reserveSession(peer, RoleResponder)
	if err != nil {
		d.logger.Warn("rejecting MessageA for peer already in progress", logging.Fields{"peer": peer})
		return
	}

	msgA, err := wire.DecodeMessageA(payload)
	if err != nil {
		d.failSession(sess, mapWireError(peer, err))
		return
	}

	offeredSuites := make(suite.OfferedSuites, 0, len(msgA.OfferedSuites))
	for _, id := range msgA.OfferedSuites {
		s, ok := suite.SuiteFromWireID(id)
		if !ok {
			d.failSession(sess, newError(KindMalformedMessage, peer, fmt.Errorf("unknown suite wire id 0x%02x", id)))
			return
		}
		offeredSuites = append(offeredSuites, s)
	}

	chosen, err := suite.ChooseSuite(offeredSuites, d.cfg.Provider, d.cfg.CryptoPolicy, d.cfg.HandshakePolicy)
	if err != nil {
		kind := KindNoMutuallyAcceptableSuite
		if errors.Is(err, suite.ErrPolicyViolation) {
			kind = KindPolicyViolation
		}
		d.failSession(sess, newError(kind, peer, err))
		return
	}

	initiatorIdentity, err := identity.Decode(msgA.InitiatorIdentityPk)
	if err != nil {
		d.failSession(sess, newError(KindMalformedMessage, peer, err))
		return
	}

	coverage := sigACoverage(msgA.OfferedSuites, msgA.InitiatorKEMPk, msgA.InitiatorIdentityPk, msgA.InitiatorNonce[:], d.cfg.PeerID)
	if err := d.verifySignature(chosen, initiatorIdentity.ProtocolAlgorithm, initiatorIdentity.ProtocolPublicKey, coverage, msgA.SigA, peer); err != nil {
		d.failSession(sess, err)
		return
	}

	if err := d.enforceTrustOnInitiator(peer, initiatorIdentity, chosen, msgA.InitiatorKEMPk); err != nil {
		d.failSession(sess, err)
		return
	}

	ciphertext, sharedSecret, err := d.cfg.Provider.Encapsulate(chosen, msgA.InitiatorKEMPk)
	if err != nil {
		d.failSession(sess, newError(KindKEMFailure, peer, err))
		return
	}

	responderNonce, err := randomNonce()
	if err != nil {
		d.failSession(sess, newError(KindKEMFailure, peer, fmt.Errorf("generating nonce: %w", err)))
		return
	}

	responderIdentityBytes, err := identity.Encode(d.cfg.Identity)
	if err != nil {
		d.failSession(sess, newError(KindMalformedMessage, peer, err))
		return
	}

	sess.transcript = transcript.New()
	sess.transcript.Write(frame)
	transcriptHashA := sess.transcript.Sum()

	sigBCov := sigBCoverage(chosen.WireID(), ciphertext, responderIdentityBytes, responderNonce[:], transcriptHashA[:])
	sigB, err := d.cfg.Provider.Sign(chosen, d.cfg.SigningKey, sigBCov)
	if err != nil {
		d.failSession(sess, newError(KindSignatureInvalid, peer, err))
		return
	}

	msgB := &wire.MessageB{
		ChosenSuite:         chosen.WireID(),
		KEMCiphertext:       ciphertext,
		ResponderIdentityPk: responderIdentityBytes,
		SigB:                sigB,
	}
	msgB.ResponderNonce = responderNonce

	payloadB := msgB.Encode()
	frameB, err := wire.EncodeFrame(wire.MsgTypeB, payloadB)
	if err != nil {
		d.failSession(sess, mapWireError(peer, err))
		return
	}

	sess.transcript.Write(frameB)
	transcriptHashAB := sess.transcript.Sum()
	sess.keySchedule = transcript.DeriveKeySchedule(transcriptHashAB, sharedSecret)

	sess.offered = offeredSuites
	sess.chosen = chosen
	sess.sharedSecret = sharedSecret
	sess.responderNonce = responderNonce
	sess.messageABytes = len(frame)
	sess.messageBBytes = len(frameB)
	sess.messageARecvTime = time.Now()
	sess.state = AwaitingMessageC
	sess.lastActivity = time.Now()

	if err := d.cfg.Transport.Send(context.Background(), peer, frameB); err != nil {
		d.failSession(sess, newError(KindTransportFailure, peer, err))
		return
	}
}

// handleMessageB runs the initiator side of the AwaitingMessageB transition.
func (d *Driver) handleMessageB(peer string, frame, payload []byte) {
	sess := d.lookupInState(peer, AwaitingMessageB)
	if sess == nil {
		d.onFrameError(peer, newError(KindUnexpectedMessage, peer, errors.New("MessageB with no session awaiting it")))
		return
	}

	msgB, err := wire.DecodeMessageB(payload)
	if err != nil {
		d.failSession(sess, mapWireError(peer, err))
		return
	}

	chosen, ok := suite.SuiteFromWireID(msgB.ChosenSuite)
	if !ok {
		d.failSession(sess, newError(KindMalformedMessage, peer, fmt.Errorf("unknown chosen suite wire id 0x%02x", msgB.ChosenSuite)))
		return
	}
	if !sess.offered.Contains(chosen) {
		d.failSession(sess, newError(KindPolicyViolation, peer, fmt.Errorf("responder chose %v, never offered", chosen)))
		return
	}
	if d.cfg.HandshakePolicy.StrictPQC && !chosen.IsPQC() {
		d.failSession(sess, newError(KindPolicyViolation, peer, fmt.Errorf("strictPQC violated by chosen suite %v", chosen)))
		return
	}

	responderIdentity, err := identity.Decode(msgB.ResponderIdentityPk)
	if err != nil {
		d.failSession(sess, newError(KindMalformedMessage, peer, err))
		return
	}

	transcriptHashA := sess.transcript.Sum()
	sigBCov := sigBCoverage(msgB.ChosenSuite, msgB.KEMCiphertext, msgB.ResponderIdentityPk, msgB.ResponderNonce[:], transcriptHashA[:])
	if err := d.verifySignature(chosen, responderIdentity.ProtocolAlgorithm, responderIdentity.ProtocolPublicKey, sigBCov, msgB.SigB, peer); err != nil {
		d.failSession(sess, err)
		return
	}

	if err := d.enforceTrustOnResponder(peer, responderIdentity, chosen, msgB.KEMCiphertext); err != nil {
		d.failSession(sess, err)
		return
	}

	sharedSecret, err := d.cfg.Provider.Decapsulate(chosen, sess.ephemeralKEM.PrivateKey, msgB.KEMCiphertext)
	if err != nil {
		d.failSession(sess, newError(KindKEMFailure, peer, err))
		return
	}

	sess.transcript.Write(frame)
	transcriptHashAB := sess.transcript.Sum()
	sess.keySchedule = transcript.DeriveKeySchedule(transcriptHashAB, sharedSecret)

	sess.chosen = chosen
	sess.sharedSecret = sharedSecret
	sess.responderNonce = msgB.ResponderNonce
	sess.messageBBytes = len(frame)
	sess.state = AwaitingFinishedAck
	sess.lastActivity = time.Now()

	finMac := transcript.FinishedMAC(sess.keySchedule.FinKey(RoleInitiator), transcriptHashAB, RoleInitiator)
	msgC := &wire.MessageC{FinishedMac: finMac}
	frameC, encodeErr := wire.EncodeFrame(wire.MsgTypeC, msgC.Encode())
	if encodeErr != nil {
		d.failSession(sess, mapWireError(peer, encodeErr))
		return
	}
	sess.finishedBytes = len(frameC)

	if err := d.cfg.Transport.Send(context.Background(), peer, frameC); err != nil {
		d.failSession(sess, newError(KindTransportFailure, peer, err))
		return
	}

	// The transport's Send returning successfully is this driver's "transport
	// ack / zero-byte in-memory echo": there is no fourth wire message, so
	// successful delivery of Finished is itself the completion signal.
	txKey, rxKey := sess.keySchedule.Keys(RoleInitiator)
	d.completeSession(sess, transcriptHashAB, txKey, rxKey)
}

// handleMessageC runs the responder side of the AwaitingMessageC transition.
func (d *Driver) handleMessageC(peer string, payload []byte) {
	sess := d.lookupInState(peer, AwaitingMessageC)
	if sess == nil {
		d.onFrameError(peer, newError(KindUnexpectedMessage, peer, errors.New("MessageC with no session awaiting it")))
		return
	}

	msgC, err := wire.DecodeMessageC(payload)
	if err != nil {
		d.failSession(sess, mapWireError(peer, err))
		return
	}

	transcriptHashAB := sess.transcript.Sum()
	finKey := sess.keySchedule.FinKey(RoleInitiator)
	if !transcript.VerifyFinishedMAC(finKey, transcriptHashAB, RoleInitiator, msgC.FinishedMac) {
		d.failSession(sess, newError(KindFinishedMacInvalid, peer, nil))
		return
	}

	txKey, rxKey := sess.keySchedule.Keys(RoleResponder)
	d.completeSession(sess, transcriptHashAB, txKey, rxKey)
}

func (d *Driver) lookupInState(peer string, want State) *session {
	d.mu.Lock()
	defer d.mu.Unlock()
	sess, ok := d.sessions[peer]
	if !ok || sess.state != want {
		return nil
	}
	return sess
}

func (d *Driver) verifySignature(chosen suite.CryptoSuite, claimedAlg suite.SignatureAlgorithm, pk, message, sig []byte, peer string) error {
	ok, err := d.cfg.Provider.Verify(chosen, claimedAlg, pk, message, sig)
	if err != nil {
		if errors.Is(err, provider.ErrUnsupportedAlgorithm) {
			return newError(KindAlgorithmMismatch, peer, err)
		}
		return newError(KindSignatureInvalid, peer, err)
	}
	if !ok {
		return newError(KindSignatureInvalid, peer, errors.New("signature failed verification"))
	}
	return nil
}

// enforceTrustOnInitiator is the responder-side half of spec.md §4.1.F,
// checking pins against the initiator's identity and its presented
// ephemeral KEM public key.
func (d *Driver) enforceTrustOnInitiator(peer string, initiatorIdentity identity.PublicKeys, chosen suite.CryptoSuite, initiatorKEMPk []byte) error {
	return d.enforceTrust(peer, initiatorIdentity, chosen, initiatorKEMPk)
}

// enforceTrustOnResponder is the initiator-side half, checking pins against
// the responder's identity and its presented KEM ciphertext (the only KEM
// contribution the responder transmits in this protocol).
func (d *Driver) enforceTrustOnResponder(peer string, responderIdentity identity.PublicKeys, chosen suite.CryptoSuite, kemCiphertext []byte) error {
	return d.enforceTrust(peer, responderIdentity, chosen, kemCiphertext)
}

func (d *Driver) enforceTrust(peer string, peerIdentity identity.PublicKeys, chosen suite.CryptoSuite, kemContribution []byte) error {
	if d.cfg.Trust == nil {
		return nil
	}

	if fp, ok := d.cfg.Trust.TrustedFingerprint(peer); ok {
		if identity.Fingerprint(peerIdentity) != fp {
			return newError(KindIdentityPinMismatch, peer, nil)
		}
	}

	if chosen.IsPQC() {
		if pins := d.cfg.Trust.TrustedKEMPublicKeys(peer); pins != nil {
			if pinned, ok := pins[chosen]; ok && !bytes.Equal(pinned, kemContribution) {
				return newError(KindKEMKeyPinMismatch, peer, nil)
			}
		}
	}

	if pinnedEnclave, ok := d.cfg.Trust.TrustedSecureEnclavePublicKey(peer); ok {
		if peerIdentity.SecureEnclavePublicKey == nil || !bytes.Equal(pinnedEnclave, peerIdentity.SecureEnclavePublicKey) {
			return newError(KindIdentityPinMismatch, peer, errors.New("secure enclave public key pin mismatch"))
		}
	}

	return nil
}

func (d *Driver) completeSession(sess *session, transcriptHashAB [32]byte, txKey, rxKey [32]byte) {
	keys := SessionKeys{TxKey: txKey, RxKey: rxKey, TranscriptHash: transcriptHashAB}

	now := time.Now()
	var rtt time.Duration
	switch sess.role {
	case RoleInitiator:
		rtt = now.Sub(sess.messageASendTime)
	case RoleResponder:
		rtt = now.Sub(sess.messageARecvTime)
	}

	metrics := &Metrics{
		RTT:               rtt,
		MessageAWireBytes: sess.messageABytes,
		MessageBWireBytes: sess.messageBBytes,
		FinishedWireBytes: sess.finishedBytes,
		ChosenSuite:       sess.chosen,
		SigAAlgorithm:     sess.chosen.SignatureAlgorithm(),
	}

	sess.wipe()
	sess.state = Completed

	d.mu.Lock()
	d.keysOut[sess.peer] = keys
	d.metrics[sess.peer] = metrics
	d.mu.Unlock()

	if sess.role == RoleInitiator {
		sess.done <- result{keys: keys}
	}
	if d.cfg.OnComplete != nil {
		d.cfg.OnComplete(sess.peer, keys, nil)
	}
}

func (d *Driver) failSession(sess *session, err error) {
	d.failSessionAs(sess, err, Failed)
}

func (d *Driver) failSessionAs(sess *session, err error, state State) {
	sess.wipe()
	sess.state = state

	if sess.role == RoleInitiator {
		select {
		case sess.done <- result{err: err}:
		default:
		}
	}
	if d.cfg.OnComplete != nil {
		d.cfg.OnComplete(sess.peer, SessionKeys{}, err)
	}
	d.logger.Warn("handshake failed", logging.Fields{"peer": sess.peer, "state": state.String(), "err": err.Error()})
}

// SessionKeysFor returns and clears the stored SessionKeys for peer, giving
// responder-side callers (who never block in initiateHandshake) a way to
// retrieve the output of a completed handshake. Ownership moves to the
// caller: a second call for the same peer without a new completed session
// returns ok == false.
func (d *Driver) SessionKeysFor(peer string) (SessionKeys, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys, ok := d.keysOut[peer]
	if ok {
		delete(d.keysOut, peer)
	}
	return keys, ok
}

// GetLastMetrics returns the most recently recorded metrics for peer.
func (d *Driver) GetLastMetrics(peer string) (Metrics, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.metrics[peer]
	if !ok {
		return Metrics{}, false
	}
	return *m, true
}
