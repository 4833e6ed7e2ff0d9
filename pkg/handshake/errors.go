package handshake

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy of spec.md §7. It exists so callers can
// errors.As an *Error and branch on Kind without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindEmptyOfferedSuites
	KindNoMutuallyAcceptableSuite
	KindPolicyViolation
	KindMalformedMessage
	KindUnsupportedVersion
	KindMessageTooLarge
	KindSignatureInvalid
	KindFinishedMacInvalid
	KindKEMFailure
	KindIdentityPinMismatch
	KindKEMKeyPinMismatch
	KindAlgorithmMismatch
	KindUnexpectedMessage
	KindSessionAlreadyInProgress
	KindTimedOut
	KindCancelled
	KindTransportFailure
)

func (k Kind) String() string {
	switch k {
	case KindEmptyOfferedSuites:
		return "EmptyOfferedSuites"
	case KindNoMutuallyAcceptableSuite:
		return "NoMutuallyAcceptableSuite"
	case KindPolicyViolation:
		return "PolicyViolation"
	case KindMalformedMessage:
		return "MalformedMessage"
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindMessageTooLarge:
		return "MessageTooLarge"
	case KindSignatureInvalid:
		return "SignatureInvalid"
	case KindFinishedMacInvalid:
		return "FinishedMacInvalid"
	case KindKEMFailure:
		return "KEMFailure"
	case KindIdentityPinMismatch:
		return "IdentityPinMismatch"
	case KindKEMKeyPinMismatch:
		return "KEMKeyPinMismatch"
	case KindAlgorithmMismatch:
		return "AlgorithmMismatch"
	case KindUnexpectedMessage:
		return "UnexpectedMessage"
	case KindSessionAlreadyInProgress:
		return "SessionAlreadyInProgress"
	case KindTimedOut:
		return "TimedOut"
	case KindCancelled:
		return "Cancelled"
	case KindTransportFailure:
		return "TransportFailure"
	default:
		return "Unknown"
	}
}

// Error wraps a taxonomy Kind with the underlying cause, so a caller can
// errors.As for the Kind while errors.Is/errors.Unwrap still reach whatever
// pkg/wire, pkg/provider, or pkg/trust sentinel produced it.
type Error struct {
	Kind Kind
	Peer string
	err  error
}

func newError(kind Kind, peer string, err error) *Error {
	return &Error{Kind: kind, Peer: peer, err: err}
}

func (e *Error) Error() string {
	if e.err == nil {
		return fmt.Sprintf("handshake: %s (peer=%s)", e.Kind, e.Peer)
	}
	return fmt.Sprintf("handshake: %s (peer=%s): %v", e.Kind, e.Peer, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// Is lets errors.Is(err, ErrTimedOut) etc. work against the sentinel values
// below without callers needing to know about Kind at all.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && errors.Is(sentinel, target)
}

// Sentinel values for callers that prefer errors.Is over errors.As(*Error).
var (
	ErrEmptyOfferedSuites        = errors.New("empty offered suites")
	ErrNoMutuallyAcceptableSuite = errors.New("no mutually acceptable suite")
	ErrPolicyViolation           = errors.New("policy violation")
	ErrMalformedMessage          = errors.New("malformed message")
	ErrUnsupportedVersion        = errors.New("unsupported protocol version")
	ErrMessageTooLarge           = errors.New("message too large")
	ErrSignatureInvalid          = errors.New("signature invalid")
	ErrFinishedMacInvalid        = errors.New("finished mac invalid")
	ErrKEMFailure                = errors.New("kem failure")
	ErrIdentityPinMismatch       = errors.New("identity pin mismatch")
	ErrKEMKeyPinMismatch         = errors.New("kem key pin mismatch")
	ErrAlgorithmMismatch         = errors.New("algorithm mismatch")
	ErrUnexpectedMessage         = errors.New("unexpected message")
	ErrSessionAlreadyInProgress  = errors.New("session already in progress")
	ErrTimedOut                  = errors.New("timed out")
	ErrCancelled                 = errors.New("cancelled")
	ErrTransportFailure          = errors.New("transport failure")
)

var kindSentinels = map[Kind]error{
	KindEmptyOfferedSuites:        ErrEmptyOfferedSuites,
	KindNoMutuallyAcceptableSuite: ErrNoMutuallyAcceptableSuite,
	KindPolicyViolation:           ErrPolicyViolation,
	KindMalformedMessage:          ErrMalformedMessage,
	KindUnsupportedVersion:        ErrUnsupportedVersion,
	KindMessageTooLarge:           ErrMessageTooLarge,
	KindSignatureInvalid:          ErrSignatureInvalid,
	KindFinishedMacInvalid:        ErrFinishedMacInvalid,
	KindKEMFailure:                ErrKEMFailure,
	KindIdentityPinMismatch:       ErrIdentityPinMismatch,
	KindKEMKeyPinMismatch:         ErrKEMKeyPinMismatch,
	KindAlgorithmMismatch:         ErrAlgorithmMismatch,
	KindUnexpectedMessage:         ErrUnexpectedMessage,
	KindSessionAlreadyInProgress:  ErrSessionAlreadyInProgress,
	KindTimedOut:                  ErrTimedOut,
	KindCancelled:                 ErrCancelled,
	KindTransportFailure:          ErrTransportFailure,
}
