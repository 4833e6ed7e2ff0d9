package handshake

import (
	"time"

	"github.com/skybridgecompass/handshake/pkg/provider"
	"github.com/skybridgecompass/handshake/pkg/secret"
	"github.com/skybridgecompass/handshake/pkg/suite"
	"github.com/skybridgecompass/handshake/pkg/transcript"
)

// State is one position in the per-session state machine of spec.md §4.1.
type State int

const (
	Idle State = iota
	AwaitingMessageB
	AwaitingMessageC
	AwaitingFinishedAck
	Completed
	Failed
	TimedOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case AwaitingMessageB:
		return "AwaitingMessageB"
	case AwaitingMessageC:
		return "AwaitingMessageC"
	case AwaitingFinishedAck:
		return "AwaitingFinishedAck"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	case TimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

func (s State) terminal() bool {
	return s == Completed || s == Failed || s == TimedOut
}

// Role is which side of the handshake a session plays.
type Role = transcript.Role

const (
	RoleInitiator = transcript.RoleInitiator
	RoleResponder = transcript.RoleResponder
)

// SessionKeys is the output of a completed handshake, moved out to the
// caller; the session itself wipes its own copies on the same transition.
type SessionKeys struct {
	TxKey          [32]byte
	RxKey          [32]byte
	TranscriptHash [32]byte
}

// Metrics is spec.md §3's HandshakeMetrics, snapshotted once per completed
// session.
type Metrics struct {
	RTT                time.Duration
	MessageAWireBytes  int
	MessageBWireBytes  int
	FinishedWireBytes  int
	ChosenSuite        suite.CryptoSuite
	SigAAlgorithm      suite.SignatureAlgorithm
}

// session is the driver's private bookkeeping for one in-flight or
// completed handshake with a single peer. A Driver holds one of these per
// peer at a time.
type session struct {
	peer  string
	role  Role
	state State

	offered suite.OfferedSuites
	chosen  suite.CryptoSuite

	ephemeralKEM *provider.KEMKeypair
	sharedSecret []byte

	transcript  *transcript.Transcript
	keySchedule transcript.KeySchedule

	initiatorNonce [32]byte
	responderNonce [32]byte

	startedAt    time.Time
	deadline     time.Time
	lastActivity time.Time

	messageASendTime time.Time
	messageARecvTime time.Time

	messageABytes int
	messageBBytes int
	finishedBytes int

	// done carries the terminal result to whatever goroutine is blocked in
	// InitiateHandshake for this session. Responders never populate it.
	done chan result
}

type result struct {
	keys SessionKeys
	err  error
}

// wipe clears every piece of secret material the session still owns. Safe
// to call more than once and on sessions that never derived anything.
func (s *session) wipe() {
	if s.ephemeralKEM != nil {
		secret.ZeroBytes(s.ephemeralKEM.PrivateKey)
	}
	secret.ZeroBytes(s.sharedSecret)
	secret.Zero(&s.keySchedule.TxInit)
	secret.Zero(&s.keySchedule.TxResp)
	secret.Zero(&s.keySchedule.FinKeyI)
	secret.Zero(&s.keySchedule.FinKeyR)
}
