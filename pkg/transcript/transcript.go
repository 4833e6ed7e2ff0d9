// Package transcript implements the rolling transcript hash, HKDF key
// schedule, and Finished-MAC construction that bind every field of every
// handshake message to the derived session keys.
package transcript

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"

	"golang.org/x/crypto/hkdf"
)

// DomainSeparator is mixed into the transcript before any message bytes.
const DomainSeparator = "SKYBRIDGE-HS-v1"

// HKDF labels for the four derived keys. ASCII renderings of spec.md's
// init→resp / resp→init labels, since the wire and HKDF info strings are
// plain bytes rather than display text.
const (
	labelInitToResp = "init->resp"
	labelRespToInit = "resp->init"
	labelFinInit    = "fin-init"
	labelFinResp    = "fin-resp"
)

// finishedLabel and the role octets are mixed into the Finished-MAC input,
// never into the exposed transcript hash itself.
const finishedLabel = "finished"

// Role identifies which side of the handshake a Finished-MAC or derived key
// belongs to.
type Role uint8

const (
	RoleInitiator Role = 0x01
	RoleResponder Role = 0x02
)

// Transcript accumulates the exact bytes of MessageA and MessageB as sent on
// the wire, including framing, into a single rolling SHA-256 hash.
type Transcript struct {
	h hash.Hash
}

// New starts a transcript, mixing in the domain separator immediately.
func New() *Transcript {
	t := &Transcript{h: sha256.New()}
	t.h.Write([]byte(DomainSeparator))
	return t
}

// Write mixes a complete wire frame (header + payload) into the transcript.
// Bytes already mixed can never be removed.
func (t *Transcript) Write(frame []byte) {
	t.h.Write(frame)
}

// Sum returns the transcript hash over everything mixed in so far, without
// disturbing the running hash state.
func (t *Transcript) Sum() [32]byte {
	var out [32]byte
	copy(out[:], t.h.Sum(nil))
	return out
}

// KeySchedule holds the four keys derived from the post-AB transcript hash
// and the raw KEM shared secret.
type KeySchedule struct {
	TxInit  [32]byte // init -> resp
	TxResp  [32]byte // resp -> init
	FinKeyI [32]byte
	FinKeyR [32]byte
}

// DeriveKeySchedule implements spec.md §4.1.C: prk = HKDF-Extract(salt =
// transcriptHash_AB, ikm = sharedSecret), then four HKDF-Expand calls.
func DeriveKeySchedule(transcriptHashAB [32]byte, sharedSecret []byte) KeySchedule {
	prk := hkdf.Extract(sha256.New, sharedSecret, transcriptHashAB[:])

	return KeySchedule{
		TxInit:  expand32(prk, labelInitToResp),
		TxResp:  expand32(prk, labelRespToInit),
		FinKeyI: expand32(prk, labelFinInit),
		FinKeyR: expand32(prk, labelFinResp),
	}
}

func expand32(prk []byte, label string) [32]byte {
	r := hkdf.Expand(sha256.New, prk, []byte(label))
	var out [32]byte
	// hkdf.Expand's Reader never returns a short read for a fixed 32-byte
	// pull against SHA-256's 255*32-byte expansion limit; err is always nil.
	_, _ = r.Read(out[:])
	return out
}

// Keys returns (txKey, rxKey) for role given a derived KeySchedule, per
// spec.md §4.1.C: the initiator transmits on TxInit and receives on TxResp;
// the responder's roles are swapped.
func (ks KeySchedule) Keys(role Role) (tx, rx [32]byte) {
	if role == RoleInitiator {
		return ks.TxInit, ks.TxResp
	}
	return ks.TxResp, ks.TxInit
}

// FinKey returns the Finished-MAC key the given role signs with.
func (ks KeySchedule) FinKey(role Role) [32]byte {
	if role == RoleInitiator {
		return ks.FinKeyI
	}
	return ks.FinKeyR
}

// FinishedMAC computes HMAC-SHA256(finKey, transcriptHash_AB || "finished"
// || role_octet), spec.md §4.1.D.
func FinishedMAC(finKey [32]byte, transcriptHashAB [32]byte, role Role) [32]byte {
	h := hmac.New(sha256.New, finKey[:])
	h.Write(transcriptHashAB[:])
	h.Write([]byte(finishedLabel))
	h.Write([]byte{byte(role)})

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyFinishedMAC constant-time compares a received MAC against the
// expected value.
func VerifyFinishedMAC(finKey [32]byte, transcriptHashAB [32]byte, role Role, received [32]byte) bool {
	expected := FinishedMAC(finKey, transcriptHashAB, role)
	return hmac.Equal(expected[:], received[:])
}
