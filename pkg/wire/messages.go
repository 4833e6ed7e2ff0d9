package wire

import "fmt"

// NonceSize is the fixed length of both initiatorNonce and responderNonce.
const NonceSize = 32

// FinishedMacSize is the fixed length of MessageC's finishedMac field.
const FinishedMacSize = 32

// Field tags, in the fixed per-message order spec.md §4.4 mandates.
const (
	tagOfferedSuites       uint8 = 0x01
	tagInitiatorKEMPk      uint8 = 0x02
	tagInitiatorIdentityPk uint8 = 0x03
	tagInitiatorNonce      uint8 = 0x04
	tagSigA                uint8 = 0x05

	tagChosenSuite         uint8 = 0x01
	tagKEMCiphertext       uint8 = 0x02
	tagResponderIdentityPk uint8 = 0x03
	tagResponderNonce      uint8 = 0x04
	tagSigB                uint8 = 0x05

	tagFinishedMac uint8 = 0x01
)

// MessageA is the initiator's opening message: offered suites, ephemeral
// KEM public key, identity, a fresh nonce, and sigA over all of it.
type MessageA struct {
	OfferedSuites       []uint8 // suite wire-ids, initiator preference order
	InitiatorKEMPk      []byte
	InitiatorIdentityPk []byte // encoded identity.PublicKeys
	InitiatorNonce      [NonceSize]byte
	SigA                []byte
}

// Encode serializes a into its TLV payload (header framing is separate).
func (a *MessageA) Encode() []byte {
	w := fieldWriter{}
	w.field(tagOfferedSuites, a.OfferedSuites)
	w.field(tagInitiatorKEMPk, a.InitiatorKEMPk)
	w.field(tagInitiatorIdentityPk, a.InitiatorIdentityPk)
	w.field(tagInitiatorNonce, a.InitiatorNonce[:])
	w.field(tagSigA, a.SigA)
	return w.buf
}

// DecodeMessageA parses a MessageA payload (post framing).
func DecodeMessageA(payload []byte) (*MessageA, error) {
	r := fieldReader{buf: payload}

	offered, err := r.next(tagOfferedSuites)
	if err != nil {
		return nil, err
	}
	if len(offered) == 0 {
		return nil, fmt.Errorf("%w: empty offeredSuites field", ErrMalformedMessage)
	}

	kemPk, err := r.next(tagInitiatorKEMPk)
	if err != nil {
		return nil, err
	}

	identityPk, err := r.next(tagInitiatorIdentityPk)
	if err != nil {
		return nil, err
	}

	nonce, err := r.next(tagInitiatorNonce)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: initiatorNonce is %d bytes, want %d", ErrMalformedMessage, len(nonce), NonceSize)
	}

	sigA, err := r.next(tagSigA)
	if err != nil {
		return nil, err
	}

	if err := r.done(); err != nil {
		return nil, err
	}

	msg := &MessageA{
		OfferedSuites:       append([]uint8(nil), offered...),
		InitiatorKEMPk:      append([]byte(nil), kemPk...),
		InitiatorIdentityPk: append([]byte(nil), identityPk...),
		SigA:                append([]byte(nil), sigA...),
	}
	copy(msg.InitiatorNonce[:], nonce)
	return msg, nil
}

// MessageB is the responder's reply: chosen suite, KEM ciphertext, identity,
// a fresh nonce, and sigB.
type MessageB struct {
	ChosenSuite         uint8
	KEMCiphertext       []byte
	ResponderIdentityPk []byte
	ResponderNonce      [NonceSize]byte
	SigB                []byte
}

// Encode serializes b into its TLV payload.
func (b *MessageB) Encode() []byte {
	w := fieldWriter{}
	w.field(tagChosenSuite, []byte{b.ChosenSuite})
	w.field(tagKEMCiphertext, b.KEMCiphertext)
	w.field(tagResponderIdentityPk, b.ResponderIdentityPk)
	w.field(tagResponderNonce, b.ResponderNonce[:])
	w.field(tagSigB, b.SigB)
	return w.buf
}

// DecodeMessageB parses a MessageB payload.
func DecodeMessageB(payload []byte) (*MessageB, error) {
	r := fieldReader{buf: payload}

	chosen, err := r.next(tagChosenSuite)
	if err != nil {
		return nil, err
	}
	if len(chosen) != 1 {
		return nil, fmt.Errorf("%w: chosenSuite is %d bytes, want 1", ErrMalformedMessage, len(chosen))
	}

	ct, err := r.next(tagKEMCiphertext)
	if err != nil {
		return nil, err
	}

	identityPk, err := r.next(tagResponderIdentityPk)
	if err != nil {
		return nil, err
	}

	nonce, err := r.next(tagResponderNonce)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: responderNonce is %d bytes, want %d", ErrMalformedMessage, len(nonce), NonceSize)
	}

	sigB, err := r.next(tagSigB)
	if err != nil {
		return nil, err
	}

	if err := r.done(); err != nil {
		return nil, err
	}

	msg := &MessageB{
		ChosenSuite:         chosen[0],
		KEMCiphertext:       append([]byte(nil), ct...),
		ResponderIdentityPk: append([]byte(nil), identityPk...),
		SigB:                append([]byte(nil), sigB...),
	}
	copy(msg.ResponderNonce[:], nonce)
	return msg, nil
}

// MessageC carries the Finished-MAC that closes the handshake.
type MessageC struct {
	FinishedMac [FinishedMacSize]byte
}

// Encode serializes c into its TLV payload.
func (c *MessageC) Encode() []byte {
	w := fieldWriter{}
	w.field(tagFinishedMac, c.FinishedMac[:])
	return w.buf
}

// DecodeMessageC parses a MessageC payload.
func DecodeMessageC(payload []byte) (*MessageC, error) {
	r := fieldReader{buf: payload}

	mac, err := r.next(tagFinishedMac)
	if err != nil {
		return nil, err
	}
	if len(mac) != FinishedMacSize {
		return nil, fmt.Errorf("%w: finishedMac is %d bytes, want %d", ErrMalformedMessage, len(mac), FinishedMacSize)
	}
	if err := r.done(); err != nil {
		return nil, err
	}

	msg := &MessageC{}
	copy(msg.FinishedMac[:], mac)
	return msg, nil
}
