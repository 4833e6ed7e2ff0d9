package wire

import (
	"bytes"
	"errors"
	"testing"
)

func sampleMessageA() *MessageA {
	a := &MessageA{
		OfferedSuites:       []uint8{0x03, 0x02, 0x01},
		InitiatorKEMPk:      bytes.Repeat([]byte{0x11}, 32),
		InitiatorIdentityPk: bytes.Repeat([]byte{0x22}, 40),
		SigA:                bytes.Repeat([]byte{0x33}, 64),
	}
	copy(a.InitiatorNonce[:], bytes.Repeat([]byte{0x44}, NonceSize))
	return a
}

func TestMessageAEncodeDecodeRoundTrip(t *testing.T) {
	a := sampleMessageA()
	payload := a.Encode()

	decoded, err := DecodeMessageA(payload)
	if err != nil {
		t.Fatalf("DecodeMessageA failed: %v", err)
	}

	if !bytes.Equal(decoded.OfferedSuites, a.OfferedSuites) {
		t.Error("offeredSuites mismatch")
	}
	if !bytes.Equal(decoded.InitiatorKEMPk, a.InitiatorKEMPk) {
		t.Error("initiatorKEMPk mismatch")
	}
	if !bytes.Equal(decoded.InitiatorIdentityPk, a.InitiatorIdentityPk) {
		t.Error("initiatorIdentityPk mismatch")
	}
	if decoded.InitiatorNonce != a.InitiatorNonce {
		t.Error("initiatorNonce mismatch")
	}
	if !bytes.Equal(decoded.SigA, a.SigA) {
		t.Error("sigA mismatch")
	}
}

func TestMessageBEncodeDecodeRoundTrip(t *testing.T) {
	b := &MessageB{
		ChosenSuite:         0x03,
		KEMCiphertext:       bytes.Repeat([]byte{0x55}, 1088),
		ResponderIdentityPk: bytes.Repeat([]byte{0x66}, 40),
		SigB:                bytes.Repeat([]byte{0x77}, 3309),
	}
	copy(b.ResponderNonce[:], bytes.Repeat([]byte{0x88}, NonceSize))

	payload := b.Encode()
	decoded, err := DecodeMessageB(payload)
	if err != nil {
		t.Fatalf("DecodeMessageB failed: %v", err)
	}

	if decoded.ChosenSuite != b.ChosenSuite {
		t.Error("chosenSuite mismatch")
	}
	if !bytes.Equal(decoded.KEMCiphertext, b.KEMCiphertext) {
		t.Error("kemCiphertext mismatch")
	}
	if !bytes.Equal(decoded.ResponderIdentityPk, b.ResponderIdentityPk) {
		t.Error("responderIdentityPk mismatch")
	}
	if decoded.ResponderNonce != b.ResponderNonce {
		t.Error("responderNonce mismatch")
	}
	if !bytes.Equal(decoded.SigB, b.SigB) {
		t.Error("sigB mismatch")
	}
}

func TestMessageCEncodeDecodeRoundTrip(t *testing.T) {
	c := &MessageC{}
	copy(c.FinishedMac[:], bytes.Repeat([]byte{0x99}, FinishedMacSize))

	payload := c.Encode()
	decoded, err := DecodeMessageC(payload)
	if err != nil {
		t.Fatalf("DecodeMessageC failed: %v", err)
	}
	if decoded.FinishedMac != c.FinishedMac {
		t.Error("finishedMac mismatch")
	}
}

func TestFrameEncodeDecodeRoundTrip(t *testing.T) {
	a := sampleMessageA()
	payload := a.Encode()

	frame, err := EncodeFrame(MsgTypeA, payload)
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	h, decodedPayload, err := DecodeFrame(frame)
	if err != nil {
		t.Fatalf("DecodeFrame failed: %v", err)
	}
	if h.MsgType != MsgTypeA {
		t.Errorf("msgType = 0x%02x, want 0x%02x", h.MsgType, MsgTypeA)
	}
	if h.Version != ProtocolVersion {
		t.Errorf("version = %d, want %d", h.Version, ProtocolVersion)
	}
	if !bytes.Equal(decodedPayload, payload) {
		t.Error("payload round trip mismatch")
	}
}

func TestDecodeFrameRejectsWrongVersion(t *testing.T) {
	frame, err := EncodeFrame(MsgTypeC, []byte{0x01})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	frame[1] = 0x02

	if _, _, err := DecodeFrame(frame); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestDecodeFrameRejectsShortHeader(t *testing.T) {
	if _, _, err := DecodeFrame([]byte{0x01, 0x01}); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestDecodeFrameRejectsLengthMismatch(t *testing.T) {
	frame, err := EncodeFrame(MsgTypeC, []byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}
	truncated := frame[:len(frame)-1]

	if _, _, err := DecodeFrame(truncated); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestEncodeFrameRejectsOversizedPayload(t *testing.T) {
	_, err := EncodeFrame(MsgTypeA, make([]byte, MaxWireSize))
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("expected ErrMessageTooLarge, got %v", err)
	}
}

func TestDecodeMessageARejectsEmptyOfferedSuites(t *testing.T) {
	a := sampleMessageA()
	a.OfferedSuites = nil
	payload := a.Encode()

	if _, err := DecodeMessageA(payload); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestDecodeMessageARejectsWrongNonceSize(t *testing.T) {
	a := sampleMessageA()
	payload := a.Encode()

	// Corrupt the nonce field's length prefix so it declares 31 bytes, then
	// drop a byte from the field_bytes and fix up the tail so fields after
	// it still parse. Simpler: corrupt the length prefix to claim 31 and
	// leave the extra byte as part of sigA's tag/len/value — this produces
	// a structurally different but still malformed stream, which is exactly
	// the case under test (decoder must reject any declared NonceSize
	// mismatch).
	nonceFieldStart := bytes.Index(payload, []byte{tagInitiatorNonce})
	if nonceFieldStart < 0 {
		t.Fatal("could not locate nonce field in encoded payload")
	}
	payload[nonceFieldStart+2] = byte(NonceSize - 1)

	if _, err := DecodeMessageA(payload); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestDecodeMessageBRejectsTrailingBytes(t *testing.T) {
	b := &MessageB{
		ChosenSuite:         0x01,
		KEMCiphertext:       []byte{0x01},
		ResponderIdentityPk: []byte{0x02},
		SigB:                []byte{0x03},
	}
	payload := append(b.Encode(), 0xFF)

	if _, err := DecodeMessageB(payload); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", err)
	}
}

func TestDecodeMessageCRejectsWrongTag(t *testing.T) {
	payload := []byte{0x02, 0x00, 0x01, 0xFF}
	if _, err := DecodeMessageC(payload); !errors.Is(err, ErrMalformedMessage) {
		t.Errorf("expected ErrMalformedMessage, got %v", err)
	}
}
