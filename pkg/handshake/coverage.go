package handshake

import "encoding/binary"

// lpAppend appends a length-prefixed field to buf: uint16BE length, then the
// bytes themselves. Used to build the canonical byte strings signatures and
// Finished-MACs cover, so no field's boundary is ambiguous to a verifier.
func lpAppend(buf []byte, field []byte) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(field)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, field...)
}

// sigACoverage builds the byte string spec.md §4.1.E requires sigA to cover:
// "sigA-v1" || offeredSuitesEncoded || initiatorEphemeralKEMpk ||
// initiatorIdentityPk || initiatorNonce || peerIdEncoded.
func sigACoverage(offeredSuites []byte, initiatorKEMPk, initiatorIdentityPk, initiatorNonce []byte, peerID string) []byte {
	buf := []byte("sigA-v1")
	buf = lpAppend(buf, offeredSuites)
	buf = lpAppend(buf, initiatorKEMPk)
	buf = lpAppend(buf, initiatorIdentityPk)
	buf = lpAppend(buf, initiatorNonce)
	buf = lpAppend(buf, []byte(peerID))
	return buf
}

// sigBCoverage builds the byte string spec.md §4.1.E requires sigB to cover:
// "sigB-v1" || chosenSuite || kemCiphertext || responderIdentityPk ||
// responderNonce || transcriptHash_A.
func sigBCoverage(chosenSuite uint8, kemCiphertext, responderIdentityPk, responderNonce, transcriptHashA []byte) []byte {
	buf := []byte("sigB-v1")
	buf = append(buf, chosenSuite)
	buf = lpAppend(buf, kemCiphertext)
	buf = lpAppend(buf, responderIdentityPk)
	buf = lpAppend(buf, responderNonce)
	buf = lpAppend(buf, transcriptHashA)
	return buf
}
