// Package secret holds the wipe helpers every owner of private key material,
// KEM shared secrets, or derived session keys calls on drop.
package secret

import "runtime"

// Zero wipes a fixed-size 32-byte buffer from memory.
func Zero(key *[32]byte) {
	if key == nil {
		return
	}
	for i := range key {
		key[i] = 0
	}
	runtime.KeepAlive(key)
}

// ZeroBytes wipes a variable-length byte slice from memory.
func ZeroBytes(data []byte) {
	if len(data) == 0 {
		return
	}
	for i := range data {
		data[i] = 0
	}
	runtime.KeepAlive(data)
}

// ZeroAll wipes every slice passed to it, in order.
func ZeroAll(buffers ...[]byte) {
	for _, b := range buffers {
		ZeroBytes(b)
	}
}

// IsZeroed reports whether every byte of data is zero. Intended for tests;
// checking this in production logic can leak timing information.
func IsZeroed(data []byte) bool {
	if data == nil {
		return false
	}
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
