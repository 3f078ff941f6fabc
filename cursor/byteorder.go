package cursor

import (
	"encoding/binary"
	"unsafe"
)

// ByteOrder selects how multi-byte reads interpret memory. Unlike the
// stdlib's interface values it is a plain integer, so reader stamps
// that carry one serialise cleanly and compare with ==.
type ByteOrder uint8

const (
	// LittleEndian reads least-significant byte first.
	LittleEndian ByteOrder = iota
	// BigEndian reads most-significant byte first.
	BigEndian
)

// engine returns the stdlib decoder behind the order. The annotation
// core only ever reads, so binary.ByteOrder is the whole surface it
// needs.
func (o ByteOrder) engine() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}

	return binary.LittleEndian
}

// String returns "little" or "big".
func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big"
	}

	return "little"
}

// Native returns the host's byte order. Useful when annotating a
// memory dump taken on the analysis machine itself.
func Native() ByteOrder {
	// 0x0100 is 256. A little-endian host stores the LSB (0x00) first,
	// a big-endian host the MSB (0x01).
	var i uint16 = 0x0100

	b := (*[2]byte)(unsafe.Pointer(&i))

	if b[0] == 0x01 {
		return BigEndian
	}

	return LittleEndian
}

// IsNative reports whether the order matches the host's.
func (o ByteOrder) IsNative() bool {
	return o == Native()
}
