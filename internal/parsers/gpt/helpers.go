package gpt

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/google/uuid"
)

// guidFromBytes converts a 16-byte GUID as stored on disk (first three groups
// little-endian) into a uuid.UUID in RFC 4122 byte order.
func guidFromBytes(b []byte) uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:16])
	return u
}

// isZero reports whether every byte of b is zero.
func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// decodeUTF16LE decodes every code unit of a UTF-16 little-endian byte
// slice and drops the trailing NUL padding. Embedded NULs are kept.
func decodeUTF16LE(b []byte) string {
	u16s := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u16s = append(u16s, binary.LittleEndian.Uint16(b[i:i+2]))
	}
	for len(u16s) > 0 && u16s[len(u16s)-1] == 0 {
		u16s = u16s[:len(u16s)-1]
	}
	return string(utf16.Decode(u16s))
}
