package utils

import (
	"crypto/rand"
	"strings"
)

// RoomCodeLength is the fixed length of generated huddle codes.
const RoomCodeLength = 8

// Unambiguous upper-case alphabet: no 0/O, 1/I.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRoomCode returns a random 8-character room code. The code
// space is small enough that collisions are expected over time; callers
// must retry on a unique-constraint violation.
func GenerateRoomCode() string {
	buf := make([]byte, RoomCodeLength)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(buf)
}

// NormalizeRoomCode folds a client-supplied code into canonical form.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
