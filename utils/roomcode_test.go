package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateRoomCode()
		assert.Len(t, code, RoomCodeLength)
		for _, ch := range code {
			assert.Contains(t, roomCodeAlphabet, string(ch))
		}
		seen[code] = true
	}
	// 100 draws from a 32^8 space should not all collide
	assert.Greater(t, len(seen), 1)
}

func TestGenerateRoomCodeIsNormalized(t *testing.T) {
	code := GenerateRoomCode()
	assert.Equal(t, NormalizeRoomCode(code), code)
}

func TestNormalizeRoomCode(t *testing.T) {
	assert.Equal(t, "ABCD2345", NormalizeRoomCode("abcd2345"))
	assert.Equal(t, "ABCD2345", NormalizeRoomCode("  AbCd2345 "))
	assert.Equal(t, strings.ToUpper("wxyz9876"), NormalizeRoomCode("wxyz9876"))
}
