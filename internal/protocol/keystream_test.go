package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeystreamSequence(t *testing.T) {
	// mul=1 add=0x10000 mod=0x30000 from seed 0 walks
	// 0x10000, 0x20000, 0x00000, ... so the output bytes cycle 1, 2, 0.
	ks := NewKeystream(1, 0x10000, 0x30000, 0)
	assert.Equal(t, byte(1), ks.Next())
	assert.Equal(t, byte(2), ks.Next())
	assert.Equal(t, byte(0), ks.Next())
	assert.Equal(t, byte(1), ks.Next())
}

func TestKeystreamDeterministic(t *testing.T) {
	a := NewKeystream(0x41C64E6D, 0x3039, 0x7FFFFFFF, 0xDEADBEEF)
	b := NewKeystream(0x41C64E6D, 0x3039, 0x7FFFFFFF, 0xDEADBEEF)

	for i := 0; i < 256; i++ {
		require.Equal(t, a.Next(), b.Next(), "streams diverged at byte %d", i)
	}
}

func TestKeystreamXORIsInvolution(t *testing.T) {
	data := []byte("telemetry payload bytes")
	original := make([]byte, len(data))
	copy(original, data)

	enc := NewKeystream(0x41C64E6D, 0x3039, 0x7FFFFFFF, 42)
	enc.XOR(data)
	assert.NotEqual(t, original, data)

	dec := NewKeystream(0x41C64E6D, 0x3039, 0x7FFFFFFF, 42)
	dec.XOR(data)
	assert.Equal(t, original, data)
}

func TestSeedFromChecksum(t *testing.T) {
	// Low 16 bits survive in both halves.
	assert.Equal(t, uint32(0x1234_1234), seedFromChecksum(0x1234))
	// High bits of the checksum only reach the high half.
	assert.Equal(t, uint32(0x5678_5678), seedFromChecksum(0x12345678))
	// Negative checksums reinterpret as uint32 before packing.
	assert.Equal(t, uint32(0xFFFF_FFFF), seedFromChecksum(-1))
	assert.Equal(t, uint32(0), seedFromChecksum(0))
}
