package protocol

// Keystream is the 32-bit linear-congruential generator whose output is
// XOR-ed against the ciphertext. A fresh instance is seeded per request, so
// the state is call-local and never shared.
//
// The step is state = (state*mul + add) mod m, with the multiply and add
// wrapping at 2^32 before the reduction by m. m is an arbitrary per-game
// constant, not necessarily a power of two. The keystream byte is bits
// 16-23 of the updated state. This is obfuscation, not cryptography.
type Keystream struct {
	state uint32
	mul   uint32
	add   uint32
	mod   uint32
}

// NewKeystream seeds a generator with the per-game constants. mod must be
// non-zero; GameConfig validation enforces that before any request is
// decoded.
func NewKeystream(mul, add, mod, seed uint32) *Keystream {
	return &Keystream{
		state: seed,
		mul:   mul,
		add:   add,
		mod:   mod,
	}
}

// Next advances the generator and returns the next keystream byte.
func (k *Keystream) Next() byte {
	k.state = (k.state*k.mul + k.add) % k.mod
	return byte(k.state >> 16)
}

// XOR applies the keystream in place over data, consuming one byte of
// keystream per byte of data. Decryption and encryption are the same
// operation.
func (k *Keystream) XOR(data []byte) {
	for i := range data {
		data[i] ^= k.Next()
	}
}

// seedFromChecksum derives the cipher seed from the verified checksum:
// the low 16 bits are kept and the whole value is also shifted into the
// high half, truncating on overflow.
func seedFromChecksum(checksum int32) uint32 {
	c := uint32(checksum)
	return (c & 0xFFFF) | (c << 16)
}
