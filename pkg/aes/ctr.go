package aes

import "crypto/cipher"

// CounterMode XORs whole blocks of keystream derived from a 128-bit
// big-endian counter into data. The counter is advanced once per block so
// a subsequent call continues the stream.
type CounterMode interface {
	XORBlocks(ctr *[BlockSize]byte, data []byte)
}

// GenericCTR composes block encryption, XOR and counter increment.
type GenericCTR struct {
	cipher *Cipher
	key    []byte
}

// NewGenericCTR creates a GenericCTR for a 16 or 32 byte key.
func (c *Cipher) NewGenericCTR(key []byte) (*GenericCTR, error) {
	if len(key) != Key128Size && len(key) != Key256Size {
		return nil, KeySizeError(len(key))
	}
	m := &GenericCTR{cipher: c, key: make([]byte, len(key))}
	copy(m.key, key)
	return m, nil
}

// XORBlocks implements CounterMode.
func (m *GenericCTR) XORBlocks(ctr *[BlockSize]byte, data []byte) {
	mustBeBlocks(data)
	for off := 0; off < len(data); off += BlockSize {
		ks := *ctr
		m.cipher.EncryptBlock(m.key, &ks)
		xorBlock(data[off:off+BlockSize], &ks)
		IncrementCounter(ctr)
	}
}

// IncrementCounter adds one to ctr as a 128-bit big-endian integer,
// carrying across all 16 bytes and wrapping to zero.
func IncrementCounter(ctr *[BlockSize]byte) {
	for i := BlockSize - 1; i >= 0; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			return
		}
	}
}

func xorBlock(dst []byte, ks *[BlockSize]byte) {
	for i, b := range ks {
		dst[i] ^= b
	}
}

func mustBeBlocks(data []byte) {
	if len(data)%BlockSize != 0 {
		panic("aes: input not full blocks")
	}
}

type ctrStream struct {
	mode CounterMode
	ctr  [BlockSize]byte
	ks   [BlockSize]byte
	used int
}

// NewCTRStream adapts a CounterMode to cipher.Stream so data need not be
// a multiple of the block size. iv is copied; the caller's array is not
// advanced.
func NewCTRStream(mode CounterMode, iv *[BlockSize]byte) cipher.Stream {
	return &ctrStream{mode: mode, ctr: *iv, used: BlockSize}
}

// NewCTR creates a counter mode cipher.Stream on the 128-bit fast path.
func NewCTR(key *[Key128Size]byte, iv *[BlockSize]byte) cipher.Stream {
	return NewCTRStream(ExpandKey128(key), iv)
}

func (s *ctrStream) XORKeyStream(dst, src []byte) {
	if len(dst) < len(src) {
		panic("aes: output smaller than input")
	}
	for i, b := range src {
		if s.used == BlockSize {
			s.ks = [BlockSize]byte{}
			s.mode.XORBlocks(&s.ctr, s.ks[:])
			s.used = 0
		}
		dst[i] = b ^ s.ks[s.used]
		s.used++
	}
}
