package aes

import (
	"encoding/binary"
	"math/bits"

	"github.com/robotalks/lillib.go/pkg/gf256"
)

const rounds128 = 10

// Schedule128 is a fully expanded AES-128 key schedule. Encryption with
// it uses 32-bit lookup tables instead of byte-wise round functions.
type Schedule128 struct {
	rk [4 * (rounds128 + 1)]uint32
}

// te0 combines SubBytes and MixColumns for one input byte; te1..te3 are
// its byte rotations.
var te0, te1, te2, te3 [256]uint32

func init() {
	for x := 0; x < 256; x++ {
		s := sboxForward[x]
		s2 := gf256.Mul2(s)
		w := uint32(s2)<<24 | uint32(s)<<16 | uint32(s)<<8 | uint32(s2^s)
		te0[x] = w
		te1[x] = bits.RotateLeft32(w, -8)
		te2[x] = bits.RotateLeft32(w, -16)
		te3[x] = bits.RotateLeft32(w, -24)
	}
}

// ExpandKey128 precomputes all 11 round keys of key.
func ExpandKey128(key *[Key128Size]byte) *Schedule128 {
	s := &Schedule128{}
	k := *key
	rcon := rconFirst
	for r := 0; ; r++ {
		for i := 0; i < 4; i++ {
			s.rk[4*r+i] = binary.BigEndian.Uint32(k[4*i:])
		}
		if r == rounds128 {
			break
		}
		nextKey128(Tables, &k, rcon)
		rcon = gf256.Mul2(rcon)
	}
	return s
}

// RoundKeys returns the expanded schedule in byte order.
func (s *Schedule128) RoundKeys() (out [4 * (rounds128 + 1) * 4]byte) {
	for i, w := range s.rk {
		binary.BigEndian.PutUint32(out[4*i:], w)
	}
	return
}

// Encrypt encrypts one block from src into dst.
func (s *Schedule128) Encrypt(dst, src *[BlockSize]byte) {
	rk := s.rk[:]
	s0 := binary.BigEndian.Uint32(src[0:]) ^ rk[0]
	s1 := binary.BigEndian.Uint32(src[4:]) ^ rk[1]
	s2 := binary.BigEndian.Uint32(src[8:]) ^ rk[2]
	s3 := binary.BigEndian.Uint32(src[12:]) ^ rk[3]
	for r := 1; r < rounds128; r++ {
		k := rk[4*r:]
		t0 := te0[s0>>24] ^ te1[s1>>16&0xff] ^ te2[s2>>8&0xff] ^ te3[s3&0xff] ^ k[0]
		t1 := te0[s1>>24] ^ te1[s2>>16&0xff] ^ te2[s3>>8&0xff] ^ te3[s0&0xff] ^ k[1]
		t2 := te0[s2>>24] ^ te1[s3>>16&0xff] ^ te2[s0>>8&0xff] ^ te3[s1&0xff] ^ k[2]
		t3 := te0[s3>>24] ^ te1[s0>>16&0xff] ^ te2[s1>>8&0xff] ^ te3[s2&0xff] ^ k[3]
		s0, s1, s2, s3 = t0, t1, t2, t3
	}
	k := rk[4*rounds128:]
	binary.BigEndian.PutUint32(dst[0:], finalWord(s0, s1, s2, s3)^k[0])
	binary.BigEndian.PutUint32(dst[4:], finalWord(s1, s2, s3, s0)^k[1])
	binary.BigEndian.PutUint32(dst[8:], finalWord(s2, s3, s0, s1)^k[2])
	binary.BigEndian.PutUint32(dst[12:], finalWord(s3, s0, s1, s2)^k[3])
}

// finalWord is SubBytes and ShiftRows for one output column.
func finalWord(a, b, c, d uint32) uint32 {
	return uint32(sboxForward[a>>24])<<24 |
		uint32(sboxForward[b>>16&0xff])<<16 |
		uint32(sboxForward[c>>8&0xff])<<8 |
		uint32(sboxForward[d&0xff])
}

// XORBlocks implements CounterMode.
func (s *Schedule128) XORBlocks(ctr *[BlockSize]byte, data []byte) {
	mustBeBlocks(data)
	var ks [BlockSize]byte
	for off := 0; off < len(data); off += BlockSize {
		s.Encrypt(&ks, ctr)
		xorBlock(data[off:off+BlockSize], &ks)
		IncrementCounter(ctr)
	}
}
