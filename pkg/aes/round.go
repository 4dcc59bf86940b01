package aes

import "github.com/robotalks/lillib.go/pkg/gf256"

// The state is the 16-byte block in FIPS-197 column-major order:
// byte 4*c+r holds row r of column c.

func addRoundKey(s *[BlockSize]byte, k []byte) {
	for i := range s {
		s[i] ^= k[i]
	}
}

func subBytes(sb SBox, s *[BlockSize]byte) {
	for i, b := range s {
		s[i] = sb.Forward(b)
	}
}

func invSubBytes(sb SBox, s *[BlockSize]byte) {
	for i, b := range s {
		s[i] = sb.Inverse(b)
	}
}

// shiftRows rotates row r left by r positions.
func shiftRows(s *[BlockSize]byte) {
	s[1], s[5], s[9], s[13] = s[5], s[9], s[13], s[1]
	s[2], s[10] = s[10], s[2]
	s[6], s[14] = s[14], s[6]
	s[3], s[7], s[11], s[15] = s[15], s[3], s[7], s[11]
}

func invShiftRows(s *[BlockSize]byte) {
	s[1], s[5], s[9], s[13] = s[13], s[1], s[5], s[9]
	s[2], s[10] = s[10], s[2]
	s[6], s[14] = s[14], s[6]
	s[3], s[7], s[11], s[15] = s[7], s[11], s[15], s[3]
}

func mixColumns(s *[BlockSize]byte) {
	for c := 0; c < BlockSize; c += 4 {
		a, b, cc, d := s[c], s[c+1], s[c+2], s[c+3]
		t := a ^ b ^ cc ^ d
		s[c] = a ^ t ^ gf256.Mul2(a^b)
		s[c+1] = b ^ t ^ gf256.Mul2(b^cc)
		s[c+2] = cc ^ t ^ gf256.Mul2(cc^d)
		s[c+3] = d ^ t ^ gf256.Mul2(d^a)
	}
}

func invMixColumns(s *[BlockSize]byte) {
	for c := 0; c < BlockSize; c += 4 {
		a, b, cc, d := s[c], s[c+1], s[c+2], s[c+3]
		t1 := a ^ b ^ cc ^ d
		t2 := gf256.Mul2(t1)
		tac := gf256.Mul2(t2 ^ a ^ cc)
		tbd := gf256.Mul2(t2 ^ b ^ d)
		s[c] = a ^ t1 ^ gf256.Mul2(a^b^tac)
		s[c+1] = b ^ t1 ^ gf256.Mul2(b^cc^tbd)
		s[c+2] = cc ^ t1 ^ gf256.Mul2(cc^d^tac)
		s[c+3] = d ^ t1 ^ gf256.Mul2(d^a^tbd)
	}
}
