package aes

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/robotalks/lillib.go/pkg/gf256"
)

func drawBlock(t *rapid.T, label string) (b [BlockSize]byte) {
	copy(b[:], rapid.SliceOfN(rapid.Byte(), BlockSize, BlockSize).Draw(t, label))
	return
}

// mulMatrix multiplies each column by a circulant matrix given by its first row.
func mulMatrix(s [BlockSize]byte, row [4]byte) (out [BlockSize]byte) {
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			var v byte
			for i := 0; i < 4; i++ {
				v ^= gf256.Mul(row[(i-r+4)%4], s[4*c+i])
			}
			out[4*c+r] = v
		}
	}
	return
}

func TestMixColumnsMatrix(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := drawBlock(rt, "state")
		fwd := s
		mixColumns(&fwd)
		require.Equal(rt, mulMatrix(s, [4]byte{2, 3, 1, 1}), fwd)
		inv := s
		invMixColumns(&inv)
		require.Equal(rt, mulMatrix(s, [4]byte{14, 11, 13, 9}), inv)
	})
}

func TestMixColumnsKnownColumn(t *testing.T) {
	s := [BlockSize]byte{0xdb, 0x13, 0x53, 0x45, 0xf2, 0x0a, 0x22, 0x5c, 0x01, 0x01, 0x01, 0x01, 0xc6, 0xc6, 0xc6, 0xc6}
	mixColumns(&s)
	require.Equal(t, [BlockSize]byte{0x8e, 0x4d, 0xa1, 0xbc, 0x9f, 0xdc, 0x58, 0x9d, 0x01, 0x01, 0x01, 0x01, 0xc6, 0xc6, 0xc6, 0xc6}, s)
}

func TestShiftRows(t *testing.T) {
	var s [BlockSize]byte
	for i := range s {
		s[i] = byte(i)
	}
	shiftRows(&s)
	require.Equal(t, [BlockSize]byte{0, 5, 10, 15, 4, 9, 14, 3, 8, 13, 2, 7, 12, 1, 6, 11}, s)
	invShiftRows(&s)
	for i := range s {
		require.Equal(t, byte(i), s[i])
	}
}

func TestRoundInverses(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := drawBlock(rt, "state")
		v := s
		mixColumns(&v)
		invMixColumns(&v)
		require.Equal(rt, s, v)
		subBytes(Tables, &v)
		invSubBytes(Computed, &v)
		require.Equal(rt, s, v)
		invShiftRows(&v)
		shiftRows(&v)
		require.Equal(rt, s, v)
	})
}
