package aes

import (
	"math/bits"

	"github.com/robotalks/lillib.go/pkg/gf256"
)

// SBox provides the byte substitution used by SubBytes and the key schedule.
type SBox interface {
	Forward(byte) byte
	Inverse(byte) byte
}

type tableSBox struct{}

func (tableSBox) Forward(x byte) byte { return sboxForward[x] }
func (tableSBox) Inverse(x byte) byte { return sboxInverse[x] }

type computedSBox struct{}

// Forward computes the GF(2^8) inverse followed by the affine transform.
func (computedSBox) Forward(x byte) byte {
	s := gf256.Inv(x)
	y := s
	for i := 0; i < 4; i++ {
		y = bits.RotateLeft8(y, 1)
		s ^= y
	}
	return s ^ 0x63
}

// Inverse undoes the affine transform then takes the GF(2^8) inverse.
func (computedSBox) Inverse(x byte) byte {
	y := x ^ 0x63
	y = bits.RotateLeft8(y, 1)
	s := y
	y = bits.RotateLeft8(y, 2)
	s ^= y
	y = bits.RotateLeft8(y, 3)
	s ^= y
	return gf256.Inv(s)
}

var (
	// Tables looks substitutions up in precomputed 256-entry tables.
	Tables SBox = tableSBox{}
	// Computed derives every substitution arithmetically, trading speed
	// for 512 bytes of table storage.
	Computed SBox = computedSBox{}
)

// SBoxByName resolves a strategy name as accepted by command line flags.
func SBoxByName(name string) (SBox, bool) {
	switch name {
	case "table", "tables", "":
		return Tables, true
	case "computed", "compute":
		return Computed, true
	}
	return nil, false
}
