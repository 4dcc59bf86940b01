package aes

import "github.com/robotalks/lillib.go/pkg/gf256"

// Round constant bounds. Encryption doubles the constant from rconFirst
// after every schedule step; decryption starts one step past the last
// value used and halves it before every backward step.
const (
	rconFirst      byte = 0x01
	rconDecrypt128 byte = 0x6c
	rconDecrypt256 byte = 0x80
)

// Number of forward schedule steps needed to reach the decryption key.
const (
	steps128 = 10
	steps256 = 7
)

// RoundConstants returns the first n round constants, 0x01 doubled in
// GF(2^8) for each step.
func RoundConstants(n int) []byte {
	rcons := make([]byte, n)
	rcon := rconFirst
	for i := range rcons {
		rcons[i] = rcon
		rcon = gf256.Mul2(rcon)
	}
	return rcons
}

// cascade applies k[i] ^= k[i-4] for the 16-byte word group starting at off.
func cascade(k []byte, off int) {
	for i := off + 4; i < off+16; i++ {
		k[i] ^= k[i-4]
	}
}

func uncascade(k []byte, off int) {
	for i := off + 15; i >= off+4; i-- {
		k[i] ^= k[i-4]
	}
}

// rotSub mixes the rotated, substituted word at k[w:w+4] into k[0:4].
func rotSub(sb SBox, k []byte, w int, rcon byte) {
	k[0] ^= sb.Forward(k[w+1]) ^ rcon
	k[1] ^= sb.Forward(k[w+2])
	k[2] ^= sb.Forward(k[w+3])
	k[3] ^= sb.Forward(k[w])
}

func nextKey128(sb SBox, k *[Key128Size]byte, rcon byte) {
	rotSub(sb, k[:], 12, rcon)
	cascade(k[:], 0)
}

func prevKey128(sb SBox, k *[Key128Size]byte, rcon byte) {
	uncascade(k[:], 0)
	rotSub(sb, k[:], 12, rcon)
}

func nextKey256(sb SBox, k *[Key256Size]byte, rcon byte) {
	rotSub(sb, k[:], 28, rcon)
	cascade(k[:], 0)
	for i := 0; i < 4; i++ {
		k[16+i] ^= sb.Forward(k[12+i])
	}
	cascade(k[:], 16)
}

func prevKey256(sb SBox, k *[Key256Size]byte, rcon byte) {
	uncascade(k[:], 16)
	for i := 0; i < 4; i++ {
		k[16+i] ^= sb.Forward(k[12+i])
	}
	uncascade(k[:], 0)
	rotSub(sb, k[:], 28, rcon)
}
