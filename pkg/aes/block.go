// Package aes implements AES-128 and AES-256 with an in-place key schedule
// and interchangeable S-box strategies.
//
// Keys are expanded on the fly: encryption advances a working copy of the
// key one schedule step per round, decryption starts from the fully
// advanced key (see DecryptionKey128) and walks the schedule backwards.
package aes

import (
	"crypto/cipher"
	"strconv"

	"github.com/robotalks/lillib.go/pkg/gf256"
)

// Sizes in bytes.
const (
	BlockSize  = 16
	Key128Size = 16
	Key256Size = 32
)

// KeySizeError reports an unsupported key length.
type KeySizeError int

// Error implements error.
func (k KeySizeError) Error() string {
	return "aes: invalid key size " + strconv.Itoa(int(k))
}

// Cipher runs the block transforms with a chosen S-box strategy.
// It holds no key material and is safe for concurrent use.
type Cipher struct {
	SBox SBox
}

// New creates a Cipher using the S-box strategy sb.
func New(sb SBox) *Cipher {
	return &Cipher{SBox: sb}
}

// Default uses the table S-box.
var Default = New(Tables)

// Encrypt128 encrypts block in place with a 128-bit key.
func (c *Cipher) Encrypt128(key *[Key128Size]byte, block *[BlockSize]byte) {
	k := *key
	rcon := rconFirst
	for r := 0; r < steps128; r++ {
		if r > 0 {
			mixColumns(block)
		}
		addRoundKey(block, k[:])
		subBytes(c.SBox, block)
		shiftRows(block)
		nextKey128(c.SBox, &k, rcon)
		rcon = gf256.Mul2(rcon)
	}
	addRoundKey(block, k[:])
}

// DecryptionKey128 advances key through the complete forward schedule,
// producing the key Decrypt128 starts from.
func (c *Cipher) DecryptionKey128(key *[Key128Size]byte) (dec [Key128Size]byte) {
	dec = *key
	rcon := rconFirst
	for i := 0; i < steps128; i++ {
		nextKey128(c.SBox, &dec, rcon)
		rcon = gf256.Mul2(rcon)
	}
	return
}

// Decrypt128 decrypts block in place with a key from DecryptionKey128.
func (c *Cipher) Decrypt128(deckey *[Key128Size]byte, block *[BlockSize]byte) {
	k := *deckey
	rcon := rconDecrypt128
	addRoundKey(block, k[:])
	for r := 0; r < steps128; r++ {
		if r > 0 {
			invMixColumns(block)
		}
		invShiftRows(block)
		invSubBytes(c.SBox, block)
		rcon = gf256.Div2(rcon)
		prevKey128(c.SBox, &k, rcon)
		addRoundKey(block, k[:])
	}
}

// Encrypt256 encrypts block in place with a 256-bit key.
// The 14 rounds run as 7 double rounds, one schedule step each.
func (c *Cipher) Encrypt256(key *[Key256Size]byte, block *[BlockSize]byte) {
	k := *key
	rcon := rconFirst
	for r := 0; r < steps256; r++ {
		if r > 0 {
			mixColumns(block)
		}
		addRoundKey(block, k[:16])
		subBytes(c.SBox, block)
		shiftRows(block)
		mixColumns(block)
		addRoundKey(block, k[16:])
		subBytes(c.SBox, block)
		shiftRows(block)
		nextKey256(c.SBox, &k, rcon)
		rcon = gf256.Mul2(rcon)
	}
	addRoundKey(block, k[:16])
}

// DecryptionKey256 is the 256-bit counterpart of DecryptionKey128.
func (c *Cipher) DecryptionKey256(key *[Key256Size]byte) (dec [Key256Size]byte) {
	dec = *key
	rcon := rconFirst
	for i := 0; i < steps256; i++ {
		nextKey256(c.SBox, &dec, rcon)
		rcon = gf256.Mul2(rcon)
	}
	return
}

// Decrypt256 decrypts block in place with a key from DecryptionKey256.
func (c *Cipher) Decrypt256(deckey *[Key256Size]byte, block *[BlockSize]byte) {
	k := *deckey
	rcon := rconDecrypt256
	addRoundKey(block, k[:16])
	for r := 0; r < steps256; r++ {
		if r > 0 {
			invMixColumns(block)
		}
		invShiftRows(block)
		invSubBytes(c.SBox, block)
		rcon = gf256.Div2(rcon)
		prevKey256(c.SBox, &k, rcon)
		addRoundKey(block, k[16:])
		invMixColumns(block)
		invShiftRows(block)
		invSubBytes(c.SBox, block)
		addRoundKey(block, k[:16])
	}
}

// EncryptBlock encrypts block in place, selecting the variant by key length.
func (c *Cipher) EncryptBlock(key []byte, block *[BlockSize]byte) error {
	switch len(key) {
	case Key128Size:
		c.Encrypt128((*[Key128Size]byte)(key), block)
	case Key256Size:
		c.Encrypt256((*[Key256Size]byte)(key), block)
	default:
		return KeySizeError(len(key))
	}
	return nil
}

// DecryptionKey derives the decryption key for a 16 or 32 byte key.
func (c *Cipher) DecryptionKey(key []byte) ([]byte, error) {
	switch len(key) {
	case Key128Size:
		dec := c.DecryptionKey128((*[Key128Size]byte)(key))
		return dec[:], nil
	case Key256Size:
		dec := c.DecryptionKey256((*[Key256Size]byte)(key))
		return dec[:], nil
	}
	return nil, KeySizeError(len(key))
}

// DecryptBlock decrypts block in place, selecting the variant by the
// length of deckey.
func (c *Cipher) DecryptBlock(deckey []byte, block *[BlockSize]byte) error {
	switch len(deckey) {
	case Key128Size:
		c.Decrypt128((*[Key128Size]byte)(deckey), block)
	case Key256Size:
		c.Decrypt256((*[Key256Size]byte)(deckey), block)
	default:
		return KeySizeError(len(deckey))
	}
	return nil
}

// NewBlock binds key to c as a crypto/cipher.Block.
func (c *Cipher) NewBlock(key []byte) (cipher.Block, error) {
	deckey, err := c.DecryptionKey(key)
	if err != nil {
		return nil, err
	}
	b := &block{c: c, key: make([]byte, len(key)), deckey: deckey}
	copy(b.key, key)
	return b, nil
}

// NewCipher creates a crypto/cipher.Block backed by Default.
func NewCipher(key []byte) (cipher.Block, error) {
	return Default.NewBlock(key)
}

type block struct {
	c      *Cipher
	key    []byte
	deckey []byte
}

func (b *block) BlockSize() int { return BlockSize }

func (b *block) Encrypt(dst, src []byte) {
	buf := loadBlock(src)
	b.c.EncryptBlock(b.key, &buf)
	storeBlock(dst, &buf)
}

func (b *block) Decrypt(dst, src []byte) {
	buf := loadBlock(src)
	b.c.DecryptBlock(b.deckey, &buf)
	storeBlock(dst, &buf)
}

func loadBlock(src []byte) (buf [BlockSize]byte) {
	if len(src) < BlockSize {
		panic("aes: input not full block")
	}
	copy(buf[:], src)
	return
}

func storeBlock(dst []byte, buf *[BlockSize]byte) {
	if len(dst) < BlockSize {
		panic("aes: output not full block")
	}
	copy(dst, buf[:])
}
