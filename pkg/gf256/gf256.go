// Package gf256 implements arithmetic in GF(2^8) modulo the AES polynomial
// x^8 + x^4 + x^3 + x + 1.
package gf256

// Poly is the reduction constant applied when the high bit shifts out.
const Poly byte = 0x1b

// Mul2 multiplies x by 2 (xtime).
func Mul2(x byte) byte {
	if x&0x80 != 0 {
		return x<<1 ^ Poly
	}
	return x << 1
}

// Div2 divides x by 2, the inverse of Mul2.
func Div2(x byte) byte {
	if x&1 != 0 {
		return x>>1 ^ 0x8d
	}
	return x >> 1
}

// Mul multiplies a by b.
func Mul(a, b byte) (p byte) {
	for b != 0 {
		if b&1 != 0 {
			p ^= a
		}
		a = Mul2(a)
		b >>= 1
	}
	return
}

// Alog returns 3^n, the antilogarithm with generator 3.
func Alog(n byte) byte {
	v := byte(1)
	for ; n > 0; n-- {
		v ^= Mul2(v)
	}
	return v
}

// Log returns the discrete logarithm base 3 of x.
// Log(0) is undefined and returns 0.
func Log(x byte) byte {
	if x == 0 {
		return 0
	}
	var n byte
	for v := byte(1); v != x; n++ {
		v ^= Mul2(v)
	}
	return n
}

// Inv returns the multiplicative inverse of x, with Inv(0) = 0.
func Inv(x byte) byte {
	if x == 0 {
		return 0
	}
	return Alog(0xff - Log(x))
}
