package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/lillib.go/pkg/wire"
)

func TestParseAddress(t *testing.T) {
	cases := []struct {
		in   string
		addr byte
		ok   bool
	}{
		{"0x50", 0x50, true},
		{"80", 80, true},
		{"0o177", 0x7f, true},
		{"0x80", 0, false},
		{"-1", 0, false},
		{"bus", 0, false},
	}
	for _, c := range cases {
		addr, err := ParseAddress(c.in)
		if !c.ok {
			require.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		require.Equal(t, c.addr, addr)
	}
}

func TestParseHex(t *testing.T) {
	data, err := ParseHex("0xDEAD", "be:ef")
	require.NoError(t, err)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data)

	data, err = ParseHex()
	require.NoError(t, err)
	require.Empty(t, data)

	_, err = ParseHex("abc")
	require.Error(t, err)
	_, err = ParseHex("zz")
	require.Error(t, err)
}

func TestParseCount(t *testing.T) {
	n, err := ParseCount("16")
	require.NoError(t, err)
	require.Equal(t, 16, n)
	_, err = ParseCount("0")
	require.Error(t, err)
}

func TestFormatReply(t *testing.T) {
	require.Equal(t, "OK", FormatReply(&wire.CommandOK{}))
	require.Equal(t, "0102", FormatReply(&wire.BusReply{Data: []byte{1, 2}}))
	require.Equal(t, "aa ctr=0b", FormatReply(&wire.CipherReply{Data: []byte{0xaa}, Counter: []byte{0x0b}}))
	require.Equal(t, "ff", FormatReply(&wire.CipherReply{Data: []byte{0xff}}))

	require.Equal(t, map[string]string{"result": "ok"}, ReplyFields(&wire.CommandOK{}))
	require.Equal(t, map[string]string{"data": "aa", "counter": "0b"},
		ReplyFields(&wire.CipherReply{Data: []byte{0xaa}, Counter: []byte{0x0b}}))
}
