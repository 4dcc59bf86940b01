package sh

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/robotalks/lillib.go/pkg/twi"
	"github.com/robotalks/lillib.go/pkg/wire"
)

// ParseAddress parses a 7-bit bus address in any Go integer syntax.
func ParseAddress(s string) (byte, error) {
	val, err := strconv.ParseUint(s, 0, 8)
	if err != nil || val > uint64(twi.MaxAddress) {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return byte(val), nil
}

// ParseCount parses a positive byte count.
func ParseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return n, nil
}

// ParseHex decodes hex arguments which may be split into several words
// and prefixed by 0x, e.g. "0xdead beef".
func ParseHex(args ...string) ([]byte, error) {
	var w strings.Builder
	for _, arg := range args {
		arg = strings.TrimPrefix(strings.ToLower(arg), "0x")
		w.WriteString(strings.ReplaceAll(arg, ":", ""))
	}
	data, err := hex.DecodeString(w.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

// ReplyFields converts a reply into a JSON friendly value.
func ReplyFields(reply wire.Message) map[string]string {
	fields := make(map[string]string)
	switch r := reply.(type) {
	case *wire.CommandOK:
		fields["result"] = "ok"
	case *wire.BusReply:
		fields["data"] = hex.EncodeToString(r.Data)
	case *wire.CipherReply:
		fields["data"] = hex.EncodeToString(r.Data)
		if len(r.Counter) > 0 {
			fields["counter"] = hex.EncodeToString(r.Counter)
		}
	default:
		fields["message"] = reply.String()
	}
	return fields
}

// FormatReply converts a reply into a line of text.
func FormatReply(reply wire.Message) string {
	switch r := reply.(type) {
	case *wire.CommandOK:
		return "OK"
	case *wire.BusReply:
		return hex.EncodeToString(r.Data)
	case *wire.CipherReply:
		if len(r.Counter) > 0 {
			return hex.EncodeToString(r.Data) + " ctr=" + hex.EncodeToString(r.Counter)
		}
		return hex.EncodeToString(r.Data)
	}
	return fmt.Sprintf("%T %s", reply, reply.String())
}
