package aes

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/lillib.go/pkg/cli/sh"
	"github.com/robotalks/lillib.go/pkg/wire"
)

// ParseRequest builds a CipherRequest for op from the command arguments:
//
//	encrypt, decrypt: KEY BLOCK
//	deckey:           KEY
//	ctr:              KEY COUNTER DATA...
func ParseRequest(op wire.CipherOp, args []string) (*wire.CipherRequest, error) {
	var need int
	switch op {
	case wire.CipherOpEncrypt, wire.CipherOpDecrypt:
		need = 2
	case wire.CipherOpDecryptionKey:
		need = 1
	case wire.CipherOpCTR:
		need = 3
	default:
		return nil, fmt.Errorf("unknown op %s", op)
	}
	if len(args) < need {
		return nil, fmt.Errorf("%d arguments required", need)
	}
	req := &wire.CipherRequest{Op: op}
	var err error
	if req.Key, err = sh.ParseHex(args[0]); err != nil {
		return nil, err
	}
	switch op {
	case wire.CipherOpEncrypt, wire.CipherOpDecrypt:
		req.Data, err = sh.ParseHex(args[1:]...)
	case wire.CipherOpCTR:
		if req.Counter, err = sh.ParseHex(args[1]); err == nil {
			req.Data, err = sh.ParseHex(args[2:]...)
		}
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func cipherCmd(name, alias, help string, op wire.CipherOp) ishell.Cmd {
	return ishell.Cmd{
		Name:    name,
		Aliases: []string{alias},
		Help:    help,
		Func: func(c *ishell.Context) {
			req, err := ParseRequest(op, c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, req)
		},
	}
}

var (
	// EncryptCmd encrypts one block.
	EncryptCmd = cipherCmd("aes.enc", "ae", "KEY BLOCK", wire.CipherOpEncrypt)
	// DecryptCmd decrypts one block with a decryption key from aes.deckey.
	DecryptCmd = cipherCmd("aes.dec", "ad", "DECKEY BLOCK", wire.CipherOpDecrypt)
	// DecryptionKeyCmd derives the decryption key.
	DecryptionKeyCmd = cipherCmd("aes.deckey", "adk", "KEY", wire.CipherOpDecryptionKey)
	// CTRCmd runs counter mode over whole blocks and prints the next counter.
	CTRCmd = cipherCmd("aes.ctr", "actr", "KEY COUNTER DATA...", wire.CipherOpCTR)
)

func init() {
	sh.AddCmds(
		&EncryptCmd,
		&DecryptCmd,
		&DecryptionKeyCmd,
		&CTRCmd,
	)
}
