package i2c

import (
	"context"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/lillib.go/pkg/cli/sh"
	"github.com/robotalks/lillib.go/pkg/twi"
	"github.com/robotalks/lillib.go/pkg/wire"
)

// Scan range skips the reserved addresses.
const (
	ScanFirst byte = 0x08
	ScanLast  byte = 0x77
)

// ParseWrite builds BusWrite from ADDR HEX...
func ParseWrite(args []string) (*wire.BusWrite, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("ADDR required")
	}
	addr, err := sh.ParseAddress(args[0])
	if err != nil {
		return nil, err
	}
	data, err := sh.ParseHex(args[1:]...)
	if err != nil {
		return nil, err
	}
	return &wire.BusWrite{Address: uint32(addr), Data: data}, nil
}

// ParseRead builds BusRead from ADDR N.
func ParseRead(args []string) (*wire.BusRead, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("ADDR N required")
	}
	addr, err := sh.ParseAddress(args[0])
	if err != nil {
		return nil, err
	}
	n, err := sh.ParseCount(args[1])
	if err != nil {
		return nil, err
	}
	return &wire.BusRead{Address: uint32(addr), Length: uint32(n)}, nil
}

// ReadRegister runs ADDR REG N.
func ReadRegister(ctx context.Context, bus twi.Bus, args []string) ([]byte, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("ADDR REG N required")
	}
	addr, err := sh.ParseAddress(args[0])
	if err != nil {
		return nil, err
	}
	reg, err := sh.ParseHex(args[1])
	if err != nil || len(reg) != 1 {
		return nil, fmt.Errorf("invalid register %q", args[1])
	}
	n, err := sh.ParseCount(args[2])
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err = twi.NewDevice(bus, addr).ReadRegister(ctx, reg[0], buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan probes the non-reserved addresses and returns the responding ones.
func Scan(ctx context.Context, bus twi.Bus) ([]byte, error) {
	var found []byte
	for addr := ScanFirst; addr <= ScanLast; addr++ {
		present, err := twi.NewDevice(bus, addr).Probe(ctx)
		if err != nil {
			return found, err
		}
		if present {
			found = append(found, addr)
		}
	}
	return found, nil
}

func formatAddrs(addrs []byte) string {
	items := make([]string, len(addrs))
	for n, addr := range addrs {
		items[n] = fmt.Sprintf("0x%02x", addr)
	}
	return strings.Join(items, " ")
}

var (
	// WriteCmd writes bytes to a target.
	WriteCmd = ishell.Cmd{
		Name:    "i2c.write",
		Aliases: []string{"iw"},
		Help:    "ADDR [HEX...]",
		Func: func(c *ishell.Context) {
			msg, err := ParseWrite(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		},
	}

	// ReadCmd reads bytes from a target.
	ReadCmd = ishell.Cmd{
		Name:    "i2c.read",
		Aliases: []string{"ir"},
		Help:    "ADDR N",
		Func: func(c *ishell.Context) {
			msg, err := ParseRead(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommand(c, msg)
		},
	}

	// RegCmd reads registers by writing the register pointer first.
	RegCmd = ishell.Cmd{
		Name:    "i2c.reg",
		Aliases: []string{"ireg"},
		Help:    "ADDR REG N",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			data, err := ReadRegister(ctx, s.Target().Bus, c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			sh.Output(c, &wire.BusReply{Data: data})
		},
	}

	// ScanCmd lists responding addresses.
	ScanCmd = ishell.Cmd{
		Name:    "i2c.scan",
		Aliases: []string{"iscan"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			ctx, cancel := context.WithTimeout(context.Background(), s.Timeout*4)
			defer cancel()
			found, err := Scan(ctx, s.Target().Bus)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				sh.Output(c, &wire.BusReply{Data: found})
				return
			}
			if len(found) == 0 {
				c.Println("No targets found")
				return
			}
			c.Println(formatAddrs(found))
		},
	}
)

func init() {
	sh.AddCmds(
		&WriteCmd,
		&ReadCmd,
		&RegCmd,
		&ScanCmd,
	)
}
