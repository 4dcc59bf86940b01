// Package bridge exposes a TWI bus and the AES engine to remote callers
// over packet transports.
package bridge

import (
	"context"

	"github.com/robotalks/lillib.go/pkg/wire"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Executor runs commands and returns their replies. Failures reported by
// the server come back as *RemoteError.
type Executor interface {
	Do(ctx context.Context, cmd wire.Message) (wire.Message, error)
}
