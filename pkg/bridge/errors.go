package bridge

import (
	"errors"
	"fmt"

	"github.com/robotalks/lillib.go/pkg/aes"
	"github.com/robotalks/lillib.go/pkg/twi"
	"github.com/robotalks/lillib.go/pkg/wire"
)

var (
	// ErrClosed indicates the client stopped before a reply arrived.
	ErrClosed = errors.New("bridge: closed")
	// ErrInvalidRequest indicates a request the server rejected as malformed.
	ErrInvalidRequest = errors.New("bridge: invalid request")
	// ErrUnsupported indicates a command the server does not understand.
	ErrUnsupported = errors.New("bridge: unsupported command")
	// ErrUnexpectedReply indicates a reply of the wrong type.
	ErrUnexpectedReply = errors.New("bridge: unexpected reply")
)

// RemoteError is a failure reported by the server.
type RemoteError struct {
	Code    uint32
	Message string
}

// Error implements error.
func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

// Unwrap maps the code back to the local sentinel errors.
func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case wire.CodeNack:
		return twi.ErrNack
	case wire.CodeBusState:
		return twi.ErrBusState
	case wire.CodeTimeout:
		return twi.ErrTimeout
	case wire.CodeInvalid:
		return ErrInvalidRequest
	case wire.CodeUnsupported:
		return ErrUnsupported
	case wire.CodeInvalidAddress:
		return twi.ErrInvalidAddress
	case wire.CodeInvalidLength:
		return twi.ErrInvalidLength
	}
	return nil
}

func errorCode(err error) uint32 {
	var keyErr aes.KeySizeError
	switch {
	case errors.Is(err, twi.ErrNack):
		return wire.CodeNack
	case errors.Is(err, twi.ErrBusState):
		return wire.CodeBusState
	case errors.Is(err, twi.ErrTimeout):
		return wire.CodeTimeout
	case errors.Is(err, twi.ErrInvalidAddress):
		return wire.CodeInvalidAddress
	case errors.Is(err, twi.ErrInvalidLength):
		return wire.CodeInvalidLength
	case errors.Is(err, ErrInvalidRequest),
		errors.As(err, &keyErr):
		return wire.CodeInvalid
	case errors.Is(err, ErrUnsupported):
		return wire.CodeUnsupported
	}
	return wire.CodeUnknown
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidRequest}, args...)...)
}
