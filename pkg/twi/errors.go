package twi

import (
	"errors"
	"fmt"
)

var (
	// ErrNack indicates the target did not acknowledge its address.
	ErrNack = errors.New("twi: address not acknowledged")
	// ErrBusState indicates the peripheral reported a status the
	// transaction cannot continue from, e.g. lost arbitration.
	ErrBusState = errors.New("twi: unexpected bus state")
	// ErrTimeout indicates the transaction or the STOP condition did not
	// complete in time. The transaction is abandoned.
	ErrTimeout = errors.New("twi: timeout")
	// ErrInvalidAddress indicates an address beyond 7 bits.
	ErrInvalidAddress = errors.New("twi: invalid address")
	// ErrInvalidLength indicates an empty read buffer.
	ErrInvalidLength = errors.New("twi: invalid length")
)

// BusError is returned when a transaction fails on the bus.
type BusError struct {
	Address byte
	Read    bool
	Status  byte
}

// Error implements error.
func (e *BusError) Error() string {
	op := "write"
	if e.Read {
		op = "read"
	}
	return fmt.Sprintf("twi: %s 0x%02x failed: %s (0x%02x)", op, e.Address, StatusName(e.Status), e.Status)
}

// Unwrap maps the status to ErrNack or ErrBusState.
func (e *BusError) Unwrap() error {
	if e.Status == StatusAddrWriteNack || e.Status == StatusAddrReadNack {
		return ErrNack
	}
	return ErrBusState
}
