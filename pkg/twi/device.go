package twi

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"
)

// Device addresses one target with register pointer semantics: the first
// byte written selects a register, subsequent bytes are its content.
// Transactions failing with ErrNack are retried, which covers targets
// that ignore their address while busy.
type Device struct {
	Bus           Bus
	Address       byte
	Retries       int
	RetryInterval time.Duration
}

// NewDevice creates a Device without retries.
func NewDevice(bus Bus, addr byte) *Device {
	return &Device{Bus: bus, Address: addr}
}

// WithRetries sets the retry policy.
func (d *Device) WithRetries(n int, interval time.Duration) *Device {
	d.Retries, d.RetryInterval = n, interval
	return d
}

// ReadRegister selects reg and reads len(buf) bytes from it.
func (d *Device) ReadRegister(ctx context.Context, reg byte, buf []byte) error {
	if err := d.retry(ctx, func() error {
		return d.Bus.WriteOne(ctx, d.Address, reg)
	}); err != nil {
		return err
	}
	return d.retry(ctx, func() error {
		return d.Bus.Read(ctx, d.Address, buf)
	})
}

// WriteRegister writes data starting at reg.
func (d *Device) WriteRegister(ctx context.Context, reg byte, data []byte) error {
	pkt := make([]byte, len(data)+1)
	pkt[0] = reg
	copy(pkt[1:], data)
	return d.retry(ctx, func() error {
		return d.Bus.Write(ctx, d.Address, pkt)
	})
}

// Probe reports whether the target acknowledges its address.
func (d *Device) Probe(ctx context.Context) (bool, error) {
	err := d.Bus.Write(ctx, d.Address, nil)
	if errors.Is(err, ErrNack) {
		return false, nil
	}
	return err == nil, err
}

func (d *Device) retry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, ErrNack) || attempt >= d.Retries {
			return err
		}
		glog.V(2).Infof("twi: 0x%02x busy, retry %d: %v", d.Address, attempt+1, err)
		if d.RetryInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.RetryInterval):
			}
		}
	}
}
