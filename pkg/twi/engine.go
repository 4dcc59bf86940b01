package twi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Bus performs master transactions addressed by 7-bit target addresses.
type Bus interface {
	Write(ctx context.Context, addr byte, data []byte) error
	WriteOne(ctx context.Context, addr byte, b byte) error
	Read(ctx context.Context, addr byte, buf []byte) error
}

// Engine drives a Peripheral through interrupt-driven master transactions.
// Callers are serialized: one transaction is in flight at a time and the
// next one starts only after the previous STOP completed.
type Engine struct {
	Peripheral Peripheral
	Config     Config

	lock    sync.Mutex
	txnLock sync.Mutex
	txn     *transaction
}

type transaction struct {
	sla    byte
	data   []byte
	count  int
	done   bool
	result chan error
}

// NewEngine creates an Engine with the default configuration.
func NewEngine(p Peripheral) *Engine {
	return &Engine{Peripheral: p, Config: *Default()}
}

// Init programs bit rate, own address and enables the peripheral with its
// interrupt. Calling it again reprograms the same values.
func (e *Engine) Init() error {
	divisor, prescaler, err := BitRateDivisor(e.Config.CPUFrequency, e.Config.BitRate)
	if err != nil {
		return err
	}
	e.lock.Lock()
	defer e.lock.Unlock()
	e.Peripheral.SetBitRate(divisor, prescaler)
	e.Peripheral.SetOwnAddress(e.Config.OwnAddress)
	e.Peripheral.SetControl(ControlEnable | ControlIntEnable)
	glog.V(2).Infof("twi: init divisor=%d prescaler=%d", divisor, prescaler)
	return nil
}

// Write sends data to addr. Empty data probes the address.
func (e *Engine) Write(ctx context.Context, addr byte, data []byte) error {
	if addr > MaxAddress {
		return ErrInvalidAddress
	}
	return e.transfer(ctx, addr<<1, data)
}

// WriteOne sends a single byte to addr.
func (e *Engine) WriteOne(ctx context.Context, addr byte, b byte) error {
	return e.Write(ctx, addr, []byte{b})
}

// Read fills buf from addr, acknowledging every byte but the last.
func (e *Engine) Read(ctx context.Context, addr byte, buf []byte) error {
	if addr > MaxAddress {
		return ErrInvalidAddress
	}
	if len(buf) == 0 {
		return ErrInvalidLength
	}
	return e.transfer(ctx, addr<<1|1, buf)
}

func (e *Engine) transfer(ctx context.Context, sla byte, buf []byte) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if timeout := e.Config.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	txn := &transaction{
		sla:    sla,
		data:   buf,
		count:  len(buf),
		result: make(chan error, 1),
	}
	e.txnLock.Lock()
	e.txn = txn
	e.txnLock.Unlock()

	glog.V(2).Infof("twi: START sla=0x%02x len=%d", sla, len(buf))
	e.Peripheral.SetControl(ControlInt | ControlStart | ControlEnable | ControlIntEnable)

	var err error
	select {
	case err = <-txn.result:
	case <-ctx.Done():
		e.abandon(txn)
		return fmt.Errorf("%w: sla=0x%02x: %w", ErrTimeout, sla, ctx.Err())
	}
	if werr := e.waitStop(ctx); werr != nil {
		e.abandon(txn)
		return fmt.Errorf("%w: STOP sla=0x%02x: %w", ErrTimeout, sla, werr)
	}
	e.txnLock.Lock()
	e.txn = nil
	e.txnLock.Unlock()
	return err
}

func (e *Engine) waitStop(ctx context.Context) error {
	if e.Peripheral.Control()&ControlStop == 0 {
		return nil
	}
	interval := e.Config.StopPollInterval
	if interval <= 0 {
		interval = DefaultStopPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if e.Peripheral.Control()&ControlStop == 0 {
				return nil
			}
		}
	}
}

// abandon detaches txn so late interrupts can not touch the caller's
// buffer, then asks the peripheral to release the bus.
func (e *Engine) abandon(txn *transaction) {
	e.txnLock.Lock()
	if e.txn == txn {
		e.txn = nil
	}
	e.txnLock.Unlock()
	glog.Warningf("twi: abandon transaction sla=0x%02x", txn.sla)
	e.Peripheral.SetControl(controlResume | ControlStop)
}

// HandleInterrupt advances the current transaction by one bus event.
// It must be called by the platform in interrupt context.
func (e *Engine) HandleInterrupt() {
	e.txnLock.Lock()
	defer e.txnLock.Unlock()

	p := e.Peripheral
	status := p.Status() & StatusMask
	txn := e.txn
	if txn == nil || txn.done {
		glog.V(1).Infof("twi: spurious interrupt status=0x%02x", status)
		p.SetControl(controlResume | ControlStop)
		return
	}

	cr := controlResume
	var result error
	finished := false
	switch status {
	case StatusStart:
		p.SetData(txn.sla)
	case StatusAddrWriteAck, StatusDataSentAck:
		if txn.count > 0 {
			p.SetData(txn.data[0])
			txn.data = txn.data[1:]
			txn.count--
		} else {
			cr |= ControlStop
			finished = true
		}
	case StatusDataRecvAck, StatusAddrReadAck:
		if status == StatusDataRecvAck {
			if !txn.store(p.Data()) {
				result, finished = txn.fail(status), true
				break
			}
		}
		if txn.count--; txn.count > 0 {
			cr |= ControlAck
		}
	case StatusDataRecvNack, StatusDataSentNack:
		if status == StatusDataRecvNack && !txn.store(p.Data()) {
			result, finished = txn.fail(status), true
			break
		}
		cr |= ControlStop
		finished = true
	default:
		result, finished = txn.fail(status), true
	}

	glog.V(3).Infof("twi: irq status=0x%02x control=0x%02x", status, cr)
	p.SetControl(cr)
	if finished {
		txn.done = true
		txn.result <- result
	}
}

// store saves a received byte; false if the peripheral delivered more
// bytes than requested.
func (t *transaction) store(b byte) bool {
	if len(t.data) == 0 {
		return false
	}
	t.data[0] = b
	t.data = t.data[1:]
	return true
}

func (t *transaction) fail(status byte) error {
	return &BusError{Address: t.sla >> 1, Read: t.sla&1 != 0, Status: status}
}
