// Package sim simulates a TWI peripheral with attached targets.
//
// Bus implements twi.Peripheral. Register writes schedule bus activity
// which Run performs on its own goroutine, invoking the interrupt handler
// there the way hardware would.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/lillib.go/pkg/twi"
)

// EventKind classifies a traced bus condition.
type EventKind int

// Event kinds.
const (
	EventStart EventKind = iota
	EventAddress
	EventWrite
	EventRead
	EventStop
)

// Event is a traced bus condition.
type Event struct {
	Kind EventKind
	Byte byte
	Ack  bool
}

// String implements fmt.Stringer.
func (e Event) String() string {
	ack := "-"
	if e.Ack {
		ack = "+"
	}
	switch e.Kind {
	case EventStart:
		return "S"
	case EventAddress:
		return fmt.Sprintf("A%02x%s", e.Byte, ack)
	case EventWrite:
		return fmt.Sprintf("W%02x%s", e.Byte, ack)
	case EventRead:
		return fmt.Sprintf("R%02x%s", e.Byte, ack)
	case EventStop:
		return "P"
	}
	return "?"
}

type phase int

const (
	phaseIdle phase = iota
	phaseStarted
	phaseWrite
	phaseRead
	phaseRejected
)

type action int

const (
	actionNone action = iota
	actionStart
	actionNext
	actionStop
)

// Bus is a simulated TWI controller and the bus it masters.
type Bus struct {
	// Handler is the interrupt handler, usually Engine.HandleInterrupt.
	Handler func()

	// StopDelay is how long a STOP takes to complete.
	StopDelay time.Duration

	lock        sync.Mutex
	targets     map[byte]Target
	status      byte
	data        byte
	control     byte
	divisor     byte
	ownAddress  byte
	dataWritten bool
	stall       bool
	phase       phase
	active      Target
	pending     action
	trace       []Event
	wakeCh      chan struct{}
}

// NewBus creates an idle Bus.
func NewBus() *Bus {
	return &Bus{
		targets: make(map[byte]Target),
		status:  0xf8,
		wakeCh:  make(chan struct{}, 1),
	}
}

// Attach connects a target at a 7-bit address.
func (b *Bus) Attach(addr byte, t Target) *Bus {
	b.lock.Lock()
	b.targets[addr] = t
	b.lock.Unlock()
	return b
}

// Detach disconnects the target at addr.
func (b *Bus) Detach(addr byte) {
	b.lock.Lock()
	delete(b.targets, addr)
	b.lock.Unlock()
}

// Stall makes the bus ignore START requests, so no interrupt ever fires.
func (b *Bus) Stall(en bool) {
	b.lock.Lock()
	b.stall = en
	b.lock.Unlock()
}

// Trace returns and clears the recorded bus conditions.
func (b *Bus) Trace() []Event {
	b.lock.Lock()
	defer b.lock.Unlock()
	trace := b.trace
	b.trace = nil
	return trace
}

// Status implements twi.Peripheral.
func (b *Bus) Status() byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.status
}

// Data implements twi.Peripheral.
func (b *Bus) Data() byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.data
}

// SetData implements twi.Peripheral.
func (b *Bus) SetData(v byte) {
	b.lock.Lock()
	b.data, b.dataWritten = v, true
	b.lock.Unlock()
}

// Control implements twi.Peripheral.
func (b *Bus) Control() byte {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.control
}

// SetControl implements twi.Peripheral.
func (b *Bus) SetControl(cr byte) {
	b.lock.Lock()
	b.control = cr &^ twi.ControlInt
	act := actionNone
	switch {
	case cr&twi.ControlEnable == 0:
	case cr&twi.ControlStop != 0:
		act = actionStop
	case cr&twi.ControlStart != 0:
		act = actionStart
	case cr&twi.ControlInt != 0:
		act = actionNext
	}
	if act != actionNone {
		b.pending = act
	}
	b.lock.Unlock()
	if act != actionNone {
		select {
		case b.wakeCh <- struct{}{}:
		default:
		}
	}
}

// SetBitRate implements twi.Peripheral.
func (b *Bus) SetBitRate(divisor, prescaler byte) {
	b.lock.Lock()
	b.divisor = divisor
	b.status = b.status&twi.StatusMask | prescaler&3
	b.lock.Unlock()
}

// SetOwnAddress implements twi.Peripheral.
func (b *Bus) SetOwnAddress(addr byte) {
	b.lock.Lock()
	b.ownAddress = addr
	b.lock.Unlock()
}

// BitRate returns the programmed divisor and prescaler select bits.
func (b *Bus) BitRate() (divisor, prescaler byte) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.divisor, b.status &^ twi.StatusMask
}

// Run performs scheduled bus activity until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.wakeCh:
			for b.step() {
			}
		}
	}
}

// step performs one pending action and reports whether another may be
// pending.
func (b *Bus) step() bool {
	b.lock.Lock()
	act := b.pending
	b.pending = actionNone
	switch act {
	case actionNone:
		b.lock.Unlock()
		return false
	case actionStop:
		b.lock.Unlock()
		if b.StopDelay > 0 {
			time.Sleep(b.StopDelay)
		}
		b.lock.Lock()
		b.release()
		b.control &^= twi.ControlStop
		b.lock.Unlock()
		return true
	case actionStart:
		if b.stall {
			b.lock.Unlock()
			return true
		}
		b.release()
		b.trace = append(b.trace, Event{Kind: EventStart})
		b.phase = phaseStarted
		b.interrupt(twi.StatusStart)
		return true
	}

	switch b.phase {
	case phaseStarted:
		sla := b.data
		read := sla&1 != 0
		t := b.targets[sla>>1]
		ack := t != nil && t.Start(read)
		b.trace = append(b.trace, Event{Kind: EventAddress, Byte: sla, Ack: ack})
		switch {
		case ack && read:
			b.active, b.phase = t, phaseRead
			b.interrupt(twi.StatusAddrReadAck)
		case ack:
			b.active, b.phase = t, phaseWrite
			b.interrupt(twi.StatusAddrWriteAck)
		case read:
			b.phase = phaseRejected
			b.interrupt(twi.StatusAddrReadNack)
		default:
			b.phase = phaseRejected
			b.interrupt(twi.StatusAddrWriteNack)
		}
	case phaseWrite:
		if !b.dataWritten {
			b.lock.Unlock()
			return true
		}
		v := b.data
		ack := b.active.Write(v)
		b.trace = append(b.trace, Event{Kind: EventWrite, Byte: v, Ack: ack})
		if ack {
			b.interrupt(twi.StatusDataSentAck)
		} else {
			b.interrupt(twi.StatusDataSentNack)
		}
	case phaseRead:
		ack := b.control&twi.ControlAck != 0
		v := b.active.Read(ack)
		b.data = v
		b.trace = append(b.trace, Event{Kind: EventRead, Byte: v, Ack: ack})
		if ack {
			b.interrupt(twi.StatusDataRecvAck)
		} else {
			b.interrupt(twi.StatusDataRecvNack)
		}
	case phaseRejected:
		// a rejected address releases the bus without an explicit STOP.
		b.release()
		b.lock.Unlock()
	default:
		b.lock.Unlock()
	}
	return true
}

// release ends the transaction; lock must be held.
func (b *Bus) release() {
	if b.phase == phaseIdle {
		return
	}
	if b.active != nil {
		b.active.Stop()
		b.active = nil
	}
	b.phase = phaseIdle
	b.trace = append(b.trace, Event{Kind: EventStop})
}

// interrupt latches status, unlocks and calls the handler; lock must be held.
func (b *Bus) interrupt(status byte) {
	b.status = status | b.status&^twi.StatusMask
	b.dataWritten = false
	enabled := b.control&twi.ControlIntEnable != 0
	handler := b.Handler
	b.lock.Unlock()
	if !enabled || handler == nil {
		glog.V(3).Infof("sim: interrupt 0x%02x masked", status)
		return
	}
	handler()
}
