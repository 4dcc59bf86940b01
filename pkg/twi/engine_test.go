package twi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedPeripheral struct {
	lock     sync.Mutex
	status   byte
	data     byte
	control  byte
	divisor  byte
	scaler   byte
	own      byte
	written  []byte
	controls []byte
	startCh  chan struct{}
}

func newScriptedPeripheral() *scriptedPeripheral {
	return &scriptedPeripheral{startCh: make(chan struct{}, 1)}
}

func (p *scriptedPeripheral) Status() byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.status
}

func (p *scriptedPeripheral) Data() byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.data
}

func (p *scriptedPeripheral) SetData(v byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.data = v
	p.written = append(p.written, v)
}

func (p *scriptedPeripheral) Control() byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.control
}

func (p *scriptedPeripheral) SetControl(cr byte) {
	p.lock.Lock()
	p.control = cr &^ ControlInt
	p.controls = append(p.controls, cr)
	p.lock.Unlock()
	if cr&ControlStart != 0 {
		p.startCh <- struct{}{}
	}
}

func (p *scriptedPeripheral) SetBitRate(divisor, prescaler byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.divisor, p.scaler = divisor, prescaler
}

func (p *scriptedPeripheral) SetOwnAddress(addr byte) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.own = addr
}

func (p *scriptedPeripheral) stopDone() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.control &^= ControlStop
}

func (p *scriptedPeripheral) lastControl() byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.controls[len(p.controls)-1]
}

func (p *scriptedPeripheral) dataWrites() []byte {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]byte(nil), p.written...)
}

// step is one scripted interrupt: the bus reports status with an optional
// received byte, and the engine is expected to answer with control.
type step struct {
	status  byte
	recv    byte
	control byte
}

type engineTestEnv struct {
	t      *testing.T
	p      *scriptedPeripheral
	engine *Engine
	errCh  chan error
}

func newEngineTestEnv(t *testing.T) *engineTestEnv {
	p := newScriptedPeripheral()
	conf := NewConfig()
	conf.Timeout = 200 * time.Millisecond
	conf.StopPollInterval = time.Millisecond
	return &engineTestEnv{
		t:      t,
		p:      p,
		engine: &Engine{Peripheral: p, Config: *conf},
		errCh:  make(chan error, 1),
	}
}

func (e *engineTestEnv) start(fn func(context.Context) error) *engineTestEnv {
	go func() {
		e.errCh <- fn(context.Background())
	}()
	select {
	case <-e.p.startCh:
	case <-time.After(time.Second):
		e.t.Fatal("START not issued")
	}
	require.Equal(e.t, ControlInt|ControlStart|ControlEnable|ControlIntEnable, e.p.lastControl())
	return e
}

func (e *engineTestEnv) run(steps ...step) *engineTestEnv {
	for _, s := range steps {
		e.p.lock.Lock()
		// prescaler bits must be ignored.
		e.p.status = s.status | 0x02
		e.p.data = s.recv
		e.p.lock.Unlock()
		e.engine.HandleInterrupt()
		require.Equal(e.t, s.control, e.p.lastControl(), "status 0x%02x", s.status)
	}
	return e
}

func (e *engineTestEnv) result() error {
	e.p.stopDone()
	select {
	case err := <-e.errCh:
		return err
	case <-time.After(time.Second):
		e.t.Fatal("transaction not returned")
	}
	return nil
}

const (
	ctlNext = ControlInt | ControlEnable | ControlIntEnable
	ctlAck  = ctlNext | ControlAck
	ctlStop = ctlNext | ControlStop
)

func TestEngineWrite(t *testing.T) {
	env := newEngineTestEnv(t)
	env.start(func(ctx context.Context) error {
		return env.engine.Write(ctx, 0x50, []byte{0x12, 0x34})
	}).run(
		step{status: StatusStart, control: ctlNext},
		step{status: StatusAddrWriteAck, control: ctlNext},
		step{status: StatusDataSentAck, control: ctlNext},
		step{status: StatusDataSentAck, control: ctlStop},
	)
	require.NoError(t, env.result())
	require.Equal(t, []byte{0xa0, 0x12, 0x34}, env.p.dataWrites())
}

func TestEngineWriteOne(t *testing.T) {
	env := newEngineTestEnv(t)
	env.start(func(ctx context.Context) error {
		return env.engine.WriteOne(ctx, 0x40, 0xf5)
	}).run(
		step{status: StatusStart, control: ctlNext},
		step{status: StatusAddrWriteAck, control: ctlNext},
		step{status: StatusDataSentAck, control: ctlStop},
	)
	require.NoError(t, env.result())
	require.Equal(t, []byte{0x80, 0xf5}, env.p.dataWrites())
}

func TestEngineProbe(t *testing.T) {
	env := newEngineTestEnv(t)
	env.start(func(ctx context.Context) error {
		return env.engine.Write(ctx, 0x64, nil)
	}).run(
		step{status: StatusStart, control: ctlNext},
		step{status: StatusAddrWriteAck, control: ctlStop},
	)
	require.NoError(t, env.result())
	require.Equal(t, []byte{0xc8}, env.p.dataWrites())
}

func TestEngineRead(t *testing.T) {
	testCases := []struct {
		name  string
		steps []step
		data  []byte
	}{
		{
			name: "single",
			steps: []step{
				{status: StatusStart, control: ctlNext},
				{status: StatusAddrReadAck, control: ctlNext},
				{status: StatusDataRecvNack, recv: 0x5a, control: ctlStop},
			},
			data: []byte{0x5a},
		},
		{
			name: "multiple",
			steps: []step{
				{status: StatusStart, control: ctlNext},
				{status: StatusAddrReadAck, control: ctlAck},
				{status: StatusDataRecvAck, recv: 0x01, control: ctlAck},
				{status: StatusDataRecvAck, recv: 0x02, control: ctlNext},
				{status: StatusDataRecvNack, recv: 0x03, control: ctlStop},
			},
			data: []byte{0x01, 0x02, 0x03},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newEngineTestEnv(t)
			buf := make([]byte, len(tc.data))
			env.start(func(ctx context.Context) error {
				return env.engine.Read(ctx, 0x38, buf)
			}).run(tc.steps...)
			require.NoError(t, env.result())
			require.Equal(t, tc.data, buf)
			require.Equal(t, []byte{0x71}, env.p.dataWrites())
		})
	}
}

func TestEngineFailures(t *testing.T) {
	testCases := []struct {
		name   string
		read   bool
		status byte
		target error
	}{
		{"write nack", false, StatusAddrWriteNack, ErrNack},
		{"read nack", true, StatusAddrReadNack, ErrNack},
		{"arbitration lost", false, StatusArbitrationLost, ErrBusState},
		{"repeated start", true, StatusRepeatedStart, ErrBusState},
		{"unknown", false, 0xf8, ErrBusState},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newEngineTestEnv(t)
			buf := []byte{0xee, 0xee}
			env.start(func(ctx context.Context) error {
				if tc.read {
					return env.engine.Read(ctx, 0x50, buf)
				}
				return env.engine.Write(ctx, 0x50, []byte{1, 2})
			}).run(
				step{status: StatusStart, control: ctlNext},
				step{status: tc.status, control: ctlNext},
			)
			err := env.result()
			require.ErrorIs(t, err, tc.target)
			var busErr *BusError
			require.True(t, errors.As(err, &busErr))
			require.Equal(t, byte(0x50), busErr.Address)
			require.Equal(t, tc.read, busErr.Read)
			require.Equal(t, tc.status, busErr.Status)
			// no data phase after the address.
			require.Len(t, env.p.dataWrites(), 1)
			require.Equal(t, []byte{0xee, 0xee}, buf)
		})
	}
}

func TestEngineDataNackCompletes(t *testing.T) {
	env := newEngineTestEnv(t)
	env.start(func(ctx context.Context) error {
		return env.engine.Write(ctx, 0x50, []byte{1, 2, 3})
	}).run(
		step{status: StatusStart, control: ctlNext},
		step{status: StatusAddrWriteAck, control: ctlNext},
		step{status: StatusDataSentNack, control: ctlStop},
	)
	require.NoError(t, env.result())
}

func TestEngineTimeout(t *testing.T) {
	env := newEngineTestEnv(t)
	env.engine.Config.Timeout = 20 * time.Millisecond
	buf := make([]byte, 2)
	env.start(func(ctx context.Context) error {
		return env.engine.Read(ctx, 0x50, buf)
	})
	var err error
	select {
	case err = <-env.errCh:
	case <-time.After(time.Second):
		t.Fatal("timeout not reported")
	}
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, ctlStop, env.p.lastControl())

	// a late interrupt must not touch the abandoned buffer.
	env.p.lock.Lock()
	env.p.status, env.p.data = StatusDataRecvAck, 0x99
	env.p.lock.Unlock()
	env.engine.HandleInterrupt()
	require.Equal(t, ctlStop, env.p.lastControl())
	require.Equal(t, []byte{0, 0}, buf)
}

func TestEngineStopTimeout(t *testing.T) {
	env := newEngineTestEnv(t)
	env.engine.Config.Timeout = 20 * time.Millisecond
	env.start(func(ctx context.Context) error {
		return env.engine.Write(ctx, 0x50, nil)
	}).run(
		step{status: StatusStart, control: ctlNext},
		step{status: StatusAddrWriteAck, control: ctlStop},
	)
	select {
	case err := <-env.errCh:
		require.ErrorIs(t, err, ErrTimeout)
	case <-time.After(time.Second):
		t.Fatal("STOP wait not bounded")
	}
}

func TestEngineCallerCancel(t *testing.T) {
	env := newEngineTestEnv(t)
	env.engine.Config.Timeout = 0
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		env.errCh <- env.engine.Write(ctx, 0x50, []byte{1})
	}()
	<-env.p.startCh
	cancel()
	err := <-env.errCh
	require.ErrorIs(t, err, ErrTimeout)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEngineValidation(t *testing.T) {
	e := NewEngine(newScriptedPeripheral())
	ctx := context.Background()
	require.ErrorIs(t, e.Write(ctx, 0x80, []byte{1}), ErrInvalidAddress)
	require.ErrorIs(t, e.WriteOne(ctx, 0xff, 1), ErrInvalidAddress)
	require.ErrorIs(t, e.Read(ctx, 0x80, make([]byte, 1)), ErrInvalidAddress)
	require.ErrorIs(t, e.Read(ctx, 0x50, nil), ErrInvalidLength)
}

func TestEngineInit(t *testing.T) {
	p := newScriptedPeripheral()
	e, err := NewConfig().NewEngine(p)
	require.NoError(t, err)
	require.Equal(t, byte(72), p.divisor)
	require.Equal(t, byte(0), p.scaler)
	require.Equal(t, DefaultOwnAddress, p.own)
	require.Equal(t, ControlEnable|ControlIntEnable, p.lastControl())

	require.NoError(t, e.Init())
	require.Equal(t, byte(72), p.divisor)

	conf := NewConfig()
	conf.BitRate = 2000000
	_, err = conf.NewEngine(p)
	require.Error(t, err)
}

func TestBitRateDivisor(t *testing.T) {
	testCases := []struct {
		cpu, scl   uint32
		divisor    byte
		prescaler  byte
		shouldFail bool
	}{
		{cpu: 16000000, scl: 100000, divisor: 72, prescaler: 0},
		{cpu: 16000000, scl: 400000, divisor: 12, prescaler: 0},
		{cpu: 16000000, scl: 20000, divisor: 98, prescaler: 1},
		{cpu: 16000000, scl: 1000, divisor: 124, prescaler: 3},
		{cpu: 8000000, scl: 100000, divisor: 32, prescaler: 0},
		{cpu: 1000000, scl: 100000, shouldFail: true},
		{cpu: 16000000, scl: 100, shouldFail: true},
		{cpu: 16000000, scl: 0, shouldFail: true},
	}
	for _, tc := range testCases {
		divisor, prescaler, err := BitRateDivisor(tc.cpu, tc.scl)
		if tc.shouldFail {
			require.Error(t, err, "%d/%d", tc.cpu, tc.scl)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.divisor, divisor, "%d/%d", tc.cpu, tc.scl)
		require.Equal(t, tc.prescaler, prescaler, "%d/%d", tc.cpu, tc.scl)
	}
	require.Equal(t, uint32(100000), BitRate(16000000, 72, 0))
	require.Equal(t, uint32(20000), BitRate(16000000, 98, 1))
}

func TestStatusName(t *testing.T) {
	require.Equal(t, "SLA+W NACK", StatusName(StatusAddrWriteNack))
	require.Equal(t, "unknown", StatusName(0xf8))
	err := &BusError{Address: 0x50, Status: StatusAddrWriteNack}
	require.Equal(t, "twi: write 0x50 failed: SLA+W NACK (0x20)", err.Error())
}
