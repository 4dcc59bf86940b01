package bridge

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/lillib.go/pkg/framework"
	"github.com/robotalks/lillib.go/pkg/twi"
	"github.com/robotalks/lillib.go/pkg/wire"
)

// DefaultExpiration is the default time to wait for a reply.
const DefaultExpiration = time.Second

// Client sends commands to a Server and correlates replies by sequence
// number. It implements twi.Bus.
type Client struct {
	Expiration time.Duration

	rw      PacketReadWriter
	lock    sync.Mutex
	seq     uint32
	pending map[uint32]chan wire.Message
	closed  bool
}

var (
	_ twi.Bus  = (*Client)(nil)
	_ Executor = (*Client)(nil)
	_ Executor = (*Server)(nil)
)

// NewClient creates a Client on rw. Run must be started to receive replies.
func NewClient(rw PacketReadWriter) *Client {
	return &Client{
		Expiration: DefaultExpiration,
		rw:         rw,
		pending:    make(map[uint32]chan wire.Message),
	}
}

// Run receives replies until rw fails or ctx is done. Outstanding
// commands fail with ErrClosed afterwards.
func (c *Client) Run(ctx context.Context) error {
	defer c.shutdown()
	if closer, ok := c.rw.(io.Closer); ok {
		return framework.RunWithContextCloser(ctx, closer, c.receive)
	}
	return c.receive()
}

func (c *Client) receive() error {
	for {
		pkt, err := c.rw.ReadPacket()
		if err != nil {
			return err
		}
		typed, err := wire.DecodeTyped(pkt)
		if err != nil {
			glog.Warningf("bridge: drop malformed reply: %v", err)
			continue
		}
		if !typed.IsReply() {
			continue
		}
		msg, err := typed.Decode()
		if err != nil {
			msg = wire.NewCommandErr(wire.CodeUnknown, err)
		}
		c.deliver(typed.Sequence, msg)
	}
}

func (c *Client) deliver(seq uint32, msg wire.Message) {
	c.lock.Lock()
	ch := c.pending[seq]
	delete(c.pending, seq)
	c.lock.Unlock()
	if ch == nil {
		glog.V(1).Infof("bridge: reply seq=%d expired", seq)
		return
	}
	ch <- msg
}

func (c *Client) shutdown() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.closed = true
	for seq, ch := range c.pending {
		close(ch)
		delete(c.pending, seq)
	}
}

func (c *Client) register() (uint32, chan wire.Message, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return 0, nil, ErrClosed
	}
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	ch := make(chan wire.Message, 1)
	c.pending[c.seq] = ch
	return c.seq, ch, nil
}

func (c *Client) forget(seq uint32) {
	c.lock.Lock()
	delete(c.pending, seq)
	c.lock.Unlock()
}

// Do sends a command and waits for its reply. A CommandErr reply is
// returned as *RemoteError. No reply within Expiration fails with
// twi.ErrTimeout.
func (c *Client) Do(ctx context.Context, cmd wire.Message) (wire.Message, error) {
	seq, ch, err := c.register()
	if err != nil {
		return nil, err
	}
	typed, err := wire.TypedFrom(cmd, seq)
	if err == nil && !typed.IsCommand() {
		err = wire.ErrNotCommand
	}
	var pkt []byte
	if err == nil {
		pkt, err = typed.Encode()
	}
	if err == nil {
		err = c.rw.WritePacket(pkt)
	}
	if err != nil {
		c.forget(seq)
		return nil, err
	}

	expiration := c.Expiration
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	timer := time.NewTimer(expiration)
	defer timer.Stop()
	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, ErrClosed
		}
		if cmdErr, isErr := reply.(*wire.CommandErr); isErr {
			return nil, &RemoteError{Code: cmdErr.Code, Message: cmdErr.Message}
		}
		return reply, nil
	case <-timer.C:
		c.forget(seq)
		return nil, fmt.Errorf("%w: no reply for seq=%d in %v", twi.ErrTimeout, seq, expiration)
	case <-ctx.Done():
		c.forget(seq)
		return nil, fmt.Errorf("%w: seq=%d: %w", twi.ErrTimeout, seq, ctx.Err())
	}
}

// Write implements twi.Bus.
func (c *Client) Write(ctx context.Context, addr byte, data []byte) error {
	reply, err := c.Do(ctx, &wire.BusWrite{Address: uint32(addr), Data: data})
	if err != nil {
		return err
	}
	if _, ok := reply.(*wire.CommandOK); !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}
	return nil
}

// WriteOne implements twi.Bus.
func (c *Client) WriteOne(ctx context.Context, addr byte, b byte) error {
	return c.Write(ctx, addr, []byte{b})
}

// Read implements twi.Bus.
func (c *Client) Read(ctx context.Context, addr byte, buf []byte) error {
	if len(buf) == 0 {
		return twi.ErrInvalidLength
	}
	reply, err := c.Do(ctx, &wire.BusRead{Address: uint32(addr), Length: uint32(len(buf))})
	if err != nil {
		return err
	}
	data, ok := reply.(*wire.BusReply)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}
	if len(data.Data) != len(buf) {
		return fmt.Errorf("%w: read %d bytes, expect %d", ErrUnexpectedReply, len(data.Data), len(buf))
	}
	copy(buf, data.Data)
	return nil
}

// Cipher runs an AES operation remotely.
func (c *Client) Cipher(ctx context.Context, req *wire.CipherRequest) (*wire.CipherReply, error) {
	reply, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	out, ok := reply.(*wire.CipherReply)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedReply, reply)
	}
	return out, nil
}
