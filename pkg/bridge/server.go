package bridge

import (
	"context"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/lillib.go/pkg/aes"
	"github.com/robotalks/lillib.go/pkg/framework"
	"github.com/robotalks/lillib.go/pkg/twi"
	"github.com/robotalks/lillib.go/pkg/wire"
)

// MaxTransfer bounds the length of a single remote bus read.
const MaxTransfer = 256

// Server runs commands received from a transport on a bus and a cipher.
type Server struct {
	Bus    twi.Bus
	Cipher *aes.Cipher
}

// NewServer creates a Server.
func NewServer(bus twi.Bus, c *aes.Cipher) *Server {
	if c == nil {
		c = aes.Default
	}
	return &Server{Bus: bus, Cipher: c}
}

// Serve reads commands from rw and replies until rw fails or ctx is done.
// rw is closed on return if it is an io.Closer.
func (s *Server) Serve(ctx context.Context, rw PacketReadWriter) error {
	if closer, ok := rw.(io.Closer); ok {
		return framework.RunWithContextCloser(ctx, closer, func() error {
			return s.serve(ctx, rw)
		})
	}
	return s.serve(ctx, rw)
}

func (s *Server) serve(ctx context.Context, rw PacketReadWriter) error {
	for {
		pkt, err := rw.ReadPacket()
		if err != nil {
			return err
		}
		typed, err := wire.DecodeTyped(pkt)
		if err != nil {
			glog.Warningf("bridge: drop malformed packet: %v", err)
			continue
		}
		if !typed.IsCommand() {
			glog.V(1).Infof("bridge: ignore non-command %x", typed.TypeID)
			continue
		}
		var reply wire.Message
		if msg, err := typed.Decode(); err != nil {
			reply = wire.NewCommandErr(wire.CodeUnsupported, err)
		} else {
			reply = s.Handle(ctx, msg)
		}
		out, err := wire.TypedFrom(reply, typed.Sequence)
		if err != nil {
			return err
		}
		data, err := out.Encode()
		if err != nil {
			return err
		}
		if err = rw.WritePacket(data); err != nil {
			return err
		}
	}
}

// Handle runs a single command and returns the reply.
func (s *Server) Handle(ctx context.Context, msg wire.Message) wire.Message {
	start := time.Now()
	reply, err := s.handle(ctx, msg)
	if err != nil {
		glog.V(1).Infof("bridge: %T failed in %v: %v", msg, time.Since(start), err)
		return wire.NewCommandErr(errorCode(err), err)
	}
	glog.V(2).Infof("bridge: %T done in %v", msg, time.Since(start))
	return reply
}

// Do runs a command in process. It implements Executor.
func (s *Server) Do(ctx context.Context, cmd wire.Message) (wire.Message, error) {
	reply := s.Handle(ctx, cmd)
	if cmdErr, ok := reply.(*wire.CommandErr); ok {
		return nil, &RemoteError{Code: cmdErr.Code, Message: cmdErr.Message}
	}
	return reply, nil
}

func (s *Server) handle(ctx context.Context, msg wire.Message) (wire.Message, error) {
	switch m := msg.(type) {
	case *wire.BusWrite:
		if m.Address > uint32(twi.MaxAddress) {
			return nil, twi.ErrInvalidAddress
		}
		if err := s.Bus.Write(ctx, byte(m.Address), m.Data); err != nil {
			return nil, err
		}
		return &wire.CommandOK{}, nil
	case *wire.BusRead:
		if m.Address > uint32(twi.MaxAddress) {
			return nil, twi.ErrInvalidAddress
		}
		if m.Length > MaxTransfer {
			return nil, invalidf("read length %d exceeds %d", m.Length, MaxTransfer)
		}
		buf := make([]byte, m.Length)
		if err := s.Bus.Read(ctx, byte(m.Address), buf); err != nil {
			return nil, err
		}
		return &wire.BusReply{Data: buf}, nil
	case *wire.CipherRequest:
		return s.runCipher(m)
	}
	return nil, invalidf("%T is not a command", msg)
}

func (s *Server) runCipher(req *wire.CipherRequest) (*wire.CipherReply, error) {
	switch req.Op {
	case wire.CipherOpEncrypt, wire.CipherOpDecrypt:
		if len(req.Data) != aes.BlockSize {
			return nil, invalidf("data must be one block")
		}
		var blk [aes.BlockSize]byte
		copy(blk[:], req.Data)
		var err error
		if req.Op == wire.CipherOpEncrypt {
			err = s.Cipher.EncryptBlock(req.Key, &blk)
		} else {
			err = s.Cipher.DecryptBlock(req.Key, &blk)
		}
		if err != nil {
			return nil, err
		}
		return &wire.CipherReply{Data: blk[:]}, nil
	case wire.CipherOpDecryptionKey:
		dec, err := s.Cipher.DecryptionKey(req.Key)
		if err != nil {
			return nil, err
		}
		return &wire.CipherReply{Data: dec}, nil
	case wire.CipherOpCTR:
		return s.runCTR(req)
	}
	return nil, invalidf("cipher op %s", req.Op)
}

func (s *Server) runCTR(req *wire.CipherRequest) (*wire.CipherReply, error) {
	if len(req.Counter) != aes.BlockSize {
		return nil, invalidf("counter must be one block")
	}
	if len(req.Data)%aes.BlockSize != 0 {
		return nil, invalidf("data must be whole blocks")
	}
	var mode aes.CounterMode
	if len(req.Key) == aes.Key128Size && s.Cipher.SBox == aes.Tables {
		var key [aes.Key128Size]byte
		copy(key[:], req.Key)
		mode = aes.ExpandKey128(&key)
	} else {
		generic, err := s.Cipher.NewGenericCTR(req.Key)
		if err != nil {
			return nil, err
		}
		mode = generic
	}
	var ctr [aes.BlockSize]byte
	copy(ctr[:], req.Counter)
	data := append([]byte(nil), req.Data...)
	mode.XORBlocks(&ctr, data)
	return &wire.CipherReply{Data: data, Counter: ctr[:]}, nil
}
