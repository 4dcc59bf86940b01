package bridge_test

import (
	"context"
	"encoding/hex"
	"net"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/lillib.go/pkg/aes"
	"github.com/robotalks/lillib.go/pkg/bridge"
	"github.com/robotalks/lillib.go/pkg/bridge/stream"
	"github.com/robotalks/lillib.go/pkg/twi"
	"github.com/robotalks/lillib.go/pkg/twi/sim"
	"github.com/robotalks/lillib.go/pkg/wire"
)

type bridgeTestEnv struct {
	mem    *sim.Memory
	client *bridge.Client
}

func newBridgeTestEnv(t *testing.T, sb aes.SBox) *bridgeTestEnv {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mem := sim.NewMemory(32)
	bus := sim.NewBus().Attach(0x50, mem)
	engine, err := twi.NewConfig().NewEngine(bus)
	require.NoError(t, err)
	bus.Handler = engine.HandleInterrupt
	go bus.Run(ctx)

	serverConn, clientConn := net.Pipe()
	server := bridge.NewServer(engine, aes.New(sb))
	go server.Serve(ctx, stream.New(serverConn))
	client := bridge.NewClient(stream.New(clientConn))
	go client.Run(ctx)
	return &bridgeTestEnv{mem: mem, client: client}
}

func unhex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestBridgeBus(t *testing.T) {
	env := newBridgeTestEnv(t, aes.Tables)
	ctx := context.Background()
	dev := twi.NewDevice(env.client, 0x50)

	require.NoError(t, dev.WriteRegister(ctx, 0x10, []byte{0xde, 0xad, 0xbe, 0xef}))
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, env.mem.Bytes()[0x10:0x14])

	buf := make([]byte, 4)
	require.NoError(t, dev.ReadRegister(ctx, 0x10, buf))
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, buf)
	present, err := dev.Probe(ctx)
	require.NoError(t, err)
	require.True(t, present)
	present, err = twi.NewDevice(env.client, 0x51).Probe(ctx)
	require.NoError(t, err)
	require.False(t, present)
}

func TestBridgeBusErrors(t *testing.T) {
	env := newBridgeTestEnv(t, aes.Tables)
	ctx := context.Background()

	err := env.client.Write(ctx, 0x23, []byte{1})
	require.ErrorIs(t, err, twi.ErrNack)
	var remote *bridge.RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, wire.CodeNack, remote.Code)

	err = env.client.Write(ctx, 0x80, []byte{1})
	require.ErrorIs(t, err, twi.ErrInvalidAddress)
	require.ErrorAs(t, err, &remote)
	require.Equal(t, wire.CodeInvalidAddress, remote.Code)
	require.ErrorIs(t, env.client.Read(ctx, 0x7f+1, make([]byte, 1)), twi.ErrInvalidAddress)
	require.ErrorIs(t, env.client.Read(ctx, 0x50, make([]byte, bridge.MaxTransfer+1)), bridge.ErrInvalidRequest)
	require.ErrorIs(t, env.client.Read(ctx, 0x50, nil), twi.ErrInvalidLength)

	env.mem.SetBusy(1)
	require.ErrorIs(t, env.client.Read(ctx, 0x50, make([]byte, 1)), twi.ErrNack)
}

func TestBridgeCipher(t *testing.T) {
	for _, sb := range []aes.SBox{aes.Tables, aes.Computed} {
		env := newBridgeTestEnv(t, sb)
		ctx := context.Background()
		key := unhex(t, "000102030405060708090a0b0c0d0e0f")

		reply, err := env.client.Cipher(ctx, &wire.CipherRequest{
			Op:   wire.CipherOpEncrypt,
			Key:  key,
			Data: unhex(t, "00112233445566778899aabbccddeeff"),
		})
		require.NoError(t, err)
		require.Equal(t, "69c4e0d86a7b0430d8cdb78070b4c55a", hex.EncodeToString(reply.Data))

		reply, err = env.client.Cipher(ctx, &wire.CipherRequest{Op: wire.CipherOpDecryptionKey, Key: key})
		require.NoError(t, err)
		deckey := reply.Data

		reply, err = env.client.Cipher(ctx, &wire.CipherRequest{
			Op:   wire.CipherOpDecrypt,
			Key:  deckey,
			Data: unhex(t, "69c4e0d86a7b0430d8cdb78070b4c55a"),
		})
		require.NoError(t, err)
		require.Equal(t, "00112233445566778899aabbccddeeff", hex.EncodeToString(reply.Data))
	}
}

func TestBridgeCTR(t *testing.T) {
	env := newBridgeTestEnv(t, aes.Tables)
	ctx := context.Background()
	req := &wire.CipherRequest{
		Op:      wire.CipherOpCTR,
		Key:     unhex(t, "2b7e151628aed2a6abf7158809cf4f3c"),
		Counter: unhex(t, "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff"),
		Data:    unhex(t, "6bc1bee22e409f96e93d7e117393172aae2d8a571e03ac9c9eb76fac45af8e51"),
	}
	reply, err := env.client.Cipher(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "874d6191b620e3261bef6864990db6ce9806f66b7970fdff8617187bb9fffdff", hex.EncodeToString(reply.Data))
	require.Equal(t, "f0f1f2f3f4f5f6f7f8f9fafbfcfdff01", hex.EncodeToString(reply.Counter))

	req.Data = req.Data[:20]
	_, err = env.client.Cipher(ctx, req)
	require.ErrorIs(t, err, bridge.ErrInvalidRequest)

	req.Data, req.Key = req.Data[:16], req.Key[:15]
	_, err = env.client.Cipher(ctx, req)
	require.ErrorIs(t, err, bridge.ErrInvalidRequest)

	_, err = env.client.Cipher(ctx, &wire.CipherRequest{Op: wire.CipherOpNone})
	require.ErrorIs(t, err, bridge.ErrInvalidRequest)
}

type unknownCommand struct {
	Value uint32 `protobuf:"varint,1,opt,name=value,proto3" json:"value,omitempty"`
}

func (m *unknownCommand) NewMessage() wire.Message { return &unknownCommand{} }
func (m *unknownCommand) TypeID() uint32 { return 0x007f0001 }
func (m *unknownCommand) ProtoMessage() {}
func (m *unknownCommand) Reset() { *m = unknownCommand{} }
func (m *unknownCommand) String() string { return proto.CompactTextString(m) }

func TestBridgeUnsupported(t *testing.T) {
	env := newBridgeTestEnv(t, aes.Tables)
	_, err := env.client.Do(context.Background(), &unknownCommand{Value: 1})
	require.ErrorIs(t, err, bridge.ErrUnsupported)

	_, err = env.client.Do(context.Background(), &wire.BusReply{})
	require.ErrorIs(t, err, wire.ErrNotCommand)
}

func discard(conn net.Conn, received chan<- struct{}) {
	rw := stream.New(conn)
	for {
		if _, err := rw.ReadPacket(); err != nil {
			return
		}
		received <- struct{}{}
	}
}

func TestClientExpiration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverConn, clientConn := net.Pipe()
	received := make(chan struct{}, 4)
	go discard(serverConn, received)
	client := bridge.NewClient(stream.New(clientConn))
	client.Expiration = 20 * time.Millisecond
	go client.Run(ctx)

	err := client.WriteOne(ctx, 0x50, 1)
	require.ErrorIs(t, err, twi.ErrTimeout)

	callCtx, callCancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer callCancel()
	client.Expiration = time.Minute
	err = client.WriteOne(callCtx, 0x50, 1)
	require.ErrorIs(t, err, twi.ErrTimeout)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientClosed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverConn, clientConn := net.Pipe()
	received := make(chan struct{}, 4)
	go discard(serverConn, received)
	client := bridge.NewClient(stream.New(clientConn))
	client.Expiration = time.Minute
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	result := make(chan error, 1)
	go func() { result <- client.WriteOne(context.Background(), 0x50, 1) }()
	<-received
	cancel()
	require.ErrorIs(t, <-result, bridge.ErrClosed)
	require.ErrorIs(t, <-runErr, context.Canceled)

	_, err := client.Do(context.Background(), &wire.BusRead{Address: 0x50, Length: 1})
	require.ErrorIs(t, err, bridge.ErrClosed)
}

func TestServerDo(t *testing.T) {
	server := bridge.NewServer(twi.NewEngine(sim.NewBus()), nil)
	require.Equal(t, aes.Default, server.Cipher)

	reply, err := server.Do(context.Background(), &wire.CipherRequest{
		Op:  wire.CipherOpDecryptionKey,
		Key: unhex(t, "2b7e151628aed2a6abf7158809cf4f3c"),
	})
	require.NoError(t, err)
	require.Equal(t, "d014f9a8c9ee2589e13f0cc8b6630ca6", hex.EncodeToString(reply.(*wire.CipherReply).Data))

	_, err = server.Do(context.Background(), &wire.BusWrite{Address: 0x80, Data: []byte{1}})
	require.ErrorIs(t, err, twi.ErrInvalidAddress)
	var remote *bridge.RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, wire.CodeInvalidAddress, remote.Code)
	_, err = server.Do(context.Background(), &wire.BusRead{Address: 0x90, Length: 1})
	require.ErrorIs(t, err, twi.ErrInvalidAddress)
	_, err = server.Do(context.Background(), &wire.BusRead{Address: 0x50})
	require.ErrorIs(t, err, twi.ErrInvalidLength)
	_, err = server.Do(context.Background(), &wire.BusReply{})
	require.ErrorIs(t, err, bridge.ErrInvalidRequest)
}
