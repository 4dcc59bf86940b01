package wire

import "github.com/golang/protobuf/proto"

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupBus     uint32 = 0x00010000
	GroupCipher  uint32 = 0x00020000
)

// TypeIDs
const (
	CommandOKTypeID     uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID    uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	BusWriteTypeID      uint32 = GroupBus | 0x0000
	BusReadTypeID       uint32 = GroupBus | 0x0001
	BusReplyTypeID      uint32 = BusReadTypeID | TypeIDMaskReply
	CipherRequestTypeID uint32 = GroupCipher | 0x0000
	CipherReplyTypeID   uint32 = CipherRequestTypeID | TypeIDMaskReply
)

// MessageTypes maps type IDs to message prototypes.
var MessageTypes = map[uint32]Message{
	CommandOKTypeID:     (*CommandOK)(nil),
	CommandErrTypeID:    (*CommandErr)(nil),
	BusWriteTypeID:      (*BusWrite)(nil),
	BusReadTypeID:       (*BusRead)(nil),
	BusReplyTypeID:      (*BusReply)(nil),
	CipherRequestTypeID: (*CipherRequest)(nil),
	CipherReplyTypeID:   (*CipherReply)(nil),
}

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() Message { return &CommandOK{} }

// TypeID implements Message.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// Error codes carried by CommandErr.
const (
	CodeUnknown uint32 = iota
	CodeNack
	CodeBusState
	CodeTimeout
	CodeInvalid
	CodeUnsupported
	CodeInvalidAddress
	CodeInvalidLength
)

// CommandErr is the generic reply representing a failed command.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
	Code    uint32 `protobuf:"varint,2,opt,name=code,proto3" json:"code,omitempty"`
}

// NewCommandErr creates a CommandErr.
func NewCommandErr(code uint32, err error) *CommandErr {
	return &CommandErr{Message: err.Error(), Code: code}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() Message { return &CommandErr{} }

// TypeID implements Message.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// BusWrite writes Data to the 7-bit Address.
type BusWrite struct {
	Address uint32 `protobuf:"varint,1,opt,name=address,proto3" json:"address,omitempty"`
	Data    []byte `protobuf:"bytes,2,opt,name=data,proto3" json:"data,omitempty"`
}

// NewMessage implements Message.
func (m *BusWrite) NewMessage() Message { return &BusWrite{} }

// TypeID implements Message.
func (m *BusWrite) TypeID() uint32 { return BusWriteTypeID }

// ProtoMessage implements proto.Message.
func (m *BusWrite) ProtoMessage() {}

// Reset implements proto.Message.
func (m *BusWrite) Reset() { *m = BusWrite{} }

// String implements proto.Message.
func (m *BusWrite) String() string { return proto.CompactTextString(m) }

// BusRead reads Length bytes from the 7-bit Address.
type BusRead struct {
	Address uint32 `protobuf:"varint,1,opt,name=address,proto3" json:"address,omitempty"`
	Length  uint32 `protobuf:"varint,2,opt,name=length,proto3" json:"length,omitempty"`
}

// NewMessage implements Message.
func (m *BusRead) NewMessage() Message { return &BusRead{} }

// TypeID implements Message.
func (m *BusRead) TypeID() uint32 { return BusReadTypeID }

// ProtoMessage implements proto.Message.
func (m *BusRead) ProtoMessage() {}

// Reset implements proto.Message.
func (m *BusRead) Reset() { *m = BusRead{} }

// String implements proto.Message.
func (m *BusRead) String() string { return proto.CompactTextString(m) }

// BusReply carries data read by BusRead.
type BusReply struct {
	Data []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
}

// NewMessage implements Message.
func (m *BusReply) NewMessage() Message { return &BusReply{} }

// TypeID implements Message.
func (m *BusReply) TypeID() uint32 { return BusReplyTypeID }

// ProtoMessage implements proto.Message.
func (m *BusReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *BusReply) Reset() { *m = BusReply{} }

// String implements proto.Message.
func (m *BusReply) String() string { return proto.CompactTextString(m) }

// CipherOp selects the operation of a CipherRequest.
type CipherOp int32

// Cipher operations.
const (
	CipherOpNone CipherOp = iota
	CipherOpEncrypt
	CipherOpDecrypt
	CipherOpDecryptionKey
	CipherOpCTR
)

var cipherOpNames = map[CipherOp]string{
	CipherOpNone:          "none",
	CipherOpEncrypt:       "encrypt",
	CipherOpDecrypt:       "decrypt",
	CipherOpDecryptionKey: "deckey",
	CipherOpCTR:           "ctr",
}

// String implements fmt.Stringer.
func (op CipherOp) String() string {
	if name, ok := cipherOpNames[op]; ok {
		return name
	}
	return "unknown"
}

// CipherRequest runs an AES operation. Encrypt and Decrypt take one
// block in Data; Decrypt expects Key to be a decryption key. CTR
// processes whole blocks with Counter and replies the advanced counter.
type CipherRequest struct {
	Op      CipherOp `protobuf:"varint,1,opt,name=op,proto3" json:"op,omitempty"`
	Key     []byte   `protobuf:"bytes,2,opt,name=key,proto3" json:"key,omitempty"`
	Counter []byte   `protobuf:"bytes,3,opt,name=counter,proto3" json:"counter,omitempty"`
	Data    []byte   `protobuf:"bytes,4,opt,name=data,proto3" json:"data,omitempty"`
}

// NewMessage implements Message.
func (m *CipherRequest) NewMessage() Message { return &CipherRequest{} }

// TypeID implements Message.
func (m *CipherRequest) TypeID() uint32 { return CipherRequestTypeID }

// ProtoMessage implements proto.Message.
func (m *CipherRequest) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CipherRequest) Reset() { *m = CipherRequest{} }

// String implements proto.Message.
func (m *CipherRequest) String() string { return proto.CompactTextString(m) }

// CipherReply carries the result of a CipherRequest.
type CipherReply struct {
	Data    []byte `protobuf:"bytes,1,opt,name=data,proto3" json:"data,omitempty"`
	Counter []byte `protobuf:"bytes,2,opt,name=counter,proto3" json:"counter,omitempty"`
}

// NewMessage implements Message.
func (m *CipherReply) NewMessage() Message { return &CipherReply{} }

// TypeID implements Message.
func (m *CipherReply) TypeID() uint32 { return CipherReplyTypeID }

// ProtoMessage implements proto.Message.
func (m *CipherReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CipherReply) Reset() { *m = CipherReply{} }

// String implements proto.Message.
func (m *CipherReply) String() string { return proto.CompactTextString(m) }
