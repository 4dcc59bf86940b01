// Package wire defines the messages exchanged with a bridge and their
// typed envelope, encoded as protobuf.
package wire

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
	TypeIDMaskReply uint32 = 0x00008000
)

// Message Kinds
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

// Message is a protobuf message with a registered type ID.
type Message interface {
	proto.Message
	TypeID() uint32
	NewMessage() Message
}

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// ErrNotCommand indicates a message is sent as a command but isn't one.
var ErrNotCommand = errors.New("not a command message")

// Typed wraps an encoded message with its type and a sequence number
// correlating commands and replies.
type Typed struct {
	TypeID   uint32 `protobuf:"varint,1,opt,name=type_id,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

// ProtoMessage implements proto.Message.
func (p *Typed) ProtoMessage() {}

// Reset implements proto.Message.
func (p *Typed) Reset() { *p = Typed{} }

// String implements proto.Message.
func (p *Typed) String() string { return proto.CompactTextString(p) }

// TypedFrom encodes msg into a Typed.
func TypedFrom(msg Message, seq uint32) (*Typed, error) {
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Typed{TypeID: msg.TypeID(), Sequence: seq, Message: data}, nil
}

// Decode decodes the envelope content into the registered message type.
func (p *Typed) Decode() (Message, error) {
	msgType, ok := MessageTypes[p.TypeID]
	if !ok {
		return nil, &ErrUnknownType{TypeID: p.TypeID}
	}
	msg := msgType.NewMessage()
	if err := proto.Unmarshal(p.Message, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the Typed to bytes.
func (p *Typed) Encode() ([]byte, error) {
	return proto.Marshal(p)
}

// Kind gets message kind from type ID.
func (p *Typed) Kind() uint32 {
	return p.TypeID & TypeIDMaskKind
}

// IsCommand determines if the message is a command.
func (p *Typed) IsCommand() bool {
	return p.Kind() == TypeIDKindCommand && !p.IsReply()
}

// IsReply determines if the message replies a command.
func (p *Typed) IsReply() bool {
	return p.TypeID&TypeIDMaskReply != 0
}

// DecodeTyped decodes bytes into Typed.
func DecodeTyped(data []byte) (*Typed, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	return &typed, nil
}
