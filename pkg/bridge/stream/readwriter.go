// Package stream frames packets over byte streams such as TCP
// connections and serial lines.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// MaxPacketSize bounds the length prefix accepted by ReadPacket.
const MaxPacketSize = 1 << 16

// ReadWriter implements PacketReadWriter.
// Each packet is prefixed by 4-byte (little-endian) length.
type ReadWriter struct {
	io.ReadWriter

	writeLock sync.Mutex
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p.ReadWriter, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, fmt.Errorf("packet size %d exceeds %d", size, MaxPacketSize)
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p.ReadWriter, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	_, err := p.ReadWriter.Write(buf)
	return err
}

// Close closes the underlying stream if it is an io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
