package mqtt

import (
	"io"
	"sync"
)

// Topic suffixes under the bridge ID.
const (
	TopicCommand = "/cmd"
	TopicReply   = "/reply"
)

// ReadWriter implements PacketReadWriter on a pair of topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 16),
		done:     make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForServer subscribes id/cmd and publishes id/reply.
func (p *ReadWriter) ForServer(id string) *ReadWriter {
	return p.WithTopics(id+TopicCommand, id+TopicReply)
}

// ForClient subscribes id/reply and publishes id/cmd.
func (p *ReadWriter) ForClient(id string) *ReadWriter {
	return p.WithTopics(id+TopicReply, id+TopicCommand)
}

// Subscribe starts receiving packets.
func (p *ReadWriter) Subscribe() error {
	token := p.Queue.Sub(p.SubTopic, p.handleMsg)
	token.Wait()
	return token.Error()
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Close stops receiving and unblocks readers.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.Queue.Unsub(p.SubTopic)
	})
	return nil
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	}
}
