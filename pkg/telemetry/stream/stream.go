// Package stream frames telemetry packets over a byte stream.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// MaxPacketSize bounds the length accepted by ReadPacket.
const MaxPacketSize = 1 << 16

// ReadWriter prefixes each packet with its length as a 4-byte
// little-endian integer.
type ReadWriter struct {
	stream io.ReadWriter
	lock   sync.Mutex
}

// New creates a ReadWriter over s.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{stream: s}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p.stream, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, fmt.Errorf("packet size %d exceeds %d", size, MaxPacketSize)
	}
	pkt := make([]byte, size)
	_, err := io.ReadFull(p.stream, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter. The header and packet are written
// in one call so concurrent writers never interleave.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	buf := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(buf, uint32(len(pkt)))
	copy(buf[4:], pkt)
	p.lock.Lock()
	defer p.lock.Unlock()
	_, err := p.stream.Write(buf)
	return err
}

// Close closes the underlying stream if it is an io.Closer.
func (p *ReadWriter) Close() error {
	if c, ok := p.stream.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
