// Package telemetry mirrors bus commands onto an outbound link.
package telemetry

import "io"

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// Link is an open telemetry transport.
type Link interface {
	PacketWriter
	io.Closer
}
