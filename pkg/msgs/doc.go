// Package msgs defines the PWM command carried on the bus and the
// telemetry schemas derived from it.
//
// PWMControl is produced by the serial command parser and consumed by the
// actuation driver and the telemetry forwarder. Telemetry messages are
// protobuf-encoded and wrapped in a Typed envelope for the wire.
package msgs
