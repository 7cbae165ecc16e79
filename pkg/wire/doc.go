// Package wire implements the ASCII command protocol received over the
// serial link.
//
// Commands are terminator-delimited text frames of the form
//
//	-prints:AA<PP><DD><FFFF>;
//
// where PP is the 2-digit port, DD the duty in percent and FFFF the
// frequency. Any bytes before the prefix are ignored. The link carries no
// checksum; malformed frames are rejected by Parse and never retried.
package wire
