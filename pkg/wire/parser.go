package wire

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/robotalks/pwmlink/pkg/hrt"
	"github.com/robotalks/pwmlink/pkg/msgs"
)

// Protocol constants.
const (
	CommandPrefix = "-prints:"
	OpSetPWM      = "AA"

	// MaxPayloadLen is the longest payload accepted after the prefix,
	// terminator excluded.
	MaxPayloadLen = 31

	setPWMMinLen = 8
)

var (
	// ErrNotCommand indicates the frame carries no command prefix. Such
	// frames are ordinary traffic and are dropped silently.
	ErrNotCommand = errors.New("not a command")
	// ErrUnknownOrMalformed matches every *ParseError.
	ErrUnknownOrMalformed = errors.New("unknown or malformed command")
)

// ParseError rejects a frame which has the command prefix but can not be
// decoded.
type ParseError struct {
	Reason  string
	Payload string
}

// Error implements error.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", e.Reason, e.Payload)
}

// Is makes errors.Is(err, ErrUnknownOrMalformed) hold.
func (e *ParseError) Is(target error) bool {
	return target == ErrUnknownOrMalformed
}

// Parser decodes frames into commands.
type Parser struct {
	// Terminator is stripped from the end of the payload.
	Terminator byte
	// Clock stamps decoded commands, hrt.AbsoluteTime when nil.
	Clock func() uint64
}

// DefaultParser uses DefaultTerminator and the hrt clock.
var DefaultParser = Parser{Terminator: DefaultTerminator}

// Parse decodes a frame with DefaultParser.
func Parse(frame []byte) (msgs.PWMControl, error) {
	return DefaultParser.Parse(frame)
}

// Parse decodes a frame. Field values are not range checked; that is left
// to the consumers of the command.
func (p Parser) Parse(frame []byte) (cmd msgs.PWMControl, err error) {
	pos := bytes.Index(frame, []byte(CommandPrefix))
	if pos < 0 {
		return cmd, ErrNotCommand
	}
	payload := frame[pos+len(CommandPrefix):]
	if l := len(payload); l > 0 && payload[l-1] == p.Terminator {
		payload = payload[:l-1]
	}
	switch {
	case len(payload) == 0:
		return cmd, &ParseError{Reason: "empty payload"}
	case len(payload) > MaxPayloadLen:
		return cmd, &ParseError{Reason: "payload too long", Payload: string(payload[:MaxPayloadLen])}
	}

	if !bytes.HasPrefix(payload, []byte(OpSetPWM)) {
		return cmd, &ParseError{Reason: "unknown command", Payload: string(payload)}
	}
	if len(payload) < setPWMMinLen {
		return cmd, &ParseError{Reason: "short " + OpSetPWM + " payload", Payload: string(payload)}
	}

	cmd.Timestamp = p.now()
	cmd.Port = int32(decimalField(payload, 2, 4))
	cmd.Duty = float32(decimalField(payload, 4, 6)) / 100
	cmd.Frequency = int32(decimalField(payload, 6, 10))
	return cmd, nil
}

func (p Parser) now() uint64 {
	if p.Clock != nil {
		return p.Clock()
	}
	return hrt.AbsoluteTime()
}

// decimalField decodes payload[from:to] truncated to the payload length,
// the way C atoi does: leading blanks and an optional sign are skipped,
// then leading digits are read. A field without digits decodes as 0.
func decimalField(payload []byte, from, to int) int {
	if from >= len(payload) {
		return 0
	}
	if to > len(payload) {
		to = len(payload)
	}
	field := payload[from:to]
	pos := 0
	for pos < len(field) && isSpace(field[pos]) {
		pos++
	}
	neg := false
	if pos < len(field) && (field[pos] == '+' || field[pos] == '-') {
		neg = field[pos] == '-'
		pos++
	}
	n := 0
	for ; pos < len(field) && field[pos] >= '0' && field[pos] <= '9'; pos++ {
		n = n*10 + int(field[pos]-'0')
	}
	if neg {
		return -n
	}
	return n
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Encode renders a command as a complete frame. Port and duty are clamped
// to what two digits can carry and frequency is reduced modulo 10000.
func Encode(cmd msgs.PWMControl) []byte {
	port := clampInt(int(cmd.Port), 0, 99)
	duty := 0
	if d := float64(cmd.Duty); !math.IsNaN(d) {
		duty = clampInt(int(math.Round(d*100)), 0, 99)
	}
	freq := int(cmd.Frequency) % 10000
	if freq < 0 {
		freq = 0
	}
	return []byte(fmt.Sprintf("%s%s%02d%02d%04d%c", CommandPrefix, OpSetPWM, port, duty, freq, DefaultTerminator))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
