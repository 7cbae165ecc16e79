package pwm

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/pwmlink/pkg/cli/sh"
	"github.com/robotalks/pwmlink/pkg/msgs"
	"github.com/robotalks/pwmlink/pkg/pwm"
	"github.com/robotalks/pwmlink/pkg/wire"
)

// ParseSet parses PORT DUTY [FREQ]. DUTY is a fraction in [0, 1) or a
// percentage when it ends with %.
func ParseSet(args []string) (cmd msgs.PWMControl, err error) {
	if len(args) < 2 {
		return cmd, fmt.Errorf("PORT and DUTY required")
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 1 || port > 99 {
		return cmd, fmt.Errorf("Invalid PORT: %s", args[0])
	}
	cmd.Port = int32(port)

	duty, pct := args[1], false
	if n := len(duty); n > 0 && duty[n-1] == '%' {
		duty, pct = duty[:n-1], true
	}
	val, err := strconv.ParseFloat(duty, 32)
	if err != nil {
		return cmd, fmt.Errorf("Invalid DUTY: %s", args[1])
	}
	if pct {
		val /= 100
	}
	if val < 0 || val >= 1 {
		return cmd, fmt.Errorf("DUTY out of range: %s", args[1])
	}
	cmd.Duty = float32(val)

	if len(args) > 2 {
		freq, err := strconv.Atoi(args[2])
		if err != nil || freq < 0 || freq > 9999 {
			return cmd, fmt.Errorf("Invalid FREQ: %s", args[2])
		}
		cmd.Frequency = int32(freq)
	}
	return cmd, nil
}

// CenterFrames returns one frame per port setting it to mid travel.
func CenterFrames(ports int) [][]byte {
	frames := make([][]byte, 0, ports)
	for port := 1; port <= ports; port++ {
		frames = append(frames, wire.Encode(msgs.PWMControl{Port: int32(port), Duty: 0.5}))
	}
	return frames
}

var (
	// SetCmd sends a set PWM command.
	SetCmd = ishell.Cmd{
		Name:    "set",
		Aliases: []string{"s"},
		Help:    "PORT DUTY[%] [FREQ]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			cmd, err := ParseSet(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			frame := wire.Encode(cmd)
			if err := sh.ShellFrom(c).Send(frame); err != nil {
				c.Err(err)
				return
			}
			c.Printf("%s => %d us\n", frame, pwm.SafetyClamp(pwm.PulseWidth(cmd.Duty)))
		}),
	}

	// CenterCmd centers all ports.
	CenterCmd = ishell.Cmd{
		Name:    "center",
		Aliases: []string{"ctr"},
		Help:    "[PORTS]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			ports := pwm.MaxPorts
			if len(c.Args) > 0 {
				val, err := strconv.Atoi(c.Args[0])
				if err != nil || val < 1 || val > 99 {
					c.Err(fmt.Errorf("Invalid PORTS: %s", c.Args[0]))
					return
				}
				ports = val
			}
			s := sh.ShellFrom(c)
			for _, frame := range CenterFrames(ports) {
				if err := s.Send(frame); err != nil {
					c.Err(err)
					return
				}
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&SetCmd,
		&CenterCmd,
	)
}
