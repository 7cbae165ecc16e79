package sh

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/pwmlink/pkg/serial"
	"github.com/robotalks/pwmlink/pkg/wire"
)

// Shell provides ishell backed interactive shell writing command frames
// to a serial port.
type Shell struct {
	Interactive bool
	Config      *serial.Config

	Shell *ishell.Shell
	// OpenPort opens serial ports, serial.Open by default.
	OpenPort func(*serial.Config) (serial.Port, error)

	lock sync.Mutex
	port serial.Port
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

var (
	// flags

	evalOnly   bool
	device     string
	baud       = serial.DefaultBaud
	autoOpen   bool
	defaultCfg = serial.DefaultConfig("")

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&RawCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.StringVar(&device, "serial", device, "Serial device to open on start.")
	flag.IntVar(&baud, "baud", baud, "Serial baud rate.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *serial.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Config:      conf,
		Shell:       ishell.New(),
		OpenPort:    serial.Open,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an open port.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if !ShellFrom(c).IsOpen() {
			c.Err(fmt.Errorf("serial port not open"))
			return
		}
		fn(c)
	}
}

// IsOpen indicates a port is open.
func (s *Shell) IsOpen() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.port != nil
}

// Open opens the configured device, closing any open port first.
func (s *Shell) Open() error {
	open := s.OpenPort
	if open == nil {
		open = serial.Open
	}
	port, err := open(s.Config)
	if err != nil {
		return err
	}
	s.Close()
	s.lock.Lock()
	s.port = port
	s.lock.Unlock()
	if s.Shell != nil {
		s.Shell.SetPrompt(fmt.Sprintf("%s > ", s.Config.Device))
	}
	return nil
}

// Close closes the current port.
func (s *Shell) Close() error {
	s.lock.Lock()
	port := s.port
	s.port = nil
	s.lock.Unlock()
	if port == nil {
		return nil
	}
	if s.Shell != nil {
		s.Shell.SetPrompt(closedPrompt)
	}
	return port.Close()
}

// Send writes raw bytes to the port.
func (s *Shell) Send(data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.port == nil {
		return fmt.Errorf("serial port not open")
	}
	_, err := s.port.Write(data)
	return err
}

// SendFrame writes data followed by the frame terminator unless it is
// already terminated.
func (s *Shell) SendFrame(data string) error {
	if n := len(data); n == 0 || data[n-1] != wire.DefaultTerminator {
		data += string(wire.DefaultTerminator)
	}
	return s.Send([]byte(data))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if autoOpen {
		if err := s.Open(); err != nil {
			log.Fatalf("open %s failed: %v", s.Config.Device, err)
		}
		defer s.Close()
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens a serial port.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[DEVICE] [BAUD]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Config.Device = c.Args[0]
			}
			if len(c.Args) > 1 {
				val, err := strconv.Atoi(c.Args[1])
				if err != nil || val <= 0 {
					c.Err(fmt.Errorf("Invalid BAUD: %s", c.Args[1]))
					return
				}
				s.Config.Baud = val
			}
			if s.Config.Device == "" {
				c.Err(fmt.Errorf("DEVICE required"))
				return
			}
			if err := s.Open(); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the serial port.
	CloseCmd = ishell.Cmd{
		Name:    "close",
		Aliases: []string{"c"},
		Help:    "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Close(); err != nil {
				c.Err(err)
			}
		},
	}

	// RawCmd sends a raw frame.
	RawCmd = ishell.Cmd{
		Name:    "raw",
		Aliases: []string{"r"},
		Help:    "TEXT",
		Func: MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("TEXT required"))
				return
			}
			if err := ShellFrom(c).SendFrame(c.Args[0]); err != nil {
				c.Err(err)
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf := *defaultCfg
	conf.Device, conf.Baud = device, baud
	autoOpen = device != ""
	New(&conf).Run(flag.Args()...)
}
