// Package config resolves the daemon configuration from defaults, the
// environment, an optional config file and command line flags, in that
// order of increasing precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/pwmlink/pkg/pwm"
	"github.com/robotalks/pwmlink/pkg/serial"
)

// PWM backends.
const (
	BackendSysfs = "sysfs"
	BackendNone  = "none"
)

// SerialConfig configures the command UART.
type SerialConfig struct {
	Device      string        `yaml:"device" toml:"device"`
	Baud        int           `yaml:"baud" toml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout" toml:"read_timeout"`
	Echo        bool          `yaml:"echo" toml:"echo"`
}

// PWMConfig configures the output backend.
type PWMConfig struct {
	Backend         string        `yaml:"backend" toml:"backend"`
	Chip            int           `yaml:"chip" toml:"chip"`
	MaxPorts        int           `yaml:"max_ports" toml:"max_ports"`
	Period          time.Duration `yaml:"period" toml:"period"`
	EnableChip      string        `yaml:"enable_chip" toml:"enable_chip"`
	EnableLine      int           `yaml:"enable_line" toml:"enable_line"`
	EnableActiveLow bool          `yaml:"enable_active_low" toml:"enable_active_low"`
}

// TelemetryConfig configures the telemetry link. An empty URL disables it.
type TelemetryConfig struct {
	URL      string        `yaml:"url" toml:"url"`
	Interval time.Duration `yaml:"interval" toml:"interval"`
}

// Config is the daemon configuration.
type Config struct {
	DeviceID  string          `yaml:"device_id" toml:"device_id"`
	Serial    SerialConfig    `yaml:"serial" toml:"serial"`
	PWM       PWMConfig       `yaml:"pwm" toml:"pwm"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
}

var (
	defaultConfig = Config{
		Serial: SerialConfig{
			Device:      "/dev/ttyS1",
			Baud:        serial.DefaultBaud,
			ReadTimeout: serial.DefaultReadTimeout,
			Echo:        true,
		},
		PWM: PWMConfig{
			Backend:  BackendSysfs,
			MaxPorts: pwm.MaxPorts,
			Period:   pwm.DefaultServoPeriod,
		},
		Telemetry: TelemetryConfig{
			Interval: 20 * time.Millisecond,
		},
	}

	// baseConfig is defaultConfig before flags are parsed into it.
	baseConfig Config
	configFile string
)

func init() {
	defaultConfig.DeviceID = MachineID()
	applyEnv(&defaultConfig, os.Getenv)
	baseConfig = defaultConfig
}

func applyEnv(c *Config, getenv func(string) string) {
	if val := getenv("PWMLINK_SERIAL"); val != "" {
		c.Serial.Device = val
	}
	if val := getenv("PWMLINK_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			c.Serial.Baud = baud
		} else {
			glog.Warningf("PWMLINK_BAUD ignored: %v", err)
		}
	}
	if val := getenv("PWMLINK_PWM_CHIP"); val != "" {
		if val == BackendNone {
			c.PWM.Backend = BackendNone
		} else if chip, err := strconv.Atoi(strings.TrimPrefix(val, "pwmchip")); err == nil {
			c.PWM.Chip = chip
		} else {
			glog.Warningf("PWMLINK_PWM_CHIP ignored: %v", err)
		}
	}
	if val := getenv("PWMLINK_TELEMETRY_URL"); val != "" {
		c.Telemetry.URL = val
	}
	if val := getenv("PWMLINK_DEVICE_ID"); val != "" {
		c.DeviceID = val
	}
}

func bindFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.DeviceID, "id", c.DeviceID, "Device ID used in telemetry topics.")
	fs.StringVar(&c.Serial.Device, "serial", c.Serial.Device, "Serial device.")
	fs.IntVar(&c.Serial.Baud, "baud", c.Serial.Baud, "Serial baud rate.")
	fs.DurationVar(&c.Serial.ReadTimeout, "read-timeout", c.Serial.ReadTimeout, "Serial read timeout.")
	fs.BoolVar(&c.Serial.Echo, "echo", c.Serial.Echo, "Echo received bytes.")
	fs.StringVar(&c.PWM.Backend, "pwm", c.PWM.Backend, "PWM backend: sysfs or none.")
	fs.IntVar(&c.PWM.Chip, "pwm-chip", c.PWM.Chip, "sysfs pwmchip index.")
	fs.IntVar(&c.PWM.MaxPorts, "pwm-ports", c.PWM.MaxPorts, "Number of PWM ports.")
	fs.StringVar(&c.PWM.EnableChip, "pwm-enable-chip", c.PWM.EnableChip, "gpiochip of the output enable line.")
	fs.IntVar(&c.PWM.EnableLine, "pwm-enable-line", c.PWM.EnableLine, "Offset of the output enable line.")
	fs.BoolVar(&c.PWM.EnableActiveLow, "pwm-enable-active-low", c.PWM.EnableActiveLow, "Output enable line is active low.")
	fs.StringVar(&c.Telemetry.URL, "telemetry", c.Telemetry.URL, "Telemetry URL (mqtt://, tcp://, ws://, stdout:).")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	bindFlags(flag.CommandLine, &defaultConfig)
	flag.StringVar(&configFile, "config", configFile, "Config file (.yaml, .yml or .toml).")
}

// Load resolves the config after flag.Parse.
func Load() (*Config, error) {
	return Resolve(flag.CommandLine, configFile)
}

// Resolve applies the config file over the environment defaults and then
// the flags explicitly set in fs.
func Resolve(fs *flag.FlagSet, file string) (*Config, error) {
	conf := baseConfig
	if file != "" {
		if err := LoadFile(file, &conf); err != nil {
			return nil, err
		}
	}
	overlay := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	bindFlags(overlay, &conf)
	var err error
	fs.Visit(func(f *flag.Flag) {
		if overlay.Lookup(f.Name) == nil || err != nil {
			return
		}
		err = overlay.Set(f.Name, f.Value.String())
	})
	if err != nil {
		return nil, err
	}
	return &conf, conf.Validate()
}

// LoadFile decodes a yaml or toml file into c. Keys absent from the file
// keep their current values.
func LoadFile(path string, c *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Serial.Device == "" {
		return fmt.Errorf("serial device required")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Serial.Baud)
	}
	// a zero timeout makes serial reads block.
	if c.Serial.ReadTimeout <= 0 {
		return fmt.Errorf("serial read timeout must be positive, got %v", c.Serial.ReadTimeout)
	}
	switch c.PWM.Backend {
	case BackendSysfs, BackendNone:
	default:
		return fmt.Errorf("unknown pwm backend %q", c.PWM.Backend)
	}
	if c.PWM.MaxPorts < 1 || c.PWM.MaxPorts > 32 {
		return fmt.Errorf("pwm ports must be within 1..32, got %d", c.PWM.MaxPorts)
	}
	if c.Telemetry.URL != "" && c.DeviceID == "" {
		return fmt.Errorf("device id required for telemetry")
	}
	return nil
}

// SerialConfig returns the serial port settings.
func (c *Config) SerialConfig() *serial.Config {
	return &serial.Config{
		Device:      c.Serial.Device,
		Baud:        c.Serial.Baud,
		ReadTimeout: c.Serial.ReadTimeout,
	}
}

// SysfsConfig returns the sysfs backend settings.
func (c *Config) SysfsConfig() pwm.SysfsConfig {
	conf := pwm.DefaultSysfsConfig()
	conf.Chip = c.PWM.Chip
	if c.PWM.Period > 0 {
		conf.Period = c.PWM.Period
	}
	conf.EnableChip = c.PWM.EnableChip
	conf.EnableLine = c.PWM.EnableLine
	conf.EnableActiveLow = c.PWM.EnableActiveLow
	return conf
}

// OpenServo opens the configured backend. A backend which can not be
// opened yields pwm.NullServo along with the error, so the driver still
// runs dry.
func (c *Config) OpenServo() (pwm.Servo, error) {
	if c.PWM.Backend == BackendNone {
		return pwm.NullServo{}, nil
	}
	servo, err := pwm.OpenSysfs(c.SysfsConfig())
	if err != nil {
		return pwm.NullServo{}, err
	}
	return servo, nil
}
