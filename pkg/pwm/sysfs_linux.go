package pwm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/golang/glog"
)

// SysfsServo drives the channels of one pwmchip through /sys/class/pwm.
// Set only stages a value, Update writes the staged duty cycles.
type SysfsServo struct {
	conf     SysfsConfig
	chipPath string
	npwm     int
	inited   uint32
	staged   map[int]uint16
	enable   enableLine
}

type enableLine interface {
	SetValue(int) error
	Close() error
}

var (
	writeSysfs     = writeSysfsAttr
	openEnableLine = requestEnableLine
)

// OpenSysfs opens a pwmchip. No channel is touched before Init.
func OpenSysfs(conf SysfsConfig) (Servo, error) {
	if conf.Base == "" {
		conf.Base = DefaultSysfsBase
	}
	if conf.Period <= 0 {
		conf.Period = DefaultServoPeriod
	}
	s := &SysfsServo{
		conf:     conf,
		chipPath: filepath.Join(conf.Base, fmt.Sprintf("pwmchip%d", conf.Chip)),
		staged:   make(map[int]uint16),
	}
	n, err := readInt(filepath.Join(s.chipPath, "npwm"))
	if err != nil {
		return nil, fmt.Errorf("pwm: %s: %w", s.chipPath, err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("pwm: %s has no channels: %w", s.chipPath, ErrNoHardware)
	}
	s.npwm = n
	return s, nil
}

func (s *SysfsServo) channelPath(ch int) string {
	return filepath.Join(s.chipPath, fmt.Sprintf("pwm%d", ch))
}

// Init implements Servo.
func (s *SysfsServo) Init(mask uint32) (uint32, error) {
	var errs []error
	for ch := 0; ch < s.npwm && ch < 32; ch++ {
		if mask&(1<<uint(ch)) == 0 {
			continue
		}
		if err := s.initChannel(ch); err != nil {
			errs = append(errs, err)
			continue
		}
		s.inited |= 1 << uint(ch)
	}
	if s.inited == 0 {
		errs = append(errs, ErrNoHardware)
		return 0, fmt.Errorf("pwm: init %s: %w", s.chipPath, errors.Join(errs...))
	}
	for _, err := range errs {
		glog.Warningf("pwm: %v", err)
	}
	if s.conf.EnableChip != "" && s.enable == nil {
		line, err := openEnableLine(s.conf)
		if err != nil {
			s.Deinit(s.inited)
			return 0, fmt.Errorf("pwm: enable line %s:%d: %w", s.conf.EnableChip, s.conf.EnableLine, err)
		}
		s.enable = line
	}
	return s.inited, nil
}

func (s *SysfsServo) initChannel(ch int) error {
	if err := s.export(ch); err != nil {
		return err
	}
	if err := s.writeAttr(ch, "enable", "0"); err != nil {
		return err
	}
	period := uint64(s.conf.Period / time.Nanosecond)
	// duty_cycle must never exceed period.
	if err := s.writeAttr(ch, "duty_cycle", "0"); err != nil {
		return err
	}
	return s.writeAttr(ch, "period", strconv.FormatUint(period, 10))
}

func (s *SysfsServo) export(ch int) error {
	path := s.channelPath(ch)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := writeSysfs(filepath.Join(s.chipPath, "export"), strconv.Itoa(ch)); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
		return fmt.Errorf("export channel %d: %w", ch, err)
	}
	deadline := time.Now().Add(500 * time.Millisecond)
	for {
		_, err := os.Stat(path)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("channel %d not created after export: %w", ch, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (s *SysfsServo) writeAttr(ch int, name, value string) error {
	return writeSysfs(filepath.Join(s.channelPath(ch), name), value)
}

func (s *SysfsServo) valid(ch int) bool {
	return ch >= 0 && ch < 32 && s.inited&(1<<uint(ch)) != 0
}

// Set implements Servo.
func (s *SysfsServo) Set(ch int, us uint16) error {
	if !s.valid(ch) {
		return fmt.Errorf("pwm: channel %d not initialized", ch)
	}
	s.staged[ch] = us
	return nil
}

// Update implements Servo.
func (s *SysfsServo) Update(mask uint32) error {
	var errs []error
	for ch, us := range s.staged {
		if mask&(1<<uint(ch)) == 0 {
			continue
		}
		ns := uint64(us) * uint64(time.Microsecond/time.Nanosecond)
		if err := s.writeAttr(ch, "duty_cycle", strconv.FormatUint(ns, 10)); err != nil {
			errs = append(errs, err)
			continue
		}
		delete(s.staged, ch)
	}
	return errors.Join(errs...)
}

// Arm implements Servo.
func (s *SysfsServo) Arm(arm bool, mask uint32) error {
	val, level := "0", 0
	if arm {
		val, level = "1", 1
	}
	var errs []error
	for ch := 0; ch < s.npwm && ch < 32; ch++ {
		if mask&(1<<uint(ch)) != 0 && s.valid(ch) {
			errs = append(errs, s.writeAttr(ch, "enable", val))
		}
	}
	if s.enable != nil {
		errs = append(errs, s.enable.SetValue(level))
	}
	return errors.Join(errs...)
}

// Deinit implements Servo.
func (s *SysfsServo) Deinit(mask uint32) error {
	var errs []error
	for ch := 0; ch < s.npwm && ch < 32; ch++ {
		if mask&(1<<uint(ch)) == 0 || !s.valid(ch) {
			continue
		}
		errs = append(errs, writeSysfs(filepath.Join(s.chipPath, "unexport"), strconv.Itoa(ch)))
		s.inited &^= 1 << uint(ch)
		delete(s.staged, ch)
	}
	if s.inited == 0 && s.enable != nil {
		errs = append(errs, s.enable.SetValue(0), s.enable.Close())
		s.enable = nil
	}
	return errors.Join(errs...)
}

// writeSysfsAttr opens without O_TRUNC or O_CREATE which some sysfs
// attributes reject. Freshly exported nodes may briefly fail with EACCES
// or ENOENT until udev settles, so those are retried.
func writeSysfsAttr(path, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := writeOnce(path, value)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) || !isRetryableSysfsErr(err) {
			return err
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func writeOnce(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(value)
	return errors.Join(werr, f.Close())
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) ||
		errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}
