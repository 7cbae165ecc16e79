package pwm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sysfsWrites struct {
	lock   sync.Mutex
	values map[string]string
	order  []string
}

func (w *sysfsWrites) write(path, value string) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.values[path] = value
	w.order = append(w.order, filepath.Base(path)+"="+value)
	return nil
}

func (w *sysfsWrites) get(path string) string {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.values[path]
}

type fakeLine struct {
	values []int
	closed bool
}

func (l *fakeLine) SetValue(v int) error {
	l.values = append(l.values, v)
	return nil
}

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

func setupSysfs(t *testing.T, npwm, exported int) (string, *sysfsWrites) {
	base := t.TempDir()
	chip := filepath.Join(base, "pwmchip0")
	require.NoError(t, os.MkdirAll(chip, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(chip, "npwm"), []byte(fmt.Sprintf("%d\n", npwm)), 0o644))
	for ch := 0; ch < exported; ch++ {
		require.NoError(t, os.MkdirAll(filepath.Join(chip, fmt.Sprintf("pwm%d", ch)), 0o755))
	}
	w := &sysfsWrites{values: make(map[string]string)}
	old := writeSysfs
	writeSysfs = w.write
	t.Cleanup(func() { writeSysfs = old })
	return chip, w
}

func TestSysfsServo(t *testing.T) {
	chip, w := setupSysfs(t, 2, 2)
	conf := DefaultSysfsConfig()
	conf.Base = filepath.Dir(chip)
	servo, err := OpenSysfs(conf)
	require.NoError(t, err)

	mask, err := servo.Init(AllMask)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x03), mask)
	assert.Equal(t, "20000000", w.get(filepath.Join(chip, "pwm1", "period")))
	assert.Equal(t, "0", w.get(filepath.Join(chip, "pwm1", "duty_cycle")))

	require.NoError(t, servo.Arm(true, AllMask))
	assert.Equal(t, "1", w.get(filepath.Join(chip, "pwm0", "enable")))

	require.NoError(t, servo.Set(1, 1500))
	assert.Equal(t, "0", w.get(filepath.Join(chip, "pwm1", "duty_cycle")))
	require.NoError(t, servo.Update(AllMask))
	assert.Equal(t, "1500000", w.get(filepath.Join(chip, "pwm1", "duty_cycle")))

	assert.Error(t, servo.Set(2, 1500))

	require.NoError(t, servo.Arm(false, AllMask))
	assert.Equal(t, "0", w.get(filepath.Join(chip, "pwm1", "enable")))
	require.NoError(t, servo.Deinit(AllMask))
	assert.Equal(t, "1", w.get(filepath.Join(chip, "unexport")))
	assert.Error(t, servo.Set(0, 1500))
}

func TestSysfsServoExports(t *testing.T) {
	chip, w := setupSysfs(t, 1, 0)
	// the kernel creates the node on export.
	writeSysfs = func(path, value string) error {
		if filepath.Base(path) == "export" {
			require.NoError(t, os.MkdirAll(filepath.Join(chip, "pwm"+value), 0o755))
		}
		return w.write(path, value)
	}
	servo, err := OpenSysfs(SysfsConfig{Base: filepath.Dir(chip)})
	require.NoError(t, err)
	mask, err := servo.Init(AllMask)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x01), mask)
	assert.Equal(t, "0", w.get(filepath.Join(chip, "export")))
}

func TestSysfsServoEnableLine(t *testing.T) {
	chip, _ := setupSysfs(t, 1, 1)
	line := &fakeLine{}
	old := openEnableLine
	openEnableLine = func(SysfsConfig) (enableLine, error) { return line, nil }
	t.Cleanup(func() { openEnableLine = old })

	servo, err := OpenSysfs(SysfsConfig{Base: filepath.Dir(chip), EnableChip: "gpiochip0", EnableLine: 17})
	require.NoError(t, err)
	_, err = servo.Init(AllMask)
	require.NoError(t, err)
	require.NoError(t, servo.Arm(true, AllMask))
	require.NoError(t, servo.Arm(false, AllMask))
	require.NoError(t, servo.Deinit(AllMask))
	assert.Equal(t, []int{1, 0, 0}, line.values)
	assert.True(t, line.closed)
}

func TestOpenSysfsMissingChip(t *testing.T) {
	_, err := OpenSysfs(SysfsConfig{Base: t.TempDir(), Chip: 3})
	assert.Error(t, err)
}

func TestSysfsDriverIntegration(t *testing.T) {
	chip, w := setupSysfs(t, 8, 8)
	servo, err := OpenSysfs(SysfsConfig{Base: filepath.Dir(chip)})
	require.NoError(t, err)
	d, _ := newTestDriver(t, servo)
	d.Start()
	require.Equal(t, StateArmed, d.State())
	_, err = d.Apply(commandFor(4, 0.75))
	require.NoError(t, err)
	assert.Equal(t, "1750000", w.get(filepath.Join(chip, "pwm3", "duty_cycle")))
	require.NoError(t, d.Stop())
	assert.Equal(t, "0", w.get(filepath.Join(chip, "pwm3", "enable")))
}
