package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeMemory struct {
	heap uint64
	now  time.Time
}

func newTestSensor(cfg MonitorConfig) (*Sensor, *fakeMemory) {
	f := &fakeMemory{now: time.Unix(1000, 0)}
	s := NewSensor(cfg)
	s.read = func() Reading { return Reading{HeapInuse: f.heap} }
	s.now = func() time.Time { return f.now }
	return s, f
}

func TestSensorAlertAndRecovery(t *testing.T) {
	s, f := newTestSensor(MonitorConfig{MemHigh: 1000, RecoveryWindow: time.Minute})

	f.heap = 500
	s.check()
	assert.False(t, s.Pressure())

	f.heap = 1500
	s.check()
	assert.True(t, s.Pressure())
	assert.Equal(t, uint64(1500), s.Last().HeapInuse)

	// between low and high marks: still alerted
	f.heap = 950
	f.now = f.now.Add(2 * time.Minute)
	s.check()
	assert.True(t, s.Pressure())

	f.heap = 100
	s.check()
	assert.True(t, s.Pressure(), "recovery window starts when usage drops below the low mark")

	f.now = f.now.Add(30 * time.Second)
	s.check()
	assert.True(t, s.Pressure())

	f.now = f.now.Add(31 * time.Second)
	s.check()
	assert.False(t, s.Pressure())
}

func TestSensorSpikeResetsRecovery(t *testing.T) {
	s, f := newTestSensor(MonitorConfig{MemHigh: 1000, RecoveryWindow: time.Minute})

	f.heap = 2000
	s.check()
	f.heap = 10
	s.check()
	f.now = f.now.Add(45 * time.Second)
	f.heap = 2000
	s.check()
	f.heap = 10
	f.now = f.now.Add(time.Second)
	s.check()
	f.now = f.now.Add(45 * time.Second)
	s.check()
	assert.True(t, s.Pressure())
}

func TestSensorDisabledWithoutHighMark(t *testing.T) {
	s, f := newTestSensor(MonitorConfig{})
	f.heap = 1 << 40
	s.check()
	assert.False(t, s.Pressure())
	assert.Equal(t, uint64(1<<40), s.Last().HeapInuse)
}

func TestSensorStartStop(t *testing.T) {
	s := NewSensor(MonitorConfig{PollInterval: time.Millisecond})
	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.Stop()
	s.Stop()
	assert.NotZero(t, s.Last().HeapInuse)
}
