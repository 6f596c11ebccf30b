package sensor

import (
	"runtime"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"threadstream/pkg/logger"
)

var (
	heapInuse = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "threadstream_heap_inuse_bytes",
		Help: "Heap bytes in use at the last sensor poll.",
	})
	maxRSSBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "threadstream_process_max_rss_bytes",
		Help: "Peak resident set size of the process.",
	})
	memPressure = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "threadstream_memory_pressure",
		Help: "1 while heap in use is above the configured high mark.",
	})
)

func init() {
	prometheus.MustRegister(heapInuse, maxRSSBytes, memPressure)
}

// MonitorConfig controls polling and the memory alert.
type MonitorConfig struct {
	PollInterval time.Duration
	// MemHigh raises the alert when heap in use exceeds it. Zero disables it.
	MemHigh uint64
	// RecoveryWindow is how long usage must stay under the low mark (90% of
	// MemHigh) before the alert clears.
	RecoveryWindow time.Duration
}

// Reading is one memory sample.
type Reading struct {
	HeapInuse uint64
	MaxRSS    uint64
}

// Sensor watches process memory. The store keeps every thread in memory, so
// readiness drops while the heap stays above the high mark.
type Sensor struct {
	config   MonitorConfig
	read     func() Reading
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once

	mu           sync.Mutex
	memAlert     bool
	lastMemAlert time.Time
	belowSince   time.Time
	last         Reading
}

// NewSensor returns a stopped sensor.
func NewSensor(config MonitorConfig) *Sensor {
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Second
	}
	return &Sensor{
		config: config,
		read:   readMemory,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start polls until Stop.
func (s *Sensor) Start() {
	s.check()
	go s.run()
}

// Stop ends polling. Safe to call more than once.
func (s *Sensor) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Pressure reports whether the memory alert is raised.
func (s *Sensor) Pressure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memAlert
}

// Last returns the most recent reading.
func (s *Sensor) Last() Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Sensor) run() {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.check()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sensor) check() {
	r := s.read()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = r
	heapInuse.Set(float64(r.HeapInuse))
	maxRSSBytes.Set(float64(r.MaxRSS))

	high := s.config.MemHigh
	if high == 0 {
		return
	}
	low := high / 10 * 9

	switch {
	case r.HeapInuse > high:
		s.belowSince = time.Time{}
		if !s.memAlert {
			logger.Warn("memory usage high", "heap_inuse", humanize.IBytes(r.HeapInuse), "threshold", humanize.IBytes(high))
			s.memAlert = true
			s.lastMemAlert = now
			memPressure.Set(1)
		}
	case s.memAlert && r.HeapInuse < low:
		if s.belowSince.IsZero() {
			s.belowSince = now
		}
		if now.Sub(s.belowSince) >= s.config.RecoveryWindow {
			logger.Info("memory usage recovered", "heap_inuse", humanize.IBytes(r.HeapInuse), "alerted_for", now.Sub(s.lastMemAlert))
			s.memAlert = false
			s.belowSince = time.Time{}
			memPressure.Set(0)
		}
	default:
		s.belowSince = time.Time{}
	}
}

func readMemory() Reading {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Reading{HeapInuse: m.HeapInuse, MaxRSS: maxRSS()}
}
