package embedding

import (
	"sort"
	"sync"
	"time"
)

// Metrics collects recognize and render statistics.
type Metrics struct {
	mu sync.RWMutex

	commands map[string]*CommandMetrics

	totalPrepares uint64
	totalRenders  uint64
	totalErrors   uint64
	notFound      uint64
	invalidSyntax uint64
}

// CommandMetrics holds metrics for one command.
type CommandMetrics struct {
	Name            string
	Prepares        uint64
	Renders         uint64
	Errors          uint64
	PrepareDuration time.Duration
	RenderDuration  time.Duration
	LastUsed        time.Time
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		commands: make(map[string]*CommandMetrics),
	}
}

func (m *Metrics) command(name string) *CommandMetrics {
	cm := m.commands[name]
	if cm == nil {
		cm = &CommandMetrics{Name: name}
		m.commands[name] = cm
	}
	return cm
}

// RecordPrepare records one prepare phase.
func (m *Metrics) RecordPrepare(name string, d time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalPrepares++
	cm := m.command(name)
	cm.Prepares++
	cm.PrepareDuration += d
	cm.LastUsed = time.Now()
	if failed {
		m.totalErrors++
		cm.Errors++
	}
}

// RecordRender records one render phase.
func (m *Metrics) RecordRender(name string, d time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRenders++
	cm := m.command(name)
	cm.Renders++
	cm.RenderDuration += d
	cm.LastUsed = time.Now()
	if failed {
		m.totalErrors++
		cm.Errors++
	}
}

// RecordNotFound records an unresolved command name.
func (m *Metrics) RecordNotFound() {
	m.mu.Lock()
	m.notFound++
	m.mu.Unlock()
}

// RecordInvalidSyntax records an occurrence whose call string was rejected.
func (m *Metrics) RecordInvalidSyntax() {
	m.mu.Lock()
	m.invalidSyntax++
	m.mu.Unlock()
}

// CommandStats returns a copy of the metrics for one command, or nil.
func (m *Metrics) CommandStats(name string) *CommandMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cm := m.commands[name]
	if cm == nil {
		return nil
	}
	c := *cm
	return &c
}

// TopCommands returns the n commands with the most prepares and renders.
func (m *Metrics) TopCommands(n int) []*CommandMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*CommandMetrics, 0, len(m.commands))
	for _, cm := range m.commands {
		c := *cm
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		ci := out[i].Prepares + out[i].Renders
		cj := out[j].Prepares + out[j].Renders
		if ci != cj {
			return ci > cj
		}
		return out[i].Name < out[j].Name
	})

	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commands = make(map[string]*CommandMetrics)
	m.totalPrepares = 0
	m.totalRenders = 0
	m.totalErrors = 0
	m.notFound = 0
	m.invalidSyntax = 0
}

// MetricsSnapshot is a point-in-time copy of the totals.
type MetricsSnapshot struct {
	TotalPrepares uint64
	TotalRenders  uint64
	TotalErrors   uint64
	NotFound      uint64
	InvalidSyntax uint64
	CommandCount  int
	Timestamp     time.Time
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		TotalPrepares: m.totalPrepares,
		TotalRenders:  m.totalRenders,
		TotalErrors:   m.totalErrors,
		NotFound:      m.notFound,
		InvalidSyntax: m.invalidSyntax,
		CommandCount:  len(m.commands),
		Timestamp:     time.Now(),
	}
}

// AveragePrepare returns the mean prepare duration.
func (cm *CommandMetrics) AveragePrepare() time.Duration {
	if cm.Prepares == 0 {
		return 0
	}
	return cm.PrepareDuration / time.Duration(cm.Prepares)
}

// AverageRender returns the mean render duration.
func (cm *CommandMetrics) AverageRender() time.Duration {
	if cm.Renders == 0 {
		return 0
	}
	return cm.RenderDuration / time.Duration(cm.Renders)
}
