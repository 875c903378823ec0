package metrics

import (
	"sync/atomic"

	"github.com/tmerle/syncbak/pkg/plog"
)

// Metrics defines the interface for collecting and reporting run statistics.
type Metrics interface {
	AddFilesCopied(n int64)
	AddDirsSynchronized(n int64)
	AddEntriesRemoved(n int64)
	AddEntriesArchived(n int64)
	AddBytesRead(n int64)
	AddBytesWritten(n int64)
	LogSummary(msg string)
}

// RunMetrics holds the atomic counters for a single run.
// It is the concrete implementation of the Metrics interface.
type RunMetrics struct {
	FilesCopied      atomic.Int64
	DirsSynchronized atomic.Int64
	EntriesRemoved   atomic.Int64
	EntriesArchived  atomic.Int64
	BytesRead        atomic.Int64
	BytesWritten     atomic.Int64
}

func (m *RunMetrics) AddFilesCopied(n int64)      { m.FilesCopied.Add(n) }
func (m *RunMetrics) AddDirsSynchronized(n int64) { m.DirsSynchronized.Add(n) }
func (m *RunMetrics) AddEntriesRemoved(n int64)   { m.EntriesRemoved.Add(n) }
func (m *RunMetrics) AddEntriesArchived(n int64)  { m.EntriesArchived.Add(n) }
func (m *RunMetrics) AddBytesRead(n int64)        { m.BytesRead.Add(n) }
func (m *RunMetrics) AddBytesWritten(n int64)     { m.BytesWritten.Add(n) }

// LogSummary prints a summary of the run.
func (m *RunMetrics) LogSummary(msg string) {
	plog.Info(msg,
		"filesCopied", m.FilesCopied.Load(),
		"dirsSynchronized", m.DirsSynchronized.Load(),
		"entriesRemoved", m.EntriesRemoved.Load(),
		"entriesArchived", m.EntriesArchived.Load(),
		"bytesRead", m.BytesRead.Load(),
		"bytesWritten", m.BytesWritten.Load(),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no
// operations. It disables metrics collection without changing calling code.
type NoopMetrics struct{}

func (m *NoopMetrics) AddFilesCopied(n int64)      {}
func (m *NoopMetrics) AddDirsSynchronized(n int64) {}
func (m *NoopMetrics) AddEntriesRemoved(n int64)   {}
func (m *NoopMetrics) AddEntriesArchived(n int64)  {}
func (m *NoopMetrics) AddBytesRead(n int64)        {}
func (m *NoopMetrics) AddBytesWritten(n int64)     {}
func (m *NoopMetrics) LogSummary(msg string)       {}

// Statically assert that our types implement the interface.
var _ Metrics = (*RunMetrics)(nil)
var _ Metrics = (*NoopMetrics)(nil)
