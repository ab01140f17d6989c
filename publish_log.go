package match

import "sync"

// PublishLog is an interface for publishing order book logs (opens, matches, cancels, amends).
//
// IMPORTANT: Implementations must either:
//  1. Process logs synchronously before returning, OR
//  2. Clone the BookLog data before returning
//
// The caller recycles BookLog objects to a sync.Pool after Publish returns,
// so any asynchronous processing must work with cloned data.
type PublishLog interface {
	Publish(...*BookLog)
}

// MemoryPublishLog stores logs in memory, useful for testing.
type MemoryPublishLog struct {
	mu   sync.RWMutex
	logs []*BookLog
}

// NewMemoryPublishLog creates a new MemoryPublishLog.
func NewMemoryPublishLog() *MemoryPublishLog {
	return &MemoryPublishLog{
		logs: make([]*BookLog, 0),
	}
}

// Publish appends copies of the logs to the in-memory slice.
func (m *MemoryPublishLog) Publish(logs ...*BookLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, log := range logs {
		cpy := new(BookLog)
		*cpy = *log
		m.logs = append(m.logs, cpy)
	}
}

// Count returns the number of logs stored.
func (m *MemoryPublishLog) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.logs)
}

// Get returns the log at the specified index.
func (m *MemoryPublishLog) Get(index int) *BookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.logs[index]
}

// Logs returns a copy of all logs stored.
func (m *MemoryPublishLog) Logs() []*BookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logs := make([]*BookLog, len(m.logs))
	copy(logs, m.logs)
	return logs
}

// LogsOf returns the stored logs of one type.
func (m *MemoryPublishLog) LogsOf(logType LogType) []*BookLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*BookLog, 0)
	for _, log := range m.logs {
		if log.Type == logType {
			result = append(result, log)
		}
	}
	return result
}

// DiscardPublishLog discards all logs, useful for benchmarking.
type DiscardPublishLog struct {
}

// NewDiscardPublishLog creates a new DiscardPublishLog.
func NewDiscardPublishLog() *DiscardPublishLog {
	return &DiscardPublishLog{}
}

// Publish does nothing.
func (p *DiscardPublishLog) Publish(logs ...*BookLog) {

}

// MultiPublishLog forwards every batch to each of its publishers in order.
type MultiPublishLog struct {
	publishers []PublishLog
}

// NewMultiPublishLog creates a publisher that fans out to publishers.
func NewMultiPublishLog(publishers ...PublishLog) *MultiPublishLog {
	return &MultiPublishLog{publishers: publishers}
}

// Publish forwards logs to every publisher.
func (m *MultiPublishLog) Publish(logs ...*BookLog) {
	for _, p := range m.publishers {
		p.Publish(logs...)
	}
}
