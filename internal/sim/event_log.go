package sim

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize    = 1024                   // Circular buffer size
	MaxEventsPerSec    = 2000                   // Global rate limit
	BatchFlushSize     = 64                     // Events per batch write
	BatchFlushInterval = 100 * time.Millisecond // How often to flush
)

// EventLog keeps a bounded, rate-limited window of recent events and can
// append them to a newline-delimited JSON file in the background.
type EventLog struct {
	mu      sync.Mutex
	buffer  [EventBufferSize]Event
	head    uint64 // next sequence to write
	flushed uint64 // next sequence to persist

	globalLimiter *rate.Limiter

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	file   *os.File
	fileMu sync.Mutex

	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// NewEventLog creates an in-memory event log. Call Start to also persist it.
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the async writer. An empty path
// keeps the log in memory only.
func (el *EventLog) Start(filePath string) error {
	if filePath == "" || el.running.Load() {
		return nil
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	el.file = file

	// Events emitted before Start are persisted only if still buffered.
	el.mu.Lock()
	if el.head > EventBufferSize {
		el.flushed = el.head - EventBufferSize
	}
	el.running.Store(true)
	el.mu.Unlock()

	el.writerWg.Add(1)
	go el.writerLoop()

	return nil
}

// Stop flushes pending events and closes the file.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		close(el.stopChan)
		if !el.running.Load() {
			return
		}
		el.writerWg.Wait()
		el.running.Store(false)

		el.fileMu.Lock()
		if el.file != nil {
			el.file.Close()
			el.file = nil
		}
		el.fileMu.Unlock()
	})
}

// Emit appends an event. It returns false when rate limited.
func (el *EventLog) Emit(event Event) bool {
	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	el.mu.Lock()
	event.Sequence = el.head
	el.buffer[el.head%EventBufferSize] = event
	el.head++
	// Oldest unflushed entry was overwritten.
	if el.running.Load() && el.head-el.flushed > EventBufferSize {
		el.flushed = el.head - EventBufferSize
		atomic.AddUint64(&el.droppedCount, 1)
	}
	el.mu.Unlock()

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple is a convenience method to emit an event with automatic creation
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, payload))
}

// Recent returns up to n of the newest events, oldest first.
func (el *EventLog) Recent(n int) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	available := min(el.head, EventBufferSize)
	if n <= 0 || uint64(n) > available {
		n = int(available)
	}
	out := make([]Event, 0, n)
	for seq := el.head - uint64(n); seq < el.head; seq++ {
		out = append(out, el.buffer[seq%EventBufferSize])
	}
	return out
}

// writerLoop batches and writes events to disk asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)

	for {
		select {
		case <-el.stopChan:
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}

		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

// collectBatch takes unflushed events from the ring.
func (el *EventLog) collectBatch(batch []Event) []Event {
	el.mu.Lock()
	defer el.mu.Unlock()

	for el.flushed < el.head && len(batch) < BatchFlushSize {
		batch = append(batch, el.buffer[el.flushed%EventBufferSize])
		el.flushed++
	}
	return batch
}

// flushBatch writes events to disk (append-only, newline-delimited JSON)
func (el *EventLog) flushBatch(batch []Event) {
	el.fileMu.Lock()
	defer el.fileMu.Unlock()

	if el.file == nil {
		return
	}

	for _, event := range batch {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		el.file.Write(append(data, '\n'))
	}
}

// GetStats returns counters for monitoring.
func (el *EventLog) GetStats() map[string]interface{} {
	el.mu.Lock()
	pending := el.head - el.flushed
	el.mu.Unlock()
	if !el.running.Load() {
		pending = 0
	}

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&el.totalCount),
		"dropped": atomic.LoadUint64(&el.droppedCount),
		"pending": pending,
		"running": el.running.Load(),
	}
}

// GetDroppedCount returns the number of dropped events
func (el *EventLog) GetDroppedCount() uint64 {
	return atomic.LoadUint64(&el.droppedCount)
}

// GetTotalCount returns the total number of events accepted
func (el *EventLog) GetTotalCount() uint64 {
	return atomic.LoadUint64(&el.totalCount)
}
