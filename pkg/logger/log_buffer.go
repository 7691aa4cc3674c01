package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Entry is one buffered log line.
type Entry struct {
	ID        int          `json:"id"`
	Message   string       `json:"message"`
	Time      time.Time    `json:"time"`
	Level     logrus.Level `json:"level"`
	Component string       `json:"component,omitempty"`
}

// LogBuffer keeps the newest log entries in a fixed-size ring and hands them back over the HTTP
// API, so an operator can see recent fetch failures without shell access. Entry IDs count every
// entry ever written; only the newest cap(ring) of them are retained.
type LogBuffer struct {
	mu    sync.RWMutex
	ring  []*Entry
	total int
}

// NewLogBuffer creates a LogBuffer retaining up to capacity entries.
func NewLogBuffer(capacity int) *LogBuffer {
	return &LogBuffer{ring: make([]*Entry, capacity)}
}

func (lb *LogBuffer) write(e *Entry) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	e.ID = lb.total
	lb.ring[lb.total%len(lb.ring)] = e
	lb.total++
}

// Entries returns retained entries with IDs in [startID, endID), at most limit of them. A value of
// -1 leaves the corresponding bound unset. When the limit cuts the range and no startID is given,
// the newest entries are returned; otherwise the oldest. Other negative values select nothing.
func (lb *LogBuffer) Entries(startID, endID, limit int) []*Entry {
	if startID < -1 || endID < -1 || limit < -1 {
		return nil
	}

	lb.mu.RLock()
	defer lb.mu.RUnlock()

	oldest := max(0, lb.total-len(lb.ring))
	lo, hi := oldest, lb.total
	if startID != -1 {
		lo = max(lo, startID)
	}
	if endID != -1 {
		hi = min(hi, endID)
	}
	if lo >= hi {
		return nil
	}
	if limit != -1 && hi-lo > limit {
		if startID == -1 {
			lo = hi - limit
		} else {
			hi = lo + limit
		}
	}

	out := make([]*Entry, 0, hi-lo)
	for id := lo; id < hi; id++ {
		out = append(out, lb.ring[id%len(lb.ring)])
	}
	return out
}

// Tail returns up to n of the newest entries at or above the given severity, optionally only
// those of one component. Note that logrus orders levels from most (panic) to least (trace)
// severe. A negative n means no limit.
func (lb *LogBuffer) Tail(n int, level logrus.Level, component string) []*Entry {
	var matched []*Entry
	for _, e := range lb.Entries(-1, -1, -1) {
		if e.Level > level || (component != "" && e.Component != component) {
			continue
		}
		matched = append(matched, e)
	}
	if n >= 0 && len(matched) > n {
		matched = matched[len(matched)-n:]
	}
	return matched
}

// Len returns the total number of entries written to the buffer.
func (lb *LogBuffer) Len() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.total
}

// Fire implements the logrus.Hook interface.
func (lb *LogBuffer) Fire(entry *logrus.Entry) error {
	component, _ := entry.Data["component"].(string)
	lb.write(&Entry{
		Message:   formatEntry(entry),
		Time:      entry.Time,
		Level:     entry.Level,
		Component: component,
	})
	return nil
}

// Levels implements the logrus.Hook interface.
func (lb *LogBuffer) Levels() []logrus.Level {
	return logrus.AllLevels
}

// formatEntry renders the message followed by its fields, sorted by key, except the component
// which is kept separately.
func formatEntry(entry *logrus.Entry) string {
	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key != "component" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return entry.Message
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(entry.Message)
	b.WriteString(" ")
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%q", key, fmt.Sprint(entry.Data[key]))
	}
	return b.String()
}
