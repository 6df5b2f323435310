package client

import (
	"sync"
	"time"
)

// Severity ranks an alert.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Alert is a failure the user has to acknowledge.
type Alert struct {
	Severity Severity
	Message  string
	Time     time.Time
}

// Alerter receives alerts. Implementations must be safe for concurrent use.
type Alerter interface {
	Alert(a Alert)
}

// maxQueuedAlerts bounds the queue; the oldest alert is dropped beyond it.
const maxQueuedAlerts = 16

// Alerts is a queue of alerts waiting to be dismissed. The window shows the
// head of the queue as a modal until the user dismisses it.
type Alerts struct {
	mu    sync.Mutex
	queue []Alert

	// Notify, when set, is called for every accepted alert outside the lock.
	Notify func(Alert)
}

// Alert queues a. An alert repeating the message at the tail of the queue is
// folded into it.
func (q *Alerts) Alert(a Alert) {
	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	q.mu.Lock()
	if n := len(q.queue); n > 0 && q.queue[n-1].Message == a.Message {
		q.queue[n-1].Time = a.Time
		q.mu.Unlock()
		return
	}
	q.queue = append(q.queue, a)
	if len(q.queue) > maxQueuedAlerts {
		q.queue = append(q.queue[:0], q.queue[len(q.queue)-maxQueuedAlerts:]...)
	}
	notify := q.Notify
	q.mu.Unlock()
	if notify != nil {
		notify(a)
	}
}

// Current returns the alert at the head of the queue.
func (q *Alerts) Current() (Alert, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.queue) == 0 {
		return Alert{}, false
	}
	return q.queue[0], true
}

// Dismiss removes the head of the queue.
func (q *Alerts) Dismiss() {
	q.mu.Lock()
	if len(q.queue) > 0 {
		q.queue = q.queue[1:]
	}
	q.mu.Unlock()
}

// Len returns the number of queued alerts.
func (q *Alerts) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}
