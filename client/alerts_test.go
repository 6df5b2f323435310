package client

import (
	"fmt"
	"testing"
)

func TestAlertsQueue(t *testing.T) {
	var notified []string
	q := &Alerts{Notify: func(a Alert) { notified = append(notified, a.Message) }}
	q.Alert(Alert{Message: "one"})
	q.Alert(Alert{Message: "one"})
	q.Alert(Alert{Message: "two", Severity: SeverityWarning})
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
	if len(notified) != 2 {
		t.Fatalf("notified = %v", notified)
	}
	a, ok := q.Current()
	if !ok || a.Message != "one" || a.Time.IsZero() {
		t.Fatalf("current = %+v", a)
	}
	q.Dismiss()
	a, _ = q.Current()
	if a.Message != "two" || a.Severity.String() != "warning" {
		t.Fatalf("current = %+v", a)
	}
	q.Dismiss()
	q.Dismiss()
	if _, ok := q.Current(); ok {
		t.Fatalf("queue not empty")
	}
}

func TestAlertsBounded(t *testing.T) {
	q := &Alerts{}
	for i := 0; i < maxQueuedAlerts+5; i++ {
		q.Alert(Alert{Message: fmt.Sprint(i)})
	}
	if q.Len() != maxQueuedAlerts {
		t.Fatalf("len = %d", q.Len())
	}
	if a, _ := q.Current(); a.Message != "5" {
		t.Fatalf("oldest kept = %q", a.Message)
	}
}

func TestTextField(t *testing.T) {
	var f TextField
	f.InsertString("hé\nllo")
	if f.Value() != "héllo" {
		t.Fatalf("value = %q", f.Value())
	}
	f.Backspace()
	f.Backspace()
	if f.Value() != "hél" {
		t.Fatalf("value = %q", f.Value())
	}
	f.Clear()
	f.Backspace()
	if f.Value() != "" {
		t.Fatalf("value = %q", f.Value())
	}
	for i := 0; i < MaxSpeechRunes+20; i++ {
		f.Insert('a')
	}
	if n := len([]rune(f.Value())); n != MaxSpeechRunes {
		t.Fatalf("len = %d", n)
	}
}
