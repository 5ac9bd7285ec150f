// Package notify is the progress-indicator boundary. The core reports
// milestones; rendering is up to the implementation.
package notify

import (
	"log/slog"
	"sync"
)

type Kind string

const (
	KindLoading Kind = "loading"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Indicator interface {
	Show(title string, kind Kind)
	Update(title, detail string)
	SetKind(kind Kind)
	Hide()
}

// Nop discards every call.
type Nop struct{}

func (Nop) Show(string, Kind) {}
func (Nop) Update(string, string) {}
func (Nop) SetKind(Kind) {}
func (Nop) Hide() {}

// OrNop returns ind, or Nop when ind is nil.
func OrNop(ind Indicator) Indicator {
	if ind == nil {
		return Nop{}
	}
	return ind
}

// Log writes indicator transitions to a structured logger.
type Log struct {
	logger *slog.Logger

	mu    sync.Mutex
	kind  Kind
	title string
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Show(title string, kind Kind) {
	l.mu.Lock()
	l.kind, l.title = kind, title
	l.mu.Unlock()
	l.logger.Info(title, "indicator", "show", "kind", kind)
}

func (l *Log) Update(title, detail string) {
	l.mu.Lock()
	l.title = title
	kind := l.kind
	l.mu.Unlock()
	if kind == KindError {
		l.logger.Warn(title, "indicator", "update", "detail", detail)
		return
	}
	l.logger.Info(title, "indicator", "update", "kind", kind, "detail", detail)
}

func (l *Log) SetKind(kind Kind) {
	l.mu.Lock()
	l.kind = kind
	l.mu.Unlock()
}

func (l *Log) Hide() {
	l.mu.Lock()
	title := l.title
	l.mu.Unlock()
	l.logger.Debug(title, "indicator", "hide")
}

// Event is one recorded indicator call.
type Event struct {
	Op     string
	Title  string
	Detail string
	Kind   Kind
}

// Recorder keeps every call in order. Useful for tests and for replaying
// progress to an API client.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Show(title string, kind Kind) { r.add(Event{Op: "show", Title: title, Kind: kind}) }

func (r *Recorder) Update(title, detail string) {
	r.add(Event{Op: "update", Title: title, Detail: detail})
}

func (r *Recorder) SetKind(kind Kind) { r.add(Event{Op: "kind", Kind: kind}) }

func (r *Recorder) Hide() { r.add(Event{Op: "hide"}) }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}
