// Package undo keeps the local stack of compensating actions. Undo here is a
// forward action that restores prior values, not time travel, so entries must
// capture what they restore by value.
package undo

import "log"

type Entry struct {
	Description string
	Undo        func()
}

// Stack is LIFO. With a positive limit the oldest entries fall off the bottom.
type Stack struct {
	entries []Entry
	limit   int
	logger  *log.Logger
}

func NewStack(limit int) *Stack {
	return &Stack{limit: limit, logger: log.Default()}
}

func (s *Stack) SetLogger(l *log.Logger) {
	if l != nil {
		s.logger = l
	}
}

func (s *Stack) Push(e Entry) {
	if e.Undo == nil {
		return
	}
	s.entries = append(s.entries, e)
	if s.limit > 0 && len(s.entries) > s.limit {
		drop := len(s.entries) - s.limit
		s.entries = append([]Entry(nil), s.entries[drop:]...)
	}
}

// Undo pops the newest entry and runs it. A panicking compensation is logged
// and swallowed so the interaction loop keeps running; the entry still counts
// as popped.
func (s *Stack) Undo() (e Entry, ok bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	last := len(s.entries) - 1
	e, ok = s.entries[last], true
	s.entries = s.entries[:last]

	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("[UNDO] %q failed: %v", e.Description, r)
		}
	}()
	e.Undo()
	return e, true
}

func (s *Stack) Peek() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

func (s *Stack) Len() int { return len(s.entries) }

func (s *Stack) Clear() { s.entries = nil }
