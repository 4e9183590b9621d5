package undo_test

import (
	"bytes"
	"log"
	"testing"

	"LiveCanvas/internal/undo"

	"github.com/stretchr/testify/assert"
)

func TestStack_LIFO(t *testing.T) {
	s := undo.NewStack(0)
	var ran []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		s.Push(undo.Entry{Description: name, Undo: func() { ran = append(ran, name) }})
	}

	top, ok := s.Peek()
	assert.True(t, ok)
	assert.Equal(t, "c", top.Description)

	for s.Len() > 0 {
		s.Undo()
	}
	assert.Equal(t, []string{"c", "b", "a"}, ran)

	_, ok = s.Undo()
	assert.False(t, ok, "undo on an empty stack is a no-op")
}

func TestStack_Limit(t *testing.T) {
	s := undo.NewStack(2)
	for _, name := range []string{"a", "b", "c"} {
		s.Push(undo.Entry{Description: name, Undo: func() {}})
	}
	assert.Equal(t, 2, s.Len())

	e, _ := s.Undo()
	assert.Equal(t, "c", e.Description)
	e, _ = s.Undo()
	assert.Equal(t, "b", e.Description)
}

func TestStack_IgnoresNilAndRecovers(t *testing.T) {
	var buf bytes.Buffer
	s := undo.NewStack(0)
	s.SetLogger(log.New(&buf, "", 0))

	s.Push(undo.Entry{Description: "nil"})
	assert.Equal(t, 0, s.Len())

	s.Push(undo.Entry{Description: "boom", Undo: func() { panic("broken") }})
	assert.NotPanics(t, func() { s.Undo() })
	assert.Contains(t, buf.String(), "boom")

	s.Push(undo.Entry{Description: "x", Undo: func() {}})
	s.Clear()
	assert.Equal(t, 0, s.Len())
}

func TestStack_PanickingUndoStillPops(t *testing.T) {
	var buf bytes.Buffer
	s := undo.NewStack(0)
	s.SetLogger(log.New(&buf, "", 0))
	s.Push(undo.Entry{Description: "keep", Undo: func() {}})
	s.Push(undo.Entry{Description: "boom", Undo: func() { panic("broken") }})

	e, ok := s.Undo()
	assert.True(t, ok)
	assert.Equal(t, "boom", e.Description)
	assert.Equal(t, 1, s.Len())
	assert.Contains(t, buf.String(), "[UNDO]")

	top, _ := s.Peek()
	assert.Equal(t, "keep", top.Description)
}
