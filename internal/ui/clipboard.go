package ui

import (
	"time"

	"fyne.io/fyne/v2"
	"github.com/atotto/clipboard"

	"LiveCanvas/internal/canvas"
	"LiveCanvas/internal/viewport"
)

const frameInterval = 16 * time.Millisecond

// systemClipboard lets copied objects travel between windows and processes.
type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// SystemClipboard returns nil when no clipboard utility is available, in
// which case copy and paste stay inside this window.
func SystemClipboard() canvas.Clipboard {
	if clipboard.Unsupported {
		return nil
	}
	return systemClipboard{}
}

// Executor hops store callbacks onto the fyne event loop.
func Executor(fn func()) {
	fyne.Do(fn)
}

// FrameScheduler commits viewport changes at most once per display frame.
func FrameScheduler() viewport.Scheduler {
	return viewport.SchedulerFunc(func(fn func()) {
		time.AfterFunc(frameInterval, func() { fyne.Do(fn) })
	})
}
