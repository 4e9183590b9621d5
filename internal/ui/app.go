package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/atotto/clipboard"

	"LiveCanvas/internal/canvas"
	"LiveCanvas/internal/render"
	"LiveCanvas/internal/session"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/store"
	"LiveCanvas/internal/undo"
	"LiveCanvas/internal/viewport"
)

const (
	cursorRefresh = time.Second
	viewSaveDelay = 500 * time.Millisecond
)

type Options struct {
	Store       store.Store
	Board       string
	Identity    state.Identity
	Session     *session.Store // optional
	UndoLimit   int
	CursorStale time.Duration
	// ShareLink is shown with a copy button when set.
	ShareLink string
	// Peers reports connected peers on a hosting process.
	Peers func() int
	// Notices are shown in the status bar as they arrive.
	Notices <-chan string
	Logger  *log.Logger
}

type window struct {
	opts     Options
	logger   *log.Logger
	win      fyne.Window
	board    *state.Board
	presence *state.Presence
	engine   *canvas.Engine
	widget   *BoardWidget
	toolbar  *Toolbar
	status   *widget.Label

	draft    *session.Draft // restored draft waiting for its object
	viewMu   sync.Mutex
	viewSave *time.Timer
}

// Run opens the board window and blocks until it is closed.
func Run(opts Options) error {
	if opts.Store == nil {
		return errors.New("no store to draw on")
	}
	w := &window{opts: opts, logger: opts.Logger}
	if w.logger == nil {
		w.logger = log.Default()
	}

	painter, err := render.NewPainter()
	if err != nil {
		return fmt.Errorf("failed to load fonts: %w", err)
	}

	myApp := app.New()
	w.win = myApp.NewWindow("LiveCanvas - " + opts.Board)
	w.win.Resize(fyne.NewSize(1280, 800))

	view := viewport.NewController(FrameScheduler())
	w.board = state.NewBoard(opts.Store, opts.Board,
		state.WithLogger(w.logger),
		state.WithExecutor(Executor),
		state.WithOnChange(w.boardChanged),
	)
	w.presence = state.NewPresence(opts.Store, opts.Board, opts.Identity,
		state.WithPresenceExecutor(Executor),
		state.WithPresenceLogger(w.logger),
		state.WithStaleAfter(opts.CursorStale),
		state.WithCursorChange(w.refresh),
	)
	stack := undo.NewStack(opts.UndoLimit)
	stack.SetLogger(w.logger)
	w.engine = canvas.New(canvas.Config{
		Board:     w.board,
		Presence:  w.presence,
		View:      view,
		Identity:  opts.Identity,
		Undo:      stack,
		Clipboard: SystemClipboard(),
		Logger:    w.logger,
		OnChange:  w.engineChanged,
	})
	w.widget = NewBoardWidget(w.engine, painter)
	w.widget.OnEditText = w.editText
	w.status = widget.NewLabel(fmt.Sprintf("Ready as %s", opts.Identity.Name))

	files := &fileActions{window: w.win, board: w.widget, boardID: opts.Board, status: w.setStatus}
	w.toolbar = NewToolbar(w.widget, files)

	w.restoreSession()
	view.OnCommit = func(v viewport.View) {
		w.refresh()
		w.scheduleViewSave(v)
	}

	w.win.SetContent(container.NewBorder(w.toolbar.Content(), w.statusBar(), nil, nil, w.widget))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.board.Mount()
	w.presence.Start(ctx)
	go w.tick(ctx)
	if opts.Notices != nil {
		go w.forwardNotices(ctx)
	}

	w.win.ShowAndRun()

	w.presence.Stop()
	w.board.Unmount()
	w.flushViewSave(view.Committed())
	return nil
}

func (w *window) statusBar() fyne.CanvasObject {
	if w.opts.ShareLink == "" {
		return container.NewHBox(w.status)
	}
	link := w.opts.ShareLink
	copyLink := widget.NewButtonWithIcon("Copy link", theme.ContentCopyIcon(), func() {
		if err := clipboard.WriteAll(link); err != nil {
			w.setStatus("Copy failed: " + err.Error())
			return
		}
		w.setStatus("Link copied")
	})
	return container.NewHBox(w.status, widget.NewSeparator(), widget.NewLabel(link), copyLink)
}

func (w *window) setStatus(text string) {
	w.status.SetText(text)
}

func (w *window) refresh() {
	if w.widget != nil {
		w.widget.Refresh()
	}
}

func (w *window) engineChanged() {
	if w.toolbar != nil {
		w.toolbar.Sync()
	}
	w.refresh()
}

func (w *window) boardChanged() {
	if d := w.draft; d != nil {
		if o, ok := w.board.Object(d.ObjectID); ok {
			w.draft = nil
			o.Text = d.Text
			w.editText(o)
		}
	}
	w.refresh()
}

// tick repaints once a second so stale cursors fade out, and keeps the peer
// count current on a host.
func (w *window) tick(ctx context.Context) {
	t := time.NewTicker(cursorRefresh)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fyne.Do(func() {
				w.refresh()
				if w.opts.Peers != nil {
					w.setStatus(fmt.Sprintf("Hosting as %s, %d peer(s) connected", w.opts.Identity.Name, w.opts.Peers()))
				}
			})
		}
	}
}

func (w *window) forwardNotices(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-w.opts.Notices:
			if !ok {
				return
			}
			fyne.Do(func() { w.setStatus(text) })
		}
	}
}

// Session.

func (w *window) restoreSession() {
	s := w.opts.Session
	if s == nil {
		return
	}
	if v, err := s.LoadView(w.opts.Board); err == nil {
		w.engine.View().Set(v)
	} else if !errors.Is(err, session.ErrNotFound) {
		w.logger.Printf("[CANVAS] restoring view failed: %v", err)
	}
	if d, err := s.LoadDraft(w.opts.Board); err == nil {
		w.draft = &d
	} else if !errors.Is(err, session.ErrNotFound) {
		w.logger.Printf("[CANVAS] restoring draft failed: %v", err)
	}
}

func (w *window) scheduleViewSave(v viewport.View) {
	if w.opts.Session == nil {
		return
	}
	w.viewMu.Lock()
	defer w.viewMu.Unlock()
	if w.viewSave != nil {
		w.viewSave.Stop()
	}
	w.viewSave = time.AfterFunc(viewSaveDelay, func() { w.saveView(v) })
}

func (w *window) flushViewSave(v viewport.View) {
	if w.opts.Session == nil {
		return
	}
	w.viewMu.Lock()
	if w.viewSave != nil {
		w.viewSave.Stop()
		w.viewSave = nil
	}
	w.viewMu.Unlock()
	w.saveView(v)
}

func (w *window) saveView(v viewport.View) {
	if err := w.opts.Session.SaveView(w.opts.Board, v); err != nil {
		w.logger.Printf("[CANVAS] saving view failed: %v", err)
	}
}

// editText opens a text editor for o. Typing is kept as a draft so a crash
// or a closed window does not lose it.
func (w *window) editText(o state.BoardObject) {
	s := w.opts.Session
	entry := widget.NewMultiLineEntry()
	entry.SetText(o.Text)
	entry.OnChanged = func(text string) {
		if s == nil {
			return
		}
		if err := s.SaveDraft(w.opts.Board, session.Draft{ObjectID: o.ID, Text: text}); err != nil {
			w.logger.Printf("[CANVAS] saving draft failed: %v", err)
		}
	}

	w.engine.SetTextEditing(true)
	d := dialog.NewCustomConfirm("Edit text", "Save", "Cancel", entry, func(ok bool) {
		w.engine.SetTextEditing(false)
		if ok {
			w.engine.SetText(o.ID, entry.Text)
		}
		if s != nil {
			if err := s.ClearDraft(w.opts.Board); err != nil {
				w.logger.Printf("[CANVAS] clearing draft failed: %v", err)
			}
		}
		w.win.Canvas().Focus(w.widget)
	}, w.win)
	d.Resize(fyne.NewSize(420, 260))
	d.Show()
	w.win.Canvas().Focus(entry)
}
