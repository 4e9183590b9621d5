package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"LiveCanvas/internal/canvas"
	"LiveCanvas/internal/render"
)

// palette is offered for both objects and connections.
var palette = []string{
	"#fff59d", "#ffcc80", "#ef9a9a", "#f48fb1",
	"#ce93d8", "#90caf9", "#a5d6a7", "#eceff1",
	"#546e7a", "#212121",
}

var toolLabels = []struct {
	label string
	tool  canvas.Tool
}{
	{"Select", canvas.ToolSelect},
	{"Move", canvas.ToolMove},
	{"Note", canvas.ToolStickyNote},
	{"Rect", canvas.ToolRectangle},
	{"Circle", canvas.ToolCircle},
	{"Star", canvas.ToolStar},
	{"Text", canvas.ToolText},
	{"Frame", canvas.ToolFrame},
}

var headingLabels = []string{"Body", "H1", "H2", "H3"}

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	OnTapped func(hex string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := fcanvas.NewRectangle(render.ParseHex(s.Hex, color.White))
	rect.SetMinSize(fyne.NewSize(24, 24))

	border := fcanvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

// Toolbar is the strip above the board: tool modes, edit actions, heading
// level and colors. Sync must run after engine changes so the tool radio
// follows the engine falling back to select after a creation.
type Toolbar struct {
	engine  *canvas.Engine
	tools   *widget.RadioGroup
	heading *widget.Select
	content fyne.CanvasObject
	syncing bool
}

func NewToolbar(board *BoardWidget, files *fileActions) *Toolbar {
	t := &Toolbar{engine: board.Engine()}
	e := t.engine

	labels := make([]string, len(toolLabels))
	for i, tl := range toolLabels {
		labels[i] = tl.label
	}
	t.tools = widget.NewRadioGroup(labels, func(label string) {
		if t.syncing {
			return
		}
		for _, tl := range toolLabels {
			if tl.label == label {
				e.SetTool(tl.tool)
				return
			}
		}
	})
	t.tools.Horizontal = true
	t.tools.Required = true
	t.tools.SetSelected(labels[0])

	actions := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), e.UndoLast),
		widget.NewToolbarAction(theme.DeleteIcon(), e.DeleteSelection),
		widget.NewToolbarAction(theme.ContentCopyIcon(), e.Copy),
		widget.NewToolbarAction(theme.ContentPasteIcon(), e.Paste),
		widget.NewToolbarAction(theme.MoveDownIcon(), e.ToggleSendToBack),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.FileImageIcon(), files.InsertImage),
		widget.NewToolbarAction(theme.DocumentPrintIcon(), files.ExportPDF),
		widget.NewToolbarAction(theme.DownloadIcon(), files.ExportPNG),
	)

	t.heading = widget.NewSelect(headingLabels, func(string) {
		if i := t.heading.SelectedIndex(); i >= 0 {
			e.SetHeadingLevel(i)
		}
	})
	t.heading.PlaceHolder = "Heading"

	colorBox := container.NewHBox()
	for _, hex := range palette {
		colorBox.Add(newColorSwatch(hex, e.SetColor))
	}

	t.content = container.NewHBox(
		t.tools,
		widget.NewSeparator(),
		actions,
		widget.NewSeparator(),
		t.heading,
		widget.NewSeparator(),
		colorBox,
		layout.NewSpacer(),
	)
	return t
}

func (t *Toolbar) Content() fyne.CanvasObject { return t.content }

// Sync shows the engine's current tool.
func (t *Toolbar) Sync() {
	for _, tl := range toolLabels {
		if tl.tool == t.engine.Tool() && t.tools.Selected != tl.label {
			t.syncing = true
			t.tools.SetSelected(tl.label)
			t.syncing = false
			return
		}
	}
}
