package canvas

// Tool is the active creation or navigation mode.
type Tool int

const (
	ToolSelect Tool = iota
	ToolMove
	ToolStickyNote
	ToolRectangle
	ToolCircle
	ToolStar
	ToolText
	ToolFrame
)

var toolNames = map[Tool]string{
	ToolSelect:     "select",
	ToolMove:       "move",
	ToolStickyNote: "stickyNote",
	ToolRectangle:  "rectangle",
	ToolCircle:     "circle",
	ToolStar:       "star",
	ToolText:       "text",
	ToolFrame:      "frame",
}

func (t Tool) String() string {
	if n, ok := toolNames[t]; ok {
		return n
	}
	return "unknown"
}

type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

// Mods is a bit set of held modifier keys.
type Mods int

const (
	ModShift Mods = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

func (m Mods) Has(x Mods) bool { return m&x != 0 }

// Command reports Ctrl on Linux/Windows or Cmd on macOS.
func (m Mods) Command() bool { return m.Has(ModCtrl) || m.Has(ModSuper) }

// PointerEvent carries a screen position in widget pixels.
type PointerEvent struct {
	X, Y   float64
	Button Button
	Mods   Mods
}

type Key string

const (
	KeyDelete    Key = "Delete"
	KeyBackspace Key = "BackSpace"
	KeyEscape    Key = "Escape"
	KeyC         Key = "C"
	KeyV         Key = "V"
	KeyZ         Key = "Z"
)

type KeyEvent struct {
	Key  Key
	Mods Mods
}
