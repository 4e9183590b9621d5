package state

import (
	"hash/fnv"
	"strings"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ObjectType string

const (
	TypeStickyNote ObjectType = "stickyNote"
	TypeRectangle  ObjectType = "rectangle"
	TypeCircle     ObjectType = "circle"
	TypeStar       ObjectType = "star"
	TypeText       ObjectType = "text"
	TypeImage      ObjectType = "image"
	TypeFrame      ObjectType = "frame"
)

// Valid reports whether t is one of the known object types.
func (t ObjectType) Valid() bool {
	switch t {
	case TypeStickyNote, TypeRectangle, TypeCircle, TypeStar, TypeText, TypeImage, TypeFrame:
		return true
	}
	return false
}

// BoardObject is a visual entity on the board. X and Y are the world-space
// top-left corner; Rotation is in degrees about the center.
type BoardObject struct {
	ID             string     `json:"id"`
	Type           ObjectType `json:"type"`
	X              float64    `json:"x"`
	Y              float64    `json:"y"`
	Width          float64    `json:"width"`
	Height         float64    `json:"height"`
	Rotation       float64    `json:"rotation,omitempty"`
	Color          string     `json:"color,omitempty"`
	Text           string     `json:"text,omitempty"`
	HeadingLevel   int        `json:"headingLevel,omitempty"`
	ImageData      string     `json:"imageData,omitempty"`
	CreatedBy      string     `json:"createdBy"`
	CreatedAt      int64      `json:"createdAt"`
	SelectedBy     string     `json:"selectedBy,omitempty"`
	SelectedByName string     `json:"selectedByName,omitempty"`
	FrameID        string     `json:"frameId,omitempty"`
	SentToBack     bool       `json:"sentToBack,omitempty"`
}

func (o BoardObject) Center() Point {
	return Point{X: o.X + o.Width/2, Y: o.Y + o.Height/2}
}

func (o BoardObject) IsFrame() bool { return o.Type == TypeFrame }

func (o BoardObject) complete() bool { return o.Type.Valid() }

// Connection is a directed edge between two objects' anchors, optionally
// routed through world-space waypoints.
type Connection struct {
	ID         string  `json:"id"`
	FromID     string  `json:"fromId"`
	ToID       string  `json:"toId"`
	FromAnchor string  `json:"fromAnchor"`
	ToAnchor   string  `json:"toAnchor"`
	Points     []Point `json:"points,omitempty"`
	Color      string  `json:"color,omitempty"`
	CreatedBy  string  `json:"createdBy"`
	CreatedAt  int64   `json:"createdAt"`
}

// Touches reports whether the connection references the object id at either end.
func (c Connection) Touches(objectID string) bool {
	return c.FromID == objectID || c.ToID == objectID
}

func (c Connection) complete() bool { return c.FromID != "" && c.ToID != "" }

// Clone returns a copy that shares no slices with c.
func (c Connection) Clone() Connection {
	if c.Points != nil {
		c.Points = append([]Point(nil), c.Points...)
	}
	return c
}

// Cursor is the ephemeral presence record of one user.
type Cursor struct {
	UserID     string  `json:"userId"`
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Color      string  `json:"color"`
	LastUpdate int64   `json:"lastUpdate"`
}

// Identity is who the local client acts as. Both values are opaque.
type Identity struct {
	UserID string
	Name   string
}

var cursorPalette = []string{
	"#e11d48", "#2563eb", "#16a34a", "#d97706",
	"#7c3aed", "#0891b2", "#db2777", "#65a30d",
}

// CursorColor maps a user id onto the cursor palette. The same id always
// yields the same color on every client.
func CursorColor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.TrimSpace(userID)))
	return cursorPalette[h.Sum32()%uint32(len(cursorPalette))]
}
