package state

// ObjectPatch lists the object fields a writer wants to change. Nil fields are
// left untouched at the store. A pointer to an empty string clears the field.
type ObjectPatch struct {
	X              *float64
	Y              *float64
	Width          *float64
	Height         *float64
	Rotation       *float64
	Color          *string
	Text           *string
	HeadingLevel   *int
	ImageData      *string
	SelectedBy     *string
	SelectedByName *string
	FrameID        *string
	SentToBack     *bool
}

func Float(v float64) *float64 { return &v }
func String(v string) *string  { return &v }
func Int(v int) *int           { return &v }
func Bool(v bool) *bool        { return &v }

// Empty reports whether the patch sets no field at all.
func (p ObjectPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Fields returns the wire form of the patch keyed by JSON field name. Cleared
// string fields map to nil, which the store treats as a removal.
func (p ObjectPatch) Fields() map[string]any {
	f := make(map[string]any)
	putFloat(f, "x", p.X)
	putFloat(f, "y", p.Y)
	putFloat(f, "width", p.Width)
	putFloat(f, "height", p.Height)
	putFloat(f, "rotation", p.Rotation)
	putString(f, "color", p.Color)
	putString(f, "text", p.Text)
	putString(f, "imageData", p.ImageData)
	putString(f, "selectedBy", p.SelectedBy)
	putString(f, "selectedByName", p.SelectedByName)
	putString(f, "frameId", p.FrameID)
	if p.HeadingLevel != nil {
		if *p.HeadingLevel == 0 {
			f["headingLevel"] = nil
		} else {
			f["headingLevel"] = *p.HeadingLevel
		}
	}
	if p.SentToBack != nil {
		if *p.SentToBack {
			f["sentToBack"] = true
		} else {
			f["sentToBack"] = nil
		}
	}
	return f
}

// Apply returns o with the patch applied, mirroring what the store does with
// the same fields.
func (p ObjectPatch) Apply(o BoardObject) BoardObject {
	setFloat(&o.X, p.X)
	setFloat(&o.Y, p.Y)
	setFloat(&o.Width, p.Width)
	setFloat(&o.Height, p.Height)
	setFloat(&o.Rotation, p.Rotation)
	setString(&o.Color, p.Color)
	setString(&o.Text, p.Text)
	setString(&o.ImageData, p.ImageData)
	setString(&o.SelectedBy, p.SelectedBy)
	setString(&o.SelectedByName, p.SelectedByName)
	setString(&o.FrameID, p.FrameID)
	if p.HeadingLevel != nil {
		o.HeadingLevel = *p.HeadingLevel
	}
	if p.SentToBack != nil {
		o.SentToBack = *p.SentToBack
	}
	return o
}

// ConnectionPatch is the connection counterpart of ObjectPatch.
type ConnectionPatch struct {
	FromAnchor *string
	ToAnchor   *string
	Color      *string
	Points     *[]Point
}

func (p ConnectionPatch) Empty() bool {
	return len(p.Fields()) == 0
}

func (p ConnectionPatch) Fields() map[string]any {
	f := make(map[string]any)
	putString(f, "fromAnchor", p.FromAnchor)
	putString(f, "toAnchor", p.ToAnchor)
	putString(f, "color", p.Color)
	if p.Points != nil {
		if len(*p.Points) == 0 {
			f["points"] = nil
		} else {
			pts := make([]any, 0, len(*p.Points))
			for _, pt := range *p.Points {
				pts = append(pts, map[string]any{"x": pt.X, "y": pt.Y})
			}
			f["points"] = pts
		}
	}
	return f
}

func (p ConnectionPatch) Apply(c Connection) Connection {
	setString(&c.FromAnchor, p.FromAnchor)
	setString(&c.ToAnchor, p.ToAnchor)
	setString(&c.Color, p.Color)
	if p.Points != nil {
		c.Points = append([]Point(nil), (*p.Points)...)
		if len(c.Points) == 0 {
			c.Points = nil
		}
	}
	return c
}

func putFloat(f map[string]any, key string, v *float64) {
	if v != nil {
		f[key] = *v
	}
}

func putString(f map[string]any, key string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		f[key] = nil
		return
	}
	f[key] = *v
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
