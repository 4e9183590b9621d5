package export_test

import (
	"bytes"
	"image/png"
	"testing"

	"LiveCanvas/internal/export"
	"LiveCanvas/internal/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() ([]state.BoardObject, []state.Connection) {
	objs := []state.BoardObject{
		{ID: "f", Type: state.TypeFrame, X: -50, Y: -50, Width: 400, Height: 300, Text: "Plan"},
		{ID: "a", Type: state.TypeStickyNote, X: 0, Y: 0, Width: 100, Height: 100, Color: "#ffeb3b", Text: "Ship it ✓", FrameID: "f"},
		{ID: "b", Type: state.TypeCircle, X: 200, Y: 0, Width: 80, Height: 80, Rotation: 45},
		{ID: "s", Type: state.TypeStar, X: 200, Y: 150, Width: 60, Height: 60},
		{ID: "t", Type: state.TypeText, X: 0, Y: 150, Width: 150, Height: 40, Text: "Heading", HeadingLevel: 2},
		{ID: "i", Type: state.TypeImage, X: 400, Y: 0, Width: 50, Height: 50, ImageData: "not an image"},
	}
	conns := []state.Connection{
		{ID: "ab", FromID: "a", ToID: "b", FromAnchor: "right", ToAnchor: "left", Points: []state.Point{{X: 150, Y: 300}}},
		{ID: "dangling", FromID: "a", ToID: "gone", FromAnchor: "top", ToAnchor: "top"},
	}
	return objs, conns
}

func TestBounds(t *testing.T) {
	objs, conns := sample()
	r, err := export.Bounds(objs, conns)
	require.NoError(t, err)
	assert.Equal(t, -50.0, r.X)
	assert.Equal(t, -50.0, r.Y)
	assert.InDelta(t, 500, r.Width, 1e-3)
	assert.InDelta(t, 350, r.Height, 1e-3, "waypoints extend the box")

	_, err = export.Bounds(nil, nil)
	assert.ErrorIs(t, err, export.ErrEmpty)
}

func TestPDF(t *testing.T) {
	objs, conns := sample()
	var buf bytes.Buffer
	require.NoError(t, export.PDF(&buf, objs, conns))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	buf.Reset()
	assert.ErrorIs(t, export.PDF(&buf, nil, nil), export.ErrEmpty)
	assert.Zero(t, buf.Len())
}

func TestPNG(t *testing.T) {
	objs, conns := sample()
	var buf bytes.Buffer
	require.NoError(t, export.PNG(&buf, objs, conns, 320, 240))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())

	assert.Error(t, export.PNG(&buf, objs, conns, 0, 10))
	assert.ErrorIs(t, export.PNG(&buf, nil, nil, 10, 10), export.ErrEmpty)
}
