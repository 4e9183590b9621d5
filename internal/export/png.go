package export

import (
	"fmt"
	"image/png"
	"io"

	"LiveCanvas/internal/canvas"
	"LiveCanvas/internal/render"
	"LiveCanvas/internal/state"
	"LiveCanvas/internal/viewport"
)

const pngPadding = 40.0

// PNG paints the board into a width x height image, fitted with padding.
func PNG(w io.Writer, objs []state.BoardObject, conns []state.Connection, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", width, height)
	}
	bounds, err := Bounds(objs, conns)
	if err != nil {
		return err
	}
	painter, err := render.NewPainter()
	if err != nil {
		return err
	}
	painter.Grid = false

	view := viewport.Fit(bounds.X, bounds.Y, bounds.Width, bounds.Height, float64(width), float64(height), pngPadding)
	img := painter.Paint(canvas.StaticScene(objs, conns, view), width, height, 1)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
