package ui

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"LiveCanvas/internal/export"
)

const (
	pngExportWidth  = 1600
	pngExportHeight = 1000
	maxImageBytes   = 8 << 20
)

// fileActions are the toolbar actions that open a file dialog.
type fileActions struct {
	window  fyne.Window
	board   *BoardWidget
	boardID string
	status  func(string)
}

func (f *fileActions) ExportPDF() {
	f.save(".pdf", func(w io.Writer) error {
		objs, conns := f.board.Engine().Content()
		return export.PDF(w, objs, conns)
	})
}

func (f *fileActions) ExportPNG() {
	f.save(".png", func(w io.Writer) error {
		objs, conns := f.board.Engine().Content()
		return export.PNG(w, objs, conns, pngExportWidth, pngExportHeight)
	})
}

func (f *fileActions) save(ext string, write func(io.Writer) error) {
	if objs, _ := f.board.Engine().Content(); len(objs) == 0 {
		f.status("Board is empty, nothing to export")
		return
	}
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, f.window)
			return
		}
		if writer == nil {
			return
		}
		defer func() {
			if err := writer.Close(); err != nil {
				log.Printf("[CANVAS] closing %s failed: %v", writer.URI(), err)
			}
		}()
		if err := write(writer); err != nil {
			log.Printf("[CANVAS] export to %s failed: %v", writer.URI(), err)
			dialog.ShowError(fmt.Errorf("export failed: %w", err), f.window)
			return
		}
		f.status("Exported " + writer.URI().Name())
	}, f.window)
	d.SetFileName(f.boardID + ext)
	d.SetFilter(storage.NewExtensionFileFilter([]string{ext}))
	d.Show()
}

func (f *fileActions) InsertImage() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, f.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()
		data, w, h, err := imageDataURL(reader)
		if err != nil {
			log.Printf("[CANVAS] reading image %s failed: %v", reader.URI(), err)
			dialog.ShowError(err, f.window)
			return
		}
		f.board.Engine().InsertImage(data, float64(w), float64(h), f.board.Center())
	}, f.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg"}))
	d.Show()
}

var errImageTooLarge = errors.New("image is larger than 8 MB")

// imageDataURL reads a PNG or JPEG and returns it as a data URL along with
// its pixel size.
func imageDataURL(r io.Reader) (string, int, int, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxImageBytes+1))
	if err != nil {
		return "", 0, 0, err
	}
	if len(raw) > maxImageBytes {
		return "", 0, 0, errImageTooLarge
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", 0, 0, fmt.Errorf("unsupported image: %w", err)
	}
	data := "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(raw)
	return data, cfg.Width, cfg.Height, nil
}
