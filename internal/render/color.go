package render

import (
	"bytes"
	"encoding/base64"
	"hash/fnv"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strconv"
	"strings"
)

// ParseHex reads "#rgb" or "#rrggbb". Anything else yields fallback.
func ParseHex(hex string, fallback color.Color) color.Color {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

// DecodeImage accepts raw base64 or a data URL.
func DecodeImage(data string) (image.Image, error) {
	if i := strings.Index(data, ","); strings.HasPrefix(data, "data:") && i >= 0 {
		data = data[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	return img, err
}

// image decodes once per id and payload. Failures are cached as nil so a bad
// payload is not retried every frame.
func (p *Painter) image(id, data string) image.Image {
	if data == "" {
		return nil
	}
	h := fnv.New64a()
	h.Write([]byte(data))
	key := id + ":" + strconv.FormatUint(h.Sum64(), 16)
	if img, ok := p.images[key]; ok {
		return img
	}
	img, err := DecodeImage(data)
	if err != nil {
		img = nil
	}
	p.images[key] = img
	return img
}
