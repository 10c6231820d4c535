// Package certificate renders the shareable score image.
package certificate

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const (
	width  = 800
	height = 400
)

// Renderer draws a fixed-layout PNG certificate. The artifact only ever
// exists in memory; callers send it and drop it.
type Renderer struct {
	fontPath string
	clock    func() time.Time
}

func New(fontPath string) *Renderer {
	return &Renderer{fontPath: fontPath, clock: time.Now}
}

// NewWithClock is test-only for a deterministic date line.
func NewWithClock(fontPath string, now func() time.Time) *Renderer {
	return &Renderer{fontPath: fontPath, clock: now}
}

func (r *Renderer) Render(username, category string, score, total int) ([]byte, error) {
	dc := gg.NewContext(width, height)
	dc.SetRGB255(58, 95, 205)
	dc.Clear()
	dc.SetRGB255(255, 255, 255)

	large, medium := r.faces()

	dc.SetFontFace(large)
	dc.DrawString("Quiz Certificate", 50, 90)

	lines := []string{
		"User: " + username,
		"Category: " + category,
		fmt.Sprintf("Score: %d/%d", score, total),
		"Date: " + r.clock().Format("02/01/2006"),
	}
	dc.SetFontFace(medium)
	for i, line := range lines {
		dc.DrawString(line, 50, float64(170+i*50))
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode certificate: %w", err)
	}
	return buf.Bytes(), nil
}

// faces loads the configured TTF, falling back to the builtin bitmap font
// when no usable font file is around.
func (r *Renderer) faces() (font.Face, font.Face) {
	if r.fontPath != "" {
		large, errLarge := gg.LoadFontFace(r.fontPath, 40)
		medium, errMedium := gg.LoadFontFace(r.fontPath, 30)
		if errLarge == nil && errMedium == nil {
			return large, medium
		}
		log.Printf("certificate: font %q not usable, using builtin face", r.fontPath)
	}
	return basicfont.Face7x13, basicfont.Face7x13
}
