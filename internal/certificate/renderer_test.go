package certificate

import (
	"bytes"
	"image/png"
	"testing"
	"time"
)

func TestRenderProducesPNG(t *testing.T) {
	r := NewWithClock("", func() time.Time {
		return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	})

	data, err := r.Render("alice", "General", 3, 3)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected image bytes")
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		t.Fatalf("unexpected canvas size %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestRenderMissingFontFallsBack(t *testing.T) {
	r := New("/definitely/not/a/font.ttf")

	data, err := r.Render("bob", "History", 0, 5)
	if err != nil {
		t.Fatalf("render with fallback face: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected image bytes")
	}
}
