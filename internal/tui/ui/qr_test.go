package ui

import (
	"strings"
	"testing"
)

func TestRenderQR(t *testing.T) {
	out, err := RenderQR("lcchat://add/5551234")
	if err != nil {
		t.Fatalf("RenderQR: %v", err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("QR has %d rows, want at least 10", len(lines))
	}
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if n := len([]rune(l)); n != width {
			t.Fatalf("row %d has %d runes, want %d", i, n, width)
		}
	}
	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("QR contains no blocks")
	}
}
