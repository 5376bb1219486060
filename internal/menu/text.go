package menu

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"holoui.ai/internal/menu/def"
)

const (
	glyphSolid = "█"
	// Transparent pixels are two spaces wide, about one solid glyph.
	glyphClear = "  "
)

var missingLines = func() []string {
	a := "<#000000>████<#f800f8>████"
	b := "<#f800f8>████<#000000>████"
	return []string{a, a, a, a, b, b, b, b}
}()

// contentLen counts visible characters, skipping legacy "&x" codes and
// "<#rrggbb>" color tags.
func contentLen(s string) int {
	n := 0
	for i := 0; i < len(s); {
		switch {
		case s[i] == '&' && i+1 < len(s):
			_, w := utf8.DecodeRuneInString(s[i+1:])
			i += 1 + w
			continue
		case s[i] == '<' && strings.HasPrefix(s[i:], "<#"):
			if end := strings.IndexByte(s[i:], '>'); end > 0 {
				i += end + 1
				continue
			}
		}
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
		n++
	}
	return n
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// imageLines renders img as one colored line per pixel row, padded with
// blank rows up to height.
func imageLines(img *def.Image, height int) []string {
	lines := make([]string, 0, max(height, img.Height))
	for y := 0; y < img.Height; y++ {
		var b strings.Builder
		last := ""
		for x := 0; x < img.Width; x++ {
			c := img.At(x, y)
			if !img.Opaque && c.A < 255 {
				b.WriteString(glyphClear)
				continue
			}
			tag := fmt.Sprintf("<#%02x%02x%02x>", c.R, c.G, c.B)
			if tag != last {
				b.WriteString(tag)
				last = tag
			}
			b.WriteString(glyphSolid)
		}
		lines = append(lines, b.String())
	}
	blank := strings.Repeat(glyphClear, img.Width)
	for len(lines) < height {
		lines = append(lines, blank)
	}
	return lines
}

func progressBar(filled, segments int) string {
	filled = max(0, min(filled, segments))
	return "&f" + strings.Repeat("|", filled) + "&8" + strings.Repeat("|", segments-filled)
}
