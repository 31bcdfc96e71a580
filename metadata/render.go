package metadata

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// Art is what a Renderer draws for one character.
type Art struct {
	Hue  int
	Name string
	HP   uint32
	ATK  uint32
	DEF  uint32
}

// Hue returns the color hue for the character at index.
func Hue(index int) int { return index * 60 }

// Renderer produces image bytes and their media type.
// A raster renderer would return "image/png".
type Renderer interface {
	Render(ctx context.Context, art Art) ([]byte, string, error)
}

const (
	ContentTypeSVG = "image/svg+xml"

	background = "rgb(10,10,10)"
)

// SVGRenderer draws a 120x160 stick figure in the character's hue with the
// name and stats underneath.
type SVGRenderer struct{}

func (SVGRenderer) Render(ctx context.Context, art Art) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return []byte(CharacterSVG(art)), ContentTypeSVG, nil
}

// CharacterSVG returns the full stick-figure SVG for art.
func CharacterSVG(art Art) string {
	c := fmt.Sprintf("hsl(%d,80%%,60%%)", art.Hue)
	stroke := fmt.Sprintf(`stroke="%s" stroke-width="2"`, c)

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="120" height="160" viewBox="0 0 120 160">`)
	fmt.Fprintf(&b, `<rect width="120" height="160" fill="%s"/>`, background)
	fmt.Fprintf(&b, `<circle cx="60" cy="35" r="16" fill="none" %s/>`, stroke)
	for _, l := range [][4]int{
		{60, 51, 60, 100},
		{60, 65, 35, 85},
		{60, 65, 85, 85},
		{60, 100, 40, 140},
		{60, 100, 80, 140},
	} {
		fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" %s/>`, l[0], l[1], l[2], l[3], stroke)
	}
	fmt.Fprintf(&b, `<text x="60" y="12" text-anchor="middle" fill="%s" font-family="monospace" font-size="8">HP %d ATK %d DEF %d</text>`,
		c, art.HP, art.ATK, art.DEF)
	fmt.Fprintf(&b, `<text x="60" y="155" text-anchor="middle" fill="%s" font-family="monospace" font-size="11">%s</text>`,
		c, html.EscapeString(art.Name))
	b.WriteString(`</svg>`)
	return b.String()
}
