package metadata

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"unicode/utf8"
)

const (
	CollectionName        = "Mojo Arena Characters"
	CollectionDescription = "On-chain characters for the Mojo Arena demo"
)

// Template is a selectable character.
type Template struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	HP          uint32 `json:"hp"`
	ATK         uint32 `json:"atk"`
	DEF         uint32 `json:"def"`
}

// Roster returns the playable characters in index order. The index of a
// template determines its hue.
func Roster() []Template {
	return []Template{
		{Name: "Freya", Description: "Norse warrior goddess", HP: 100, ATK: 18, DEF: 12},
		{Name: "Odin", Description: "Allfather of wisdom", HP: 120, ATK: 15, DEF: 15},
		{Name: "Thor", Description: "God of thunder", HP: 110, ATK: 22, DEF: 8},
		{Name: "Loki", Description: "Trickster shapeshifter", HP: 80, ATK: 25, DEF: 5},
		{Name: "Hel", Description: "Queen of the dead", HP: 90, ATK: 20, DEF: 10},
		{Name: "Tyr", Description: "God of war and law", HP: 130, ATK: 14, DEF: 18},
	}
}

// Lookup returns the roster entry with the given name and its index.
func Lookup(name string) (Template, int, bool) {
	for i, t := range Roster() {
		if t.Name == name {
			return t, i, true
		}
	}
	return Template{}, -1, false
}

type collectionDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// CollectionMetadataJSON returns the collection document uploaded before the
// first mint.
func CollectionMetadataJSON(name, description string) string {
	b, _ := json.Marshal(collectionDoc{Name: name, Description: description})
	return string(b)
}

// Inline metadata below is small enough to embed directly in a mint
// transaction when no upload service is reachable.

type inlineDoc struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func jsonDataURI(doc inlineDoc) string {
	b, _ := json.Marshal(doc)
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(b)
}

// BadgeSVG is a 32x32 circle in the character's hue with its initial.
func BadgeSVG(index int, name string) string {
	initial := "?"
	if r, _ := utf8.DecodeRuneInString(name); r != utf8.RuneError {
		initial = string(r)
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="32" height="32">`+
		`<circle cx="16" cy="16" r="15" fill="hsl(%d,80%%,60%%)"/>`+
		`<text x="16" y="22" text-anchor="middle" fill="#fff" font-size="18">%s</text>`+
		`</svg>`, Hue(index), html.EscapeString(initial))
}

// CharacterDataURI returns an inline metadata URI whose image is BadgeSVG.
func CharacterDataURI(index int, name string) string {
	img := "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(BadgeSVG(index, name)))
	return jsonDataURI(inlineDoc{Name: name, Image: img})
}

// CollectionDataURI returns an inline metadata URI with an empty image.
func CollectionDataURI(name string) string { return jsonDataURI(inlineDoc{Name: name}) }

// ProfileDataURI returns an inline metadata URI for a profile picture.
func ProfileDataURI(name string) string { return jsonDataURI(inlineDoc{Name: name}) }
