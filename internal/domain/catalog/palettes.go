package catalog

import "strings"

// Palette is a named brand colour combination.
type Palette struct {
	Name   string   `json:"name"`
	Colors []string `json:"colors"`
}

// Param renders the palette as the change_palette action parameter.
func (p Palette) Param() string {
	return strings.Join(p.Colors, ", ")
}

var palettes = []Palette{
	{Name: "Orange + Sky + Maroon + Blush", Colors: []string{"#FF6200", "#89D6FD", "#4D0020", "#F689FD"}},
	{Name: "Orange + Maroon + Raspberry + Blush", Colors: []string{"#FF6200", "#4D0020", "#D40199", "#F689FD"}},
	{Name: "Orange + Raspberry + Blush + Sun", Colors: []string{"#FF6200", "#D40199", "#F689FD", "#FFE100"}},
	{Name: "Orange + Violet + Sky + Maroon", Colors: []string{"#FF6200", "#7724FF", "#89D6FD", "#4D0020"}},
}

// Palettes returns the fixed brand palettes.
func Palettes() []Palette {
	out := make([]Palette, len(palettes))
	for i, p := range palettes {
		out[i] = Palette{Name: p.Name, Colors: append([]string(nil), p.Colors...)}
	}
	return out
}
