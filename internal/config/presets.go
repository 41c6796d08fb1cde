package config

import "sort"

const au = 1.49597871e11

// ViewPreset frames a region of the system.
type ViewPreset struct {
	Scale   float64
	CenterX float64
	CenterY float64
	Follow  string
}

var Presets = map[string]ViewPreset{
	"inner":   {Scale: 1.7 * au / 200},
	"outer":   {Scale: 32 * au / 200},
	"earth":   {Scale: 2e9 / 200, CenterX: au, Follow: "Earth"},
	"jupiter": {Scale: 4e10 / 200, CenterX: 778.6e9, Follow: "Jupiter"},
}

func GetPreset(name string) (ViewPreset, bool) {
	p, ok := Presets[name]
	return p, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset overwrites the view center and scale. It returns the body to
// follow, if any.
func (c *Config) ApplyPreset(name string) (string, bool) {
	p, ok := GetPreset(name)
	if !ok {
		return "", false
	}
	c.View.Scale = p.Scale
	c.View.CenterX = p.CenterX
	c.View.CenterY = p.CenterY
	return p.Follow, true
}
