// Package unitdoc documents the unit types of a registry: their controls and
// the configuration a fresh unit starts with.
package unitdoc

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"unicode"

	"github.com/Masterminds/sprig"
	"github.com/atomsynth/atomsynth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type (
	// Doc is the data given to the templates.
	Doc struct {
		Categories []Category
	}

	Category struct {
		Name  string
		Units []Unit
	}

	Unit struct {
		Name        string
		Description string
		Controls    []Control
		// Config is the snapshot of a fresh unit, as it would appear in a
		// song file.
		Config *atomsynth.Config
	}

	Control struct {
		Key     string
		Label   string
		Default string
	}
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var Formats = []string{"text", "markdown", "yaml"}

// Make builds the documentation of every unit type in the registry.
func Make(reg *atomsynth.Registry) (Doc, error) {
	caser := cases.Title(language.English)
	var ret Doc
	for _, e := range reg.Manifest() {
		bp, err := reg.Lookup(e.Category, e.Name)
		if err != nil {
			return Doc{}, err
		}
		u := Unit{Name: e.Name, Description: e.Description, Config: bp.Snapshot()}
		for _, key := range e.Controls {
			v, _ := u.Config.Get(key)
			b, err := yaml.Marshal(v)
			if err != nil {
				return Doc{}, fmt.Errorf("unit %v/%v: %w", e.Category, e.Name, err)
			}
			u.Controls = append(u.Controls, Control{Key: key, Label: caser.String(splitWords(key)), Default: strings.TrimSpace(string(b))})
		}
		if n := len(ret.Categories); n == 0 || ret.Categories[n-1].Name != e.Category {
			ret.Categories = append(ret.Categories, Category{Name: e.Category})
		}
		c := &ret.Categories[len(ret.Categories)-1]
		c.Units = append(c.Units, u)
	}
	return ret, nil
}

// splitWords turns a camelCase key into lower case words.
func splitWords(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) && i > 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Render writes the documentation in one of the Formats.
func (d Doc) Render(format string) ([]byte, error) {
	if format == "yaml" {
		return d.yaml()
	}
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("could not parse templates: %v", err)
	}
	if tmpl.Lookup(format+".tmpl") == nil {
		return nil, fmt.Errorf("unknown format %q, expected one of %v", format, Formats)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, format+".tmpl", d); err != nil {
		return nil, fmt.Errorf(`could not execute template "%v": %v`, format, err)
	}
	return buf.Bytes(), nil
}

// yaml lists every unit as a song unit with its default config, ready to be
// pasted into a patch.
func (d Doc) yaml() ([]byte, error) {
	var units []atomsynth.Unit
	for _, c := range d.Categories {
		for _, u := range c.Units {
			units = append(units, atomsynth.Unit{Category: c.Name, Name: u.Name, Config: u.Config})
		}
	}
	return yaml.Marshal(units)
}
