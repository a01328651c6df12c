// Package mood maps a user-selected mood to provider search terms and display copy.
package mood

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Mood identifies a user-selectable emotional state.
type Mood string

// Surprise is both a literal mood and the catch-all profile.
const Surprise Mood = "surprise"

// Profile is the static search and display data for one mood.
type Profile struct {
	Mood            Mood     `yaml:"id" json:"mood"`
	DisplayLabel    string   `yaml:"label" json:"label"`
	DisplayImageRef string   `yaml:"image" json:"image"`
	CategoryCodes   []string `yaml:"categories" json:"category_codes"`
	Keywords        []string `yaml:"keywords" json:"keywords"`
	Reasons         []string `yaml:"reasons" json:"reasons"`
}

// Reason returns the reason at index i, clamped to the list bounds.
func (p Profile) Reason(i int) string {
	if len(p.Reasons) == 0 {
		return ""
	}
	if i < 0 {
		i = 0
	}
	if i >= len(p.Reasons) {
		i = len(p.Reasons) - 1
	}
	return p.Reasons[i]
}

// Keyword returns the keyword at index i or "" when out of range.
func (p Profile) Keyword(i int) string {
	if i < 0 || i >= len(p.Keywords) {
		return ""
	}
	return p.Keywords[i]
}

//go:embed moods.yaml
var builtin []byte

// Taxonomy is an immutable lookup table of mood profiles.
type Taxonomy struct {
	order    []Mood
	profiles map[Mood]Profile
}

// Default returns the taxonomy compiled into the binary.
func Default() *Taxonomy {
	t, err := Parse(builtin)
	if err != nil {
		// The embedded file is covered by tests; a failure here is a build defect.
		panic(err)
	}
	return t
}

// Load reads a taxonomy from a YAML file with the same schema as moods.yaml.
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "mood: read taxonomy %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a taxonomy document.
func Parse(data []byte) (*Taxonomy, error) {
	var doc struct {
		Moods []Profile `yaml:"moods"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "mood: parse taxonomy")
	}

	t := &Taxonomy{profiles: make(map[Mood]Profile, len(doc.Moods))}
	for _, p := range doc.Moods {
		p.Mood = Mood(strings.ToLower(strings.TrimSpace(string(p.Mood))))
		if p.Mood == "" {
			return nil, eris.New("mood: profile without id")
		}
		if _, dup := t.profiles[p.Mood]; dup {
			return nil, eris.Errorf("mood: duplicate profile %q", p.Mood)
		}
		if len(p.Keywords) == 0 {
			return nil, eris.Errorf("mood: profile %q has no keywords", p.Mood)
		}
		if len(p.Reasons) == 0 {
			return nil, eris.Errorf("mood: profile %q has no reasons", p.Mood)
		}
		t.profiles[p.Mood] = p
		t.order = append(t.order, p.Mood)
	}
	if _, ok := t.profiles[Surprise]; !ok {
		return nil, eris.New("mood: taxonomy is missing the surprise profile")
	}
	return t, nil
}

// ProfileFor returns the profile for m, or the surprise profile when m is unknown.
func (t *Taxonomy) ProfileFor(m Mood) Profile {
	key := Mood(strings.ToLower(strings.TrimSpace(string(m))))
	if p, ok := t.profiles[key]; ok {
		return p
	}
	return t.profiles[Surprise]
}

// Known reports whether m has its own profile.
func (t *Taxonomy) Known(m Mood) bool {
	_, ok := t.profiles[Mood(strings.ToLower(strings.TrimSpace(string(m))))]
	return ok
}

// Moods lists the mood ids in declaration order.
func (t *Taxonomy) Moods() []Mood {
	out := make([]Mood, len(t.order))
	copy(out, t.order)
	return out
}
