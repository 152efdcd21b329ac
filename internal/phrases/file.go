package phrases

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/soyle-app/soyle/internal/gesture"
)

// File is the on-disk override format:
//
//	lang: ru
//	profile: basic
//	phrases:
//	  FIST: Помогите
//	  ONE: Один
//
// Lang and Profile pick the base table the phrases are layered over.
type File struct {
	Lang    string            `yaml:"lang"`
	Profile string            `yaml:"profile"`
	Phrases map[string]string `yaml:"phrases"`
}

// LoadFile reads and validates a phrase file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phrase file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile decodes a phrase file. Every key must be a known gesture label.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse phrase file: %w", err)
	}
	for label := range f.Phrases {
		if !gesture.Label(label).IsPose() {
			return nil, fmt.Errorf("phrase file: unknown gesture label %q", label)
		}
	}
	return &f, nil
}

// Table resolves the file into a full table. Empty Lang or Profile fall back
// to the given defaults.
func (f *File) Table(defaultLang, defaultProfile string) (Table, error) {
	lang, profile := f.Lang, f.Profile
	if lang == "" {
		lang = defaultLang
	}
	if profile == "" {
		profile = defaultProfile
	}

	t, err := Builtin(lang, profile)
	if err != nil {
		return nil, err
	}
	for label, text := range f.Phrases {
		if text == "" {
			delete(t, gesture.Label(label))
			continue
		}
		t[gesture.Label(label)] = text
	}
	return t, nil
}

// Marshal encodes a table in the file format.
func Marshal(lang, profile string, t Table) ([]byte, error) {
	f := File{Lang: lang, Profile: profile, Phrases: make(map[string]string, len(t))}
	for label, text := range t {
		f.Phrases[string(label)] = text
	}
	return yaml.Marshal(&f)
}
