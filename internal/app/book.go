package app

import (
	"fmt"

	"github.com/soyle-app/soyle/internal/gesture"
	"github.com/soyle-app/soyle/internal/phrases"
	"github.com/soyle-app/soyle/internal/store"
)

// PhraseSource describes where phrases come from, lowest priority first:
// the built-in table, a YAML file, then overrides saved in the store.
type PhraseSource struct {
	Lang    string
	Profile string
	File    string       // optional YAML phrase file
	Store   *store.Store // optional; overrides for Lang are applied
}

// BuildBook resolves src into a phrase book. When the file names its own
// language, store overrides for that language are used.
func BuildBook(src PhraseSource) (*phrases.Book, string, error) {
	lang := src.Lang

	var (
		base phrases.Table
		err  error
	)
	if src.File != "" {
		f, ferr := phrases.LoadFile(src.File)
		if ferr != nil {
			return nil, "", ferr
		}
		if f.Lang != "" {
			lang = f.Lang
		}
		base, err = f.Table(src.Lang, src.Profile)
	} else {
		base, err = phrases.Builtin(src.Lang, src.Profile)
	}
	if err != nil {
		return nil, "", err
	}

	book := phrases.NewBook(base)
	if src.Store == nil {
		return book, lang, nil
	}

	overrides, err := src.Store.Phrases().ListByLang(lang)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load phrase overrides: %w", err)
	}
	for _, p := range overrides {
		label := gesture.Label(p.Label)
		if !label.IsPose() {
			continue
		}
		book.Set(label, p.Text)
	}
	return book, lang, nil
}
