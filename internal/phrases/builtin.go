// Package phrases maps gesture labels to the text spoken for them.
package phrases

import (
	"errors"
	"fmt"

	"github.com/soyle-app/soyle/internal/gesture"
)

// ErrUnknownProfile is returned for a language/profile pair with no table.
var ErrUnknownProfile = errors.New("unknown phrase profile")

// Profiles.
const (
	Basic       = "basic"
	Descriptive = "descriptive"
)

// Table maps labels to phrases. Labels absent from the table are never spoken.
type Table map[gesture.Label]string

// Phrase implements stability.Phrasebook.
func (t Table) Phrase(label gesture.Label) (string, bool) {
	p, ok := t[label]
	return p, ok
}

// Clone returns an independent copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

var builtin = map[string]map[string]Table{
	"ru": {
		Basic: {
			gesture.Fist:      "Помогите",
			gesture.Palm:      "Здравствуйте",
			gesture.Peace:     "Спасибо",
			gesture.ThumbUp:   "Да",
			gesture.ThumbDown: "Нет",
			gesture.Point:     "Пожалуйста",
			gesture.OK:        "Окей",
			gesture.Pinch:     "Извините",
			gesture.ILY:       "Я тебя люблю",
			gesture.CallMe:    "Позвоните моей семье",
			gesture.LShape:    "Пойдём",
			gesture.Rock:      "Мне нужна вода",
			gesture.Three:     "Я хочу пить",
			gesture.Four:      "Я хочу есть",
		},
		Descriptive: {
			gesture.Fist:      "Мне нужна помощь, помогите пожалуйста",
			gesture.Palm:      "Здравствуйте, рад вас видеть",
			gesture.Peace:     "Большое спасибо",
			gesture.ThumbUp:   "Да, я согласен",
			gesture.ThumbDown: "Нет, я не согласен",
			gesture.Point:     "Посмотрите туда, пожалуйста",
			gesture.OK:        "Всё хорошо",
			gesture.Pinch:     "Извините, подождите немного",
			gesture.ILY:       "Я тебя люблю",
			gesture.CallMe:    "Пожалуйста, позвоните моей семье",
			gesture.LShape:    "Пойдёмте со мной",
			gesture.Rock:      "Мне нужна вода",
			gesture.Three:     "Я хочу пить, дайте попить",
			gesture.Four:      "Я голоден, я хочу есть",
		},
	},
	"en": {
		Basic: {
			gesture.Fist:      "Help",
			gesture.Palm:      "Hello",
			gesture.Peace:     "Thank you",
			gesture.ThumbUp:   "Yes",
			gesture.ThumbDown: "No",
			gesture.Point:     "Please",
			gesture.OK:        "Okay",
			gesture.Pinch:     "Sorry",
			gesture.ILY:       "I love you",
			gesture.CallMe:    "Call my family",
			gesture.LShape:    "Let's go",
			gesture.Rock:      "I need water",
			gesture.Three:     "I am thirsty",
			gesture.Four:      "I am hungry",
		},
		Descriptive: {
			gesture.Fist:      "I need help, please help me",
			gesture.Palm:      "Hello, nice to see you",
			gesture.Peace:     "Thank you very much",
			gesture.ThumbUp:   "Yes, I agree",
			gesture.ThumbDown: "No, I do not agree",
			gesture.Point:     "Please look over there",
			gesture.OK:        "Everything is fine",
			gesture.Pinch:     "Sorry, wait a moment",
			gesture.ILY:       "I love you",
			gesture.CallMe:    "Please call my family",
			gesture.LShape:    "Let's go together",
			gesture.Rock:      "I need some water",
			gesture.Three:     "I am thirsty, may I have a drink",
			gesture.Four:      "I am hungry, I want to eat",
		},
	},
}

// Builtin returns a copy of the built-in table for lang and profile.
func Builtin(lang, profile string) (Table, error) {
	profiles, ok := builtin[lang]
	if !ok {
		return nil, fmt.Errorf("%w: language %q", ErrUnknownProfile, lang)
	}
	t, ok := profiles[profile]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownProfile, lang, profile)
	}
	return t.Clone(), nil
}

// Languages lists the languages with built-in tables.
func Languages() []string {
	return []string{"en", "ru"}
}
