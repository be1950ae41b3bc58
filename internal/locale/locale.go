// Package locale holds the bilingual rendering rules: text direction,
// calendar, digit shapes and collation for English and Persian.
package locale

import (
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Language is a supported UI language.
type Language string

const (
	English Language = "en"
	Persian Language = "fa"
)

// Direction is the text direction of the rendered UI.
type Direction string

const (
	LTR Direction = "ltr"
	RTL Direction = "rtl"
)

// Calendar selects how dates are displayed.
type Calendar string

const (
	Gregorian Calendar = "gregorian"
	Jalali    Calendar = "jalali"
)

// Settings bundles everything that changes with the UI language.
type Settings struct {
	Language  Language
	Direction Direction
	Calendar  Calendar
}

// Default is English, left to right, Gregorian.
var Default = Settings{Language: English, Direction: LTR, Calendar: Gregorian}

// For returns the settings for a language.
func For(lang Language) Settings {
	if lang == Persian {
		return Settings{Language: Persian, Direction: RTL, Calendar: Jalali}
	}
	return Default
}

// ParseLanguage accepts "en", "fa" and a few common spellings.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "en", "en-us", "english":
		return English, nil
	case "fa", "fa-ir", "persian", "farsi":
		return Persian, nil
	}
	return "", fmt.Errorf("unsupported language %q (want en or fa)", s)
}

// Tag returns the BCP 47 tag for the language.
func (l Language) Tag() language.Tag {
	if l == Persian {
		return language.Persian
	}
	return language.English
}

// IsRTL reports whether the settings render right to left.
func (s Settings) IsRTL() bool {
	return s.Direction == RTL
}

// Collator returns a collator for the language. Collators are not safe
// for concurrent use; take a fresh one per sort.
func (s Settings) Collator() *collate.Collator {
	return collate.New(s.Language.Tag())
}

// NormalizeDigits rewrites Persian (U+06F0..) and Arabic-Indic (U+0660..)
// digits to ASCII and the Arabic decimal separator to '.'.
func NormalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r == '٫':
			b.WriteRune('.')
		case r == '٬':
			b.WriteRune(',')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
