// Package locale formats dates in the medium style of the user's locale.
package locale

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/de"
	"github.com/go-playground/locales/en_GB"
	"github.com/go-playground/locales/en_US"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/ja"
	"golang.org/x/text/language"
)

// Supported lists the locales with a medium date style, default first.
var Supported = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.German,
	language.French,
	language.Spanish,
	language.Japanese,
}

var matcher = language.NewMatcher(Supported)

// translators holds the CLDR data for each supported locale.
var translators = map[language.Tag]func() locales.Translator{
	language.AmericanEnglish: en_US.New,
	language.BritishEnglish:  en_GB.New,
	language.German:          de.New,
	language.French:          fr.New,
	language.Spanish:         es.New,
	language.Japanese:        ja.New,
}

// Formatter renders dates for one locale.
type Formatter struct {
	tag   language.Tag
	trans locales.Translator
}

// Default returns the en-US formatter.
func Default() Formatter { return New(language.AmericanEnglish) }

// New returns the formatter of the supported locale closest to tag.
// Unmatched tags get en-US.
func New(tag language.Tag) Formatter {
	_, i, confidence := matcher.Match(tag)
	if confidence == language.No {
		i = 0
	}

	t := Supported[i]

	return Formatter{tag: t, trans: translators[t]()}
}

// Parse resolves a BCP 47 or POSIX locale name ("de_DE.UTF-8") to a
// formatter. "", "C" and "POSIX" select the default.
func Parse(name string) (Formatter, error) {
	name = strings.TrimSpace(name)

	if i := strings.IndexAny(name, ".@"); i >= 0 {
		name = name[:i]
	}

	switch name {
	case "", "C", "POSIX":
		return Default(), nil
	}

	tag, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
	if err != nil {
		return Default(), fmt.Errorf("parse locale %q: %w", name, err)
	}

	return New(tag), nil
}

// FromEnv picks the locale from BK_LOCALE, LC_ALL, LC_TIME, then LANG.
// An unparsable value falls back to the default.
func FromEnv(env map[string]string) Formatter {
	for _, key := range []string{"BK_LOCALE", "LC_ALL", "LC_TIME", "LANG"} {
		if v := env[key]; v != "" {
			f, err := Parse(v)
			if err != nil {
				return Default()
			}

			return f
		}
	}

	return Default()
}

// Tag returns the matched locale.
func (f Formatter) Tag() language.Tag { return f.tag }

func (f Formatter) String() string { return f.tag.String() }

// Date formats t in medium style. The zero time formats as "".
func (f Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	if f.trans == nil {
		return Default().Date(t)
	}

	return f.trans.FmtDateMedium(t)
}
