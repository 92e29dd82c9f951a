package translator

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a source or target language of a translation.
type Language struct {
	Tag language.Tag
}

// ParseLanguage parses a BCP 47 code such as "fr" or "en-GB".
func ParseLanguage(code string) (Language, error) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return Language{}, fmt.Errorf("unknown language %q: %w", code, err)
	}
	if tag == language.Und {
		return Language{}, fmt.Errorf("unknown language %q", code)
	}
	return Language{Tag: tag}, nil
}

// MustParseLanguage is ParseLanguage for constants.
func MustParseLanguage(code string) Language {
	l, err := ParseLanguage(code)
	if err != nil {
		panic(err)
	}
	return l
}

// Code returns the BCP 47 code.
func (l Language) Code() string {
	return l.Tag.String()
}

// DisplayName returns the English name, e.g. "French".
func (l Language) DisplayName() string {
	if name := display.English.Languages().Name(l.Tag); name != "" {
		return name
	}
	return l.Tag.String()
}

func (l Language) String() string {
	return l.Code()
}

// LanguageFromFilename reads the language suffix of names like
// "paper_fr.tex".
func LanguageFromFilename(path string) (Language, bool) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	i := strings.LastIndexByte(stem, '_')
	if i < 0 {
		return Language{}, false
	}
	suffix := stem[i+1:]
	if len(suffix) < 2 || len(suffix) > 3 || strings.ToLower(suffix) != suffix {
		return Language{}, false
	}
	base, err := language.ParseBase(suffix)
	if err != nil {
		return Language{}, false
	}
	tag, err := language.Compose(base)
	if err != nil {
		return Language{}, false
	}
	return Language{Tag: tag}, true
}

// OutputFilename derives the output path from the input path: a language
// suffix is replaced, otherwise the target suffix is appended.
// "paper_fr.tex" becomes "paper_en.tex".
func OutputFilename(input string, target Language) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)
	if _, ok := LanguageFromFilename(input); ok {
		stem = stem[:strings.LastIndexByte(stem, '_')]
	}
	base, _ := target.Tag.Base()
	return stem + "_" + base.String() + ext
}
