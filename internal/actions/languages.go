package actions

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is one entry of the language selector.
type Language struct {
	Code  string
	Label string
}

// SelectorLanguages is the fixed set of languages offered for translation,
// in display order.
var SelectorLanguages = []Language{
	{Code: "te", Label: "Telugu"},
	{Code: "hi", Label: "Hindi"},
	{Code: "en", Label: "English"},
	{Code: "es", Label: "Spanish"},
	{Code: "de", Label: "German"},
	{Code: "fr", Label: "French"},
}

// LanguageLabel returns the display name of a language code, or the code
// itself when it has none.
func LanguageLabel(code string) string {
	for _, l := range SelectorLanguages {
		if l.Code == code {
			return l.Label
		}
	}
	return code
}

// SelectLanguages keeps the selector languages that appear in checked, in
// selector order and without duplicates. Codes are matched case-insensitively
// and regional variants ("es-MX") select their base language.
func SelectLanguages(checked []string) []string {
	wanted := make(map[string]bool, len(checked))
	for _, code := range checked {
		if base, ok := baseLanguage(code); ok {
			wanted[base] = true
		}
	}

	var out []string
	for _, l := range SelectorLanguages {
		if wanted[l.Code] {
			out = append(out, l.Code)
		}
	}
	return out
}

func baseLanguage(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", false
	}
	return base.String(), true
}
