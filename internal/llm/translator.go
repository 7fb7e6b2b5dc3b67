package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sozercan/vision-results/apimodels"
)

var languageNames = map[string]string{
	"te":    "Telugu",
	"hi":    "Hindi",
	"en":    "English",
	"es":    "Spanish",
	"de":    "German",
	"fr":    "French",
	"it":    "Italian",
	"ja":    "Japanese",
	"ko":    "Korean",
	"zh-cn": "Chinese (Simplified)",
}

const translatePrompt = `You translate short image descriptions.
Translate the user's text from English into %s.
Reply with the translation only, without quotes, notes or explanations.`

// Translator translates text with a language model, one request per
// language. A language whose request fails gets the original text, the same
// fallback the analysis backend applies.
type Translator struct {
	provider Provider
}

func NewTranslator(provider Provider) *Translator {
	return &Translator{provider: provider}
}

func (t *Translator) Translate(ctx context.Context, text string, languages []string) (apimodels.TranslationMap, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text provided")
	}

	out := make(apimodels.TranslationMap, 0, len(languages))
	for _, lang := range languages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name, ok := languageNames[lang]
		if !ok {
			name = lang
		}

		resp, err := t.provider.Complete(ctx, fmt.Sprintf(translatePrompt, name), text)
		translated := text
		switch {
		case err != nil:
			slog.Error("LLM translation failed", "language", lang, "error", err)
		case strings.TrimSpace(resp.Content) == "":
			slog.Warn("LLM returned empty translation", "language", lang)
		default:
			translated = strings.TrimSpace(resp.Content)
			slog.Debug("LLM translation completed", "language", lang, "tokens", resp.Usage.TotalTokens)
		}
		out = append(out, apimodels.Translation{Language: lang, Text: translated})
	}
	return out, nil
}
