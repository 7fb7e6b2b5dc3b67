package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sozercan/vision-results/apimodels"
)

// Messages shown to the user for action outcomes.
const (
	AlertNoLanguages     = "Please select at least one language"
	AlertTranslateFailed = "Error translating text. Please try again."
	AlertSaved           = "Results saved successfully!"
	AlertSaveFailed      = "Error saving results"
	AlertAudioFailed     = "❌ Failed to generate audio"
)

var (
	ErrNoLanguages  = errors.New("no language selected")
	ErrSaveRejected = errors.New("backend rejected save")
)

type Translator interface {
	Translate(ctx context.Context, text string, languages []string) (apimodels.TranslationMap, error)
}

type Speaker interface {
	Speak(ctx context.Context, text, language string) (*apimodels.SpeakResponse, error)
}

type Saver interface {
	Save(ctx context.Context, result json.RawMessage) (*apimodels.SaveResponse, error)
}

// Service runs the user-triggered actions of the results view. Actions are
// independent of each other and may be repeated.
type Service struct {
	translator  Translator
	speaker     Speaker
	saver       Saver
	concurrency int
}

func New(translator Translator, speaker Speaker, saver Saver, speechConcurrency int) *Service {
	if speechConcurrency < 1 {
		speechConcurrency = 1
	}
	return &Service{
		translator:  translator,
		speaker:     speaker,
		saver:       saver,
		concurrency: speechConcurrency,
	}
}

// TranslationBlock is one translated text in the translations panel.
type TranslationBlock struct {
	Language string `json:"language"`
	Label    string `json:"label"`
	Text     string `json:"text"`
}

// TranslateResult carries both panels refreshed by a translation.
type TranslateResult struct {
	Translations []TranslationBlock `json:"translations"`
	Audio        AudioPanel         `json:"audio"`
}

// Translate translates text into the checked languages and generates audio
// for every returned translation. No backend call is made when no language
// is selected.
func (s *Service) Translate(ctx context.Context, text string, checked []string) (*TranslateResult, error) {
	languages := SelectLanguages(checked)
	if len(languages) == 0 {
		return nil, ErrNoLanguages
	}

	slog.Info("Translating description", "languages", languages)
	translations, err := s.translator.Translate(ctx, text, languages)
	if err != nil {
		slog.Error("Translation failed", "error", err)
		return nil, fmt.Errorf("translation failed: %w", err)
	}

	return &TranslateResult{
		Translations: TranslationBlocks(translations),
		Audio:        s.GenerateAudio(ctx, translations),
	}, nil
}

// TranslationBlocks builds one block per translation, in response order.
func TranslationBlocks(translations apimodels.TranslationMap) []TranslationBlock {
	blocks := make([]TranslationBlock, 0, len(translations))
	for _, t := range translations {
		blocks = append(blocks, TranslationBlock{
			Language: t.Language,
			Label:    LanguageLabel(t.Language),
			Text:     t.Text,
		})
	}
	return blocks
}

// Save posts the analysis document to the backend. There is no retry.
func (s *Service) Save(ctx context.Context, result *apimodels.AnalysisResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}

	resp, err := s.saver.Save(ctx, payload)
	if err != nil {
		slog.Error("Save failed", "error", err)
		return fmt.Errorf("save failed: %w", err)
	}
	if !resp.Success {
		slog.Warn("Backend rejected save", "error", resp.Error)
		return fmt.Errorf("%w: %s", ErrSaveRejected, resp.Error)
	}

	slog.Info("Analysis saved", "id", resp.ID)
	return nil
}
