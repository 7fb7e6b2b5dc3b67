package actions

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/sourcegraph/conc/iter"

	"github.com/sozercan/vision-results/apimodels"
)

// Audio locations. The primary path is served statically; the fallback is
// the backend's audio endpoint.
const (
	AudioPath         = "/static/audio/"
	AudioFallbackPath = "/api/audio/"
)

// AudioPlayer is a playable speech clip for one language.
type AudioPlayer struct {
	Language    string `json:"language"`
	Label       string `json:"label"`
	Src         string `json:"src"`
	FallbackSrc string `json:"fallback_src"`
}

// ErrorMessage is shown when neither source can be played.
func (p AudioPlayer) ErrorMessage() string {
	return "Failed to load " + p.Label + " audio"
}

type AudioPanel struct {
	Players []AudioPlayer `json:"players"`
	// Message replaces the players when none could be generated
	Message string `json:"message,omitempty"`
}

// GenerateAudio requests speech for every translation. With a concurrency of
// one the requests are strictly sequential; otherwise they fan out with at
// most that many in flight. Players are always returned in the order of
// translations. Failed languages are logged and skipped.
func (s *Service) GenerateAudio(ctx context.Context, translations apimodels.TranslationMap) AudioPanel {
	var results []*AudioPlayer
	if s.concurrency <= 1 || len(translations) <= 1 {
		results = make([]*AudioPlayer, 0, len(translations))
		for _, t := range translations {
			results = append(results, s.speak(ctx, t))
		}
	} else {
		mapper := iter.Mapper[apimodels.Translation, *AudioPlayer]{MaxGoroutines: s.concurrency}
		results = mapper.Map(translations, func(t *apimodels.Translation) *AudioPlayer {
			return s.speak(ctx, *t)
		})
	}

	var panel AudioPanel
	for _, p := range results {
		if p != nil {
			panel.Players = append(panel.Players, *p)
		}
	}
	if len(panel.Players) == 0 {
		panel.Message = AlertAudioFailed
	}
	return panel
}

func (s *Service) speak(ctx context.Context, t apimodels.Translation) *AudioPlayer {
	slog.Debug("Requesting audio generation", "language", t.Language)

	resp, err := s.speaker.Speak(ctx, t.Text, t.Language)
	if err != nil {
		slog.Error("Audio generation failed", "language", t.Language, "error", err)
		return nil
	}
	if !resp.Success || resp.AudioFile == "" {
		slog.Error("Invalid audio response", "language", t.Language, "error", resp.Error)
		return nil
	}

	file := url.PathEscape(resp.AudioFile)
	slog.Info("Audio player created", "language", t.Language, "file", resp.AudioFile)
	return &AudioPlayer{
		Language:    t.Language,
		Label:       LanguageLabel(t.Language),
		Src:         AudioPath + file,
		FallbackSrc: AudioFallbackPath + file,
	}
}
