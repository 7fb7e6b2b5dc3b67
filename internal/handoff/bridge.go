package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sozercan/vision-results/apimodels"
)

// Keys shared with the upload page.
const (
	KeyAnalysisResults = "analysisResults"
	KeyImagePath       = "imagePath"

	keyFlash = "flash"
)

var (
	ErrMissingData   = errors.New("no analysis results found")
	ErrMalformedData = errors.New("malformed analysis results")
)

// Messages shown to the user when the hand-off cannot be loaded.
const (
	AlertMissingData   = "No analysis results found. Please upload an image first."
	AlertMalformedData = "Error loading results. Please try again."
)

// AlertFor returns the user-facing message for a Load error.
func AlertFor(err error) string {
	if errors.Is(err, ErrMalformedData) {
		return AlertMalformedData
	}
	return AlertMissingData
}

// ViewState is the loaded hand-off for one results view. It is built once by
// Load and never modified afterwards.
type ViewState struct {
	result    *apimodels.AnalysisResult
	imagePath string
	origin    string
}

func NewViewState(result *apimodels.AnalysisResult, imagePath, origin string) *ViewState {
	if result == nil {
		result = &apimodels.AnalysisResult{}
	}
	return &ViewState{result: result, imagePath: imagePath, origin: origin}
}

func (v *ViewState) Result() *apimodels.AnalysisResult { return v.result }
func (v *ViewState) ImagePath() string                 { return v.imagePath }

// Origin is the scheme://host the page is served from, or "" if unknown.
func (v *ViewState) Origin() string { return v.origin }

// Bridge moves analysis results from the upload flow to the results view.
type Bridge struct {
	store Store
}

func NewBridge(store Store) *Bridge {
	return &Bridge{store: store}
}

// Put stores the raw analysis document and the image path for a session.
func (b *Bridge) Put(ctx context.Context, session string, results []byte, imagePath string) error {
	if err := b.store.Set(ctx, session, KeyAnalysisResults, string(results)); err != nil {
		return fmt.Errorf("failed to store analysis results: %w", err)
	}
	if err := b.store.Set(ctx, session, KeyImagePath, imagePath); err != nil {
		return fmt.Errorf("failed to store image path: %w", err)
	}
	return nil
}

// Load reads both hand-off keys. It returns ErrMissingData when either key
// is absent and ErrMalformedData when the results are not a JSON object.
func (b *Bridge) Load(ctx context.Context, session, origin string) (*ViewState, error) {
	results, okResults, err := b.store.Get(ctx, session, KeyAnalysisResults)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis results: %w", err)
	}
	imagePath, okPath, err := b.store.Get(ctx, session, KeyImagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image path: %w", err)
	}
	if !okResults || !okPath || results == "" || imagePath == "" {
		slog.Warn("hand-off data missing", "session", session, "hasResults", okResults, "hasImagePath", okPath)
		return nil, ErrMissingData
	}

	result, err := apimodels.ParseAnalysisResult([]byte(results))
	if err != nil {
		slog.Error("failed to parse hand-off results", "session", session, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}

	slog.Debug("hand-off loaded", "session", session, "imagePath", imagePath)
	return NewViewState(result, imagePath, origin), nil
}

// Clear removes both hand-off keys.
func (b *Bridge) Clear(ctx context.Context, session string) error {
	return b.store.Delete(ctx, session, KeyAnalysisResults, KeyImagePath)
}

// SetFlash queues a message to be shown on the next rendered page.
func (b *Bridge) SetFlash(ctx context.Context, session, message string) error {
	return b.store.Set(ctx, session, keyFlash, message)
}

// TakeFlash returns and clears the queued message.
func (b *Bridge) TakeFlash(ctx context.Context, session string) string {
	message, ok, err := b.store.Get(ctx, session, keyFlash)
	if err != nil || !ok {
		return ""
	}
	if err := b.store.Delete(ctx, session, keyFlash); err != nil {
		slog.Warn("failed to clear flash message", "session", session, "error", err)
	}
	return message
}
