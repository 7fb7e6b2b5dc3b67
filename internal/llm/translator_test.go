package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	replies map[string]string
	prompts []string
}

func (f *fakeProvider) Complete(ctx context.Context, systemMessage, userMessage string, opts ...Option) (*Response, error) {
	f.prompts = append(f.prompts, systemMessage)
	for name, reply := range f.replies {
		if strings.Contains(systemMessage, name) {
			return &Response{Content: reply, Usage: Usage{TotalTokens: 10}}, nil
		}
	}
	return nil, errors.New("model unavailable")
}

func TestTranslator_Translate(t *testing.T) {
	provider := &fakeProvider{replies: map[string]string{
		"Spanish": " Un perro. \n",
		"German":  "Ein Hund.",
	}}
	tr := NewTranslator(provider)

	out, err := tr.Translate(context.Background(), "A dog.", []string{"es", "hi", "de"})
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, "es", out[0].Language)
	assert.Equal(t, "Un perro.", out[0].Text)
	// failed language falls back to the original text
	assert.Equal(t, "hi", out[1].Language)
	assert.Equal(t, "A dog.", out[1].Text)
	assert.Equal(t, "Ein Hund.", out[2].Text)

	require.Len(t, provider.prompts, 3)
	assert.Contains(t, provider.prompts[1], "Hindi")
}

func TestTranslator_EmptyText(t *testing.T) {
	tr := NewTranslator(&fakeProvider{})
	_, err := tr.Translate(context.Background(), "  ", []string{"es"})
	assert.Error(t, err)
}

func TestTranslator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTranslator(&fakeProvider{})
	_, err := tr.Translate(ctx, "A dog.", []string{"es"})
	assert.ErrorIs(t, err, context.Canceled)
}
