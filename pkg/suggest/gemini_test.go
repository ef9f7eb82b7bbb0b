package suggest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	pkgerrors "github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/logging"
)

type fakeModels struct {
	reply  string
	err    error
	calls  int
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestGeminiSuggest(t *testing.T) {
	fake := &fakeModels{reply: `{"equivalences": {"MATERIAL": ["material"]}}`}
	logger := logging.NewTestLogger(t)
	g := newGemini(fake, GeminiConfig{Logger: logger.Logger})

	got, err := g.Suggest(context.Background(), "CBT1157", []string{"MATERIAL"}, "material: steel")
	require.NoError(t, err)

	assert.Equal(t, []string{"material"}, got["MATERIAL"])
	assert.Equal(t, DefaultModel, fake.model)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, DefaultTemperature, *fake.config.Temperature, 1e-6)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)
	assert.Contains(t, fake.prompt, "CBT1157")
	assert.True(t, logger.Contains("Requesting equivalences"))
}

func TestGeminiSkipsEmptyRequest(t *testing.T) {
	fake := &fakeModels{}
	g := newGemini(fake, GeminiConfig{Model: "gemini-custom"})

	got, err := g.Suggest(context.Background(), "CBT1157", nil, "")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, fake.calls)
	assert.Equal(t, "gemini-custom", g.Model())
}

func TestGeminiErrors(t *testing.T) {
	fake := &fakeModels{err: errors.New("quota exhausted")}
	g := newGemini(fake, GeminiConfig{})

	got, err := g.Suggest(context.Background(), "CBT1157", []string{"MATERIAL"}, "")
	require.Error(t, err)
	assert.Empty(t, got)

	var apiErr *pkgerrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "gemini", apiErr.Provider)

	fake.err = nil
	fake.reply = "no json here"
	got, err = g.Suggest(context.Background(), "CBT1157", []string{"MATERIAL"}, "")
	assert.Error(t, err)
	assert.Empty(t, got)
}
