package suggest

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/equivalence"
	"github.com/agentstation/attrmap/pkg/errors"
	"github.com/agentstation/attrmap/pkg/logging"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// DefaultTemperature keeps suggestions close to the document keys.
const DefaultTemperature = 0.3

// GeminiConfig configures the Gemini suggestion provider.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	// Project and Location select the Vertex AI backend. Without an API key
	// Vertex uses Application Default Credentials.
	Project  string
	Location string
	Timeout  time.Duration
	Logger   *zerolog.Logger
}

// generator is the slice of genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini asks a Gemini model for equivalences.
type Gemini struct {
	models      generator
	model       string
	temperature float32
	timeout     time.Duration
	logger      *zerolog.Logger
}

// NewGemini creates a Gemini provider. An API key is required unless a
// Vertex project is set.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	var cc *genai.ClientConfig
	switch {
	case cfg.Project != "":
		location := cfg.Location
		if location == "" {
			location = "us-central1"
		}
		cc = &genai.ClientConfig{
			Backend:  genai.BackendVertexAI,
			Project:  cfg.Project,
			Location: location,
			APIKey:   cfg.APIKey,
		}
	case cfg.APIKey != "":
		cc = &genai.ClientConfig{
			Backend: genai.BackendGeminiAPI,
			APIKey:  cfg.APIKey,
		}
	default:
		return nil, &errors.ConfigError{
			Component: "gemini",
			Message:   "API key required - set GEMINI_API_KEY or GOOGLE_API_KEY",
			Err:       errors.ErrAPIKeyRequired,
		}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, errors.NewConfigError("gemini", "failed to create client", err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(models generator, cfg GeminiConfig) *Gemini {
	g := &Gemini{
		models:      models,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
		logger:      logging.OrNop(cfg.Logger),
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.temperature == 0 {
		g.temperature = DefaultTemperature
	}
	if g.timeout == 0 {
		g.timeout = constants.SuggestTimeout
	}
	return g
}

// Model returns the configured model name.
func (g *Gemini) Model() string {
	return g.model
}

// Suggest implements Provider.
func (g *Gemini) Suggest(ctx context.Context, categoryID string, missing []string, preview string) (equivalence.Cache, error) {
	if len(missing) == 0 {
		return equivalence.Cache{}, nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt := BuildPrompt(categoryID, missing, preview)
	g.logger.Debug().
		Str("category_id", categoryID).
		Str("model", g.model).
		Int("missing", len(missing)).
		Int("prompt_chars", len(prompt)).
		Msg("Requesting equivalences")

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return equivalence.Cache{}, errors.WrapAPI("gemini", 0, err)
	}

	eqs, err := ParseResponse(resp.Text())
	if err != nil {
		return equivalence.Cache{}, err
	}
	g.logger.Debug().Int("equivalences", len(eqs)).Msg("Equivalences received")
	return eqs, nil
}
