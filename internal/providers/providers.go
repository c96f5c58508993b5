// Package providers builds the configured model.Model.
package providers

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/critique/config"
	"github.com/hupe1980/critique/model"
	"github.com/hupe1980/critique/model/anthropic"
	"github.com/hupe1980/critique/model/gemini"
	"github.com/hupe1980/critique/model/openai"
)

// New returns the model selected by s. The mock model is always available;
// the others require a validated API key.
func New(s config.Settings) (model.Model, error) {
	switch p := s.ResolvedProvider(); p {
	case config.ProviderMock:
		return model.NewMockModel(), nil
	case config.ProviderGemini:
		return gemini.NewModel(func(o *gemini.Options) {
			o.Model = s.Model
			o.APIKey = s.APIKey
			if s.BaseURL != "" {
				o.BaseURL = s.BaseURL
			}
		}), nil
	case config.ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.Model = s.Model
			o.APIKey = s.APIKey
			o.BaseURL = s.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(s.Model)
			o.APIKey = s.APIKey
			o.BaseURL = s.BaseURL
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p)
	}
}
