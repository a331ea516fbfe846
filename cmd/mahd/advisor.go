package main

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaisdk "github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"

	"github.com/hupe1980/mahd/model"
	"github.com/hupe1980/mahd/model/anthropic"
	"github.com/hupe1980/mahd/model/openai"
)

// algorithmAdvisor selects the model-advised single-agent solver.
const algorithmAdvisor = "advisor"

const (
	providerOpenAI    = "openai"
	providerAnthropic = "anthropic"
)

// newAdvisorModel builds the model the advisor consults. API keys are read by
// the provider SDKs from OPENAI_API_KEY and ANTHROPIC_API_KEY.
func newAdvisorModel(f solveFlags) (model.Model, error) {
	switch f.provider {
	case providerOpenAI:
		var opts []openaioption.RequestOption
		if f.baseURL != "" {
			opts = append(opts, openaioption.WithBaseURL(f.baseURL))
		}
		client := openaisdk.NewClient(opts...)
		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			if f.modelName != "" {
				o.Model = f.modelName
			}
		}), nil
	case providerAnthropic:
		var opts []anthropicoption.RequestOption
		if f.baseURL != "" {
			opts = append(opts, anthropicoption.WithBaseURL(f.baseURL))
		}
		client := anthropicsdk.NewClient(opts...)
		return anthropic.NewModelFromClient(&client, func(o *anthropic.Options) {
			if f.modelName != "" {
				o.Model = anthropicsdk.Model(f.modelName)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q: want %s or %s", f.provider, providerOpenAI, providerAnthropic)
	}
}
