package provider

import (
	"context"
	"strings"

	"chatrelay/internal/catalog"
)

// Default base URLs for the OpenAI-compatible provider family.
const (
	openAIBaseURL     = "https://api.openai.com/v1"
	googleBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	groqBaseURL       = "https://api.groq.com/openai/v1"
	mistralBaseURL    = "https://api.mistral.ai/v1"
	deepSeekBaseURL   = "https://api.deepseek.com"
	xaiBaseURL        = "https://api.x.ai/v1"
	ollamaBaseURL     = "http://localhost:11434"
)

// Resolve maps a request onto a concrete model handle. It validates the
// provider selection against the catalogue and applies per-provider
// construction rules; it performs no network call itself, the handle executes
// lazily when invoked. Two calls with identical input produce independent
// handles.
func Resolve(ctx context.Context, req Request) (Handle, error) {
	id := req.Provider
	if id == "" {
		id = catalog.DefaultID
	}

	desc, ok := catalog.Lookup(id)
	if !ok {
		return nil, configErrorf("unsupported provider %q", id)
	}

	for _, field := range desc.ExtraFields {
		if field.Required && req.ExtraConfig[field.Key] == "" {
			return nil, configErrorf("%s requires the %s (extraConfig.%s)", desc.DisplayName, lowerLabel(field.Label), field.Key)
		}
	}

	model := req.Model
	if model == "" {
		model = req.ExtraConfig["modelId"]
	}
	if model == "" {
		return nil, configErrorf("a model id is required: set the model field or extraConfig.modelId")
	}

	switch id {
	case catalog.OpenAI:
		return newOpenAIHandle(req.APIKey, openAIBaseURL, model), nil
	case catalog.Google:
		return newOpenAIHandle(req.APIKey, googleBaseURL, model), nil
	case catalog.OpenRouter:
		return newOpenAIHandle(req.APIKey, openRouterBaseURL, model), nil
	case catalog.Groq:
		return newOpenAIHandle(req.APIKey, groqBaseURL, model), nil
	case catalog.Mistral:
		return newOpenAIHandle(req.APIKey, mistralBaseURL, model), nil
	case catalog.DeepSeek:
		return newOpenAIHandle(req.APIKey, deepSeekBaseURL, model), nil
	case catalog.XAI:
		return newOpenAIHandle(req.APIKey, xaiBaseURL, model), nil
	case catalog.Azure:
		return newAzureHandle(req.APIKey, req.ExtraConfig["resourceName"], model), nil
	case catalog.OpenAICompatible:
		return newOpenAIHandle(req.APIKey, req.ExtraConfig["baseURL"], model), nil
	case catalog.Anthropic:
		return newAnthropicHandle(req.APIKey, model), nil
	case catalog.Bedrock:
		accessKeyID := firstNonEmpty(req.ExtraConfig["accessKeyId"], req.APIKey)
		if accessKeyID == "" {
			return nil, configErrorf("Amazon Bedrock requires the access key id (apiKey or extraConfig.accessKeyId)")
		}
		return newBedrockHandle(bedrockCredentials{
			accessKeyID:     accessKeyID,
			secretAccessKey: req.ExtraConfig["secretAccessKey"],
			sessionToken:    req.ExtraConfig["sessionToken"],
			region:          req.ExtraConfig["region"],
		}, model), nil
	case catalog.Vertex:
		if req.APIKey != "" || req.ExtraConfig["apiKey"] != "" {
			return nil, configErrorf("Vertex AI authenticates with Application Default Credentials; remove the API key and rely on ambient credentials")
		}
		return newVertexHandle(req.ExtraConfig["location"], req.ExtraConfig["project"], model), nil
	case catalog.Ollama:
		return newOllamaHandle(firstNonEmpty(req.ExtraConfig["baseURL"], ollamaBaseURL), model)
	default:
		// Catalogue and dispatch table out of sync; treat as unsupported.
		return nil, configErrorf("unsupported provider %q", id)
	}
}

// lowerLabel turns a field label like "Resource name" into prose suitable for
// an error message ("resource name").
func lowerLabel(label string) string {
	if label == "" {
		return label
	}
	return strings.ToLower(label[:1]) + label[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
