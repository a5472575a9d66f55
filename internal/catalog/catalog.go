// Package catalog is the static registry of supported LLM providers. Adding a
// provider means appending one descriptor here plus one dispatch case in the
// resolver; nothing else changes.
package catalog

// Provider ids. These are the stable keys clients send in request payloads.
const (
	OpenAI           = "openai"
	Anthropic        = "anthropic"
	Google           = "google"
	Azure            = "azure"
	Bedrock          = "bedrock"
	Vertex           = "vertex"
	OpenRouter       = "openrouter"
	Groq             = "groq"
	Mistral          = "mistral"
	DeepSeek         = "deepseek"
	XAI              = "xai"
	Ollama           = "ollama"
	OpenAICompatible = "openai-compatible"
)

// DefaultID is the provider assumed when a request omits the provider field.
const DefaultID = OpenAI

// Model describes one selectable model under a provider. ReasoningEffortOptions
// is non-empty only for models that accept a reasoning-effort hint.
type Model struct {
	ID                     string   `json:"id"`
	DisplayName            string   `json:"displayName"`
	ReasoningEffortOptions []string `json:"reasoningEffortOptions,omitempty"`
}

// ExtraField describes one named parameter a provider needs beyond the single
// credential string, for example a region or a base URL.
type ExtraField struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Required    bool   `json:"required"`
	Secret      bool   `json:"secret"`
}

// Provider is the descriptor for one supported backend.
type Provider struct {
	ID                       string       `json:"id"`
	DisplayName              string       `json:"displayName"`
	BadgeLabel               string       `json:"badgeLabel"`
	Models                   []Model      `json:"models"`
	CredentialLabel          string       `json:"credentialLabel"`
	CredentialPlaceholder    string       `json:"credentialPlaceholder"`
	DocsURL                  string       `json:"docsUrl"`
	ExtraFields              []ExtraField `json:"extraConfigFields,omitempty"`
	RequiresAPIKey           bool         `json:"requiresApiKey"`
	RequiresCloudCredentials bool         `json:"requiresCloudCredentials"`
	SupportsTools            bool         `json:"supportsTools"`
}

var effortLevels = []string{"low", "medium", "high"}

// providers is ordered for presentation; ids must be unique. Models may be
// empty only for providers whose model id arrives via extra configuration.
var providers = []Provider{
	{
		ID:          OpenAI,
		DisplayName: "OpenAI",
		BadgeLabel:  "GPT",
		Models: []Model{
			{ID: "gpt-4o", DisplayName: "GPT-4o"},
			{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini"},
			{ID: "gpt-4.1", DisplayName: "GPT-4.1"},
			{ID: "o3", DisplayName: "o3", ReasoningEffortOptions: effortLevels},
			{ID: "o4-mini", DisplayName: "o4-mini", ReasoningEffortOptions: effortLevels},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "sk-...",
		DocsURL:               "https://platform.openai.com/api-keys",
		RequiresAPIKey:        true,
		SupportsTools:         true,
	},
	{
		ID:          Anthropic,
		DisplayName: "Anthropic",
		BadgeLabel:  "Claude",
		Models: []Model{
			{ID: "claude-sonnet-4-5-20250929", DisplayName: "Claude Sonnet 4.5"},
			{ID: "claude-3-5-haiku-20241022", DisplayName: "Claude 3.5 Haiku"},
			{ID: "claude-opus-4-1-20250805", DisplayName: "Claude Opus 4.1"},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "sk-ant-...",
		DocsURL:               "https://console.anthropic.com/settings/keys",
		RequiresAPIKey:        true,
		SupportsTools:         true,
	},
	{
		ID:          Google,
		DisplayName: "Google AI Studio",
		BadgeLabel:  "Gemini",
		Models: []Model{
			{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro"},
			{ID: "gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash"},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "AIza...",
		DocsURL:               "https://aistudio.google.com/apikey",
		RequiresAPIKey:        true,
		SupportsTools:         true,
	},
	{
		ID:          Azure,
		DisplayName: "Azure OpenAI",
		BadgeLabel:  "Azure",
		Models: []Model{
			{ID: "gpt-4o", DisplayName: "GPT-4o"},
			{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini"},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "Azure OpenAI key",
		DocsURL:               "https://learn.microsoft.com/azure/ai-services/openai/",
		ExtraFields: []ExtraField{
			{Key: "resourceName", Label: "Resource name", Placeholder: "my-resource", Required: true},
		},
		RequiresAPIKey: true,
		SupportsTools:  true,
	},
	{
		ID:          Bedrock,
		DisplayName: "Amazon Bedrock",
		BadgeLabel:  "AWS",
		Models: []Model{
			{ID: "anthropic.claude-sonnet-4-5-20250929-v1:0", DisplayName: "Claude Sonnet 4.5"},
			{ID: "anthropic.claude-3-5-haiku-20241022-v1:0", DisplayName: "Claude 3.5 Haiku"},
		},
		CredentialLabel:       "Access key ID",
		CredentialPlaceholder: "AKIA...",
		DocsURL:               "https://docs.aws.amazon.com/bedrock/",
		ExtraFields: []ExtraField{
			{Key: "secretAccessKey", Label: "Secret access key", Placeholder: "AWS secret access key", Required: true, Secret: true},
			{Key: "region", Label: "Region", Placeholder: "us-east-1", Required: true},
			{Key: "sessionToken", Label: "Session token", Placeholder: "optional", Secret: true},
		},
		RequiresCloudCredentials: true,
		SupportsTools:            true,
	},
	{
		ID:          Vertex,
		DisplayName: "Google Vertex AI",
		BadgeLabel:  "Vertex",
		Models: []Model{
			{ID: "claude-sonnet-4-5@20250929", DisplayName: "Claude Sonnet 4.5"},
			{ID: "claude-3-5-haiku@20241022", DisplayName: "Claude 3.5 Haiku"},
		},
		CredentialLabel:       "Application Default Credentials",
		CredentialPlaceholder: "leave empty, uses ambient credentials",
		DocsURL:               "https://cloud.google.com/vertex-ai/docs",
		ExtraFields: []ExtraField{
			{Key: "project", Label: "Project id", Placeholder: "my-gcp-project", Required: true},
			{Key: "location", Label: "Location", Placeholder: "us-east5", Required: true},
		},
		RequiresCloudCredentials: true,
		SupportsTools:            true,
	},
	{
		ID:          OpenRouter,
		DisplayName: "OpenRouter",
		BadgeLabel:  "Router",
		Models: []Model{
			{ID: "anthropic/claude-sonnet-4.5", DisplayName: "Claude Sonnet 4.5"},
			{ID: "meta-llama/llama-3.3-70b-instruct", DisplayName: "Llama 3.3 70B"},
			{ID: "openai/gpt-4o", DisplayName: "GPT-4o"},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "sk-or-...",
		DocsURL:               "https://openrouter.ai/keys",
		RequiresAPIKey:        true,
		SupportsTools:         true,
	},
	{
		ID:          Groq,
		DisplayName: "Groq",
		BadgeLabel:  "Groq",
		Models: []Model{
			{ID: "llama-3.3-70b-versatile", DisplayName: "Llama 3.3 70B"},
			{ID: "llama-3.1-8b-instant", DisplayName: "Llama 3.1 8B"},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "gsk_...",
		DocsURL:               "https://console.groq.com/keys",
		RequiresAPIKey:        true,
		SupportsTools:         true,
	},
	{
		ID:          Mistral,
		DisplayName: "Mistral",
		BadgeLabel:  "Mistral",
		Models: []Model{
			{ID: "mistral-large-latest", DisplayName: "Mistral Large"},
			{ID: "mistral-small-latest", DisplayName: "Mistral Small"},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "Mistral API key",
		DocsURL:               "https://console.mistral.ai/api-keys",
		RequiresAPIKey:        true,
		SupportsTools:         true,
	},
	{
		ID:          DeepSeek,
		DisplayName: "DeepSeek",
		BadgeLabel:  "DeepSeek",
		Models: []Model{
			{ID: "deepseek-chat", DisplayName: "DeepSeek Chat"},
			{ID: "deepseek-reasoner", DisplayName: "DeepSeek Reasoner"},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "DeepSeek API key",
		DocsURL:               "https://platform.deepseek.com/api_keys",
		RequiresAPIKey:        true,
		SupportsTools:         true,
	},
	{
		ID:          XAI,
		DisplayName: "xAI",
		BadgeLabel:  "Grok",
		Models: []Model{
			{ID: "grok-4", DisplayName: "Grok 4", ReasoningEffortOptions: []string{"low", "medium", "high", "xhigh"}},
			{ID: "grok-3-mini", DisplayName: "Grok 3 mini", ReasoningEffortOptions: effortLevels},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "xai-...",
		DocsURL:               "https://console.x.ai/",
		RequiresAPIKey:        true,
		SupportsTools:         true,
	},
	{
		ID:          Ollama,
		DisplayName: "Ollama",
		BadgeLabel:  "Local",
		Models: []Model{
			{ID: "llama3.1", DisplayName: "Llama 3.1"},
			{ID: "qwen2.5", DisplayName: "Qwen 2.5"},
		},
		CredentialLabel:       "API key",
		CredentialPlaceholder: "not required for local servers",
		DocsURL:               "https://ollama.com",
		ExtraFields: []ExtraField{
			{Key: "baseURL", Label: "Base URL", Placeholder: "http://localhost:11434"},
		},
	},
	{
		ID:                    OpenAICompatible,
		DisplayName:           "OpenAI-compatible",
		BadgeLabel:            "Custom",
		Models:                nil, // model id arrives via extraConfig.modelId or the model field
		CredentialLabel:       "API key",
		CredentialPlaceholder: "endpoint API key",
		DocsURL:               "https://platform.openai.com/docs/api-reference/chat",
		ExtraFields: []ExtraField{
			{Key: "baseURL", Label: "Base URL", Placeholder: "https://example.com/v1", Required: true},
			{Key: "modelId", Label: "Model id", Placeholder: "served model name"},
		},
		RequiresAPIKey: true,
		SupportsTools:  true,
	},
}

var byID = func() map[string]Provider {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.ID] = p
	}
	return m
}()

// Lookup returns the descriptor for the given provider id.
func Lookup(id string) (Provider, bool) {
	p, ok := byID[id]
	return p, ok
}

// Default returns the descriptor used when a request names no provider.
func Default() Provider {
	return byID[DefaultID]
}

// All returns every descriptor in presentation order.
func All() []Provider {
	out := make([]Provider, len(providers))
	copy(out, providers)
	return out
}
