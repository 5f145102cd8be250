package models

import "time"

// AppSettings holds the operator adjustable settings persisted on disk
type AppSettings struct {
	Provider ProviderSettings `json:"provider"`
	Prompts  PromptSettings   `json:"prompts"`
}

// APIKeyMask replaces the stored provider key in API responses. Updates
// carrying the mask keep the stored key, so redacted settings round trip.
const APIKeyMask = "********"

// ProviderSettings configures the language model provider
type ProviderSettings struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
}

// Redacted returns a copy safe to expose over the API, with the key
// reduced to a presence marker.
func (p ProviderSettings) Redacted() ProviderSettings {
	redacted := p
	if redacted.APIKey != "" {
		redacted.APIKey = APIKeyMask
	}
	return redacted
}

// PromptSettings configures how report prompts are assembled
type PromptSettings struct {
	DefaultPrompt string  `json:"default_prompt,omitempty"`
	Temperature   float64 `json:"temperature"`
}

// SettingsUpdate carries the optional fields of a settings update request.
// Nil fields keep their persisted values.
type SettingsUpdate struct {
	Provider *ProviderSettingsUpdate `json:"provider,omitempty"`
	Prompts  *PromptSettingsUpdate   `json:"prompts,omitempty"`
}

// ProviderSettingsUpdate mirrors ProviderSettings with optional fields
type ProviderSettingsUpdate struct {
	BaseURL *string `json:"base_url,omitempty"`
	APIKey  *string `json:"api_key,omitempty"`
}

// PromptSettingsUpdate mirrors PromptSettings with optional fields
type PromptSettingsUpdate struct {
	DefaultPrompt *string  `json:"default_prompt,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
}

// ManifestInfo describes the agents manifest on disk
type ManifestInfo struct {
	Path         string     `json:"path"`
	Version      string     `json:"version,omitempty"`
	GeneratedAt  *time.Time `json:"generated_at,omitempty"`
	LastModified time.Time  `json:"last_modified"`
	CachedAt     time.Time  `json:"cached_at"`
}
