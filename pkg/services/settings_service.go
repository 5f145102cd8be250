package services

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/scriptorium/scriptorium/pkg/models"
)

// defaultTemperature seeds the prompt settings on first use
const defaultTemperature = 0.7

// SettingsService persists operator adjustable settings as a JSON file
// under the config directory. All file access is serialized; the HTTP
// server calls in from concurrent handlers.
type SettingsService struct {
	path string
	seed models.ProviderSettings

	mu sync.Mutex
}

// NewSettingsService creates a settings store backed by path. The seed
// provider credentials, typically resolved from the environment, populate
// the store on first read.
func NewSettingsService(path string, seed models.ProviderSettings) *SettingsService {
	return &SettingsService{
		path: path,
		seed: seed,
	}
}

// Get returns the persisted settings, seeding the store when it does not
// exist yet.
func (s *SettingsService) Get() (*models.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update merges the non-nil fields of the update into the persisted
// settings and writes them back.
func (s *SettingsService) Update(update *models.SettingsUpdate) (*models.AppSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load()
	if err != nil {
		return nil, err
	}

	if update.Provider != nil {
		if update.Provider.BaseURL != nil {
			settings.Provider.BaseURL = *update.Provider.BaseURL
		}
		// A masked or empty key means the client round tripped a redacted
		// read; the stored key stays.
		if key := update.Provider.APIKey; key != nil && *key != "" && *key != models.APIKeyMask {
			settings.Provider.APIKey = *key
		}
	}
	if update.Prompts != nil {
		if update.Prompts.DefaultPrompt != nil {
			settings.Prompts.DefaultPrompt = *update.Prompts.DefaultPrompt
		}
		if update.Prompts.Temperature != nil {
			settings.Prompts.Temperature = *update.Prompts.Temperature
		}
	}

	if err := s.save(settings); err != nil {
		return nil, err
	}

	log.Info("Updated application settings")
	return settings, nil
}

func (s *SettingsService) load() (*models.AppSettings, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		settings := &models.AppSettings{
			Provider: s.seed,
			Prompts:  models.PromptSettings{Temperature: defaultTemperature},
		}
		if err := s.save(settings); err != nil {
			return nil, err
		}
		log.WithField("path", s.path).Info("Seeded application settings")
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings store: %w", err)
	}

	var settings models.AppSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings store: %w", err)
	}
	return &settings, nil
}

func (s *SettingsService) save(settings *models.AppSettings) error {
	encoded, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(s.path, encoded, 0o644); err != nil {
		return fmt.Errorf("writing settings store: %w", err)
	}
	return nil
}
