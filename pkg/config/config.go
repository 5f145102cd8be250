package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
)

// All variables carry the SCRIPTORIUM_ prefix. Provider credentials also
// accept the bare names as a fallback for container setups that share them
// across services.
const envPrefix = "SCRIPTORIUM_"

const (
	defaultAppName        = "scriptorium"
	defaultEnvironment    = "development"
	defaultHost           = "0.0.0.0"
	defaultPort           = "8000"
	defaultProjectsSubdir = "projects"
	defaultManifestName   = "agents.md"
)

// Settings holds all application configuration resolved from the
// environment. It is constructed once by Load and treated as read-only
// afterwards; nothing re-reads the environment during a run.
type Settings struct {
	// Identity
	AppName     string `json:"app_name"`
	Environment string `json:"environment"`

	// Server configuration
	Host string `json:"host"`
	Port string `json:"port" validate:"required"`

	// CORS configuration; empty means allow any origin
	AllowedOrigins []string `json:"allowed_origins"`

	// Storage configuration
	BaseDir   string `json:"base_dir" validate:"required"`
	DataDir   string `json:"data_dir"`
	ConfigDir string `json:"config_dir"`
	StaticDir string `json:"static_dir"`

	ProjectsSubdir string `json:"projects_subdir"`
	ManifestName   string `json:"manifest_name"`

	// Provider credentials seeded into the persisted settings store
	ProviderAPIKey  string `json:"provider_api_key,omitempty"`
	ProviderBaseURL string `json:"provider_base_url,omitempty"`

	// Optional API key protecting mutating endpoints
	APIKey string `json:"api_key,omitempty"`
}

// Load resolves Settings from environment variables. Reading the
// environment is its only side effect; any failure wraps ErrConfiguration.
func Load() (*Settings, error) {
	settings := &Settings{
		AppName:         getEnvOrDefault(envPrefix+"APP_NAME", defaultAppName),
		Environment:     getEnvOrDefault(envPrefix+"ENVIRONMENT", defaultEnvironment),
		Host:            getEnvOrDefault(envPrefix+"HOST", defaultHost),
		Port:            getEnvOrDefault(envPrefix+"PORT", defaultPort),
		AllowedOrigins:  splitOrigins(getEnvOrDefault(envPrefix+"ALLOWED_ORIGINS", "")),
		DataDir:         getEnvOrDefault(envPrefix+"DATA_DIR", ""),
		ConfigDir:       getEnvOrDefault(envPrefix+"CONFIG_DIR", ""),
		StaticDir:       getEnvOrDefault(envPrefix+"STATIC_DIR", ""),
		ProjectsSubdir:  getEnvOrDefault(envPrefix+"PROJECTS_SUBDIR", defaultProjectsSubdir),
		ManifestName:    getEnvOrDefault(envPrefix+"AGENTS_MANIFEST", defaultManifestName),
		ProviderAPIKey:  getEnvWithFallback(envPrefix+"PROVIDER_API_KEY", "PROVIDER_API_KEY"),
		ProviderBaseURL: getEnvWithFallback(envPrefix+"PROVIDER_BASE_URL", "PROVIDER_BASE_URL"),
		APIKey:          getEnvOrDefault(envPrefix+"API_KEY", ""),
	}

	var err error
	if settings.BaseDir, err = getRequiredEnv(envPrefix + "BASE_DIR"); err != nil {
		return nil, err
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	settings.resolveDirs()
	return settings, nil
}

// Validate validates the configuration
func (s *Settings) Validate() error {
	if s.BaseDir == "" {
		return fmt.Errorf("base directory is required: %w", apperrors.ErrConfiguration)
	}
	if !filepath.IsAbs(s.BaseDir) {
		return fmt.Errorf("base directory %q must be an absolute path: %w", s.BaseDir, apperrors.ErrConfiguration)
	}
	for _, dir := range []struct {
		name  string
		value string
	}{
		{"data directory", s.DataDir},
		{"config directory", s.ConfigDir},
		{"static directory", s.StaticDir},
	} {
		if dir.value != "" && !filepath.IsAbs(dir.value) {
			return fmt.Errorf("%s %q must be an absolute path: %w", dir.name, dir.value, apperrors.ErrConfiguration)
		}
	}

	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port %q must be a number between 1 and 65535: %w", s.Port, apperrors.ErrConfiguration)
	}

	if s.ProjectsSubdir == "" || s.ProjectsSubdir != filepath.Base(s.ProjectsSubdir) {
		return fmt.Errorf("projects subdirectory %q must be a bare directory name: %w", s.ProjectsSubdir, apperrors.ErrConfiguration)
	}
	if s.ManifestName == "" || s.ManifestName != filepath.Base(s.ManifestName) {
		return fmt.Errorf("manifest name %q must be a bare file name: %w", s.ManifestName, apperrors.ErrConfiguration)
	}

	return nil
}

// resolveDirs fills in the directory overrides left empty, deriving them
// under the base directory.
func (s *Settings) resolveDirs() {
	s.BaseDir = filepath.Clean(s.BaseDir)
	if s.DataDir == "" {
		s.DataDir = filepath.Join(s.BaseDir, "data")
	}
	if s.ConfigDir == "" {
		s.ConfigDir = filepath.Join(s.BaseDir, "config")
	}
	if s.StaticDir == "" {
		s.StaticDir = filepath.Join(s.BaseDir, "static")
	}
}

// GetServerAddress returns the full server address
func (s *Settings) GetServerAddress() string {
	return s.Host + ":" + s.Port
}

// DBPath returns the location of the embedded project store
func (s *Settings) DBPath() string {
	return filepath.Join(s.DataDir, "scriptorium.db")
}

// ManifestPath returns the location of the agents manifest
func (s *Settings) ManifestPath() string {
	return filepath.Join(s.ConfigDir, s.ManifestName)
}

// SettingsStorePath returns the location of the persisted settings overrides
func (s *Settings) SettingsStorePath() string {
	return filepath.Join(s.ConfigDir, "app-settings.json")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvWithFallback(key, fallbackKey string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return os.Getenv(fallbackKey)
}

func getRequiredEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("required environment variable %s is not set: %w", key, apperrors.ErrConfiguration)
	}
	return value, nil
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
