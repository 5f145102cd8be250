package services

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scriptorium/scriptorium/pkg/models"
)

const defaultManifestTemplate = `# Agents Manifest

Version: %s
Generated: %s

Describe available agents in this file.
- Provide an overview of each agent's purpose.
- Document configuration parameters and capabilities.
`

var (
	headingPattern   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	stageWordPattern = regexp.MustCompile(`\bstage\b`)
)

// ManifestService serves the agents manifest. File reads are memoized on
// the modification time so repeated lookups between edits cost a stat.
type ManifestService struct {
	path    string
	version string

	mu       sync.Mutex
	content  string
	modTime  time.Time
	cachedAt time.Time
	loaded   bool
}

func NewManifestService(path, version string) *ManifestService {
	return &ManifestService{
		path:    path,
		version: version,
	}
}

// Ensure writes a default manifest when none exists yet.
func (s *ManifestService) Ensure() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking agents manifest: %w", err)
	}

	content := fmt.Sprintf(defaultManifestTemplate, s.version, time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing default agents manifest: %w", err)
	}

	log.WithField("path", s.path).Info("Created default agents manifest")
	return nil
}

// Content returns the manifest text, reloading it only when the file
// changed since the last read.
func (s *ManifestService) Content() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(false)
}

// Refresh drops the cache and rereads the manifest.
func (s *ManifestService) Refresh() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(true)
}

func (s *ManifestService) load(force bool) (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("reading agents manifest: %w", err)
	}
	if !force && s.loaded && info.ModTime().Equal(s.modTime) {
		return s.content, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("reading agents manifest: %w", err)
	}

	s.content = string(raw)
	s.modTime = info.ModTime()
	s.cachedAt = time.Now().UTC()
	s.loaded = true
	return s.content, nil
}

// Metadata reports the manifest version and generation time, falling back
// to the application version when the manifest does not declare one.
func (s *ManifestService) Metadata() (*models.ManifestInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := s.load(false)
	if err != nil {
		return nil, err
	}

	info := &models.ManifestInfo{
		Path:         s.path,
		Version:      s.version,
		LastModified: s.modTime.UTC(),
		CachedAt:     s.cachedAt,
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "version:"):
			if value := strings.TrimSpace(line[len("version:"):]); value != "" {
				info.Version = value
			}
		case strings.HasPrefix(lower, "generated:"):
			value := strings.TrimSpace(line[len("generated:"):])
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				utc := ts.UTC()
				info.GeneratedAt = &utc
			}
		}
	}

	return info, nil
}

// StageDirective extracts the manifest section addressed to a pipeline
// stage. Headings are compared case-insensitively with any "stage" word
// and colons removed, so "## Analysis Stage" addresses the analysis
// stage. Without a matching section the whole manifest is the directive.
func (s *ManifestService) StageDirective(stage models.Stage) (string, error) {
	content, err := s.Content()
	if err != nil {
		return "", err
	}

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		match := headingPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		if normalizeHeading(match[2]) != string(stage) {
			continue
		}

		level := len(match[1])
		var section []string
		for _, next := range lines[i+1:] {
			if nested := headingPattern.FindStringSubmatch(next); nested != nil && len(nested[1]) <= level {
				break
			}
			section = append(section, next)
		}
		if directive := strings.TrimSpace(strings.Join(section, "\n")); directive != "" {
			return directive, nil
		}
		break
	}

	return strings.TrimSpace(content), nil
}

func normalizeHeading(text string) string {
	normalized := stageWordPattern.ReplaceAllString(strings.ToLower(text), "")
	normalized = strings.ReplaceAll(normalized, ":", "")
	return strings.TrimSpace(normalized)
}
