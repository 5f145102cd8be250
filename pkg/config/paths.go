package config

import (
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
)

// Paths groups the directories the application works with after the
// configuration has been resolved.
type Paths struct {
	Base     string
	Data     string
	Config   string
	Static   string
	Projects string
}

// Paths derives the working directories from the settings.
func (s *Settings) Paths() Paths {
	return Paths{
		Base:     s.BaseDir,
		Data:     s.DataDir,
		Config:   s.ConfigDir,
		Static:   s.StaticDir,
		Projects: filepath.Join(s.DataDir, s.ProjectsSubdir),
	}
}

// Ensure creates the required directories if they do not exist yet. It is
// idempotent; running it against an already provisioned tree changes
// nothing. The static directory is never created here, its absence only
// disables the static mount.
func (p Paths) Ensure() error {
	for _, dir := range []string{p.Base, p.Data, p.Config, p.Projects} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %v: %w", dir, err, apperrors.ErrStartup)
		}
	}
	return nil
}
