package services

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/scriptorium/scriptorium/pkg/config"
	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
	"github.com/scriptorium/scriptorium/pkg/models"
	"github.com/scriptorium/scriptorium/pkg/repository"
)

const (
	// uploadChunkSize is the buffer size for streaming uploads to disk
	uploadChunkSize = 1 << 20

	// uploadsSubdir holds the uploaded manuscript inside a project workspace
	uploadsSubdir = "uploads"

	// artifactsSubdir holds generated files exposed in the project detail
	artifactsSubdir = "artifacts"

	// splitsSubdir holds segment files and generated reports
	splitsSubdir = "splits"

	uploadExtension = ".txt"
)

var (
	// ErrInvalidProjectName marks a name that cannot be normalized into a
	// project identifier.
	ErrInvalidProjectName = fmt.Errorf("invalid project name: %w", apperrors.ErrInvalidInput)

	// ErrInvalidProjectUpload marks an unsupported manuscript upload.
	ErrInvalidProjectUpload = fmt.Errorf("invalid project upload: %w", apperrors.ErrInvalidInput)
)

var (
	identifierPattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,127}$`)
	slugDisallowed     = regexp.MustCompile(`[^a-z0-9\s\-_]+`)
	slugSeparators     = regexp.MustCompile(`[\s_-]+`)
	fileNameDisallowed = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// ProjectCreation carries the decoded fields of a creation request.
type ProjectCreation struct {
	NovelName   string
	DisplayName string
	Description string
	Tags        []string
	FileName    string
	ContentType string
	Content     io.Reader
}

// ProjectService manages project records and their workspaces on disk
type ProjectService struct {
	repo  repository.Repository
	paths config.Paths
}

func NewProjectService(repo repository.Repository, paths config.Paths) *ProjectService {
	return &ProjectService{
		repo:  repo,
		paths: paths,
	}
}

// normalizeProjectName turns a display name into the project identifier:
// compatibility decomposition, ASCII folding, lowercasing, then whitespace
// and underscores collapse into single hyphens.
func normalizeProjectName(name string) (string, error) {
	slug := strings.ToLower(toASCII(name))
	slug = slugDisallowed.ReplaceAllString(slug, "")
	slug = slugSeparators.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if !identifierPattern.MatchString(slug) {
		return "", fmt.Errorf("name %q does not yield a usable identifier: %w", name, ErrInvalidProjectName)
	}
	return slug, nil
}

// validateIdentifier checks a client supplied project identifier. Anything
// that cannot name a project is treated as an unknown project rather than a
// malformed request, so probing with odd identifiers reveals nothing.
func validateIdentifier(id string) (string, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if !identifierPattern.MatchString(id) {
		return "", fmt.Errorf("project %q: %w", id, apperrors.ErrNotFound)
	}
	return id, nil
}

// sanitizeFileName reduces an uploaded file name to a safe ASCII form and
// enforces the .txt extension.
func sanitizeFileName(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	name = fileNameDisallowed.ReplaceAllString(norm.NFKD.String(name), "_")
	if len(name) <= len(uploadExtension) || !strings.HasSuffix(strings.ToLower(name), uploadExtension) {
		return "", fmt.Errorf("file %q: only %s manuscripts are accepted: %w", filename, uploadExtension, ErrInvalidProjectUpload)
	}
	return name, nil
}

// normalizeTags lowercases and trims tags, dropping empties and
// duplicates, and returns them sorted.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	var normalized []string
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	sort.Strings(normalized)
	return normalized
}

func toASCII(s string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(s) {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CreateProject registers a new project and stores its manuscript. The
// record is inserted first to reserve the identifier; if provisioning the
// workspace fails afterwards both the record and the workspace are rolled
// back.
func (s *ProjectService) CreateProject(req *ProjectCreation) (*models.Project, error) {
	id, err := normalizeProjectName(req.NovelName)
	if err != nil {
		return nil, err
	}

	filename := strings.TrimSpace(req.FileName)
	if filename == "" {
		filename = id + uploadExtension
	}
	safeName, err := sanitizeFileName(filename)
	if err != nil {
		return nil, err
	}

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(req.NovelName)
	}

	now := time.Now().UTC()
	project := &models.Project{
		ID:          id,
		Name:        displayName,
		Description: strings.TrimSpace(req.Description),
		Tags:        normalizeTags(req.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertProject(project); err != nil {
		return nil, err
	}

	for _, subdir := range []string{uploadsSubdir, artifactsSubdir} {
		if err := os.MkdirAll(filepath.Join(s.ProjectDir(id), subdir), 0o755); err != nil {
			s.rollbackCreate(id)
			return nil, fmt.Errorf("provisioning workspace for project %s: %w", id, err)
		}
	}

	relativePath := uploadsSubdir + "/" + safeName
	size, chunks, err := s.storeUpload(id, relativePath, req.Content)
	if err != nil {
		s.rollbackCreate(id)
		return nil, fmt.Errorf("storing upload for project %s: %w", id, err)
	}

	project.Upload = &models.UploadInfo{
		Filename:     safeName,
		ContentType:  req.ContentType,
		Size:         size,
		Chunks:       chunks,
		RelativePath: relativePath,
		UploadedAt:   now,
	}
	if err := s.repo.SaveProject(project); err != nil {
		s.rollbackCreate(id)
		return nil, fmt.Errorf("recording upload for project %s: %w", id, err)
	}

	log.WithFields(log.Fields{
		"project": id,
		"file":    safeName,
		"size":    size,
		"chunks":  chunks,
	}).Info("Created project")

	return project, nil
}

// storeUpload streams the manuscript to disk in fixed size chunks.
func (s *ProjectService) storeUpload(id, relativePath string, upload io.Reader) (int64, int, error) {
	target := filepath.Join(s.ProjectDir(id), filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, 0, fmt.Errorf("creating upload directory: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return 0, 0, fmt.Errorf("creating upload file: %w", err)
	}

	written, err := io.CopyBuffer(file, upload, make([]byte, uploadChunkSize))
	if err != nil {
		file.Close()
		return 0, 0, fmt.Errorf("writing upload: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, 0, fmt.Errorf("closing upload file: %w", err)
	}

	chunks := int((written + uploadChunkSize - 1) / uploadChunkSize)
	return written, chunks, nil
}

// rollbackCreate undoes a partially created project.
func (s *ProjectService) rollbackCreate(id string) {
	if err := os.RemoveAll(s.ProjectDir(id)); err != nil {
		log.WithError(err).WithField("project", id).Warn("Failed to remove workspace during rollback")
	}
	if err := s.repo.RemoveProject(id); err != nil && !apperrors.IsNotFound(err) {
		log.WithError(err).WithField("project", id).Warn("Failed to remove record during rollback")
	}
}

// GetProject returns a project together with the artifacts found in its
// workspace.
func (s *ProjectService) GetProject(id string) (*models.ProjectDetail, error) {
	id, err := validateIdentifier(id)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.GetProject(id)
	if err != nil {
		return nil, err
	}

	artifacts, err := s.collectArtifacts(id)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts for project %s: %w", id, err)
	}

	return &models.ProjectDetail{
		Project:   *project,
		Artifacts: artifacts,
	}, nil
}

// collectArtifacts walks the artifacts subdirectory of a workspace, with
// paths reported relative to the workspace root. A missing directory is
// an empty artifact list, not an error.
func (s *ProjectService) collectArtifacts(id string) ([]models.Artifact, error) {
	projectDir := s.ProjectDir(id)
	root := filepath.Join(projectDir, artifactsSubdir)
	artifacts := []models.Artifact{}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(projectDir, path)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, models.Artifact{
			Name:         entry.Name(),
			RelativePath: filepath.ToSlash(relative),
			Size:         info.Size(),
			ModifiedAt:   info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return artifacts, nil
		}
		return nil, err
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].RelativePath < artifacts[j].RelativePath
	})
	return artifacts, nil
}

// ListProjects returns all projects, optionally narrowed to a tag.
func (s *ProjectService) ListProjects(tag string) ([]*models.Project, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return s.repo.FindAllProjects()
	}

	projects, err := s.repo.FindProjectsByTag(tag)
	if err != nil {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

// UpdateProject applies the non-nil fields of the update to a project.
// The identifier never changes, even when the display name does.
func (s *ProjectService) UpdateProject(id string, update *models.ProjectUpdate) (*models.Project, error) {
	id, err := validateIdentifier(id)
	if err != nil {
		return nil, err
	}
	project, err := s.repo.GetProject(id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("name must not be empty: %w", ErrInvalidProjectName)
		}
		project.Name = name
	}
	if update.Description != nil {
		project.Description = strings.TrimSpace(*update.Description)
	}
	if update.Tags != nil {
		project.Tags = normalizeTags(*update.Tags)
	}
	project.UpdatedAt = time.Now().UTC()

	if err := s.repo.SaveProject(project); err != nil {
		return nil, err
	}

	log.WithField("project", id).Info("Updated project")
	return project, nil
}

// DeleteProject removes the record and tears down the workspace. The
// record removal is authoritative; workspace cleanup is best effort.
func (s *ProjectService) DeleteProject(id string) (string, error) {
	id, err := validateIdentifier(id)
	if err != nil {
		return "", err
	}
	if err := s.repo.RemoveProject(id); err != nil {
		return "", err
	}
	if err := os.RemoveAll(s.ProjectDir(id)); err != nil {
		log.WithError(err).WithField("project", id).Warn("Failed to remove project workspace")
	}

	log.WithField("project", id).Info("Deleted project")
	return id, nil
}

// ProjectDir returns the workspace directory of a project.
func (s *ProjectService) ProjectDir(id string) string {
	return filepath.Join(s.paths.Projects, id)
}

// SplitsDir returns the directory holding segment files and reports.
func (s *ProjectService) SplitsDir(id string) string {
	return filepath.Join(s.ProjectDir(id), splitsSubdir)
}
