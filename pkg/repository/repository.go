package repository

import (
	"errors"
	"fmt"
	"sort"

	"github.com/timshannon/bolthold"

	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
	"github.com/scriptorium/scriptorium/pkg/models"
)

// Repository defines the interface for data access operations
type Repository interface {
	// Project operations
	InsertProject(project *models.Project) error
	SaveProject(project *models.Project) error
	GetProject(id string) (*models.Project, error)
	FindAllProjects() ([]*models.Project, error)
	FindProjectsByTag(tag string) ([]*models.Project, error)
	RemoveProject(id string) error

	// Utility operations
	Close() error
}

// BoltRepository implements Repository using BoltDB
type BoltRepository struct {
	store *bolthold.Store
}

func NewBoltRepository(store *bolthold.Store) Repository {
	return &BoltRepository{store: store}
}

func (r *BoltRepository) Store() *bolthold.Store {
	return r.store
}

// Project operations

// InsertProject stores a new project, failing when the ID is taken.
func (r *BoltRepository) InsertProject(project *models.Project) error {
	if err := r.store.Insert(project.ID, project); err != nil {
		if errors.Is(err, bolthold.ErrKeyExists) {
			return fmt.Errorf("project %s: %w", project.ID, apperrors.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// SaveProject stores a project, replacing any existing record.
func (r *BoltRepository) SaveProject(project *models.Project) error {
	if err := r.store.Upsert(project.ID, project); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

func (r *BoltRepository) GetProject(id string) (*models.Project, error) {
	var project models.Project
	if err := r.store.Get(id, &project); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return nil, fmt.Errorf("project %s: %w", id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// FindAllProjects returns every project ordered by creation time, ties
// broken by ID.
func (r *BoltRepository) FindAllProjects() ([]*models.Project, error) {
	var projects []*models.Project
	if err := r.store.Find(&projects, nil); err != nil {
		return nil, fmt.Errorf("failed to find all projects: %w", err)
	}
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

func (r *BoltRepository) FindProjectsByTag(tag string) ([]*models.Project, error) {
	var projects []*models.Project
	if err := r.store.Find(&projects, bolthold.Where("Tags").Contains(tag)); err != nil {
		return nil, fmt.Errorf("failed to find projects by tag: %w", err)
	}
	return projects, nil
}

func (r *BoltRepository) RemoveProject(id string) error {
	if err := r.store.Delete(id, &models.Project{}); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return fmt.Errorf("project %s: %w", id, apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to remove project: %w", err)
	}
	return nil
}

// Utility operations
func (r *BoltRepository) Close() error {
	if err := r.store.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	return nil
}
