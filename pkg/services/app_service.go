package services

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scriptorium/scriptorium/pkg/models"
	"github.com/scriptorium/scriptorium/pkg/repository"
)

// AppService coordinates all application services
type AppService struct {
	repo            repository.Repository
	projectService  *ProjectService
	splitService    *SplitService
	manifestService *ManifestService
	settingsService *SettingsService
	reportService   *ReportService
}

func NewAppService(
	repo repository.Repository,
	projectService *ProjectService,
	splitService *SplitService,
	manifestService *ManifestService,
	settingsService *SettingsService,
	reportService *ReportService,
) *AppService {
	return &AppService{
		repo:            repo,
		projectService:  projectService,
		splitService:    splitService,
		manifestService: manifestService,
		settingsService: settingsService,
		reportService:   reportService,
	}
}

// Project operations

func (s *AppService) CreateProject(req *ProjectCreation) (*models.Project, error) {
	return s.projectService.CreateProject(req)
}

func (s *AppService) GetProject(id string) (*models.ProjectDetail, error) {
	return s.projectService.GetProject(id)
}

func (s *AppService) ListProjects(tag string) ([]*models.Project, error) {
	return s.projectService.ListProjects(tag)
}

func (s *AppService) UpdateProject(id string, update *models.ProjectUpdate) (*models.Project, error) {
	return s.projectService.UpdateProject(id, update)
}

func (s *AppService) DeleteProject(id string) (string, error) {
	return s.projectService.DeleteProject(id)
}

// Splitter operations

func (s *AppService) PreviewSplit(req *SplitRequest) (*SplitPreview, error) {
	return s.splitService.Preview(req)
}

func (s *AppService) ExecuteSplit(req *SplitRequest, overwrite bool) (*SplitResult, error) {
	return s.splitService.Execute(req, overwrite)
}

// Report operations

func (s *AppService) GetReportStatus(projectID string) (*models.ReportStatus, error) {
	return s.reportService.Status(projectID)
}

func (s *AppService) StartReport(projectID string, req *models.GenerateRequest) (*models.ReportStatus, error) {
	return s.reportService.StartReport(projectID, req)
}

func (s *AppService) RunReportPipeline(projectID string, segments []int, cascade bool) error {
	return s.reportService.RunPipeline(projectID, segments, cascade)
}

func (s *AppService) GetFinalReport(projectID string) (*models.FinalReport, error) {
	return s.reportService.GetFinalReport(projectID)
}

func (s *AppService) SaveFinalReport(projectID, content string) (*models.FinalReport, error) {
	return s.reportService.SaveFinalReport(projectID, content)
}

// Settings operations

func (s *AppService) GetSettings() (*models.AppSettings, error) {
	return s.settingsService.Get()
}

func (s *AppService) UpdateSettings(update *models.SettingsUpdate) (*models.AppSettings, error) {
	return s.settingsService.Update(update)
}

// ManifestReload reports the outcome of a forced manifest refresh
type ManifestReload struct {
	Reloaded     bool       `json:"reloaded"`
	Version      string     `json:"version"`
	CachedAt     time.Time  `json:"cached_at"`
	GeneratedAt  *time.Time `json:"generated_at,omitempty"`
	ManifestPath string     `json:"manifest_path"`
}

// ReloadManifest forces a reread of the agents manifest and returns its
// refreshed metadata.
func (s *AppService) ReloadManifest() (*ManifestReload, error) {
	if _, err := s.manifestService.Refresh(); err != nil {
		return nil, fmt.Errorf("refreshing agents manifest: %w", err)
	}
	info, err := s.manifestService.Metadata()
	if err != nil {
		return nil, fmt.Errorf("reading agents manifest metadata: %w", err)
	}
	return &ManifestReload{
		Reloaded:     true,
		Version:      info.Version,
		CachedAt:     info.CachedAt,
		GeneratedAt:  info.GeneratedAt,
		ManifestPath: info.Path,
	}, nil
}

func (s *AppService) Close() error {
	log.Info("Shutting down application service")

	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("closing repository: %w", err)
	}

	return nil
}
