package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scriptorium/scriptorium/pkg/config"
	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
	"github.com/scriptorium/scriptorium/pkg/models"
)

const (
	integrationsSubdir = "integrations"
	finalReportName    = "final_report.md"

	detailAnalysisStart     = "Starting analysis"
	detailIntegrationStart  = "Starting integration"
	detailFinalizationStart = "Compiling final report"
	detailFinalizationDone  = "Final report updated"
)

// sourceExtensions are the file types accepted as segment sources
var sourceExtensions = map[string]bool{
	".txt":  true,
	".text": true,
	".rst":  true,
}

// segmentFile is a discovered segment source inside a workspace
type segmentFile struct {
	Index int
	Name  string
	Path  string
}

// ReportService runs the three stage report pipeline over a project
// workspace: per-segment analysis, pairwise integration, then the final
// report compilation.
type ReportService struct {
	paths    config.Paths
	manifest *ManifestService
	tracker  *StatusTracker

	mu   sync.Mutex
	runs map[string]*sync.Mutex
}

func NewReportService(paths config.Paths, manifest *ManifestService, tracker *StatusTracker) *ReportService {
	return &ReportService{
		paths:    paths,
		manifest: manifest,
		tracker:  tracker,
		runs:     make(map[string]*sync.Mutex),
	}
}

// Status returns the tracker snapshot for a project. Projects that never
// ran report an idle pipeline.
func (s *ReportService) Status(projectID string) (*models.ReportStatus, error) {
	id, err := validateIdentifier(projectID)
	if err != nil {
		return nil, err
	}
	return s.tracker.Snapshot(id), nil
}

// StartReport validates the request and queues a pipeline run. The caller
// is expected to invoke RunPipeline afterwards, typically in a goroutine.
func (s *ReportService) StartReport(projectID string, req *models.GenerateRequest) (*models.ReportStatus, error) {
	id, err := validateIdentifier(projectID)
	if err != nil {
		return nil, err
	}
	segments, err := normalizeSegments(req.Segments)
	if err != nil {
		return nil, err
	}
	cascade := true
	if req.Cascade != nil {
		cascade = *req.Cascade
	}

	if info, err := os.Stat(s.splitsDir(id)); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project %s has no segment workspace: %w", id, apperrors.ErrWorkspaceNotReady)
	}

	status, err := s.tracker.Begin(id, segments, cascade)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"project":  id,
		"segments": segments,
		"cascade":  cascade,
	}).Info("Queued report pipeline")
	return status, nil
}

// normalizeSegments sorts the requested segment indexes and drops
// duplicates. Negative indexes are rejected.
func normalizeSegments(segments []int) ([]int, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	seen := make(map[int]struct{}, len(segments))
	var normalized []int
	for _, segment := range segments {
		if segment < 0 {
			return nil, fmt.Errorf("segment indexes must be non-negative: %w", apperrors.ErrInvalidInput)
		}
		if _, ok := seen[segment]; ok {
			continue
		}
		seen[segment] = struct{}{}
		normalized = append(normalized, segment)
	}
	sort.Ints(normalized)
	return normalized, nil
}

// RunPipeline executes the pipeline for a project. Runs for the same
// project are serialized; the tracker records progress and the outcome.
func (s *ReportService) RunPipeline(projectID string, requested []int, cascade bool) error {
	lock := s.runLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	s.tracker.SetRunning(projectID)

	if err := s.pipeline(projectID, requested, cascade); err != nil {
		log.WithError(err).WithField("project", projectID).Error("Report pipeline failed")
		s.tracker.SetFailed(projectID, err)
		return err
	}

	s.tracker.SetCompleted(projectID)
	log.WithField("project", projectID).Info("Report pipeline completed")
	return nil
}

func (s *ReportService) runLock(projectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.runs[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.runs[projectID] = lock
	}
	return lock
}

func (s *ReportService) pipeline(projectID string, requested []int, cascade bool) error {
	dir := s.splitsDir(projectID)

	s.tracker.UpdateStage(projectID, models.StageAnalysis, models.TaskStateRunning, detailAnalysisStart)
	segments, err := discoverSegments(dir)
	if err != nil {
		s.tracker.UpdateStage(projectID, models.StageAnalysis, models.TaskStateFailed, err.Error())
		return err
	}
	analyzed, err := s.runAnalysis(dir, segments, requested)
	if err != nil {
		s.tracker.UpdateStage(projectID, models.StageAnalysis, models.TaskStateFailed, err.Error())
		return err
	}
	s.tracker.UpdateStage(projectID, models.StageAnalysis, models.TaskStateCompleted,
		fmt.Sprintf("Generated analysis for %d segment(s)", analyzed))

	s.tracker.UpdateStage(projectID, models.StageIntegration, models.TaskStateRunning, detailIntegrationStart)
	pairs, err := s.runIntegration(dir, segments, requested, cascade)
	if err != nil {
		s.tracker.UpdateStage(projectID, models.StageIntegration, models.TaskStateFailed, err.Error())
		return err
	}
	s.tracker.UpdateStage(projectID, models.StageIntegration, models.TaskStateCompleted,
		fmt.Sprintf("Ensured integration coverage for %d pair(s)", pairs))

	s.tracker.UpdateStage(projectID, models.StageFinalization, models.TaskStateRunning, detailFinalizationStart)
	if err := s.runFinalization(dir, segments); err != nil {
		s.tracker.UpdateStage(projectID, models.StageFinalization, models.TaskStateFailed, err.Error())
		return err
	}
	s.tracker.UpdateStage(projectID, models.StageFinalization, models.TaskStateCompleted, detailFinalizationDone)

	return nil
}

// discoverSegments scans a workspace for numbered segment sources.
// Markdown files sharing a stem with a source are analysis artifacts;
// markdown files without one indicate a broken workspace. When several
// sources share an index the lexicographically last file wins.
func discoverSegments(dir string) ([]segmentFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("workspace %s: %w", dir, apperrors.ErrWorkspaceNotReady)
		}
		return nil, fmt.Errorf("reading workspace: %w", err)
	}

	sources := make(map[int]segmentFile)
	markdown := make(map[int]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		index, err := strconv.Atoi(strings.TrimSuffix(name, filepath.Ext(name)))
		if err != nil || index < 0 {
			continue
		}
		switch {
		case sourceExtensions[ext]:
			sources[index] = segmentFile{Index: index, Name: name, Path: filepath.Join(dir, name)}
		case ext == ".md":
			markdown[index] = true
		}
	}

	var orphans []int
	for index := range markdown {
		if _, ok := sources[index]; !ok {
			orphans = append(orphans, index)
		}
	}
	if len(orphans) > 0 {
		sort.Ints(orphans)
		return nil, fmt.Errorf("segment markdown without a source file: %v", orphans)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no segment source files found in %s", dir)
	}

	segments := make([]segmentFile, 0, len(sources))
	for _, segment := range sources {
		segments = append(segments, segment)
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].Index < segments[j].Index })
	return segments, nil
}

// runAnalysis writes the analysis documents. With no requested subset
// every segment is analyzed; otherwise the requested segments plus any
// segment still missing its analysis.
func (s *ReportService) runAnalysis(dir string, segments []segmentFile, requested []int) (int, error) {
	bySegment := make(map[int]segmentFile, len(segments))
	for _, segment := range segments {
		bySegment[segment.Index] = segment
	}

	var unknown []int
	for _, index := range requested {
		if _, ok := bySegment[index]; !ok {
			unknown = append(unknown, index)
		}
	}
	if len(unknown) > 0 {
		return 0, fmt.Errorf("unknown segment(s) requested: %v", unknown)
	}

	regen := make(map[int]bool)
	if len(requested) == 0 {
		for _, segment := range segments {
			regen[segment.Index] = true
		}
	} else {
		for _, index := range requested {
			regen[index] = true
		}
		for _, segment := range segments {
			if !fileExists(analysisPath(dir, segment.Index)) {
				regen[segment.Index] = true
			}
		}
	}

	directive, err := s.manifest.StageDirective(models.StageAnalysis)
	if err != nil {
		return 0, err
	}

	indexes := make([]int, 0, len(regen))
	for index := range regen {
		indexes = append(indexes, index)
	}
	sort.Ints(indexes)

	for _, index := range indexes {
		segment := bySegment[index]
		raw, err := os.ReadFile(segment.Path)
		if err != nil {
			return 0, fmt.Errorf("reading segment %d: %w", index, err)
		}
		doc := renderAnalysis(index, segment.Name, directive, string(raw))
		if err := os.WriteFile(analysisPath(dir, index), []byte(doc), 0o644); err != nil {
			return 0, fmt.Errorf("writing analysis for segment %d: %w", index, err)
		}
	}
	return len(indexes), nil
}

// runIntegration ensures every full pair of consecutive segments has an
// integrated report. A pair is rebuilt when no subset was requested, when
// it covers a requested segment, when a cascade is active, or when its
// file is missing. A requested pair with cascade enabled forces every
// later pair to rebuild too. An unpaired trailing segment keeps no
// integration file.
func (s *ReportService) runIntegration(dir string, segments []segmentFile, requested []int, cascade bool) (int, error) {
	var missing []int
	for _, segment := range segments {
		if !fileExists(analysisPath(dir, segment.Index)) {
			missing = append(missing, segment.Index)
		}
	}
	if len(missing) > 0 {
		return 0, fmt.Errorf("missing analysis file(s) for segment(s): %v", missing)
	}

	requestedSet := make(map[int]bool, len(requested))
	for _, index := range requested {
		requestedSet[index] = true
	}

	integrationsDir := filepath.Join(dir, integrationsSubdir)
	pairCount := len(segments) / 2
	if pairCount > 0 {
		if err := os.MkdirAll(integrationsDir, 0o755); err != nil {
			return 0, fmt.Errorf("creating integrations directory: %w", err)
		}
	}

	cascadeActive := false
	for k := 0; k < pairCount; k++ {
		first, second := segments[2*k], segments[2*k+1]
		path := integrationPath(integrationsDir, k)

		touches := requestedSet[first.Index] || requestedSet[second.Index]
		update := len(requested) == 0 || touches || cascadeActive || !fileExists(path)
		if touches && cascade {
			cascadeActive = true
		}
		if !update {
			continue
		}

		a, err := s.loadRenderSegment(dir, first)
		if err != nil {
			return 0, err
		}
		b, err := s.loadRenderSegment(dir, second)
		if err != nil {
			return 0, err
		}
		doc := renderIntegration(k, a, b)
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			return 0, fmt.Errorf("writing integrated report %d: %w", k, err)
		}
	}

	if len(segments)%2 == 1 {
		stale := integrationPath(integrationsDir, pairCount)
		if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
			return 0, fmt.Errorf("removing stale integrated report: %w", err)
		}
	}

	return pairCount, nil
}

func (s *ReportService) loadRenderSegment(dir string, segment segmentFile) (renderSegment, error) {
	source, err := os.ReadFile(segment.Path)
	if err != nil {
		return renderSegment{}, fmt.Errorf("reading segment %d: %w", segment.Index, err)
	}
	analysis, err := os.ReadFile(analysisPath(dir, segment.Index))
	if err != nil {
		return renderSegment{}, fmt.Errorf("reading analysis for segment %d: %w", segment.Index, err)
	}
	return renderSegment{
		Index:    segment.Index,
		FileName: segment.Name,
		Text:     string(source),
		Analysis: string(analysis),
	}, nil
}

// runFinalization rewrites the final report from the integrated summaries
// plus residual analyses for segments no integration covers.
func (s *ReportService) runFinalization(dir string, segments []segmentFile) error {
	directive, err := s.manifest.StageDirective(models.StageFinalization)
	if err != nil {
		return err
	}

	integrationsDir := filepath.Join(dir, integrationsSubdir)
	covered := make(map[int]bool)
	var sections []string

	pairCount := len(segments) / 2
	for k := 0; k < pairCount; k++ {
		raw, err := os.ReadFile(integrationPath(integrationsDir, k))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("reading integrated report %d: %w", k, err)
		}
		sections = append(sections, fmt.Sprintf("## Integrated Summary %d\n%s", k, strings.TrimSpace(string(raw))))
		covered[segments[2*k].Index] = true
		covered[segments[2*k+1].Index] = true
	}

	for _, segment := range segments {
		if covered[segment.Index] {
			continue
		}
		raw, err := os.ReadFile(analysisPath(dir, segment.Index))
		if err != nil {
			return fmt.Errorf("reading analysis for segment %d: %w", segment.Index, err)
		}
		sections = append(sections, fmt.Sprintf("## Residual Segment %d\n%s", segment.Index, strings.TrimSpace(string(raw))))
	}

	doc := renderFinal(directive, sections)
	if err := os.WriteFile(filepath.Join(dir, finalReportName), []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing final report: %w", err)
	}
	return nil
}

// GetFinalReport returns the compiled report document.
func (s *ReportService) GetFinalReport(projectID string) (*models.FinalReport, error) {
	id, err := validateIdentifier(projectID)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.splitsDir(id), finalReportName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("final report for project %s: %w", id, apperrors.ErrReportMissing)
		}
		return nil, fmt.Errorf("reading final report: %w", err)
	}

	updatedAt := time.Now().UTC()
	if info, err := os.Stat(path); err == nil {
		updatedAt = info.ModTime().UTC()
	}

	return &models.FinalReport{
		ProjectID:    id,
		Content:      string(raw),
		RelativePath: splitsSubdir + "/" + finalReportName,
		UpdatedAt:    updatedAt,
	}, nil
}

// SaveFinalReport persists a manually edited final report and marks the
// finalization stage as completed.
func (s *ReportService) SaveFinalReport(projectID, content string) (*models.FinalReport, error) {
	id, err := validateIdentifier(projectID)
	if err != nil {
		return nil, err
	}

	dir := s.splitsDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, finalReportName), []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing final report: %w", err)
	}

	s.tracker.MarkFinalEdited(id)
	log.WithField("project", id).Info("Final report updated via API")

	return &models.FinalReport{
		ProjectID:    id,
		Content:      content,
		RelativePath: splitsSubdir + "/" + finalReportName,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

func (s *ReportService) splitsDir(projectID string) string {
	return filepath.Join(s.paths.Projects, projectID, splitsSubdir)
}

func analysisPath(dir string, index int) string {
	return filepath.Join(dir, strconv.Itoa(index)+".md")
}

func integrationPath(integrationsDir string, pairIndex int) string {
	return filepath.Join(integrationsDir, fmt.Sprintf("integrated_%d.md", pairIndex))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
