package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scriptorium/scriptorium/pkg/config"
	"github.com/scriptorium/scriptorium/pkg/splitter"
)

const metadataFileName = "metadata.json"

var (
	// ErrInvalidSplitProject marks a split request whose project identifier
	// could escape the projects directory or is otherwise malformed.
	ErrInvalidSplitProject = errors.New("project identifier must contain only letters, digits, hyphens and underscores")

	// ErrSplitExecution marks a failure while writing segment files.
	ErrSplitExecution = errors.New("split execution failed")
)

var (
	splitProjectPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	segmentFilePattern  = regexp.MustCompile(`^\d+\.txt$`)
)

// SplitRequest describes one preview or execute call
type SplitRequest struct {
	ProjectID  string            `json:"project_id"`
	Text       string            `json:"text"`
	Strategy   splitter.Strategy `json:"strategy"`
	Parameters splitter.Params   `json:"parameters"`
}

// SplitPreview summarizes the segmentation without exposing segment text
type SplitPreview struct {
	ProjectID       string             `json:"project_id"`
	Strategy        splitter.Strategy  `json:"strategy"`
	Parameters      splitter.Params    `json:"parameters"`
	TotalSegments   int                `json:"total_segments"`
	TotalCharacters int                `json:"total_characters"`
	TotalBytes      int                `json:"total_bytes"`
	SourceSHA256    string             `json:"source_sha256"`
	Segments        []splitter.Segment `json:"segments"`
}

// SplitResult extends the preview with the files written during execution
type SplitResult struct {
	SplitPreview
	OutputDirectory string   `json:"output_directory"`
	MetadataPath    string   `json:"metadata_path"`
	WrittenFiles    []string `json:"written_files"`
}

// splitMetadata is the document persisted next to the segment files
type splitMetadata struct {
	ProjectID       string             `json:"project_id"`
	Strategy        splitter.Strategy  `json:"strategy"`
	Parameters      splitter.Params    `json:"parameters"`
	GeneratedAt     time.Time          `json:"generated_at"`
	TotalSegments   int                `json:"total_segments"`
	TotalCharacters int                `json:"total_characters"`
	TotalBytes      int                `json:"total_bytes"`
	SourceSHA256    string             `json:"source_sha256"`
	Files           []string           `json:"files"`
	Segments        []splitter.Segment `json:"segments"`
}

// SplitService previews segmentations and materializes them as segment
// files inside a project workspace
type SplitService struct {
	paths config.Paths
}

func NewSplitService(paths config.Paths) *SplitService {
	return &SplitService{paths: paths}
}

// Preview runs the splitter without touching the filesystem.
func (s *SplitService) Preview(req *SplitRequest) (*SplitPreview, error) {
	if !splitProjectPattern.MatchString(req.ProjectID) {
		return nil, fmt.Errorf("%q: %w", req.ProjectID, ErrInvalidSplitProject)
	}

	segments, err := splitter.Split(req.Text, req.Strategy, req.Parameters)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256([]byte(req.Text))
	return &SplitPreview{
		ProjectID:       req.ProjectID,
		Strategy:        req.Strategy,
		Parameters:      req.Parameters,
		TotalSegments:   len(segments),
		TotalCharacters: len([]rune(req.Text)),
		TotalBytes:      len(req.Text),
		SourceSHA256:    hex.EncodeToString(digest[:]),
		Segments:        segments,
	}, nil
}

// Execute previews the segmentation, then writes one numbered .txt file
// per segment plus a metadata document into the project's splits
// directory. Existing segment files block execution unless overwrite is
// set, in which case stale segment files and metadata are removed first.
func (s *SplitService) Execute(req *SplitRequest, overwrite bool) (*SplitResult, error) {
	preview, err := s.Preview(req)
	if err != nil {
		return nil, err
	}

	dir := s.splitsDir(req.ProjectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating splits directory: %v: %w", err, ErrSplitExecution)
	}

	if err := s.prepareDirectory(dir, overwrite); err != nil {
		return nil, err
	}

	files := make([]string, 0, len(preview.Segments))
	for _, segment := range preview.Segments {
		name := strconv.Itoa(segment.Index) + ".txt"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(segment.Text), 0o644); err != nil {
			return nil, fmt.Errorf("writing segment file %s: %v: %w", name, err, ErrSplitExecution)
		}
		files = append(files, name)
	}

	metadataPath := filepath.Join(dir, metadataFileName)
	metadata := splitMetadata{
		ProjectID:       preview.ProjectID,
		Strategy:        preview.Strategy,
		Parameters:      preview.Parameters,
		GeneratedAt:     time.Now().UTC(),
		TotalSegments:   preview.TotalSegments,
		TotalCharacters: preview.TotalCharacters,
		TotalBytes:      preview.TotalBytes,
		SourceSHA256:    preview.SourceSHA256,
		Files:           files,
		Segments:        preview.Segments,
	}
	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding split metadata: %v: %w", err, ErrSplitExecution)
	}
	if err := os.WriteFile(metadataPath, encoded, 0o644); err != nil {
		return nil, fmt.Errorf("writing split metadata: %v: %w", err, ErrSplitExecution)
	}

	log.WithFields(log.Fields{
		"project":  preview.ProjectID,
		"strategy": preview.Strategy,
		"segments": preview.TotalSegments,
	}).Info("Executed split")

	return &SplitResult{
		SplitPreview:    *preview,
		OutputDirectory: dir,
		MetadataPath:    metadataPath,
		WrittenFiles:    files,
	}, nil
}

// prepareDirectory enforces the overwrite contract against segment files
// already present.
func (s *SplitService) prepareDirectory(dir string, overwrite bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading splits directory: %v: %w", err, ErrSplitExecution)
	}

	var existing []string
	for _, entry := range entries {
		if !entry.IsDir() && segmentFilePattern.MatchString(entry.Name()) {
			existing = append(existing, entry.Name())
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if !overwrite {
		return fmt.Errorf("%d segment file(s) already present in %s: %w", len(existing), dir, ErrSplitExecution)
	}

	for _, name := range existing {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("removing stale segment file %s: %v: %w", name, err, ErrSplitExecution)
		}
	}
	if err := os.Remove(filepath.Join(dir, metadataFileName)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale metadata: %v: %w", err, ErrSplitExecution)
	}
	return nil
}

func (s *SplitService) splitsDir(projectID string) string {
	return filepath.Join(s.paths.Projects, projectID, splitsSubdir)
}
