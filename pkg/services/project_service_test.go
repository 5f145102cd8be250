package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timshannon/bolthold"

	"github.com/scriptorium/scriptorium/pkg/config"
	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
	"github.com/scriptorium/scriptorium/pkg/models"
	"github.com/scriptorium/scriptorium/pkg/repository"
)

// testPaths provisions a throwaway workspace tree.
func testPaths(t *testing.T) config.Paths {
	t.Helper()
	base := t.TempDir()
	paths := config.Paths{
		Base:     base,
		Data:     filepath.Join(base, "data"),
		Config:   filepath.Join(base, "config"),
		Static:   filepath.Join(base, "static"),
		Projects: filepath.Join(base, "data", "projects"),
	}
	if err := paths.Ensure(); err != nil {
		t.Fatalf("provisioning test paths: %v", err)
	}
	return paths
}

func testRepo(t *testing.T) repository.Repository {
	t.Helper()
	store, err := bolthold.Open(filepath.Join(t.TempDir(), "test.db"), 0666, nil)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	repo := repository.NewBoltRepository(store)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func newTestProjectService(t *testing.T) (*ProjectService, config.Paths) {
	t.Helper()
	paths := testPaths(t)
	return NewProjectService(testRepo(t), paths), paths
}

func TestNormalizeProjectName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain words", input: "My Great Novel", want: "my-great-novel"},
		{name: "accented letters fold", input: "Café Stories", want: "cafe-stories"},
		{name: "underscores collapse", input: "  spaced_out  ", want: "spaced-out"},
		{name: "uppercase folds", input: "UPPER", want: "upper"},
		{name: "punctuation only", input: "!!!", wantErr: true},
		{name: "non latin only", input: "第一本书", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeProjectName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("normalizeProjectName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidInput) {
					t.Errorf("error = %v, want ErrInvalidInput", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("normalizeProjectName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "already safe", input: "draft.txt", want: "draft.txt"},
		{name: "path components dropped", input: "evil/../path.txt", want: "path.txt"},
		{name: "uppercase extension accepted", input: "FINAL.TXT", want: "FINAL.TXT"},
		{name: "odd characters replaced", input: "my draft!.txt", want: "my_draft_.txt"},
		{name: "wrong extension", input: "notes.pdf", wantErr: true},
		{name: "extension only", input: ".txt", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizeFileName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("sanitizeFileName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("sanitizeFileName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{" Fiction", "fiction", "", "Essay", "ESSAY "})
	want := []string{"essay", "fiction"}
	if len(got) != len(want) {
		t.Fatalf("normalizeTags() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("normalizeTags()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// createTestProject provisions a project with a small plain-text upload.
func createTestProject(t *testing.T, service *ProjectService, name string, tags []string, filename, content string) *models.Project {
	t.Helper()
	project, err := service.CreateProject(&ProjectCreation{
		NovelName:   name,
		Tags:        tags,
		FileName:    filename,
		ContentType: "text/plain",
		Content:     strings.NewReader(content),
	})
	if err != nil {
		t.Fatalf("CreateProject(%q) error = %v", name, err)
	}
	return project
}

func TestCreateProject(t *testing.T) {
	service, paths := newTestProjectService(t)

	project, err := service.CreateProject(&ProjectCreation{
		NovelName:   "My Novel",
		Description: "a first attempt",
		Tags:        []string{"Fiction"},
		FileName:    "draft.txt",
		ContentType: "text/plain",
		Content:     strings.NewReader("once upon a time"),
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	if project.ID != "my-novel" {
		t.Errorf("ID = %q, want my-novel", project.ID)
	}
	if project.Name != "My Novel" {
		t.Errorf("Name = %q, want My Novel", project.Name)
	}
	if project.Upload == nil {
		t.Fatal("Upload is nil")
	}
	if project.Upload.Size != int64(len("once upon a time")) {
		t.Errorf("Upload.Size = %d, want %d", project.Upload.Size, len("once upon a time"))
	}
	if project.Upload.Chunks != 1 {
		t.Errorf("Upload.Chunks = %d, want 1", project.Upload.Chunks)
	}
	if project.Upload.RelativePath != "uploads/draft.txt" {
		t.Errorf("Upload.RelativePath = %q, want uploads/draft.txt", project.Upload.RelativePath)
	}
	if len(project.Tags) != 1 || project.Tags[0] != "fiction" {
		t.Errorf("Tags = %v, want [fiction]", project.Tags)
	}

	workspace := filepath.Join(paths.Projects, "my-novel")
	raw, err := os.ReadFile(filepath.Join(workspace, "uploads", "draft.txt"))
	if err != nil {
		t.Fatalf("reading stored upload: %v", err)
	}
	if string(raw) != "once upon a time" {
		t.Errorf("stored upload = %q", raw)
	}
	for _, subdir := range []string{"uploads", "artifacts"} {
		info, err := os.Stat(filepath.Join(workspace, subdir))
		if err != nil || !info.IsDir() {
			t.Errorf("workspace subdir %s missing: %v", subdir, err)
		}
	}
}

func TestCreateProjectDisplayName(t *testing.T) {
	service, _ := newTestProjectService(t)

	project, err := service.CreateProject(&ProjectCreation{
		NovelName:   "les misérables",
		DisplayName: "Les Misérables",
		FileName:    "tome1.txt",
		ContentType: "text/plain",
		Content:     strings.NewReader("body"),
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if project.ID != "les-miserables" {
		t.Errorf("ID = %q, want les-miserables", project.ID)
	}
	if project.Name != "Les Misérables" {
		t.Errorf("Name = %q, want display name preserved", project.Name)
	}
}

func TestCreateProjectDefaultFileName(t *testing.T) {
	service, _ := newTestProjectService(t)

	project, err := service.CreateProject(&ProjectCreation{
		NovelName:   "Nameless Upload",
		ContentType: "text/plain",
		Content:     strings.NewReader("body"),
	})
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if project.Upload.Filename != "nameless-upload.txt" {
		t.Errorf("Upload.Filename = %q, want nameless-upload.txt", project.Upload.Filename)
	}
}

func TestCreateProjectDuplicate(t *testing.T) {
	service, _ := newTestProjectService(t)

	createTestProject(t, service, "Twice Told", nil, "draft.txt", "one")

	_, err := service.CreateProject(&ProjectCreation{
		NovelName:   "Twice Told",
		FileName:    "other.txt",
		ContentType: "text/plain",
		Content:     strings.NewReader("two"),
	})
	if !errors.Is(err, apperrors.ErrAlreadyExists) {
		t.Errorf("CreateProject() duplicate error = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	service, _ := newTestProjectService(t)

	_, err := service.CreateProject(&ProjectCreation{
		NovelName: "!!!",
		FileName:  "draft.txt",
		Content:   strings.NewReader("x"),
	})
	if !errors.Is(err, ErrInvalidProjectName) {
		t.Errorf("invalid name error = %v, want ErrInvalidProjectName", err)
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("invalid name error = %v, want ErrInvalidInput in chain", err)
	}

	_, err = service.CreateProject(&ProjectCreation{
		NovelName: "Fine Name",
		FileName:  "notes.pdf",
		Content:   strings.NewReader("x"),
	})
	if !errors.Is(err, ErrInvalidProjectUpload) {
		t.Errorf("invalid upload error = %v, want ErrInvalidProjectUpload", err)
	}
}

func TestGetProjectArtifacts(t *testing.T) {
	service, paths := newTestProjectService(t)

	createTestProject(t, service, "Artifact Rich", nil, "draft.txt", "body")

	workspace := filepath.Join(paths.Projects, "artifact-rich")
	if err := os.MkdirAll(filepath.Join(workspace, "artifacts", "notes"), 0o755); err != nil {
		t.Fatalf("creating artifacts dir: %v", err)
	}
	for path, content := range map[string]string{
		filepath.Join(workspace, "artifacts", "report.md"):           "report",
		filepath.Join(workspace, "artifacts", "notes", "outline.md"): "outline",
	} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing artifact: %v", err)
		}
	}
	// Files outside artifacts/ must not be listed.
	if err := os.MkdirAll(filepath.Join(workspace, "splits"), 0o755); err != nil {
		t.Fatalf("creating splits dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, "splits", "1.txt"), []byte("segment"), 0o644); err != nil {
		t.Fatalf("writing segment: %v", err)
	}

	detail, err := service.GetProject("artifact-rich")
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}

	var relatives []string
	for _, artifact := range detail.Artifacts {
		relatives = append(relatives, artifact.RelativePath)
	}
	want := []string{"artifacts/notes/outline.md", "artifacts/report.md"}
	if len(relatives) != len(want) {
		t.Fatalf("artifacts = %v, want %v", relatives, want)
	}
	for i := range want {
		if relatives[i] != want[i] {
			t.Errorf("artifacts[%d] = %q, want %q", i, relatives[i], want[i])
		}
	}
}

func TestGetProjectUnknownIdentifier(t *testing.T) {
	service, _ := newTestProjectService(t)

	for _, id := range []string{"missing", "Not Valid!", "../escape"} {
		if _, err := service.GetProject(id); !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("GetProject(%q) error = %v, want ErrNotFound", id, err)
		}
	}
}

func TestUpdateProject(t *testing.T) {
	service, _ := newTestProjectService(t)

	if _, err := service.CreateProject(&ProjectCreation{
		NovelName:   "Changing",
		Description: "old",
		Tags:        []string{"draft"},
		FileName:    "draft.txt",
		ContentType: "text/plain",
		Content:     strings.NewReader("x"),
	}); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	name := "Changed Title"
	tags := []string{"Final", "fiction"}
	updated, err := service.UpdateProject("changing", &models.ProjectUpdate{
		Name: &name,
		Tags: &tags,
	})
	if err != nil {
		t.Fatalf("UpdateProject() error = %v", err)
	}

	if updated.ID != "changing" {
		t.Errorf("ID changed to %q on rename", updated.ID)
	}
	if updated.Name != "Changed Title" {
		t.Errorf("Name = %q", updated.Name)
	}
	if updated.Description != "old" {
		t.Errorf("Description = %q, want untouched", updated.Description)
	}
	if len(updated.Tags) != 2 || updated.Tags[0] != "fiction" || updated.Tags[1] != "final" {
		t.Errorf("Tags = %v, want [fiction final]", updated.Tags)
	}

	empty := "   "
	if _, err := service.UpdateProject("changing", &models.ProjectUpdate{Name: &empty}); !errors.Is(err, ErrInvalidProjectName) {
		t.Errorf("blank rename error = %v, want ErrInvalidProjectName", err)
	}
}

func TestDeleteProject(t *testing.T) {
	service, paths := newTestProjectService(t)

	createTestProject(t, service, "Doomed", nil, "draft.txt", "x")

	id, err := service.DeleteProject("doomed")
	if err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	if id != "doomed" {
		t.Errorf("DeleteProject() = %q, want doomed", id)
	}

	if _, err := os.Stat(filepath.Join(paths.Projects, "doomed")); !os.IsNotExist(err) {
		t.Errorf("workspace still present after delete, stat err = %v", err)
	}
	if _, err := service.GetProject("doomed"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetProject() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := service.DeleteProject("doomed"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("DeleteProject() repeat error = %v, want ErrNotFound", err)
	}
}

func TestListProjectsByTag(t *testing.T) {
	service, _ := newTestProjectService(t)

	createTestProject(t, service, "First", []string{"fiction"}, "a.txt", "x")
	createTestProject(t, service, "Second", []string{"essay"}, "b.txt", "y")

	all, err := service.ListProjects("")
	if err != nil {
		t.Fatalf("ListProjects() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListProjects() returned %d projects, want 2", len(all))
	}

	essays, err := service.ListProjects("Essay")
	if err != nil {
		t.Fatalf("ListProjects(tag) error = %v", err)
	}
	if len(essays) != 1 || essays[0].ID != "second" {
		t.Errorf("ListProjects(Essay) = %v, want only second", essays)
	}
}
