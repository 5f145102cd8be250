package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scriptorium/scriptorium/pkg/models"
)

func newTestManifest(t *testing.T, content string) *ManifestService {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.md")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing manifest: %v", err)
		}
	}
	return NewManifestService(path, "0.9.0")
}

func TestManifestEnsureCreatesDefault(t *testing.T) {
	service := newTestManifest(t, "")

	if err := service.Ensure(); err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	content, err := service.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if !strings.Contains(content, "# Agents Manifest") {
		t.Errorf("default manifest missing title: %q", content)
	}
	if !strings.Contains(content, "Version: 0.9.0") {
		t.Errorf("default manifest missing version: %q", content)
	}

	// Ensure is idempotent and never rewrites an existing manifest.
	if err := os.WriteFile(service.path, []byte("customized"), 0o644); err != nil {
		t.Fatalf("customizing manifest: %v", err)
	}
	if err := service.Ensure(); err != nil {
		t.Fatalf("second Ensure() error = %v", err)
	}
	raw, err := os.ReadFile(service.path)
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	if string(raw) != "customized" {
		t.Errorf("Ensure() overwrote an existing manifest")
	}
}

func TestManifestContentMemoization(t *testing.T) {
	service := newTestManifest(t, "version one")

	content, err := service.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if content != "version one" {
		t.Fatalf("Content() = %q", content)
	}

	info, err := os.Stat(service.path)
	if err != nil {
		t.Fatalf("stat manifest: %v", err)
	}

	// Rewrite the file but pin the old modification time: the cache must
	// keep serving the previous content.
	if err := os.WriteFile(service.path, []byte("version two"), 0o644); err != nil {
		t.Fatalf("rewriting manifest: %v", err)
	}
	if err := os.Chtimes(service.path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatalf("restoring mtime: %v", err)
	}
	content, err = service.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if content != "version one" {
		t.Errorf("Content() = %q, want cached version one", content)
	}

	// Refresh bypasses the cache.
	content, err = service.Refresh()
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if content != "version two" {
		t.Errorf("Refresh() = %q, want version two", content)
	}

	// A touched mtime invalidates the cache on the next read.
	if err := os.WriteFile(service.path, []byte("version three"), 0o644); err != nil {
		t.Fatalf("rewriting manifest: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(service.path, future, future); err != nil {
		t.Fatalf("advancing mtime: %v", err)
	}
	content, err = service.Content()
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if content != "version three" {
		t.Errorf("Content() = %q, want version three", content)
	}
}

func TestManifestMetadata(t *testing.T) {
	service := newTestManifest(t, "# Agents Manifest\n\nVersion: 2.1.0\nGenerated: 2025-03-01T10:00:00Z\n")

	info, err := service.Metadata()
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}

	if info.Version != "2.1.0" {
		t.Errorf("Version = %q, want 2.1.0", info.Version)
	}
	if info.GeneratedAt == nil {
		t.Fatal("GeneratedAt is nil")
	}
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if !info.GeneratedAt.Equal(want) {
		t.Errorf("GeneratedAt = %v, want %v", info.GeneratedAt, want)
	}
	if info.CachedAt.IsZero() {
		t.Error("CachedAt is zero")
	}
}

func TestManifestMetadataFallbacks(t *testing.T) {
	service := newTestManifest(t, "# Agents Manifest\n\nGenerated: not a timestamp\n")

	info, err := service.Metadata()
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if info.Version != "0.9.0" {
		t.Errorf("Version = %q, want the application version fallback", info.Version)
	}
	if info.GeneratedAt != nil {
		t.Errorf("GeneratedAt = %v, want nil for unparseable timestamps", info.GeneratedAt)
	}
}

func TestManifestStageDirective(t *testing.T) {
	manifest := strings.Join([]string{
		"# Agents Manifest",
		"",
		"## Analysis Stage",
		"Focus on themes.",
		"And style.",
		"",
		"### Notes",
		"Nested sections stay in.",
		"",
		"## Integration",
		"Merge pairs carefully.",
		"",
		"## Finalization:",
		"Polish the report.",
	}, "\n")
	service := newTestManifest(t, manifest)

	tests := []struct {
		name  string
		stage models.Stage
		want  string
	}{
		{
			name:  "heading with stage word",
			stage: models.StageAnalysis,
			want:  "Focus on themes.\nAnd style.\n\n### Notes\nNested sections stay in.",
		},
		{
			name:  "plain heading",
			stage: models.StageIntegration,
			want:  "Merge pairs carefully.",
		},
		{
			name:  "heading with colon",
			stage: models.StageFinalization,
			want:  "Polish the report.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.StageDirective(tt.stage)
			if err != nil {
				t.Fatalf("StageDirective() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("StageDirective(%s) = %q, want %q", tt.stage, got, tt.want)
			}
		})
	}
}

func TestManifestStageDirectiveFallback(t *testing.T) {
	service := newTestManifest(t, "No headings at all, just prose.\n")

	got, err := service.StageDirective(models.StageAnalysis)
	if err != nil {
		t.Fatalf("StageDirective() error = %v", err)
	}
	if got != "No headings at all, just prose." {
		t.Errorf("StageDirective() = %q, want the whole manifest", got)
	}
}
