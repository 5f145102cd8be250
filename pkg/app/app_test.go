package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
)

// setBaseEnv points the application at a throwaway workspace and clears
// the optional overrides that could leak in from the outer environment.
func setBaseEnv(t *testing.T, base string) {
	t.Helper()
	t.Setenv("SCRIPTORIUM_BASE_DIR", base)
	t.Setenv("SCRIPTORIUM_ENVIRONMENT", "test")
	for _, key := range []string{
		"SCRIPTORIUM_DATA_DIR",
		"SCRIPTORIUM_CONFIG_DIR",
		"SCRIPTORIUM_STATIC_DIR",
		"SCRIPTORIUM_ALLOWED_ORIGINS",
		"SCRIPTORIUM_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		app.appService.Close()
	})
	return app
}

func TestNewFailsWithoutBaseDir(t *testing.T) {
	setBaseEnv(t, t.TempDir())
	t.Setenv("SCRIPTORIUM_BASE_DIR", "")

	if _, err := New(); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("New() error = %v, want ErrConfiguration", err)
	}
}

func TestNewFailsOnRelativeBaseDir(t *testing.T) {
	setBaseEnv(t, t.TempDir())
	t.Setenv("SCRIPTORIUM_BASE_DIR", "relative/workspace")

	if _, err := New(); !errors.Is(err, apperrors.ErrConfiguration) {
		t.Errorf("New() error = %v, want ErrConfiguration", err)
	}
}

func TestNewFailsWhenProvisioningBlocked(t *testing.T) {
	base := t.TempDir()
	setBaseEnv(t, base)

	blocker := filepath.Join(base, "occupied")
	if err := os.WriteFile(blocker, []byte("plain file"), 0o644); err != nil {
		t.Fatalf("writing blocker file: %v", err)
	}
	t.Setenv("SCRIPTORIUM_BASE_DIR", filepath.Join(blocker, "nested"))

	if _, err := New(); !errors.Is(err, apperrors.ErrStartup) {
		t.Errorf("New() error = %v, want ErrStartup", err)
	}
}

func TestProvisioningIsIdempotent(t *testing.T) {
	base := t.TempDir()
	setBaseEnv(t, base)

	first, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, dir := range []string{"data", "config", filepath.Join("data", "projects")} {
		if info, err := os.Stat(filepath.Join(base, dir)); err != nil || !info.IsDir() {
			t.Errorf("directory %s: %v", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(base, "config", "agents.md")); err != nil {
		t.Errorf("seeded agents manifest: %v", err)
	}
	if err := first.appService.Close(); err != nil {
		t.Fatalf("closing first instance: %v", err)
	}

	second, err := New()
	if err != nil {
		t.Fatalf("New over a provisioned tree: %v", err)
	}
	if err := second.appService.Close(); err != nil {
		t.Fatalf("closing second instance: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	setBaseEnv(t, t.TempDir())
	app := newTestApp(t)

	resp, err := app.server.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if got := strings.TrimSpace(string(raw)); got != `{"status":"ok"}` {
		t.Errorf("health body = %q, want %q", got, `{"status":"ok"}`)
	}
}

func TestIdentityEndpoint(t *testing.T) {
	setBaseEnv(t, t.TempDir())
	app := newTestApp(t)

	resp, err := app.server.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("identity request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var identity map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		t.Fatalf("decoding identity: %v", err)
	}
	for _, key := range []string{"name", "version", "environment"} {
		if identity[key] == "" {
			t.Errorf("identity field %s must not be empty", key)
		}
	}
}

func TestStaticMountDisabledWithoutDirectory(t *testing.T) {
	setBaseEnv(t, t.TempDir())
	app := newTestApp(t)

	resp, err := app.server.Test(httptest.NewRequest(http.MethodGet, "/static/missing.css", nil))
	if err != nil {
		t.Fatalf("static request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestStaticMountServesAssets(t *testing.T) {
	base := t.TempDir()
	setBaseEnv(t, base)

	static := filepath.Join(base, "static")
	if err := os.MkdirAll(static, 0o755); err != nil {
		t.Fatalf("creating static dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(static, "hello.txt"), []byte("hello assets"), 0o644); err != nil {
		t.Fatalf("writing asset: %v", err)
	}

	app := newTestApp(t)

	resp, err := app.server.Test(httptest.NewRequest(http.MethodGet, "/static/hello.txt", nil))
	if err != nil {
		t.Fatalf("static request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading asset body: %v", err)
	}
	if string(raw) != "hello assets" {
		t.Errorf("asset body = %q", raw)
	}

	// a missing asset falls through to the JSON 404
	resp, err = app.server.Test(httptest.NewRequest(http.MethodGet, "/static/other.txt", nil))
	if err != nil {
		t.Fatalf("missing asset request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing asset status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
