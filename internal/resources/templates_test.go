package resources_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/authform/internal/resources"
)

func TestLoadTemplates_BuiltIn(t *testing.T) {
	t.Parallel()

	tmpl, err := resources.LoadTemplates("")
	if err != nil {
		t.Fatalf("LoadTemplates failed: %v", err)
	}

	// built-in templates render the shared flash partial
	out, err := tmpl.Render("home.html", map[string]any{
		"Brand": "PrepWise",
		"Name":  "Alice",
		"Email": "alice@example.com",
		"Flash": map[string]string{"Kind": "success", "Message": "Signed in successfully."},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(string(out), "Signed in successfully.") {
		t.Errorf("flash missing from output:\n%s", out)
	}
}

func TestLoadTemplates_MissingDir(t *testing.T) {
	t.Parallel()

	// a directory without templates fails to load
	_, err := resources.LoadTemplates(t.TempDir())
	if err == nil {
		t.Fatal("expected error for empty template directory")
	}
}

func TestTemplates_WatchReloads(t *testing.T) {
	t.Parallel()

	// setup a directory with one template
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte("version one"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	tmpl, err := resources.LoadTemplates(dir)
	if err != nil {
		t.Fatalf("LoadTemplates failed: %v", err)
	}
	if err := tmpl.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	t.Cleanup(func() { _ = tmpl.Close() })

	// editing the file is picked up after the reload delay
	if err := os.WriteFile(path, []byte("version two"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		out, err := tmpl.Render("page.html", nil)
		if err == nil && string(out) == "version two" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Error("template was not reloaded")
}

func TestTemplates_BadReloadKeepsLastGood(t *testing.T) {
	t.Parallel()

	// setup
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	if err := os.WriteFile(path, []byte("good"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	tmpl, err := resources.LoadTemplates(dir)
	if err != nil {
		t.Fatalf("LoadTemplates failed: %v", err)
	}
	if err := tmpl.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	t.Cleanup(func() { _ = tmpl.Close() })

	// a template with a parse error is ignored
	if err := os.WriteFile(path, []byte("{{ broken"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	time.Sleep(1 * time.Second)

	out, err := tmpl.Render("page.html", nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(out) != "good" {
		t.Errorf("Render = %q, want last good template", out)
	}
}
