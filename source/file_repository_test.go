package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileRepository(t *testing.T) {
	repo := &FileRepository{Path: "testdata/site.yaml"}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if repo.GetName() != "file" {
		t.Errorf("expected default name file, got %q", repo.GetName())
	}
	color, ok := repo.GetData("primary_color")
	if !ok || color != "#0f172a" {
		t.Errorf("expected primary_color #0f172a, got %v (%t)", color, ok)
	}
	dark, ok := repo.GetData("enable_dark_mode")
	if !ok || dark != false {
		t.Errorf("expected enable_dark_mode false, got %v (%t)", dark, ok)
	}
	if _, ok := repo.GetData("missing"); ok {
		t.Error("expected missing key to be absent")
	}
	expected, err := os.ReadFile("testdata/site.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if string(repo.GetRawData()) != string(expected) {
		t.Error("raw data does not match file content")
	}
}

func TestFileRepositoryKeepsDataOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cta_text: Launch\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	repo := &FileRepository{Name: "local", Path: path}
	if err := repo.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	// broken YAML must not replace the previous document
	if err := os.WriteFile(path, []byte("cta_text: [unterminated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := repo.Refresh(context.Background()); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
	if v, _ := repo.GetData("cta_text"); v != "Launch" {
		t.Errorf("expected previous value Launch, got %v", v)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := repo.Refresh(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
	if v, _ := repo.GetData("cta_text"); v != "Launch" {
		t.Errorf("expected previous value Launch, got %v", v)
	}
}
