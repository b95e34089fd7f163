package feeders

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, pattern, content string) string {
	t.Helper()
	tempFile, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tempFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tempFile.Close()
	return tempFile.Name()
}

func TestYamlFeeder_Feed(t *testing.T) {
	path := writeTemp(t, "test-*.yaml", `
app:
  name: TestApp
  version: "1.0"
  debug: true
  ports:
    - 80
    - 443
`)

	tree, err := NewYamlFeeder(path).Feed()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	app, ok := tree["app"].(map[string]any)
	if !ok {
		t.Fatalf("Expected app to be a map, got %T", tree["app"])
	}
	if app["name"] != "TestApp" {
		t.Errorf("Expected name to be 'TestApp', got '%v'", app["name"])
	}
	if app["version"] != "1.0" {
		t.Errorf("Expected version to be '1.0', got '%v'", app["version"])
	}
	if app["debug"] != true {
		t.Errorf("Expected debug to be true, got %v", app["debug"])
	}
	ports, ok := app["ports"].([]any)
	if !ok || len(ports) != 2 || ports[1] != 443 {
		t.Errorf("Expected ports [80 443], got %v", app["ports"])
	}
}

func TestYamlFeeder_Errors(t *testing.T) {
	_, err := NewYamlFeeder(filepath.Join(t.TempDir(), "missing.yaml")).Feed()
	if !errors.Is(err, ErrFeederRead) {
		t.Errorf("Expected ErrFeederRead, got %v", err)
	}

	path := writeTemp(t, "bad-*.yaml", "app: [unclosed")
	_, err = NewYamlFeeder(path).Feed()
	if !errors.Is(err, ErrFeederParse) {
		t.Errorf("Expected ErrFeederParse, got %v", err)
	}
}
