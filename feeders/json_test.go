package feeders

import (
	"errors"
	"testing"
)

func TestJSONFeeder_Feed(t *testing.T) {
	path := writeTemp(t, "test-*.json", `{"app": {"name": "TestApp", "workers": 4}}`)

	tree, err := NewJSONFeeder(path).Feed()
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
	if app["workers"] != float64(4) {
		t.Errorf("Expected workers 4, got %v", app["workers"])
	}
}

func TestJSONFeeder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"invalid document", `{"app": `, ErrFeederParse},
		{"array root", `[1, 2]`, ErrFeederNotATree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "bad-*.json", tt.content)
			_, err := NewJSONFeeder(path).Feed()
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
