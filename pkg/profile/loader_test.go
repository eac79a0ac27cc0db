package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	// Create a test profile file.
	tmpDir := t.TempDir()
	profilePath := filepath.Join(tmpDir, "profile.json")

	testData := Profile{
		Experience: "Five years building Go services at Test Corp.",
		Education:  "BSc Computer Science",
		Highlights: "Led the migration to Kubernetes",
		Hobbies:    "Climbing",
		Languages:  "English, German",
	}

	data, err := json.MarshalIndent(testData, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test data: %v", err)
	}

	err = os.WriteFile(profilePath, data, 0600)
	if err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	// Test loading.
	loaded, err := Load(profilePath)
	if err != nil {
		t.Fatalf("Failed to load profile: %v", err)
	}

	if loaded.Education != "BSc Computer Science" {
		t.Errorf("Expected education 'BSc Computer Science', got '%s'", loaded.Education)
	}

	if loaded.Other != "" {
		t.Errorf("Expected empty other, got '%s'", loaded.Other)
	}
}

func TestLoadNonexistent(t *testing.T) {
	_, err := Load("/nonexistent/profile.json")
	if err == nil {
		t.Error("Expected error loading nonexistent file, got nil")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	profilePath := filepath.Join(tmpDir, "invalid.json")

	err := os.WriteFile(profilePath, []byte("not valid json"), 0600)
	if err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err = Load(profilePath)
	if err == nil {
		t.Error("Expected error loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		data      Profile
		wantError bool
	}{
		{
			name:      "experience only",
			data:      Profile{Experience: "Go"},
			wantError: false,
		},
		{
			name:      "education only",
			data:      Profile{Education: "MSc"},
			wantError: false,
		},
		{
			name:      "empty profile",
			data:      Profile{},
			wantError: true,
		},
		{
			name:      "only hobbies",
			data:      Profile{Hobbies: "Chess", Experience: "   "},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if tt.wantError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	p := Profile{
		Experience: "  <script>alert(1)</script>Built R&D tools at <b>Acme</b>  ",
		Other:      "O'Brien & Sons",
	}

	clean := p.Sanitize()

	if clean.Experience != "Built R&D tools at Acme" {
		t.Errorf("Expected markup stripped, got %q", clean.Experience)
	}

	if clean.Other != "O'Brien & Sons" {
		t.Errorf("Expected plain text unchanged, got %q", clean.Other)
	}
}

func TestRunInputs(t *testing.T) {
	p := Profile{Experience: "Go", Languages: "English"}

	s := p.RunInputs("We need a gopher.")

	for _, field := range []string{FieldExperience, FieldEducation, FieldHighlights, FieldHobbies, FieldLanguages, FieldOther, FieldJobDescription} {
		if _, ok := s.Get(field); !ok {
			t.Errorf("Expected store entry %s", field)
		}
	}

	job, _ := s.Get(FieldJobDescription)
	if job.String() != "We need a gopher." {
		t.Errorf("Expected job description, got %q", job.String())
	}
}
