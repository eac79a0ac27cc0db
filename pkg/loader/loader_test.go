package loader

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/nikogura/jobdocs/pkg/prompt"
	"github.com/pkg/errors"
)

const extractSchema = `{
  "type": "object",
  "properties": {"skills": {"type": "array", "items": {"type": "string"}}, "reason": {"type": "string"}},
  "required": ["skills", "reason"]
}`

func testFS() (fsys fstest.MapFS) {
	fsys = fstest.MapFS{
		"inputs/inputs.txt":                   {Data: []byte("experience\n# comment\n\njob_description\n")},
		"inputs/prompts.txt":                  {Data: []byte("extract_skills\nwrite_letter\n")},
		"inputs/experience.txt":               {Data: []byte("Ten years of Go.")},
		"inputs/job_description.txt":          {Data: []byte("We need a Go developer.")},
		"prompts/extract_skills/prompt.txt":   {Data: []byte("You extract skills.\n")},
		"prompts/extract_skills/input.txt":    {Data: []byte("Job: <job_description>")},
		"prompts/extract_skills/schema.json":  {Data: []byte(extractSchema)},
		"prompts/write_letter/input.txt":      {Data: []byte("Skills <extract_skills.skills.0>, experience <experience>")},
		"pipeline.yaml":                       {Data: []byte("inputs:\n  - experience\nprompts:\n  - write_letter\n")},
		"broken.yaml":                         {Data: []byte("inputs: [unclosed\n")},
		"prompts/bad_schema/input.txt":        {Data: []byte("x")},
		"prompts/bad_schema/schema.json":      {Data: []byte(`{"type": `)},
		"prompts/missing_template/prompt.txt": {Data: []byte("instruction only")},
	}
	return fsys
}

func TestLoad(t *testing.T) {
	fsys := testFS()

	manifest, err := ReadManifest(fsys, "", "")
	if err != nil {
		t.Fatalf("ReadManifest failed: %v", err)
	}

	if len(manifest.Inputs) != 2 {
		t.Fatalf("Expected 2 inputs (comments and blanks skipped), got %v", manifest.Inputs)
	}

	pipeline, err := Load(fsys, manifest)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if pipeline.Len() != 2 {
		t.Fatalf("Expected 2 prompts, got %d", pipeline.Len())
	}

	names := pipeline.Names()
	if names[0] != "extract_skills" || names[1] != "write_letter" {
		t.Errorf("Expected manifest order, got %v", names)
	}

	first := pipeline.Prompts[0]
	if first.Instruction != "You extract skills." {
		t.Errorf("Expected trimmed instruction, got %q", first.Instruction)
	}
	if !first.Structured() {
		t.Error("Expected first prompt to carry a schema")
	}

	second := pipeline.Prompts[1]
	if second.Instruction != "" {
		t.Errorf("Expected missing prompt.txt to mean no instruction, got %q", second.Instruction)
	}
	if second.Structured() {
		t.Error("Expected second prompt without schema")
	}

	exp, ok := pipeline.Inputs.Get("experience")
	if !ok || exp.String() != "Ten years of Go." {
		t.Errorf("Expected experience input, got %q (ok=%v)", exp.String(), ok)
	}
}

func TestLoadYAMLManifest(t *testing.T) {
	fsys := testFS()

	manifest, err := ReadYAMLManifest(fsys, "pipeline.yaml")
	if err != nil {
		t.Fatalf("ReadYAMLManifest failed: %v", err)
	}

	pipeline, err := Load(fsys, manifest)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if pipeline.Len() != 1 || pipeline.Prompts[0].Name != "write_letter" {
		t.Errorf("Expected single write_letter prompt, got %v", pipeline.Names())
	}

	_, err = ReadYAMLManifest(fsys, "broken.yaml")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Expected *ConfigurationError for broken YAML, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	fsys := testFS()

	tests := []struct {
		name     string
		manifest Manifest
		check    func(t *testing.T, err error)
	}{
		{
			name:     "missing input resource",
			manifest: Manifest{Inputs: []string{"hobbies"}},
			check: func(t *testing.T, err error) {
				var missing *MissingResourceError
				if !errors.As(err, &missing) {
					t.Fatalf("Expected *MissingResourceError, got %v", err)
				}
				if missing.Path != "inputs/hobbies.txt" {
					t.Errorf("Expected path inputs/hobbies.txt, got %s", missing.Path)
				}
			},
		},
		{
			name:     "missing template",
			manifest: Manifest{Prompts: []string{"missing_template"}},
			check: func(t *testing.T, err error) {
				var missing *MissingResourceError
				if !errors.As(err, &missing) {
					t.Fatalf("Expected *MissingResourceError, got %v", err)
				}
			},
		},
		{
			name:     "unknown prompt",
			manifest: Manifest{Prompts: []string{"nowhere"}},
			check: func(t *testing.T, err error) {
				var missing *MissingResourceError
				if !errors.As(err, &missing) {
					t.Fatalf("Expected *MissingResourceError, got %v", err)
				}
			},
		},
		{
			name:     "invalid schema",
			manifest: Manifest{Prompts: []string{"bad_schema"}},
			check: func(t *testing.T, err error) {
				var schemaErr *prompt.InvalidSchemaError
				if !errors.As(err, &schemaErr) {
					t.Fatalf("Expected *prompt.InvalidSchemaError, got %v", err)
				}
			},
		},
		{
			name:     "duplicate prompt",
			manifest: Manifest{Prompts: []string{"write_letter", "write_letter"}},
			check: func(t *testing.T, err error) {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("Expected *ConfigurationError, got %v", err)
				}
			},
		},
		{
			name:     "prompt shadows input",
			manifest: Manifest{Inputs: []string{"experience"}, Prompts: []string{"experience"}},
			check: func(t *testing.T, err error) {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("Expected *ConfigurationError, got %v", err)
				}
			},
		},
		{
			name:     "path traversal",
			manifest: Manifest{Inputs: []string{"../secret"}},
			check: func(t *testing.T, err error) {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("Expected *ConfigurationError, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(fsys, tt.manifest)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			tt.check(t, err)
		})
	}
}

func TestMissingManifest(t *testing.T) {
	_, err := ReadManifest(fstest.MapFS{}, "", "")

	var missing *MissingResourceError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected *MissingResourceError, got %v", err)
	}
}

func TestSourceLoad(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"inputs/inputs.txt":              "job_description\n",
		"inputs/prompts.txt":             "write_letter\n",
		"inputs/job_description.txt":     "A job.",
		"prompts/write_letter/input.txt": "Write about <job_description>",
	}
	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		err := os.MkdirAll(filepath.Dir(full), 0750)
		if err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		err = os.WriteFile(full, []byte(content), 0600)
		if err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	pipeline, err := Source{Dir: dir}.Load()
	if err != nil {
		t.Fatalf("Source.Load failed: %v", err)
	}

	if pipeline.Len() != 1 {
		t.Errorf("Expected 1 prompt, got %d", pipeline.Len())
	}

	_, err = Source{}.Load()
	if err == nil {
		t.Error("Expected error for empty source, got nil")
	}
}
