package loader

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSampleLoads(t *testing.T) {
	fsys := Sample()

	manifest, err := ReadManifest(fsys, "", "")
	if err != nil {
		t.Fatalf("Failed to read sample manifest: %v", err)
	}

	pipeline, err := Load(fsys, manifest)
	if err != nil {
		t.Fatalf("Failed to load sample pipeline: %v", err)
	}

	names := pipeline.Names()
	expected := []string{"extract_requirements", "match_experience", "write_cover_letter"}
	if len(names) != len(expected) {
		t.Fatalf("Expected %d prompts, got %v", len(expected), names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Expected prompt %d to be %s, got %s", i, expected[i], names[i])
		}
	}

	if !pipeline.Prompts[0].Structured() {
		t.Error("Expected extract_requirements to carry a schema")
	}

	if _, ok := pipeline.Inputs.Get("tone"); !ok {
		t.Error("Expected tone input")
	}

	yamlManifest, err := ReadYAMLManifest(fsys, "pipeline.yaml")
	if err != nil {
		t.Fatalf("Failed to read sample YAML manifest: %v", err)
	}
	if len(yamlManifest.Prompts) != len(manifest.Prompts) || len(yamlManifest.Inputs) != len(manifest.Inputs) {
		t.Errorf("Expected YAML manifest %+v to match line manifests %+v", yamlManifest, manifest)
	}
}

func TestWriteSample(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pipeline")

	written, err := WriteSample(dir)
	if err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if len(written) == 0 {
		t.Fatal("Expected files to be written")
	}

	pipeline, err := Source{Dir: dir}.Load()
	if err != nil {
		t.Fatalf("Failed to load written sample: %v", err)
	}
	if pipeline.Len() != 3 {
		t.Errorf("Expected 3 steps, got %d", pipeline.Len())
	}

	tone := filepath.Join(dir, "inputs", "tone.txt")
	err = os.WriteFile(tone, []byte("formal"), 0600)
	if err != nil {
		t.Fatalf("Failed to edit tone: %v", err)
	}

	written, err = WriteSample(dir)
	if err != nil {
		t.Fatalf("Second WriteSample failed: %v", err)
	}
	if len(written) != 0 {
		t.Errorf("Expected no files rewritten, got %v", written)
	}

	data, err := os.ReadFile(tone)
	if err != nil {
		t.Fatalf("Failed to read tone: %v", err)
	}
	if string(data) != "formal" {
		t.Errorf("Expected edited tone kept, got %q", string(data))
	}
}
