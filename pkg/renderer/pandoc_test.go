package renderer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteMarkdown(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "letter.md")
	testContent := "Dear hiring team,\n\nI am writing to apply."

	err := WriteMarkdown(testContent, testFile)
	if err != nil {
		t.Fatalf("Failed to write markdown: %v", err)
	}

	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}

	if string(data) != testContent {
		t.Errorf("Expected content '%s', got '%s'", testContent, string(data))
	}
}

func TestWriteMarkdownCreatesDir(t *testing.T) {
	tmpDir := t.TempDir()
	nestedPath := filepath.Join(tmpDir, "nested", "dir", "letter.md")

	err := WriteMarkdown("test", nestedPath)
	if err != nil {
		t.Fatalf("Failed to write markdown: %v", err)
	}

	_, err = os.Stat(nestedPath)
	if os.IsNotExist(err) {
		t.Error("Markdown file was not created in nested directory")
	}
}

func TestCleanupMarkdown(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "letter.md")

	err := os.WriteFile(testFile, []byte("test"), 0600)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	err = CleanupMarkdown(testFile)
	if err != nil {
		t.Fatalf("Failed to cleanup: %v", err)
	}

	_, err = os.Stat(testFile)
	if !os.IsNotExist(err) {
		t.Error("File was not deleted")
	}

	err = CleanupMarkdown("/nonexistent/file.md")
	if err == nil {
		t.Error("Expected error cleaning up nonexistent file, got nil")
	}
}

func TestValidateFiles(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "reference.docx")

	err := os.WriteFile(existingFile, []byte("test"), 0600)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	err = validateFiles(existingFile)
	if err != nil {
		t.Errorf("Expected no error for existing file, got %v", err)
	}

	err = validateFiles(existingFile, "/nonexistent/file.txt")
	if err == nil {
		t.Error("Expected error when one file doesn't exist, got nil")
	}
}

func TestExportBuiltIn(t *testing.T) {
	tmpDir := t.TempDir()
	outputPath := filepath.Join(tmpDir, "out", "letter.docx")

	err := Export(context.Background(), "First.\n\nSecond.", outputPath, ExportOptions{KeepMarkdown: true})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	_, err = os.Stat(outputPath)
	if err != nil {
		t.Errorf("Expected document at %s: %v", outputPath, err)
	}

	md, err := os.ReadFile(filepath.Join(tmpDir, "out", "letter.md"))
	if err != nil {
		t.Fatalf("Expected markdown copy: %v", err)
	}
	if string(md) != "First.\n\nSecond." {
		t.Errorf("Unexpected markdown copy: %q", string(md))
	}
}

func TestExportWithReferenceDoc(t *testing.T) {
	err := checkPandocExists(context.Background())
	if err != nil {
		t.Skip("Pandoc not installed, skipping test")
	}

	tmpDir := t.TempDir()
	reference := filepath.Join(tmpDir, "reference.docx")
	err = WriteDocx("reference", reference)
	if err != nil {
		t.Fatalf("Failed to write reference doc: %v", err)
	}

	outputPath := filepath.Join(tmpDir, "letter.docx")
	err = Export(context.Background(), "Hello.\n\nBye.", outputPath, ExportOptions{ReferenceDoc: reference})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	_, err = os.Stat(filepath.Join(tmpDir, "letter.md"))
	if !os.IsNotExist(err) {
		t.Error("Expected intermediate markdown removed")
	}
}

func TestRenderDocxMissingReference(t *testing.T) {
	err := checkPandocExists(context.Background())
	if err != nil {
		t.Skip("Pandoc not installed, skipping test")
	}

	tmpDir := t.TempDir()
	mdPath := filepath.Join(tmpDir, "letter.md")
	err = WriteMarkdown("Hello.", mdPath)
	if err != nil {
		t.Fatalf("Failed to write markdown: %v", err)
	}

	err = RenderDocx(context.Background(), mdPath, filepath.Join(tmpDir, "letter.docx"), filepath.Join(tmpDir, "missing.docx"))
	if err == nil {
		t.Error("Expected error for missing reference doc, got nil")
	}
}
