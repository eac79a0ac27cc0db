package renderer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ExportOptions selects how a final document is produced.
type ExportOptions struct {
	// ReferenceDoc, when set, styles the document through pandoc instead of the built-in writer.
	ReferenceDoc string
	// KeepMarkdown leaves a .md copy of the text beside the document.
	KeepMarkdown bool
}

// Export writes text to outputPath as .docx.
func Export(ctx context.Context, text, outputPath string, opts ExportOptions) (err error) {
	if opts.ReferenceDoc == "" {
		err = WriteDocx(text, outputPath)
		if err != nil {
			return err
		}
		if opts.KeepMarkdown {
			err = WriteMarkdown(text, markdownPath(outputPath))
		}
		return err
	}

	mdPath := markdownPath(outputPath)
	err = WriteMarkdown(text, mdPath)
	if err != nil {
		return err
	}

	err = RenderDocx(ctx, mdPath, outputPath, opts.ReferenceDoc)
	if err != nil {
		return err
	}

	if !opts.KeepMarkdown {
		err = CleanupMarkdown(mdPath)
	}
	return err
}

func markdownPath(outputPath string) (path string) {
	path = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".md"
	return path
}

// RenderDocx converts markdown to docx using pandoc, styled by a reference document.
func RenderDocx(ctx context.Context, markdownPath, outputPath, referenceDoc string) (err error) {
	// Validate pandoc exists
	err = checkPandocExists(ctx)
	if err != nil {
		return err
	}

	// Validate input files exist
	err = validateFiles(markdownPath, referenceDoc)
	if err != nil {
		return err
	}

	// Ensure output directory exists
	outputDir := filepath.Dir(outputPath)
	err = os.MkdirAll(outputDir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", outputDir)
		return err
	}

	cmd := exec.CommandContext(ctx,
		"pandoc",
		"-f", "markdown",
		"-t", "docx",
		"-o", outputPath,
		"--reference-doc", referenceDoc,
		markdownPath,
	)

	var output []byte
	output, err = cmd.CombinedOutput()
	if err != nil {
		err = errors.Wrapf(err, "pandoc failed: %s", string(output))
		return err
	}

	return err
}

// checkPandocExists verifies pandoc is installed.
func checkPandocExists(ctx context.Context) (err error) {
	cmd := exec.CommandContext(ctx, "pandoc", "--version")
	err = cmd.Run()
	if err != nil {
		err = errors.New("pandoc not found in PATH (install pandoc or drop output.reference_doc)")
		return err
	}
	return err
}

// validateFiles checks that required files exist.
func validateFiles(paths ...string) (err error) {
	for _, path := range paths {
		_, err = os.Stat(path)
		if os.IsNotExist(err) {
			err = errors.Errorf("file not found: %s", path)
			return err
		}
	}
	return err
}

// WriteMarkdown writes markdown content to a file.
func WriteMarkdown(content, outputPath string) (err error) {
	// Ensure output directory exists
	outputDir := filepath.Dir(outputPath)
	err = os.MkdirAll(outputDir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", outputDir)
		return err
	}

	// Write file
	err = os.WriteFile(outputPath, []byte(content), 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write markdown file: %s", outputPath)
		return err
	}

	return err
}

// CleanupMarkdown removes intermediate markdown files.
func CleanupMarkdown(paths ...string) (err error) {
	for _, path := range paths {
		err = os.Remove(path)
		if err != nil {
			err = errors.Wrapf(err, "failed to remove markdown file: %s", path)
			return err
		}
	}
	return err
}
