package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nikogura/jobdocs/pkg/config"
	"github.com/nikogura/jobdocs/pkg/renderer"
	"github.com/nikogura/jobdocs/pkg/repository"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var lettersUser string

//nolint:gochecknoglobals // Cobra boilerplate
var lettersAll bool

//nolint:gochecknoglobals // Cobra boilerplate
var lettersCmd = &cobra.Command{
	Use:   "letters [letter-id...]",
	Short: "List or export cover letters saved through the web application",
	Long: `Lists the cover letters a web user has saved, newest first. With letter ids, or
with --all, exports those letters as .docx documents into output.dir/<username>/.

Examples:
  # List a user's letters
  jobdocs letters --user ada

  # Export two letters
  jobdocs letters --user ada 3 7

  # Export every letter
  jobdocs letters --user ada --all`,
	RunE: runLetters,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(lettersCmd)
	lettersCmd.Flags().StringVar(&lettersUser, "user", "", "Web username (required)")
	lettersCmd.Flags().BoolVar(&lettersAll, "all", false, "Export every letter of the user")
	_ = lettersCmd.MarkFlagRequired("user")
}

func runLetters(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	var cfg config.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	var repo *repository.Repository
	repo, err = repository.Open(ctx, cfg.Server.DatabasePath)
	if err != nil {
		return err
	}
	defer repo.Close()

	var user repository.User
	user, err = repo.FindUser(ctx, lettersUser)
	if err != nil {
		err = errors.Wrapf(err, "user %q", lettersUser)
		return err
	}

	var letters []repository.CoverLetter
	if lettersAll || len(args) == 0 {
		letters, err = repo.ListCoverLetters(ctx, user.ID)
		if err != nil {
			return err
		}
	} else {
		letters, err = selectLetters(ctx, repo, user.ID, args)
		if err != nil {
			return err
		}
	}

	if !lettersAll && len(args) == 0 {
		printLetters(letters)
		return err
	}

	outDir := filepath.Join(cfg.Output.Dir, sanitizeFilename(user.Username))
	opts := renderer.ExportOptions{
		ReferenceDoc: cfg.Output.ReferenceDoc,
		KeepMarkdown: cfg.Output.KeepMarkdown,
	}

	successCount := 0
	for _, letter := range letters {
		path := filepath.Join(outDir, letterFilename(letter))
		exportErr := renderer.Export(ctx, letter.Content, path, opts)
		if exportErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to export letter %d: %v\n", letter.ID, exportErr)
			continue
		}
		successCount++
		if getVerbose() {
			fmt.Printf("  %s\n", path)
		}
	}

	fmt.Printf("Exported %d/%d letters to %s\n", successCount, len(letters), outDir)
	return err
}

func selectLetters(ctx context.Context, repo *repository.Repository, userID string, args []string) (letters []repository.CoverLetter, err error) {
	for _, arg := range args {
		var id int64
		id, err = strconv.ParseInt(arg, 10, 64)
		if err != nil {
			err = errors.Errorf("invalid letter id %q", arg)
			return letters, err
		}

		var letter repository.CoverLetter
		letter, err = repo.GetCoverLetter(ctx, userID, id)
		if err != nil {
			err = errors.Wrapf(err, "letter %d", id)
			return letters, err
		}
		letters = append(letters, letter)
	}
	return letters, err
}

func printLetters(letters []repository.CoverLetter) {
	if len(letters) == 0 {
		fmt.Println("No saved cover letters")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED\tWORDS")
	for _, letter := range letters {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", letter.ID, letter.Title, letter.UpdatedAt.Local().Format("2006-01-02 15:04"), wordCount(letter.Content))
	}
	_ = w.Flush()
}

func letterFilename(letter repository.CoverLetter) (name string) {
	base := sanitizeFilename(letter.Title)
	if base == "" {
		base = "cover-letter"
	}
	name = fmt.Sprintf("%d-%s.docx", letter.ID, base)
	return name
}

func wordCount(text string) (n int) {
	n = len(strings.Fields(text))
	return n
}
