package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nikogura/jobdocs/pkg/config"
	"github.com/nikogura/jobdocs/pkg/executor"
	"github.com/nikogura/jobdocs/pkg/jd"
	"github.com/nikogura/jobdocs/pkg/llm"
	"github.com/nikogura/jobdocs/pkg/logger"
	"github.com/nikogura/jobdocs/pkg/profile"
	"github.com/nikogura/jobdocs/pkg/renderer"
	"github.com/nikogura/jobdocs/pkg/session"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runJob string

//nolint:gochecknoglobals // Cobra boilerplate
var runProfile string

//nolint:gochecknoglobals // Cobra boilerplate
var runOutput string

//nolint:gochecknoglobals // Cobra boilerplate
var runCompany string

//nolint:gochecknoglobals // Cobra boilerplate
var runJobID string

//nolint:gochecknoglobals // Cobra boilerplate
var runKeepMarkdown bool

//nolint:gochecknoglobals // Cobra boilerplate
var runInteractive bool

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline for one job and export the result",
	Long: `Run every step of the configured pipeline for one job description and write the
final step's output as a .docx document.

The job description can be provided as:
- A file path (e.g., jd.txt)
- A URL (e.g., https://example.com/jobs/123)

The profile is a JSON file with the fields experience, education, highlights, hobbies,
languages and other.

With --interactive you step through the pipeline yourself: retry a step to get another
alternative and browse between alternatives before moving on.

Example:
  jobdocs run --job jd.txt --profile me.json --company "Acme Corp"
  jobdocs run --job https://example.com/jobs/123 --profile me.json --interactive
  jobdocs run --job jd.txt --profile me.json --output letters/acme.docx`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runJob, "job", "", "Job description file or URL (required)")
	runCmd.Flags().StringVar(&runProfile, "profile", "", "Profile JSON file (required)")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Output .docx path (default <output.dir>/<company>-cover-letter.docx)")
	runCmd.Flags().StringVar(&runCompany, "company", "", "Company name used in the output file name")
	runCmd.Flags().StringVar(&runJobID, "job-id", "", "Optional job/req ID to differentiate multiple applications")
	runCmd.Flags().BoolVar(&runKeepMarkdown, "keep-markdown", false, "Keep a markdown copy beside the document")
	runCmd.Flags().BoolVarP(&runInteractive, "interactive", "i", false, "Step through the pipeline, retrying and browsing alternatives")
	_ = runCmd.MarkFlagRequired("job")
	_ = runCmd.MarkFlagRequired("profile")
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg config.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	var log *logger.Logger
	log, err = newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer log.Sync()

	con := newConsole()

	var p profile.Profile
	p, err = loadProfile(runProfile)
	if err != nil {
		return err
	}

	var jobDescription string
	jobDescription, err = fetchAndLogJD(ctx, con, runJob)
	if err != nil {
		return err
	}

	var controller *session.Controller
	controller, err = buildController(cfg, log,
		executor.WithContinue(con.askContinue),
		executor.WithObserver(con.echoStep),
	)
	if err != nil {
		return err
	}

	var st *session.State
	st, err = controller.Start(nil, p.RunInputs(jobDescription))
	if err != nil {
		return err
	}

	if runInteractive {
		err = navigate(ctx, con, controller, st)
	} else {
		err = advanceAll(ctx, con, controller, st)
	}
	if err != nil {
		return err
	}

	final, err := controller.Finish(st)
	if err != nil {
		return err
	}

	outPath := runOutput
	if outPath == "" {
		outPath = buildOutputPath(cfg.Output.Dir, runCompany, runJobID)
	}

	opts := renderer.ExportOptions{
		ReferenceDoc: cfg.Output.ReferenceDoc,
		KeepMarkdown: runKeepMarkdown || cfg.Output.KeepMarkdown,
	}

	done := con.busy("Rendering document...")
	err = renderer.Export(ctx, final.String(), outPath, opts)
	done()
	if err != nil {
		err = errors.Wrap(err, "failed to export document")
		return err
	}

	err = writeJobDescription(outPath, jobDescription)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Document written to %s\n", outPath)
	return err
}

// buildController loads the pipeline and wires the completion service behind an executor.
func buildController(cfg config.Config, log *logger.Logger, opts ...executor.Option) (controller *session.Controller, err error) {
	var completer llm.Completer
	completer, err = llm.New(cfg.LLMSettings())
	if err != nil {
		err = errors.Wrap(err, "failed to create completion client")
		return controller, err
	}

	controller, err = buildControllerWith(cfg, log, completer, opts...)
	return controller, err
}

func buildControllerWith(cfg config.Config, log *logger.Logger, completer llm.Completer, opts ...executor.Option) (controller *session.Controller, err error) {
	pipeline, err := cfg.PipelineSource().Load()
	if err != nil {
		return controller, err
	}

	execOpts := append([]executor.Option{
		executor.WithMaxIterations(cfg.Pipeline.MaxIterations),
		executor.WithLogger(log),
	}, opts...)

	controller = session.NewController(pipeline, executor.New(completer, execOpts...), session.WithFinalStep(cfg.Pipeline.FinalStep))
	return controller, err
}

func loadProfile(path string) (p profile.Profile, err error) {
	if getVerbose() {
		fmt.Printf("Loading profile from: %s\n", path)
	}

	p, err = profile.Load(path)
	if err != nil {
		err = errors.Wrap(err, "failed to load profile")
		return p, err
	}

	return p, err
}

// advanceAll runs every remaining step in order.
func advanceAll(ctx context.Context, con *console, controller *session.Controller, st *session.State) (err error) {
	total := controller.Pipeline().Len()
	for st.Status == session.StatusInProgress {
		name := controller.Pipeline().Prompts[st.CurrentStep].Name
		done := con.busy(fmt.Sprintf("[%d/%d] %s...", st.CurrentStep+1, total, session.StepTitle(name)))
		_, err = controller.Advance(ctx, st)
		done()
		if err != nil {
			err = errors.Wrapf(err, "step %d/%d failed", st.CurrentStep+1, total)
			return err
		}

		if !getVerbose() {
			fmt.Printf("✓ %s\n", session.StepTitle(name))
		}
	}
	return err
}

func fetchAndLogJD(ctx context.Context, con *console, jdInput string) (jobDescription string, err error) {
	if getVerbose() {
		fmt.Printf("Loading job description from: %s\n", jdInput)
	}

	jobDescription, err = jd.FetchWithContext(ctx, jdInput)
	if err == nil {
		if getVerbose() {
			fmt.Printf("Job description loaded (%d characters)\n", len(jobDescription))
		}
		return jobDescription, err
	}

	if !con.interactive {
		return jobDescription, err
	}

	// Offer manual input; JavaScript-rendered postings often come back empty.
	fmt.Printf("\nWarning: Failed to fetch job description: %v\n", err)
	fmt.Println("\nPlease paste the job description text below.")
	fmt.Println("When finished, press Ctrl+D (Unix/Mac) or Ctrl+Z then Enter (Windows):")
	fmt.Println()

	var data []byte
	data, err = readAll(con)
	if err != nil {
		err = errors.Wrap(err, "failed to read job description from stdin")
		return jobDescription, err
	}

	jobDescription = strings.TrimSpace(string(data))
	if jobDescription == "" {
		err = errors.New("no job description provided")
		return jobDescription, err
	}

	fmt.Printf("\nJob description received (%d characters)\n", len(jobDescription))
	return jobDescription, err
}

func readAll(con *console) (data []byte, err error) {
	var b strings.Builder
	for {
		var line string
		line, err = con.in.ReadString('\n')
		b.WriteString(line)
		if err != nil {
			break
		}
	}
	if errors.Is(err, io.EOF) {
		err = nil
	}
	data = []byte(b.String())
	return data, err
}

// buildOutputPath names the document after the company and optional job id.
func buildOutputPath(outDir, company, jobID string) (path string) {
	base := sanitizeFilename(company)
	if base == "" {
		base = "application"
	}
	if jobID != "" {
		base = base + "-" + sanitizeFilename(jobID)
	}
	path = filepath.Join(outDir, base+"-cover-letter.docx")
	return path
}

// writeJobDescription keeps the job description beside the document for later reference.
func writeJobDescription(docPath, jobDescription string) (err error) {
	jdPath := strings.TrimSuffix(docPath, filepath.Ext(docPath)) + "-jd.txt"
	err = os.WriteFile(jdPath, []byte(jobDescription), 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write job description: %s", jdPath)
		return err
	}
	return err
}

func sanitizeFilename(name string) (sanitized string) {
	// Remove common company suffixes
	suffixes := []string{
		", LLC", ", llc",
		", Inc.", ", inc.",
		", Inc", ", inc",
		" LLC", " llc",
		" Inc.", " inc.",
		" Inc", " inc",
		" Corporation", " corporation",
		" Corp.", " corp.",
		" Corp", " corp",
		" Ltd.", " ltd.",
		" Ltd", " ltd",
	}

	sanitized = strings.TrimSpace(name)
	for _, suffix := range suffixes {
		sanitized = strings.TrimSuffix(sanitized, suffix)
	}

	sanitized = strings.ToLower(sanitized)

	sanitized = strings.Map(func(r rune) (result rune) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			result = r
			return result
		}
		result = '-'
		return result
	}, sanitized)

	for strings.Contains(sanitized, "--") {
		sanitized = strings.ReplaceAll(sanitized, "--", "-")
	}

	sanitized = strings.Trim(sanitized, "-")
	return sanitized
}
