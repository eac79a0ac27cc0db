package cmd

import (
	"fmt"
	"sort"

	"github.com/nikogura/jobdocs/pkg/config"
	"github.com/nikogura/jobdocs/pkg/loader"
	"github.com/nikogura/jobdocs/pkg/placeholder"
	"github.com/nikogura/jobdocs/pkg/profile"
	"github.com/nikogura/jobdocs/pkg/session"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the configured pipeline and list its steps",
	Long: `Load the configured pipeline without calling the completion service and list its
steps in order, with the placeholders each template references and whether the step
returns structured output.

References that no input, profile field or earlier step provides are reported; they
fail at run time unless an earlier output happens to introduce them.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) (err error) {
	var cfg config.Config
	cfg, err = loadConfig()
	if err != nil {
		return err
	}

	var pipeline loader.Pipeline
	pipeline, err = cfg.PipelineSource().Load()
	if err != nil {
		return err
	}

	fmt.Printf("Pipeline %s: %d inputs, %d steps\n", cfg.Pipeline.Dir, len(pipeline.Inputs), pipeline.Len())

	for i, warning := range describePipeline(pipeline) {
		if i == 0 {
			fmt.Println()
		}
		fmt.Println(warning)
	}

	return err
}

// describePipeline prints the steps and returns warnings for references nothing provides.
func describePipeline(pipeline loader.Pipeline) (warnings []string) {
	known := map[string]bool{profile.FieldJobDescription: true}
	for _, field := range []string{
		profile.FieldExperience, profile.FieldEducation, profile.FieldHighlights,
		profile.FieldHobbies, profile.FieldLanguages, profile.FieldOther,
	} {
		known[field] = true
	}
	for name := range pipeline.Inputs {
		known[name] = true
	}

	for i, p := range pipeline.Prompts {
		kind := "text"
		if p.Structured() {
			kind = "structured"
		}
		fmt.Printf("%2d. %s (%s, %s)\n", i+1, session.StepTitle(p.Name), p.Name, kind)

		refs := references(p.Template)
		for _, ref := range refs {
			fmt.Printf("      <%s>\n", ref)
			root := rootName(ref)
			if !known[root] {
				warnings = append(warnings, fmt.Sprintf("warning: step %s references <%s>, which nothing before it provides", p.Name, ref))
			}
		}

		known[p.Name] = true
	}

	return warnings
}

func references(template string) (refs []string) {
	seen := map[string]bool{}
	for _, token := range placeholder.Tokens(template) {
		if !seen[token] {
			seen[token] = true
			refs = append(refs, token)
		}
	}
	sort.Strings(refs)
	return refs
}

func rootName(token string) (root string) {
	root = token
	for i, r := range token {
		if r == '.' {
			root = token[:i]
			break
		}
	}
	return root
}
