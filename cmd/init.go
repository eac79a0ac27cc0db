package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nikogura/jobdocs/pkg/config"
	"github.com/nikogura/jobdocs/pkg/loader"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration and pipeline",
	Long: `Create a configuration file (default $HOME/.jobdocs/config.json) and a starter
pipeline beside it: three prompts that extract the job's requirements, match them
against your experience and write a cover letter.

Edit the API key, or export OPENAI_API_KEY / ANTHROPIC_API_KEY, before running.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) (err error) {
	var path string
	path, err = config.InitConfig(getConfigFile())
	if err != nil {
		return err
	}
	fmt.Printf("✓ Config written to %s\n", path)

	var data []byte
	data, err = os.ReadFile(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to read %s", path)
		return err
	}

	var cfg config.Config
	err = json.Unmarshal(data, &cfg)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse %s", path)
		return err
	}

	var written []string
	written, err = loader.WriteSample(cfg.Pipeline.Dir)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Starter pipeline in %s (%d files)\n", cfg.Pipeline.Dir, len(written))
	if getVerbose() {
		for _, f := range written {
			fmt.Printf("  %s\n", f)
		}
	}

	fmt.Println("\nNext: set provider.api_key, then run 'jobdocs validate'.")
	return err
}
