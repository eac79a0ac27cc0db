package cmd

import (
	"os"

	"github.com/nikogura/jobdocs/pkg/config"
	"github.com/nikogura/jobdocs/pkg/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var verbose bool

//nolint:gochecknoglobals // Cobra boilerplate
var configFile string

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "jobdocs",
	Short: "Generate job application documents with a prompt pipeline",
	Long: `jobdocs runs an ordered pipeline of prompts against a completion service to turn
your profile and a job description into application documents such as cover letters.

Each step's output is stored under the step's name and can be referenced by later
prompts as <step_name> or <step_name.field>. Run it in batch mode with 'jobdocs run'
or interactively through the web application with 'jobdocs serve'.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $HOME/.jobdocs/config.json)")
}

// getVerbose returns the verbose flag value.
func getVerbose() (result bool) {
	result = verbose
	return result
}

// getConfigFile returns the config file path.
func getConfigFile() (result string) {
	result = configFile
	return result
}

// loadConfig loads and validates the configuration named by --config.
func loadConfig() (cfg config.Config, err error) {
	cfg, err = config.Load(getConfigFile())
	if err != nil {
		err = errors.Wrap(err, "failed to load config")
		return cfg, err
	}
	return cfg, err
}

// newLogger returns the structured logger for cfg. Batch commands stay quiet unless --verbose.
func newLogger(cfg config.Config, always bool) (log *logger.Logger, err error) {
	if !always && !getVerbose() {
		log = logger.Nop()
		return log, err
	}

	log, err = logger.New(cfg.LogMode)
	return log, err
}
