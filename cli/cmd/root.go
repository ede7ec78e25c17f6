// Package cmd provides the Cobra commands for the libbuild CLI.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fluxbase-eu/libbuild/cli/output"
	"github.com/fluxbase-eu/libbuild/cli/util"
	"github.com/fluxbase-eu/libbuild/internal/config"
	"github.com/fluxbase-eu/libbuild/internal/logging"
	"github.com/fluxbase-eu/libbuild/internal/orchestrator"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile     string
	rootDir     string
	modeName    string
	outputFmt   string
	noHeaders   bool
	quiet       bool
	debug       bool
	metricsFile string
	logFile     string

	// Shared across commands
	formatter *output.Formatter
	runID     = uuid.NewString()
	logSink   *logging.Pipeline
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "libbuild",
	Short: "libbuild - Build JavaScript and TypeScript libraries",
	Long: `libbuild builds a JavaScript or TypeScript library in several module
formats from one entry point.

Dependencies declared in package.json stay external in the es and cjs
builds. Bundle formats (iife, umd) inline everything except peer
dependencies. Auxiliary entries such as web workers are built alongside,
and declaration files are generated when enabled.

Get started:
  libbuild inspect       Show what a build would produce
  libbuild build         Build the library
  libbuild --help        Show available commands`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silence errors only when --quiet is used
		cmd.SilenceErrors = quiet
		initLogging()

		format, err := output.ParseFormat(outputFmt)
		if err != nil {
			return err
		}
		formatter = output.NewFormatter(format, noHeaders, quiet)
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	defer closeLogging()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"build file (default is ./libbuild.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".",
		"project root containing package.json")
	rootCmd.PersistentFlags().StringVarP(&modeName, "mode", "m", orchestrator.ModeDefault,
		"build mode: default, bundle-all-in-one or a mode from the build file")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"write build metrics in Prometheus text format to this file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"also append the structured build log as JSON lines to this file")

	// Flags win over LIBBUILD_* environment variables
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	_ = viper.BindEnv("config")  // LIBBUILD_CONFIG
	_ = viper.BindEnv("mode")    // LIBBUILD_MODE
	_ = viper.BindEnv("command") // LIBBUILD_COMMAND
	_ = viper.BindEnv("debug")   // LIBBUILD_DEBUG

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
}

func initConfig() {
	viper.AutomaticEnv()
}

// initLogging points the global logger at stderr, tagged with the run ID,
// and at the --log-file pipeline when one is requested
func initLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    !util.IsTerminal(os.Stderr),
		TimeFormat: time.Kitchen,
	}

	var out io.Writer = console
	if logFile != "" {
		if logSink == nil {
			sink, err := logging.NewFilePipeline(console, logFile)
			if err != nil {
				log.Warn().Err(err).Str("file", logFile).Msg("Build log file disabled")
			} else {
				logSink = sink
			}
		}
		if logSink != nil {
			out = logSink
		}
	}
	log.Logger = log.Output(out).With().Str("run_id", runID).Logger()

	switch {
	case IsDebug():
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case quiet:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// closeLogging flushes the --log-file pipeline
func closeLogging() {
	if logSink == nil {
		return
	}
	if err := logSink.Close(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Warning: failed to write build log:", err)
	}
	logSink = nil
	log.Logger = log.Output(os.Stderr)
}

// GetFormatter returns the output formatter (for use by subcommands)
func GetFormatter() *output.Formatter {
	if formatter == nil {
		format, _ := output.ParseFormat(outputFmt)
		formatter = output.NewFormatter(format, noHeaders, quiet)
	}
	return formatter
}

// IsDebug returns true if debug mode is enabled
func IsDebug() bool {
	return debug || viper.GetBool("debug")
}
