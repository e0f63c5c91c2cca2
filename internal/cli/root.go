package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/spf13/cobra"

	"github.com/yildizm/recsvd/internal/config"
	"github.com/yildizm/recsvd/internal/emoji"
	"github.com/yildizm/recsvd/internal/logger"
	"github.com/yildizm/recsvd/internal/ui"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	noEmoji   bool
	outputFmt string

	configOnce   sync.Once
	globalConfig *config.Config
	configErr    error
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	resetGlobalConfig()

	rootCmd := &cobra.Command{
		Use:   "recsvd",
		Short: "SVD batch recommender",
		Long: `recsvd recommends unseen catalog items to a user from a user x item
interaction matrix, using a truncated SVD factorization trained offline.

Train a model once with "recsvd train", then produce recommendations with
"recsvd recommend". Every run writes a timestamped JSON record.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				noEmoji = true
			}
			emoji.SetEmojiDisabled(noEmoji)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format (text, json, markdown, csv)")

	rootCmd.AddCommand(newRecommendCommand())
	rootCmd.AddCommand(newTrainCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "recsvd %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadGlobalConfig loads the configuration once per process, honoring --config
func loadGlobalConfig() (*config.Config, error) {
	configOnce.Do(func() {
		globalConfig, configErr = config.NewLoader().LoadConfig(cfgFile)
	})
	return globalConfig, configErr
}

func resetGlobalConfig() {
	configOnce = sync.Once{}
	globalConfig = nil
	configErr = nil
}

// newLogger builds a component logger from configuration
func newLogger(cfg *config.Config, component, file string, console io.Writer) (*logger.Logger, error) {
	level := cfg.Logging.Level
	if isVerbose() {
		level = "debug"
	}
	return logger.New(component, logger.Options{
		Level:   level,
		Format:  cfg.Logging.Format,
		File:    file,
		Console: console,
		NoColor: !colorEnabled(cfg),
	})
}

// newLoggers builds the main and predictor loggers, each with its own log file
func newLoggers(cfg *config.Config, console io.Writer) (mainLog, predictorLog *logger.Logger, err error) {
	mainLog, err = newLogger(cfg, "main", cfg.Logging.FileMain, console)
	if err != nil {
		return nil, nil, err
	}
	predictorLog, err = newLogger(cfg, "predictor", cfg.Logging.FilePredictor, console)
	if err != nil {
		_ = mainLog.Close()
		return nil, nil, err
	}
	return mainLog, predictorLog, nil
}

// logConsole is where log lines go besides the log files. The TUI owns the
// terminal while it runs, so logs only reach the files then.
func logConsole(tui bool) io.Writer {
	if tui {
		return io.Discard
	}
	return os.Stderr
}

// colorEnabled resolves --no-color, output.color_mode and NO_COLOR
func colorEnabled(cfg *config.Config) bool {
	if noColor {
		return false
	}
	switch cfg.Output.ColorMode {
	case "always":
		return true
	case "never":
		return false
	default:
		return !ui.IsColorDisabled()
	}
}

// resolveOutputFormat prefers an explicit --output over output.default_format
func resolveOutputFormat(cmd *cobra.Command, cfg *config.Config) string {
	if flag := cmd.Flag("output"); flag != nil && flag.Changed {
		return outputFmt
	}
	if cfg.Output.DefaultFormat != "" {
		return cfg.Output.DefaultFormat
	}
	return outputFmt
}

// Global helpers
func isVerbose() bool {
	return verbose
}
