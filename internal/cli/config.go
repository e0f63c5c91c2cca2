package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yildizm/recsvd/internal/config"
	"github.com/yildizm/recsvd/internal/dataset"
	"github.com/yildizm/recsvd/internal/model"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage recsvd configuration",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigPathCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		outputPath string
		minimal    bool
		force      bool
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Example: `  recsvd config init
  recsvd config init --minimal --output ~/.config/recsvd/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && fileExists(outputPath) {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", outputPath)
			}
			if err := os.MkdirAll(filepath.Dir(outputPath), 0o750); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", outputPath, err)
			}

			content := config.SampleConfig()
			if minimal {
				content = config.MinimalSampleConfig()
			}
			if err := os.WriteFile(outputPath, []byte(content), 0o600); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), statusLine("success", "Configuration file created at: "+outputPath))
			return nil
		},
	}

	initCmd.Flags().StringVarP(&outputPath, "output", "o", ".recsvd.yaml", "output path for config file")
	initCmd.Flags().BoolVarP(&minimal, "minimal", "m", false, "write only the essential settings")
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing config file")

	return initCmd
}

// shownConfig is the effective configuration plus the header of the trained
// model it points at, when that model can be read.
type shownConfig struct {
	config.Config `yaml:",inline"`
	TrainedModel  *model.Metadata `yaml:"trained_model,omitempty" json:"trained_model,omitempty"`
}

func newConfigShowCommand() *cobra.Command {
	var format string

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration and the trained model header",
		Example: `  recsvd config show
  recsvd config show --format json --config /path/to/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewLoader().LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			shown := shownConfig{Config: *cfg}
			if _, meta, err := model.NewStore(cfg.Model.Path).Load(cmd.Context()); err == nil {
				shown.TrainedModel = meta
			}

			var data []byte
			switch format {
			case "json":
				data, err = json.MarshalIndent(shown, "", "  ")
				data = append(data, '\n')
			case "yaml":
				data, err = yaml.Marshal(shown)
			default:
				return fmt.Errorf("unsupported format: %s (use json or yaml)", format)
			}
			if err != nil {
				return fmt.Errorf("failed to marshal config to %s: %w", format, err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	showCmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, json)")

	return showCmd
}

// fileCheck is the outcome of inspecting one configured input
type fileCheck struct {
	Label  string
	Path   string
	Detail string
	Err    error
}

// configChecks inspects the interaction matrix, the catalog and the model
// the configuration points at. A model whose feature count differs from the
// matrix width is reported as a failed check.
func configChecks(ctx context.Context, cfg *config.Config) []fileCheck {
	checks := make([]fileCheck, 0, 4)

	matrix, err := dataset.ReadInteractions(cfg.Data.InteractionsPath)
	interactions := fileCheck{Label: "Interactions", Path: cfg.Data.InteractionsPath, Err: err}
	if err == nil {
		interactions.Detail = fmt.Sprintf("%d users x %d items", len(matrix.Users), len(matrix.Items))
	}
	checks = append(checks, interactions)

	catalog, err := dataset.LoadCatalog(cfg.Data.Products)
	products := fileCheck{Label: "Products", Path: cfg.Data.Products, Err: err}
	if err == nil {
		products.Detail = fmt.Sprintf("%d products", len(catalog))
	}
	checks = append(checks, products)

	_, meta, err := model.NewStore(cfg.Model.Path).Load(ctx)
	trained := fileCheck{Label: "Model", Path: cfg.Model.Path, Err: err}
	if err == nil {
		trained.Detail = fmt.Sprintf("rank %d, %d features, %s", meta.Rank, meta.Features, meta.Algorithm)
	}
	checks = append(checks, trained)

	if matrix != nil && meta != nil {
		width := fileCheck{Label: "Model width", Path: cfg.Model.Path, Detail: fmt.Sprintf("%d features", meta.Features)}
		if len(matrix.Items) != meta.Features {
			width.Err = fmt.Errorf("interactions have %d items but the model expects %d features", len(matrix.Items), meta.Features)
		}
		checks = append(checks, width)
	}

	return checks
}

func writeChecks(w io.Writer, checks []fileCheck) (failed int) {
	for _, c := range checks {
		if c.Err != nil {
			failed++
			fmt.Fprintln(w, statusLine("warning", fmt.Sprintf("%s: %s", c.Label, c.Path)))
			fmt.Fprintf(w, "   %v\n", c.Err)
			continue
		}
		fmt.Fprintln(w, statusLine("success", fmt.Sprintf("%s: %s (%s)", c.Label, c.Path, c.Detail)))
	}
	return failed
}

func newConfigValidateCommand() *cobra.Command {
	var strict bool

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and the files it points at",
		Long: `Validate a recsvd configuration file and inspect the files it references.

Missing or unreadable inputs and a model trained on a different number of
items are reported as warnings. Use --strict to fail on them.`,
		Example: `  recsvd config validate
  recsvd config validate --strict --config /path/to/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := config.NewLoader().LoadConfig(cfgFile)
			if err != nil {
				fmt.Fprintln(out, statusLine("error", "Configuration validation failed:"))
				fmt.Fprintf(out, "   %v\n", err)
				return err
			}
			fmt.Fprintln(out, statusLine("success", "Configuration is valid"))

			failed := writeChecks(out, configChecks(cmd.Context(), cfg))
			if failed > 0 && strict {
				return fmt.Errorf("%d configured file check(s) failed", failed)
			}
			return nil
		},
	}

	validateCmd.Flags().BoolVar(&strict, "strict", false, "fail when a configured file is missing or inconsistent")

	return validateCmd
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file search paths",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for i, path := range config.GetConfigPaths() {
				state := "(not found)"
				if fileExists(path) {
					state = "(exists)"
				}
				fmt.Fprintf(out, "  %d. %s %s\n", i+1, path, state)
			}
			if current, found := config.FindConfigFile(); found {
				fmt.Fprintln(out, statusLine("target", "Current config file: "+current))
			} else {
				fmt.Fprintln(out, statusLine("info", "No config file found, using defaults"))
			}
		},
	}
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
