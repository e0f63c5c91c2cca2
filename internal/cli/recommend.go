package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yildizm/recsvd/internal/config"
	"github.com/yildizm/recsvd/internal/formatter"
	"github.com/yildizm/recsvd/internal/pipeline"
	"github.com/yildizm/recsvd/internal/ui"
)

var (
	recommendRow        int
	recommendTop        int
	recommendTUI        bool
	recommendData       string
	recommendProducts   string
	recommendModel      string
	recommendOutputDir  string
	recommendStrict     bool
	recommendOutputFile string
)

func newRecommendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend [user-id]",
		Short: "Recommend unseen items for one user",
		Long: `Project one user's interaction vector onto the trained SVD model,
rank the items the user has not consumed yet and save the top N as a
timestamped JSON record.

Without a user id the user at --row in the interaction matrix is used.

Examples:
  recsvd recommend
  recsvd recommend 1042 --top 10
  recsvd recommend --row 3 -o json
  recsvd recommend 1042 --tui`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRecommend,
	}

	cmd.Flags().IntVar(&recommendRow, "row", 1, "row of the interaction matrix to use when no user id is given")
	cmd.Flags().IntVarP(&recommendTop, "top", "n", 0, "number of recommendations (default from config)")
	cmd.Flags().BoolVar(&recommendTUI, "tui", false, "show results in the interactive viewer")
	cmd.Flags().StringVar(&recommendData, "data", "", "interaction matrix CSV (default from config)")
	cmd.Flags().StringVar(&recommendProducts, "products", "", "product catalog JSON (default from config)")
	cmd.Flags().StringVar(&recommendModel, "model", "", "model file (default from config)")
	cmd.Flags().StringVar(&recommendOutputDir, "output-dir", "", "directory for recommendation records (default from config)")
	cmd.Flags().BoolVar(&recommendStrict, "strict", false, "reject interaction vectors that are not binary")
	cmd.Flags().StringVar(&recommendOutputFile, "output-file", "", "save formatted output to file instead of stdout")

	return cmd
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg, err := loadGlobalConfig()
	if err != nil {
		return err
	}
	applyRecommendFlags(cmd, cfg)

	sel := userSelector{Row: recommendRow}
	if len(args) == 1 {
		sel.UserID = args[0]
	}

	s, err := newSession(cfg, logConsole(recommendTUI))
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := func(ctx context.Context) (*pipeline.Outcome, error) {
		return s.run(ctx, sel, cfg.Recommender.TopN)
	}

	if recommendTUI {
		return ui.Run(ctx, run)
	}

	outcome, err := run(ctx)
	if err != nil {
		return err
	}
	return writeOutcome(cmd, cfg, outcome)
}

// applyRecommendFlags lets explicit flags override configuration
func applyRecommendFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flag("top").Changed {
		cfg.Recommender.TopN = recommendTop
	}
	if cmd.Flag("strict").Changed {
		cfg.Recommender.StrictInput = recommendStrict
	}
	if recommendData != "" {
		cfg.Data.InteractionsPath = recommendData
	}
	if recommendProducts != "" {
		cfg.Data.Products = recommendProducts
	}
	if recommendModel != "" {
		cfg.Model.Path = recommendModel
	}
	if recommendOutputDir != "" {
		cfg.Output.Dir = recommendOutputDir
	}
}

// writeOutcome formats a run and writes it to stdout or --output-file
func writeOutcome(cmd *cobra.Command, cfg *config.Config, outcome *pipeline.Outcome) error {
	f, err := formatter.New(resolveOutputFormat(cmd, cfg), colorEnabled(cfg))
	if err != nil {
		return err
	}
	output, err := f.Format(outcome)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	if recommendOutputFile != "" {
		if err := os.WriteFile(recommendOutputFile, output, 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if isVerbose() {
			fmt.Fprintln(cmd.ErrOrStderr(), statusLine("save", "Output written to "+recommendOutputFile))
		}
		return nil
	}

	_, err = cmd.OutOrStdout().Write(output)
	return err
}
