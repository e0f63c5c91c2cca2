package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yildizm/recsvd/internal/config"
	"github.com/yildizm/recsvd/internal/dataset"
	"github.com/yildizm/recsvd/internal/logger"
	"github.com/yildizm/recsvd/internal/metrics"
	"github.com/yildizm/recsvd/internal/model"
	"github.com/yildizm/recsvd/internal/preprocess"
)

var (
	trainData        string
	trainModel       string
	trainAlgorithm   string
	trainComponents  int
	trainIterations  int
	trainOversamples int
	trainSeed        int64
)

func newTrainCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the truncated SVD model",
		Long: `Fit a truncated SVD on the interaction matrix and save it as the model
artifact used by "recsvd recommend". Users without any interaction are
dropped before fitting.

Examples:
  recsvd train
  recsvd train --components 100 --algorithm exact
  recsvd train --data interactions.csv --model models/svd.gob.gz`,
		Args: cobra.NoArgs,
		RunE: runTrain,
	}

	cmd.Flags().StringVar(&trainData, "data", "", "interaction matrix CSV (default from config)")
	cmd.Flags().StringVar(&trainModel, "model", "", "model output file (default from config)")
	cmd.Flags().StringVar(&trainAlgorithm, "algorithm", "", "randomized or exact (default from config)")
	cmd.Flags().IntVar(&trainComponents, "components", 0, "number of latent factors (default from config)")
	cmd.Flags().IntVar(&trainIterations, "iter", 0, "power iterations for the randomized solver (default from config)")
	cmd.Flags().IntVar(&trainOversamples, "oversamples", 0, "oversampling for the randomized solver (default from config)")
	cmd.Flags().Int64Var(&trainSeed, "random-state", 0, "random seed (default from config)")

	return cmd
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadGlobalConfig()
	if err != nil {
		return err
	}
	applyTrainFlags(cmd, cfg)

	log, err := newLogger(cfg, "train", cfg.Logging.FileMain, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = log.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	matrix, err := dataset.ReadInteractions(cfg.Data.InteractionsPath)
	if err != nil {
		return err
	}
	matrix, removed := preprocess.DropEmptyUsers(matrix)
	if removed > 0 {
		log.Info("Dropped %d users without interactions", removed)
	}

	params := fitParams(cfg)
	log.InfoWithFields("Fitting %s SVD", []logger.Field{
		logger.F("users", len(matrix.Users)),
		logger.F("items", len(matrix.Items)),
		logger.F("components", params.Components),
	}, params.Algorithm)

	started := time.Now()
	f, err := model.Fit(ctx, matrix.Dense(), params)
	if err != nil {
		log.ErrorWithFields("Training failed", []logger.Field{logger.Error(err)})
		return err
	}
	elapsed := time.Since(started)
	f.Items = matrix.Items

	store := model.NewStore(cfg.Model.Path)
	meta, err := store.Save(ctx, f, model.Metadata{
		Algorithm:          f.Params.Algorithm,
		TrainedAt:          started,
		Rank:               f.Rank,
		Features:           f.Features,
		UserCount:          len(matrix.Users),
		ExplainedVariance:  f.TotalExplainedVariance(),
		TrainingDurationMS: elapsed.Milliseconds(),
	})
	if err != nil {
		log.ErrorWithFields("Failed to save model", []logger.Field{logger.Error(err)})
		return err
	}

	m := metrics.New()
	m.TrainingFinished(elapsed, meta.ExplainedVariance, meta.Rank, meta.Features)
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		log.Warn("Failed to write metrics: %v", err)
	}

	log.InfoWithFields("Model saved to %s", []logger.Field{
		logger.Duration(elapsed),
		logger.F("checksum", meta.Checksum),
	}, store.Path())

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, statusLine("success", "Model saved to "+store.Path()))
	fmt.Fprintf(out, "   Rank: %d, Features: %d, Users: %d\n", meta.Rank, meta.Features, meta.UserCount)
	fmt.Fprintf(out, "   Explained variance: %.4f\n", meta.ExplainedVariance)
	fmt.Fprintf(out, "   Training time: %s\n", elapsed.Round(time.Millisecond))
	return nil
}

// applyTrainFlags lets explicit flags override configuration
func applyTrainFlags(cmd *cobra.Command, cfg *config.Config) {
	if trainData != "" {
		cfg.Data.InteractionsPath = trainData
	}
	if trainModel != "" {
		cfg.Model.Path = trainModel
	}
	if trainAlgorithm != "" {
		cfg.Model.Algorithm = trainAlgorithm
	}
	if cmd.Flag("components").Changed {
		cfg.Model.NComponents = trainComponents
	}
	if cmd.Flag("iter").Changed {
		cfg.Model.NIter = trainIterations
	}
	if cmd.Flag("oversamples").Changed {
		cfg.Model.NOversamples = trainOversamples
	}
	if cmd.Flag("random-state").Changed {
		cfg.Model.RandomState = trainSeed
	}
}

func fitParams(cfg *config.Config) model.FitParams {
	return model.FitParams{
		Algorithm:   cfg.Model.Algorithm,
		Components:  cfg.Model.NComponents,
		Iterations:  cfg.Model.NIter,
		Oversamples: cfg.Model.NOversamples,
		RandomState: cfg.Model.RandomState,
	}
}
