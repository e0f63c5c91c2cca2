package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/yildizm/recsvd/internal/config"
	"github.com/yildizm/recsvd/internal/logger"
)

var (
	watchRow int
	watchTop int
)

// watchDebounce coalesces bursts of events from a single save
const watchDebounce = 250 * time.Millisecond

type watchTarget int

const (
	targetInteractions watchTarget = iota
	targetCatalog
	targetModel
)

func (t watchTarget) String() string {
	switch t {
	case targetInteractions:
		return "interactions"
	case targetCatalog:
		return "catalog"
	case targetModel:
		return "model"
	default:
		return "unknown"
	}
}

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [user-id]",
		Short: "Recompute recommendations when inputs change",
		Long: `Run a recommendation, then watch the interaction matrix, the product
catalog and the model file. A change to the data reruns the pipeline; a new
model is reloaded before the rerun. Press Ctrl+C to stop watching.

Examples:
  recsvd watch
  recsvd watch 1042 --top 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().IntVar(&watchRow, "row", 1, "row of the interaction matrix to use when no user id is given")
	cmd.Flags().IntVarP(&watchTop, "top", "n", 0, "number of recommendations (default from config)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadGlobalConfig()
	if err != nil {
		return err
	}
	if cmd.Flag("top").Changed {
		cfg.Recommender.TopN = watchTop
	}

	sel := userSelector{Row: watchRow}
	if len(args) == 1 {
		sel.UserID = args[0]
	}

	s, err := newSession(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// The first run happens before watching so a missing model fails fast
	outcome, err := s.run(ctx, sel, cfg.Recommender.TopN)
	if err != nil {
		return err
	}
	if err := writeOutcome(cmd, cfg, outcome); err != nil {
		return err
	}

	targets := watchTargets(cfg)
	watcher, err := createWatcher(targets)
	if err != nil {
		return err
	}
	defer cleanupWatcher(watcher)

	fmt.Fprintln(cmd.ErrOrStderr(), statusLine("watch", fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", sel)))
	return runWatchLoop(ctx, watcher, targets, watchRerun(cmd, s, sel))
}

// watchRerun returns the change handler for the watch loop. Failures are
// reported and swallowed so the loop keeps running; a failed reload keeps
// serving the previously loaded model.
func watchRerun(cmd *cobra.Command, s *session, sel userSelector) func(ctx context.Context, reloadModel bool) {
	return func(ctx context.Context, reloadModel bool) {
		if reloadModel {
			fmt.Fprintln(cmd.ErrOrStderr(), statusLine("reload", "Model changed, reloading"))
			if err := s.pipeline.Reload(ctx); err != nil {
				s.log.ErrorWithFields("Model reload failed", []logger.Field{logger.Error(err)})
				fmt.Fprintln(cmd.ErrOrStderr(), statusLine("error", "Model reload failed: "+err.Error()))
				return
			}
		}
		outcome, err := s.run(ctx, sel, s.cfg.Recommender.TopN)
		if err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), statusLine("error", err.Error()))
			return
		}
		if err := writeOutcome(cmd, s.cfg, outcome); err != nil {
			s.log.Warn("Failed to write output: %v", err)
		}
	}
}

// watchTargets maps each watched file to its role
func watchTargets(cfg *config.Config) map[string]watchTarget {
	return map[string]watchTarget{
		absPath(cfg.Data.InteractionsPath): targetInteractions,
		absPath(cfg.Data.Products):         targetCatalog,
		absPath(cfg.Model.Path):            targetModel,
	}
}

// watchDirs returns the parent directories of the targets. Directories are
// watched instead of files because the model is replaced by rename.
func watchDirs(targets map[string]watchTarget) []string {
	seen := make(map[string]bool)
	var dirs []string
	for path := range targets {
		dir := filepath.Dir(path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// classifyEvent reports which target an event touches, if any
func classifyEvent(event fsnotify.Event, targets map[string]watchTarget) (watchTarget, bool) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return 0, false
	}
	target, ok := targets[absPath(event.Name)]
	return target, ok
}

// cleanupWatcher safely closes watcher with error logging
func cleanupWatcher(watcher *fsnotify.Watcher) {
	if err := watcher.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
	}
}

// createWatcher creates a watcher on the parent directory of every target
func createWatcher(targets map[string]watchTarget) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, dir := range watchDirs(targets) {
		if err := validateWatchDir(dir); err != nil {
			cleanupWatcher(watcher)
			return nil, fmt.Errorf("invalid watch directory %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			cleanupWatcher(watcher)
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		if isVerbose() {
			fmt.Fprintf(os.Stderr, "Watching directory: %s\n", dir)
		}
	}

	return watcher, nil
}

// runWatchLoop runs the main watch loop with signal handling
func runWatchLoop(ctx context.Context, watcher *fsnotify.Watcher, targets map[string]watchTarget, onChange func(ctx context.Context, reloadModel bool)) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	var (
		timer       *time.Timer
		fire        <-chan time.Time
		reloadModel bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-signals:
			if isVerbose() {
				fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, stopping...\n")
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			target, relevant := classifyEvent(event, targets)
			if !relevant {
				continue
			}
			if isVerbose() {
				fmt.Fprintf(os.Stderr, "%s changed: %s\n", target, event.Name)
			}
			if target == targetModel {
				reloadModel = true
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange(ctx, reloadModel)
			reloadModel = false

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			if isVerbose() {
				fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
			}
		}
	}
}

// validateWatchDir validates that a directory is safe to watch
func validateWatchDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty path")
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}

	return nil
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}
