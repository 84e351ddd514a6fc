package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/railops/induction/core/tasks"
	"github.com/railops/induction/infra/logger"
	"github.com/railops/induction/infra/ml"
	"github.com/railops/induction/infra/store"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Failure model administration",
}

var modelTrainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the failure model on historical outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModelTask(cmd, func(ctx context.Context, t *ml.Trainer, taskID string) {
			t.Train(ctx, taskID)
		})
	},
}

var modelEvaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Train with a held-out split and report evaluation metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModelTask(cmd, func(ctx context.Context, t *ml.Trainer, taskID string) {
			t.TrainAndEvaluate(ctx, taskID)
		})
	},
}

func init() {
	modelCmd.AddCommand(modelTrainCmd)
	modelCmd.AddCommand(modelEvaluateCmd)
	rootCmd.AddCommand(modelCmd)
}

// runModelTask runs one trainer task synchronously and prints its terminal
// registry status.
func runModelTask(cmd *cobra.Command, task func(context.Context, *ml.Trainer, string)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Store, logger.New("store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.New("model-command").Errorf("store close: %v", err)
		}
	}()

	predictor := ml.NewPredictor(st, logger.New("predictor"))
	registry := tasks.NewRegistry()
	trainer := ml.NewTrainer(st, st, predictor, registry, nil, logger.New("trainer"))

	taskID := uuid.NewString()
	task(ctx, trainer, taskID)

	status, _ := registry.Get(taskID)
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		return err
	}
	if status.Failed() {
		return fmt.Errorf("task failed: %v", status.Result["error"])
	}
	return nil
}
