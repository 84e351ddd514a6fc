package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	coremetrics "github.com/railops/induction/core/metrics"
	coreschedule "github.com/railops/induction/core/schedule"
	"github.com/railops/induction/infra/logger"
	"github.com/railops/induction/infra/ml"
	"github.com/railops/induction/infra/store"
)

var numTrains int

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Generate an induction plan and print it",
	RunE:  runSchedule,
}

func init() {
	scheduleCmd.Flags().IntVarP(&numTrains, "num-trains", "n", 0, "trains to select for service (0 = configured default)")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
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
			logger.New("schedule-command").Errorf("store close: %v", err)
		}
	}()

	predictor := ml.NewPredictor(st, logger.New("predictor"))
	pipeline := coreschedule.NewPipeline(st, predictor, coremetrics.NopSink{}, logger.New("pipeline"))

	n := numTrains
	if n <= 0 {
		n = cfg.Server.DefaultTrainCount
	}
	plan, err := pipeline.Generate(ctx, n)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}
