package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/washcrew/app"
	"github.com/kilianp07/washcrew/config"
	"github.com/kilianp07/washcrew/infra/logger"
)

var (
	cfgPath     string
	datasetPath string
	startFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "washcrew",
	Short:         "Airport washroom cleaning crew planner",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().StringVarP(&datasetPath, "dataset", "d", "", "dataset file with washrooms, crews, flights and backlog")
	rootCmd.PersistentFlags().StringVar(&startFlag, "start", "", "planning start (RFC 3339), defaults to the configured start")
}

// Execute runs the CLI.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func parseStart() (time.Time, error) {
	if startFlag == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, startFlag)
	if err != nil {
		return time.Time{}, fmt.Errorf("--start: %w", err)
	}
	return t, nil
}

func requireDataset() error {
	if datasetPath == "" {
		return fmt.Errorf("--dataset is required")
	}
	return nil
}

// withService builds the service for cfg, runs fn and closes it.
func withService(cfg *config.Config, fn func(*app.Service) error) error {
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return fn(svc)
}
