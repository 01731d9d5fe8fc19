package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kilianp07/washcrew/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Plan periodically and expose Prometheus metrics",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := requireDataset(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if startFlag != "" {
		cfg.Planning.Start = startFlag
		if err := cfg.Planning.Validate(); err != nil {
			return err
		}
	}
	return withService(cfg, func(svc *app.Service) error {
		return svc.Serve(cmd.Context(), datasetPath)
	})
}
