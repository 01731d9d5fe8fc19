package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/washcrew/app"
	"github.com/kilianp07/washcrew/dataset"
	"github.com/kilianp07/washcrew/infra/logger"
	"github.com/kilianp07/washcrew/pkg/export"
)

var (
	outPath      string
	outFormat    string
	horizonHours float64
	stepMinutes  int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a cleaning plan for a dataset",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")
	planCmd.Flags().StringVarP(&outFormat, "format", "f", string(export.FormatJSON), "output format: json, csv or schedule-csv")
	planCmd.Flags().Float64Var(&horizonHours, "horizon", 0, "planning horizon in hours, overrides the configuration")
	planCmd.Flags().IntVar(&stepMinutes, "step", 0, "engine tick in minutes, overrides the configuration")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	if err := requireDataset(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if horizonHours > 0 {
		cfg.Planning.HorizonHours = horizonHours
	}
	if stepMinutes > 0 {
		cfg.Planning.StepMinutes = stepMinutes
	}
	start, err := parseStart()
	if err != nil {
		return err
	}
	data, err := dataset.LoadData(datasetPath)
	if err != nil {
		return err
	}

	return withService(cfg, func(svc *app.Service) error {
		log := logger.New("plan")
		res, err := svc.Plan(cmd.Context(), data, start)
		if err != nil {
			return err
		}
		m := res.Metrics
		log.Infof("run %s assigned %d/%d tasks, sla %.1f%%, utilization %.1f%%, %d anomalies",
			res.RunID, m.AssignedTasks, m.TotalTasks, m.SLAComplianceRate, m.CrewUtilization, len(res.Anomalies))

		variants, err := svc.Compare(cmd.Context(), data, start)
		if err != nil {
			return err
		}
		for _, v := range variants {
			if v.Err != nil {
				log.Errorf("variant %s: %v", v.Variant, v.Err)
				continue
			}
			vm := v.Result.Metrics
			log.Infof("variant %s assigned %d/%d tasks, sla %.1f%%, utilization %.1f%%",
				v.Variant, vm.AssignedTasks, vm.TotalTasks, vm.SLAComplianceRate, vm.CrewUtilization)
		}

		var w io.Writer = cmd.OutOrStdout()
		if outPath != "-" && outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			w = f
		}
		return export.Write(w, res, export.Format(outFormat))
	})
}
