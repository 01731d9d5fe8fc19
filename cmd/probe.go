package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/washcrew/app"
	"github.com/kilianp07/washcrew/dataset"
)

var probeIdle bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Estimate emergency responsiveness for a dataset",
	RunE:  runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeIdle, "idle", false, "probe the roster without routine work")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, _ []string) error {
	if err := requireDataset(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
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
		r, err := svc.Probe(cmd.Context(), data, start, probeIdle)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "samples:        %d (%d answered)\n", r.Samples, r.SuccessfulSamples)
		fmt.Fprintf(out, "availability:   %.1f%%\n", r.AvailabilityRate*100)
		fmt.Fprintf(out, "crews eligible: %.2f on average\n", r.AvgCrewAvailable)
		fmt.Fprintf(out, "response:       avg %.1f min, min %.1f min, max %.1f min\n",
			r.AvgResponseMinutes, r.MinResponseMinutes, r.MaxResponseMinutes)
		return nil
	})
}
