package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"useretl/pkg/storage"
	"useretl/pkg/ui"
)

var runsLimit int

// runsCmd lists recent rows of ingest_runs
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent batch runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	resolveDatabasePassword(cfg)

	store, err := storage.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	total, err := store.CountUsers(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(ui.Output(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRANGE\tINSERTED\tSKIPPED\tCHECKPOINT\tSTATUS")
	for _, r := range runs {
		status := ui.Green("ok")
		if r.Error != nil {
			status = ui.Red("failed")
		}
		fmt.Fprintf(tw, "%s\t%d-%d\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.StartIndex, r.EndIndex, r.Inserted, r.Skipped, r.CheckpointAfter, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ui.PrintInfo("\nUsers stored", fmt.Sprint(total))
	return nil
}
