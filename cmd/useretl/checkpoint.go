package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"useretl/pkg/checkpoint"
	"useretl/pkg/ui"
)

var noBackup bool

// checkpointCmd represents the checkpoint command
var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or reset the ingestion checkpoint",
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the last successfully processed index",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointShow,
}

var checkpointResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the checkpoint so the next run starts at index 0",
	Long: `Remove the checkpoint so the next run starts at index 0.

The current file is copied to <checkpoint>.backup first unless --no-backup is
given. Rows already in the database are not touched.`,
	Args: cobra.NoArgs,
	RunE: runCheckpointReset,
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointShowCmd)
	checkpointCmd.AddCommand(checkpointResetCmd)

	checkpointCmd.PersistentFlags().StringVar(&checkpointPath, "checkpoint-file", "", "checkpoint file path")
	checkpointResetCmd.Flags().BoolVar(&noBackup, "no-backup", false, "do not keep a backup of the old checkpoint")
}

func checkpointManager(cmd *cobra.Command) (*checkpoint.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return checkpoint.NewManager(cfg.Ingest.CheckpointFile), nil
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
	cp, err := checkpointManager(cmd)
	if err != nil {
		return err
	}

	info, err := cp.Info()
	if err != nil {
		return err
	}

	ui.PrintInfo("Checkpoint file", cp.Path())
	if info == nil {
		ui.PrintInfo("Last index", "none (next run starts at 0)")
		return nil
	}
	ui.PrintInfo("Last index", strconv.Itoa(info.Index))
	ui.PrintInfo("Next index", strconv.Itoa(info.Index+1))
	ui.PrintInfo("Updated", info.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runCheckpointReset(cmd *cobra.Command, args []string) error {
	cp, err := checkpointManager(cmd)
	if err != nil {
		return err
	}

	if !cp.Exists() {
		ui.PrintInfo("No checkpoint at", cp.Path())
		return nil
	}

	if !noBackup {
		backup, err := cp.Backup()
		if err != nil {
			return err
		}
		ui.PrintInfo("Backup written", backup)
	}

	if err := cp.Reset(); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Checkpoint %s removed", cp.Path()))
	return nil
}
