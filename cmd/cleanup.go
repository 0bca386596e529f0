package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete ended live sessions older than the retention window, once",
	RunE:  runCleanup,
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	d, err := loadDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	engine := d.newEngine(true)
	defer engine.Close()
	res, err := engine.RunCleanup(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "batches=%d deleted=%d\n", res.Batches, res.Deleted)
	return nil
}
