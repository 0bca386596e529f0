package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create/upgrade tables (GORM AutoMigrate)",
	RunE:  runMigrate,
}

var fixLiveID bool

func init() {
	migrateCmd.Flags().BoolVar(&fixLiveID, "fix-live-id", false, "convert a legacy integer live session id column to uuid (clears the table)")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	d, err := loadDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	engine := d.newEngine(true)
	defer engine.Close()
	if fixLiveID {
		if err := engine.MigrateLiveSessionIDToUUID(); err != nil {
			return err
		}
	}
	if err := engine.AutoMigrate(); err != nil {
		return err
	}
	d.log.Info("migrate done", zap.String("table_prefix", d.cfg.TablePrefix))
	return nil
}
