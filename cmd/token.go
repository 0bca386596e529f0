package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cydxin/call-sdk/service"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token [user_id]",
	Short: "Issue a bearer token for a user (development / integration)",
	Args:  cobra.ExactArgs(1),
	RunE:  runToken,
}

var tokenTTL time.Duration

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", service.DefaultTokenTTL, "token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	uid, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || uid == 0 {
		return fmt.Errorf("invalid user_id %q", args[0])
	}
	d, err := loadDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	if d.cfg.IsProduction() {
		return fmt.Errorf("token command is disabled when APP_ENV=production")
	}
	tok, err := service.NewTokenService(d.rdb).Issue(cmd.Context(), uid, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
