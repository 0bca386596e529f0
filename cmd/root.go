package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "callserver",
	Short: "Call signaling server: call invites, RTC tokens, live sessions",
	Long:  `HTTP + WebSocket API. Commands: serve, migrate, cleanup, token.`,
	RunE:  runServe, // 默认等同 "callserver serve"
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(tokenCmd)
}

// Execute 交给 main 处理错误
func Execute() error {
	return rootCmd.Execute()
}
