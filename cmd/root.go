package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "blackroom",
	Short: "BLACK ROOM is a Telegram music bot.",
	Long:  `BLACK ROOM finds tracks across several sources, delivers them as audio messages and curates house radio channels.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return botCmd.RunE(cmd, args)
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
