package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the livetrader CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("livetrader version %s\n", version)
		fmt.Println("A live trading account ledger and order reconciliation engine")
		fmt.Println("https://github.com/rustyeddy/livetrader")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
