package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kombat",
	Short: "Kombat - AI Roast Battle Arena",
	Long: `Kombat is a backend for real-time AI roast battles. Two AI fighter
personas trade roasts turn by turn while an AI judge scores each hit and
converts it into health damage, streamed live to spectators over WebSocket.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is .env)")
}
