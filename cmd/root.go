package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "goredis",
	Short: "A Redis-like server implemented in Go",
	Long: "goredis is a Redis-compatible server implemented in Go for learning purposes.\n" +
		"It runs a single-threaded epoll event loop that serves RESP clients.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
