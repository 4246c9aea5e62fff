package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/aretw0/chatflow"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the chatflow build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatflow version %s (%s %s/%s)\n",
				strings.TrimSpace(chatflow.Version), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	})
}
