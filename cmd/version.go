package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped by the release build; "dev" otherwise.
var version = "dev"

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the weaver version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})
}
