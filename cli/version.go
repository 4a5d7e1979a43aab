package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tablehealth version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("tablehealth", version)
		return nil
	},
}
