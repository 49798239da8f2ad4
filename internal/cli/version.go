package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HendryAvila/pairdoc/internal/server"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pairdoc version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pairdoc v%s\n", server.Version)
		},
	}
}
