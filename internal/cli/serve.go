package cli

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	pdserver "github.com/HendryAvila/pairdoc/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio transport)",
		Long: `Starts the MCP server on stdin/stdout. Add it to an AI tool's MCP config:

  {
    "mcpServers": {
      "pairdoc": {
        "command": "pairdoc",
        "args": ["serve"]
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, cleanup, err := pdserver.New(a.cfg, a.logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			defer cleanup()
			return server.ServeStdio(s)
		},
	}
}
