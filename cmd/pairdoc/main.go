// pairdoc: content rebalancing for a project's two context documents.
//
// A project keeps a structured store (context.json) and a narrative
// document (CONTEXT.md). pairdoc reports which items sit in the wrong one
// and moves them, backing up both documents first.
//
// Usage:
//
//	pairdoc analyze [dir]   # Read-only report with the balance score
//	pairdoc apply [dir]     # Move misplaced items
//	pairdoc batch --root .  # Rebalance every project under a root
//	pairdoc serve           # Start the MCP server (stdio transport)
package main

import (
	"os"

	"github.com/HendryAvila/pairdoc/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
