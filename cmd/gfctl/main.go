// Command gfctl is the operational companion to gfproxy and gfcache:
// it is not on the GETFILE request path at all, it only talks to a
// running daemon's admin surface or helps generate config files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonnybach/low-level-file-server/cmd/gfctl/commands"
)

func main() {
	root := &cobra.Command{
		Use:   "gfctl",
		Short: "operational tooling for the gfsystem proxy and cache daemons",
	}
	root.AddCommand(commands.NewSegmentsCommand())
	root.AddCommand(commands.NewConfigCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gfctl:", err)
		os.Exit(1)
	}
}
