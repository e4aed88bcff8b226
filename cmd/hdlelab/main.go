// Command hdlelab elaborates CUE-described hardware designs into a
// persistent instantiation graph.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/hdlelab/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "hdlelab:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
