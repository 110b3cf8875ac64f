package cli

import (
	"fmt"

	"github.com/skelly-dev/picgraph/internal/graph"
	"github.com/skelly-dev/picgraph/internal/walk"
	"github.com/spf13/cobra"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "picgraph [prefix=path]...",
		Short: "Build a call graph for Python and .pic.yml component libraries",
		Long: `Picgraph walks one or more component libraries, extracts every function,
partial and .pic.yml netlist, resolves names across modules and libraries,
and prints the resulting call graph as JSON.

Libraries are given as prefix=path. Their order is the priority used when a
.pic.yml component name matches functions in more than one library.
Libraries from picgraph.toml come first.`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         RunGraph,
	}

	flags := rootCmd.Flags()
	flags.StringP("function", "f", "", "Keep only functions with this qualified or simple name")
	flags.StringP("select", "s", "", "Print the value at a colon-separated path, e.g. functions:lib.cells.mzi:resolved_calls")
	flags.Bool("simplify", false, "Print function -> sorted callees instead of the full graph")
	flags.String("callers", "", "Print the functions that call or get this qualified function")
	flags.String("path", "", "Print the shortest call chain between two qualified functions, given as from,to")
	flags.String("config", "", "Config file (default: ./"+configFileName+" when present)")
	flags.StringArray("exclude", nil, "Gitignore-style pattern to skip under every library (repeatable)")
	flags.Int("workers", 0, "Files parsed concurrently (default: number of CPUs)")
	flags.String("base-prefix", graph.DefaultBasePrefix, "Library prefix searched when a partial's target is not found by name")
	flags.BoolP("verbose", "v", false, "Log per-file parse and resolution details to stderr")
	flags.StringP("output", "o", "", "Write JSON to this file instead of stdout")
	flags.Bool("watch", false, "Keep running and rebuild when library files change")
	flags.Duration("debounce", walk.DefaultDebounce, "Quiet period before rebuilding in --watch mode")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "picgraph %s\n", version)
		},
	}

	rootCmd.AddCommand(versionCmd)

	return rootCmd
}
