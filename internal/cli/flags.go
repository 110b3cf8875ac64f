package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// graphFlags holds the root command's flags. Scalar fields that were not set
// on the command line are left for the config file to fill.
type graphFlags struct {
	function   string
	selectPath string
	simplify   bool
	callers    string
	pathFrom   string
	pathTo     string
	configPath string
	excludes   []string
	workers    int
	workersSet bool
	basePrefix string
	baseSet    bool
	verbose    bool
	output     string
	watch      bool
	debounce   time.Duration
}

func OptionalStringFlag(cmd *cobra.Command, name string) (string, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return "", nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return strings.TrimSpace(value), nil
}

func optionalBoolFlag(cmd *cobra.Command, name string) (bool, error) {
	if cmd == nil || cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	value, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false, fmt.Errorf("failed to read --%s flag: %w", name, err)
	}
	return value, nil
}

func parseGraphFlags(cmd *cobra.Command) (graphFlags, error) {
	var gf graphFlags
	var err error

	if gf.function, err = OptionalStringFlag(cmd, "function"); err != nil {
		return gf, err
	}
	if gf.selectPath, err = OptionalStringFlag(cmd, "select"); err != nil {
		return gf, err
	}
	if gf.configPath, err = OptionalStringFlag(cmd, "config"); err != nil {
		return gf, err
	}
	if gf.basePrefix, err = OptionalStringFlag(cmd, "base-prefix"); err != nil {
		return gf, err
	}
	if gf.output, err = OptionalStringFlag(cmd, "output"); err != nil {
		return gf, err
	}
	if gf.callers, err = OptionalStringFlag(cmd, "callers"); err != nil {
		return gf, err
	}
	path, err := OptionalStringFlag(cmd, "path")
	if err != nil {
		return gf, err
	}
	if path != "" {
		from, to, ok := strings.Cut(path, ",")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return gf, fmt.Errorf("--path expects from,to, got %q", path)
		}
		gf.pathFrom, gf.pathTo = from, to
	}
	if gf.callers != "" && gf.pathFrom != "" {
		return gf, fmt.Errorf("--callers and --path cannot be combined")
	}
	if gf.simplify, err = optionalBoolFlag(cmd, "simplify"); err != nil {
		return gf, err
	}
	if gf.verbose, err = optionalBoolFlag(cmd, "verbose"); err != nil {
		return gf, err
	}

	if gf.watch, err = optionalBoolFlag(cmd, "watch"); err != nil {
		return gf, err
	}
	if cmd.Flags().Lookup("debounce") != nil {
		if gf.debounce, err = cmd.Flags().GetDuration("debounce"); err != nil {
			return gf, fmt.Errorf("failed to read --debounce flag: %w", err)
		}
	}

	if cmd.Flags().Lookup("exclude") != nil {
		if gf.excludes, err = cmd.Flags().GetStringArray("exclude"); err != nil {
			return gf, fmt.Errorf("failed to read --exclude flag: %w", err)
		}
	}
	if cmd.Flags().Lookup("workers") != nil {
		if gf.workers, err = cmd.Flags().GetInt("workers"); err != nil {
			return gf, fmt.Errorf("failed to read --workers flag: %w", err)
		}
		if gf.workers < 0 {
			return gf, fmt.Errorf("--workers must not be negative, got %d", gf.workers)
		}
		gf.workersSet = cmd.Flags().Changed("workers")
	}
	if cmd.Flags().Lookup("base-prefix") != nil {
		gf.baseSet = cmd.Flags().Changed("base-prefix")
	}
	return gf, nil
}
