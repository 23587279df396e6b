package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/buildmarkers/internal/config"
	"github.com/dshills/buildmarkers/internal/logging"
	"github.com/dshills/buildmarkers/internal/matcher"
)

// loadRegistry builds a registry with the built-in matchers plus every
// contribution named by --config. Configuration problems are logged; only
// unreadable files are errors.
func loadRegistry(cmd *cobra.Command, log *logging.Logger) (*matcher.Registry, matcher.LoadResult, error) {
	configs, err := cmd.Flags().GetStringSlice("config")
	if err != nil {
		return nil, matcher.LoadResult{}, fmt.Errorf("failed to get config flag: %w", err)
	}

	reg := matcher.NewRegistry(matcher.WithRegistryLogger(log))
	rep := matcher.LogReporter{Log: log.WithComponent("config")}
	result, err := config.LoadInto(reg, rep, configs...)
	if err != nil {
		return nil, result, err
	}
	return reg, result, nil
}

// selectMatchers resolves the --matcher names. With no names it selects
// the matchers contributed by --config files.
func selectMatchers(reg *matcher.Registry, names []string, contributed []string) ([]*matcher.ProblemMatcher, error) {
	if len(names) == 0 {
		names = contributed
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no problem matcher selected; use --matcher (see 'buildmarkers matchers')")
	}

	seen := make(map[string]bool, len(names))
	matchers := make([]*matcher.ProblemMatcher, 0, len(names))
	for _, name := range names {
		m, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		matchers = append(matchers, m)
	}
	return matchers, nil
}
