package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/buildmarkers/internal/matcher"
)

// matcherInfo is the listing of one registered matcher.
type matcherInfo struct {
	Name         string `json:"name"`
	Label        string `json:"label,omitempty"`
	Owner        string `json:"owner"`
	Source       string `json:"source,omitempty"`
	FileLocation string `json:"fileLocation"`
	FilePrefix   string `json:"filePrefix,omitempty"`
	Patterns     int    `json:"patterns"`
	Watching     bool   `json:"watching"`
}

func describeMatcher(m *matcher.ProblemMatcher) matcherInfo {
	return matcherInfo{
		Name:         m.Name,
		Label:        m.Label,
		Owner:        m.Owner,
		Source:       m.Source,
		FileLocation: m.FileLocation.String(),
		FilePrefix:   m.FilePrefix,
		Patterns:     len(m.Patterns),
		Watching:     m.Watching != nil,
	}
}

func newMatchersCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "matchers",
		Short: "List the available problem matchers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := loadRegistry(cmd, newLogger(cmd))
			if err != nil {
				return err
			}
			infos := make([]matcherInfo, 0)
			for _, m := range reg.Matchers() {
				infos = append(infos, describeMatcher(m))
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			case "text":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tOWNER\tSOURCE\tLOCATION\tPATTERNS\tWATCHING")
				for _, i := range infos {
					location := i.FileLocation
					if i.FilePrefix != "" {
						location += " " + i.FilePrefix
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n", i.Name, i.Owner, i.Source, location, i.Patterns, i.Watching)
				}
				return tw.Flush()
			default:
				return fmt.Errorf("unknown format %q (must be text or json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	return cmd
}
