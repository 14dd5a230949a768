package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/hplcgreen/internal/scoring"
)

func newSchemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemes",
		Short: "List weighting schemes per level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeSchemes(cmd.OutOrStdout())
		},
	}
}

// writeSchemes prints each level with its schemes. The first one is the default.
func writeSchemes(w io.Writer) error {
	names := scoring.SchemeNames()
	for _, level := range scoring.Levels() {
		if _, err := fmt.Fprintf(w, "%s:\n", level); err != nil {
			return err
		}
		for i, name := range names[level] {
			marker := ""
			if i == 0 {
				marker = " (default)"
			}
			if _, err := fmt.Fprintf(w, "  %s%s\n", name, marker); err != nil {
				return err
			}
		}
	}
	return nil
}
