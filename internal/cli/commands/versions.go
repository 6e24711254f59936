package commands

import (
	"fmt"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewVersionsCommand creates the versions command.
func NewVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List the supported platform versions",
		Long: `List every platform version shadowbox can simulate, with the release
name and the artifact coordinate loaded for it. Versions disabled by
SHADOWBOX_PROJECT_VERSIONS are marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := RuntimeFrom(cmd.Context())
			if err != nil {
				return err
			}
			enabled, err := rt.Versions()
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Version", "Release", "Artifact", "Enabled"})
			for _, r := range rt.Catalog.Releases() {
				mark := ""
				if slices.Contains(enabled, r.Version) {
					mark = "yes"
				}
				t.AppendRow(table.Row{r.Version, r.Name, r.Dependency().String(), mark})
			}
			t.Render()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "(%d versions, %d enabled)\n", rt.Catalog.Len(), len(enabled))
			return nil
		},
	}
}
