package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/brand-scorecard/internal/registry"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the registered agents and workflows",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initPipeline(cmd.Context(), "run", false)
		if err != nil {
			return err
		}
		defer env.Close()

		return printRegistry(cmd.OutOrStdout(), env.Registry)
	},
}

func printRegistry(w io.Writer, reg *registry.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tDESCRIPTION")
	for _, info := range reg.Tools() {
		fmt.Fprintf(tw, "agent\t%s\t%s\n", info.ID, info.Description)
	}
	for _, info := range reg.Workflows() {
		fmt.Fprintf(tw, "workflow\t%s\t%s (%s)\n", info.ID, info.Description, strings.Join(info.Steps, " > "))
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}
