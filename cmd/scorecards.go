package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/brand-scorecard/internal/model"
	"github.com/sells-group/brand-scorecard/internal/store"
)

var scorecardsCmd = &cobra.Command{
	Use:   "scorecards",
	Short: "Inspect stored scorecards",
}

// -- scorecards list --

var scorecardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scorecards, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		brand, _ := cmd.Flags().GetString("brand")
		limit, _ := cmd.Flags().GetInt("limit")

		list, err := st.ListScorecards(ctx, store.ScorecardFilter{
			Status: model.ScorecardStatus(status),
			Brand:  brand,
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "scorecards list")
		}

		if len(list) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No scorecards found.")
			return nil
		}
		return printScorecards(cmd.OutOrStdout(), list)
	},
}

func printScorecards(w io.Writer, list []model.ScorecardSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBRAND\tSTATUS\tSIZE\tSENTIMENT\tCREATED")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%s\n",
			s.ID, s.BrandName, s.Status, s.CompanySize, s.Sentiment,
			s.CreatedAt.Local().Format(time.DateTime),
		)
	}
	return tw.Flush()
}

// -- scorecards get --

var scorecardsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one scorecard as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc, err := st.GetScorecard(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "scorecards get")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sc)
	},
}

// -- scorecards prune-cache --

var scorecardsPruneCmd = &cobra.Command{
	Use:   "prune-cache",
	Short: "Delete expired search cache entries",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteExpiredSearches(ctx)
		if err != nil {
			return eris.Wrap(err, "prune search cache")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired search cache entries.\n", n)
		return nil
	},
}

func init() {
	scorecardsListCmd.Flags().String("status", "", "filter by status (generating, completed, failed)")
	scorecardsListCmd.Flags().String("brand", "", "filter by brand name")
	scorecardsListCmd.Flags().Int("limit", 20, "maximum rows")

	scorecardsCmd.AddCommand(scorecardsListCmd, scorecardsGetCmd, scorecardsPruneCmd)
	rootCmd.AddCommand(scorecardsCmd)
}
